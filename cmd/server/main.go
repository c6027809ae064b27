package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jo-hoe/goimageindex/internal/backend"
	"github.com/jo-hoe/goimageindex/internal/common"
	"github.com/jo-hoe/goimageindex/internal/core"
	frontend "github.com/jo-hoe/goimageindex/internal/frontend"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// getConfigPath returns the config file location and whether it was set explicitly.
func getConfigPath() (string, bool) {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, true
	}

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml"), false
}

func loadConfig() (*core.ServiceConfig, error) {
	configPath, explicit := getConfigPath()
	config, err := core.LoadConfig(configPath)
	if err == nil {
		return config, nil
	}
	// Without CONFIG_PATH a missing config.yaml means built-in defaults
	if !explicit && errors.Is(err, os.ErrNotExist) {
		log.Printf("no config at %s, using defaults", configPath)
		config = core.DefaultConfig()
		return config, config.Normalize()
	}
	return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
}

func main() {
	config, err := loadConfig()
	if err != nil {
		log.Printf("%v", err)
		panic(err)
	}

	coreService, err := core.NewCoreService(context.Background(), config)
	if err != nil {
		log.Printf("failed to create core service: %v", err)
		panic(err)
	}
	server := defineServer()

	apiService := backend.NewAPIService(config, coreService)
	apiService.SetRoutes(server)
	frontendService := frontend.NewFrontendService(config, coreService)
	frontendService.SetRoutes(server)

	portString := fmt.Sprintf(":%d", config.Port)

	go func() {
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Printf("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := coreService.Close(); err != nil {
		log.Printf("core service close error: %v", err)
	}
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == backend.ProbePath
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Error("request", append(attrs, "error", v.Error)...)
			} else {
				slog.Info("request", attrs...)
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.GenericEchoValidator{}

	return e
}
