package frontend

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jo-hoe/goimageindex/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const MainPageName = "index.html"

// FrontendService serves uploaded files and the prebuilt client bundle.
type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.GET(service.config.UploadRoute+"/*", service.uploadedFileHandler)

	// Client bundle at the site root, everything unmatched falls through to 404
	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: service.skipStatic,
		Root:    service.config.ClientDir,
		Index:   MainPageName,
	}))
}

func (service *FrontendService) skipStatic(ctx echo.Context) bool {
	path := ctx.Request().URL.Path
	return strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, service.config.UploadRoute+"/")
}

func (service *FrontendService) uploadedFileHandler(ctx echo.Context) error {
	name := ctx.Param("*")
	if ctx.Request().URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			slog.Warn("uploadedFileHandler: invalid file name",
				"status", http.StatusNotFound, "name", name, "error", err)
			return echo.ErrNotFound
		}
		name = unescaped
	}

	object, err := service.coreService.OpenUpload(ctx.Request().Context(), name)
	if errors.Is(err, core.ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		slog.Error("uploadedFileHandler: failed to open upload",
			"status", http.StatusInternalServerError, "name", name, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read upload")
	}
	defer func() {
		if cerr := object.Close(); cerr != nil {
			slog.Error("uploadedFileHandler: failed to close upload", "name", name, "error", cerr)
		}
	}()

	http.ServeContent(ctx.Response(), ctx.Request(), name, object.ModTime, object)
	return nil
}
