package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/goimageindex/internal/core"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	ProbePath = "/probe"
	// UploadField is the multipart field files are uploaded under.
	UploadField = "files[]"
	mimePNG     = "image/png"
)

type APIService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type thumbnailRequest struct {
	ID    string `param:"id" validate:"required"`
	Width int    `query:"width" validate:"omitempty,min=1,max=4096"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
		config:      config,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET(ProbePath, func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	var uploadMiddleware []echo.MiddlewareFunc
	if s.config.MaxUploadSize != "" {
		uploadMiddleware = append(uploadMiddleware, middleware.BodyLimit(s.config.MaxUploadSize))
	}

	api := e.Group("/api")
	api.GET("/search", s.searchHandler)
	api.POST("/image", s.uploadImageHandler, uploadMiddleware...)
	api.GET("/image/:id", s.getImageHandler)
	api.GET("/image/:id/thumbnail", s.thumbnailHandler)
}

func (s *APIService) searchHandler(ctx echo.Context) error {
	images, err := s.coreService.SearchImages(ctx.Request().Context())
	if err != nil {
		return s.respondError(ctx, "searchHandler", err)
	}
	return ctx.JSON(http.StatusOK, images)
}

func (s *APIService) uploadImageHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		// body limit exceeded while reading the form
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			slog.Warn("uploadImageHandler: rejected upload",
				"status", httpErr.Code, "error", err)
			return httpErr
		}
		return s.respondError(ctx, "uploadImageHandler", fmt.Errorf("%w: %w", core.ErrValidation, err))
	}

	images, err := s.coreService.AddImages(ctx.Request().Context(), form.File[UploadField])
	if err != nil {
		return s.respondError(ctx, "uploadImageHandler", err)
	}

	slog.Debug("uploadImageHandler: upload complete", "count", len(images))
	return ctx.String(http.StatusOK, http.StatusText(http.StatusOK))
}

func (s *APIService) getImageHandler(ctx echo.Context) error {
	image, err := s.coreService.GetImageByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return s.respondError(ctx, "getImageHandler", err)
	}
	return ctx.JSON(http.StatusOK, image)
}

func (s *APIService) thumbnailHandler(ctx echo.Context) error {
	var req thumbnailRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	thumbnail, err := s.coreService.Thumbnail(ctx.Request().Context(), req.ID, req.Width)
	if err != nil {
		return s.respondError(ctx, "thumbnailHandler", err)
	}
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

// respondError maps core failure classes to status codes.
func (s *APIService) respondError(ctx echo.Context, handler string, err error) error {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(handler+": request failed", "status", status, "error", err)
	} else {
		slog.Warn(handler+": request rejected", "status", status, "error", err)
	}
	return ctx.String(status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Image not found"
	case errors.Is(err, core.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "Image cannot be previewed"
	case errors.Is(err, core.ErrStorage):
		return http.StatusInternalServerError, "Failed to store or read images"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
