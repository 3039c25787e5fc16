// Package relay implements the HTTP adapter for the image relay endpoints.
package relay

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bnema/imagerelay/internal/boundaries/in"
	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/internal/logging"
)

// RouteNotFound is the body sent for unknown routes and unclassified errors.
const RouteNotFound = "Route not found"

// ErrorResponse is the JSON body of a classified failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves the relay endpoints.
type Handler struct {
	syncSvc   in.SyncService
	imagesSvc in.ImageService
	healthSvc in.HealthService
}

// NewHandler creates a new relay HTTP handler.
func NewHandler(syncSvc in.SyncService, imagesSvc in.ImageService, healthSvc in.HealthService) *Handler {
	return &Handler{
		syncSvc:   syncSvc,
		imagesSvc: imagesSvc,
		healthSvc: healthSvc,
	}
}

// Register mounts the relay routes on e. Extra middleware applies to the
// sync and prune routes only.
func (h *Handler) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)
	e.GET("/ready", h.Ready)
	e.GET("/imagesync", h.ImageSync, mw...)
	e.GET("/prune_images", h.PruneImages, mw...)
}

// Health always answers OK while the process is serving.
func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready answers OK when the container engine is reachable.
func (h *Handler) Ready(c echo.Context) error {
	if err := h.healthSvc.Ready(c.Request().Context()); err != nil {
		return c.String(http.StatusServiceUnavailable, "engine unavailable")
	}
	return c.String(http.StatusOK, "OK")
}

// ImageSync relays the image named by the "image" query parameter.
func (h *Handler) ImageSync(c echo.Context) error {
	image := c.QueryParam("image")

	ctx := logging.CtxWithFields(c.Request().Context(), map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "http",
		logging.FieldHandler: "ImageSync",
	})

	// A client disconnect must not stop the pipeline between push and cleanup.
	result, err := h.syncSvc.Sync(context.WithoutCancel(ctx), domain.SyncRequest{Image: image})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// PruneImages prunes unused images and returns the engine's report.
func (h *Handler) PruneImages(c echo.Context) error {
	ctx := logging.CtxWithFields(c.Request().Context(), map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "http",
		logging.FieldHandler: "PruneImages",
	})

	report, err := h.imagesSvc.Prune(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// classify maps a domain error to its status and kind. ok is false for
// errors outside the domain taxonomy.
func classify(err error) (status int, kind string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrMalformedReference):
		return http.StatusBadRequest, "malformed_reference", true
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict, "sync_in_progress", true
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", true
	case errors.Is(err, domain.ErrCleanupFailed):
		return http.StatusInternalServerError, "cleanup_failed", true
	case errors.Is(err, domain.ErrEngineOperationFailed):
		return http.StatusBadGateway, "engine_operation_failed", true
	default:
		return 0, "", false
	}
}

// ErrorHandler writes domain errors as JSON with their mapped status. Unknown
// routes and anything unclassified get a plain 404 "Route not found".
func ErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		log := logging.FromCtx(c.Request().Context())

		if status, kind, ok := classify(err); ok {
			log.Debug().Err(err).Int(logging.FieldStatus, status).Msg("request failed")
			if writeErr := c.JSON(status, ErrorResponse{Error: kind, Message: err.Error()}); writeErr != nil {
				log.Error().Err(writeErr).Msg("failed to write error response")
			}
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code >= http.StatusInternalServerError {
			if writeErr := c.JSON(he.Code, ErrorResponse{Error: "internal", Message: http.StatusText(he.Code)}); writeErr != nil {
				log.Error().Err(writeErr).Msg("failed to write error response")
			}
			return
		}

		if writeErr := c.String(http.StatusNotFound, RouteNotFound); writeErr != nil {
			log.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}
