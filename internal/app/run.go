// Package app wires the relay together and runs it.
package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/bnema/imagerelay/internal/adapters/in/http/middleware"
	"github.com/bnema/imagerelay/internal/adapters/in/http/relay"
	"github.com/bnema/imagerelay/internal/adapters/out/ratelimit"
	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/config"
	"github.com/bnema/imagerelay/internal/logging"
	"github.com/bnema/imagerelay/pkg/version"
)

const (
	limiterEvictInterval = time.Minute
	limiterIdleTimeout   = 10 * time.Minute
)

// Run serves the relay until ctx is cancelled or SIGINT/SIGTERM arrives.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log = log.With().Str(logging.FieldLayer, "app").Logger()

	kernel, err := NewKernel(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := kernel.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close Docker client")
		}
	}()

	if err := kernel.Health().Ready(ctx); err != nil {
		log.Warn().Err(err).Msg("container engine not reachable yet, /ready will report 503")
	}

	var limiter out.RateLimiter
	if cfg.Server.RateLimit.RPS > 0 {
		store := ratelimit.NewMemoryStore(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, log)
		go store.RunEvictor(ctx, limiterEvictInterval, limiterIdleTimeout)
		limiter = store
	}

	e := NewServer(kernel, cfg, log, limiter)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).
			Str("destination", cfg.Relay.DestinationRepository).
			Str("version", version.Get().Version).
			Msg("relay listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown error")
		return err
	}

	log.Info().Msg("relay stopped")
	return nil
}

// NewServer builds the echo instance serving the relay routes and /metrics.
// A nil limiter disables rate limiting.
func NewServer(k *Kernel, cfg *config.Config, log zerolog.Logger, limiter out.RateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = middleware.IPExtractor(cfg.Server.TrustedProxies)
	e.HTTPErrorHandler = relay.ErrorHandler()

	// Outermost, so it sees the status written by the error handler.
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "imagerelay",
		Registerer: k.Registry(),
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.PanicRecovery(log))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: k.Registry(),
	}))

	var guarded []echo.MiddlewareFunc
	if limiter != nil {
		guarded = append(guarded, middleware.RateLimit(limiter))
	}
	relay.NewHandler(k.Sync(), k.Images(), k.Health()).Register(e, guarded...)

	return e
}
