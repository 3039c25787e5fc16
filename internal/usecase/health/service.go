// Package health implements the readiness check.
package health

import (
	"context"
	"time"

	"github.com/bnema/imagerelay/internal/boundaries/in"
	"github.com/bnema/imagerelay/internal/logging"
)

const defaultPingTimeout = 3 * time.Second

var _ in.HealthService = (*Service)(nil)

type pinger interface {
	Ping(ctx context.Context) error
}

// Service implements the HealthService interface.
type Service struct {
	engine  pinger
	timeout time.Duration
}

// NewService creates a new health service.
func NewService(engine pinger) *Service {
	return &Service{engine: engine, timeout: defaultPingTimeout}
}

// Ready pings the engine, giving up after a short timeout.
func (s *Service) Ready(ctx context.Context) error {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Ready",
	})
	log := logging.FromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.engine.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("engine not ready")
		return err
	}
	return nil
}
