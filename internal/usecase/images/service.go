// Package images implements the image prune use case.
package images

import (
	"context"
	"fmt"

	"github.com/bnema/imagerelay/internal/boundaries/in"
	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/internal/logging"
)

// DefaultPruneUntil is the age filter applied when none is configured.
const DefaultPruneUntil = "1m"

var _ in.ImageService = (*Service)(nil)

// Service prunes unused images from the engine.
type Service struct {
	engine  imageEngine
	metrics out.RelayMetrics
	until   string
}

type imageEngine interface {
	PruneImages(ctx context.Context, until string) (domain.PruneReport, error)
}

// NewService creates a new images service. An empty until falls back to
// DefaultPruneUntil.
func NewService(engine imageEngine, metrics out.RelayMetrics, until string) *Service {
	if until == "" {
		until = DefaultPruneUntil
	}
	if metrics == nil {
		metrics = out.NopMetrics{}
	}
	return &Service{
		engine:  engine,
		metrics: metrics,
		until:   until,
	}
}

// Prune removes unused images older than the configured age and returns the
// engine's report unchanged. An empty report is a success.
func (s *Service) Prune(ctx context.Context) (domain.PruneReport, error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Prune",
		"until":              s.until,
	})
	log := logging.FromCtx(ctx)

	report, err := s.engine.PruneImages(ctx, s.until)
	if err != nil {
		s.metrics.PruneCompleted(out.ResultEngineFailure, 0)
		log.Error().Err(err).Msg("prune failed")
		return domain.PruneReport{}, fmt.Errorf("%w: prune images: %v", domain.ErrEngineOperationFailed, err)
	}

	s.metrics.PruneCompleted(out.ResultSuccess, report.SpaceReclaimed)
	log.Info().
		Int("images_deleted", len(report.ImagesDeleted)).
		Uint64("space_reclaimed", report.SpaceReclaimed).
		Msg("prune completed")

	return report, nil
}
