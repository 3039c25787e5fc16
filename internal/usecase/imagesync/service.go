// Package imagesync relays a source image into the destination repository:
// pull, tag, push, then remove both local copies.
package imagesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/imagerelay/internal/boundaries/in"
	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/internal/logging"
)

var _ in.SyncService = (*Service)(nil)

// Config holds the fixed parameters of every sync.
type Config struct {
	// DestinationRepository receives every relayed image, e.g. "dierbei/csi_demo".
	DestinationRepository string
	// Credentials are used for the push unless the request carries its own.
	Credentials domain.Credentials
	// StrictTag turns a tagging failure into a sync failure.
	StrictTag bool
}

type imageEngine interface {
	PullImage(ctx context.Context, ref string) error
	TagImage(ctx context.Context, source, target string) error
	PushImage(ctx context.Context, ref string, creds domain.Credentials) (out.PushResult, error)
	RemoveImage(ctx context.Context, ref string, force bool) error
}

// Service runs the relay pipeline.
type Service struct {
	engine   imageEngine
	inflight out.InFlightTracker
	metrics  out.RelayMetrics
	cfg      Config
	now      func() time.Time
}

// NewService creates a new sync service. A nil metrics records nothing.
func NewService(engine imageEngine, inflight out.InFlightTracker, metrics out.RelayMetrics, cfg Config) *Service {
	if metrics == nil {
		metrics = out.NopMetrics{}
	}
	return &Service{
		engine:   engine,
		inflight: inflight,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Sync relays req.Image into the destination repository.
//
// Steps run in order and are never retried. A failure leaves whatever earlier
// steps did in place: a failed source removal skips the destination removal.
func (s *Service) Sync(ctx context.Context, req domain.SyncRequest) (result domain.SyncResult, err error) {
	ctx = logging.CtxWithFields(ctx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "Sync",
		logging.FieldImage:   req.Image,
	})
	log := logging.FromCtx(ctx)

	defer func() {
		s.metrics.SyncCompleted(resultLabel(err))
	}()

	ref, err := domain.ParseImageReference(req.Image)
	if err != nil {
		log.Warn().Err(err).Msg("rejected image reference")
		return domain.SyncResult{}, err
	}

	release, ok := s.inflight.TryAcquire(ref.DestinationTag)
	if !ok {
		log.Warn().Str("dest_tag", ref.DestinationTag).Msg("sync already running")
		return domain.SyncResult{}, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, ref.DestinationTag)
	}
	defer release()

	target := s.cfg.DestinationRepository + ":" + ref.DestinationTag
	creds := s.cfg.Credentials
	if !req.Credentials.IsZero() {
		creds = req.Credentials
	}

	log.Info().Str("pull_ref", ref.PullRef).Str("target", target).Msg("sync started")

	if err := s.step(out.StepPull, func() error {
		return s.engine.PullImage(ctx, ref.PullRef)
	}); err != nil {
		return domain.SyncResult{}, engineErr("pull", ref.PullRef, err)
	}

	if err := s.step(out.StepTag, func() error {
		return s.engine.TagImage(ctx, ref.PullRef, target)
	}); err != nil {
		if s.cfg.StrictTag {
			return domain.SyncResult{}, engineErr("tag", target, err)
		}
		log.Warn().Err(err).Str("target", target).Msg("tagging failed, pushing anyway")
	}

	var pushed out.PushResult
	if err := s.step(out.StepPush, func() error {
		var pushErr error
		pushed, pushErr = s.engine.PushImage(ctx, target, creds)
		return pushErr
	}); err != nil {
		return domain.SyncResult{}, engineErr("push", target, err)
	}
	if pushed.Digest != "" {
		log.Info().Str("digest", pushed.Digest).Int("size", pushed.Size).Msg("image pushed")
	}

	if err := s.step(out.StepRemoveSource, func() error {
		return s.engine.RemoveImage(ctx, ref.PullRef, true)
	}); err != nil {
		return domain.SyncResult{}, cleanupErr(ref.PullRef, err)
	}

	if err := s.step(out.StepRemoveDestination, func() error {
		return s.engine.RemoveImage(ctx, target, true)
	}); err != nil {
		return domain.SyncResult{}, cleanupErr(target, err)
	}

	log.Info().Str("target", target).Msg("sync completed")

	return domain.SyncResult{
		SourceImage: ref.Joined,
		DestImage:   ref.DestinationTag,
	}, nil
}

func (s *Service) step(step out.SyncStep, fn func() error) error {
	start := s.now()
	err := fn()
	s.metrics.ObserveStep(step, s.now().Sub(start))
	return err
}

func engineErr(op, ref string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", domain.ErrEngineOperationFailed, op, ref, err)
}

func cleanupErr(ref string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrCleanupFailed, ref, err)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return out.ResultSuccess
	case errors.Is(err, domain.ErrMalformedReference):
		return out.ResultMalformed
	case errors.Is(err, domain.ErrSyncInProgress):
		return out.ResultInProgress
	case errors.Is(err, domain.ErrEngineOperationFailed):
		return out.ResultEngineFailure
	case errors.Is(err, domain.ErrCleanupFailed):
		return out.ResultCleanupFailure
	default:
		return out.ResultError
	}
}
