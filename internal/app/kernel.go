package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/bnema/imagerelay/internal/adapters/out/docker"
	"github.com/bnema/imagerelay/internal/adapters/out/inflight"
	"github.com/bnema/imagerelay/internal/adapters/out/telemetry"
	"github.com/bnema/imagerelay/internal/boundaries/in"
	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/config"
	"github.com/bnema/imagerelay/internal/usecase/health"
	"github.com/bnema/imagerelay/internal/usecase/images"
	"github.com/bnema/imagerelay/internal/usecase/imagesync"
	"github.com/bnema/imagerelay/pkg/version"
)

// Kernel holds the wired services. It starts no listeners, so the CLI can
// run a single sync or prune in-process.
type Kernel struct {
	syncSvc   in.SyncService
	imagesSvc in.ImageService
	healthSvc in.HealthService
	registry  *prometheus.Registry
	cleanup   func() error
}

// NewKernel connects to the container engine and wires every service.
func NewKernel(cfg *config.Config, log zerolog.Logger) (*Kernel, error) {
	runtime, err := docker.NewRuntime(cfg.Docker.Host)
	if err != nil {
		log.Error().Err(err).Msg("failed to create Docker runtime")
		return nil, fmt.Errorf("failed to create Docker runtime: %w", err)
	}

	k := newKernel(cfg, runtime)
	k.cleanup = runtime.Close
	return k, nil
}

func newKernel(cfg *config.Config, engine out.ImageEngine) *Kernel {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	telemetry.RegisterBuildInfo(reg, version.Get())
	metrics := telemetry.NewMetrics(reg)

	return &Kernel{
		syncSvc: imagesync.NewService(engine, inflight.NewRegistry(), metrics, imagesync.Config{
			DestinationRepository: cfg.Relay.DestinationRepository,
			Credentials:           cfg.Credentials(),
			StrictTag:             cfg.Sync.StrictTag,
		}),
		imagesSvc: images.NewService(engine, metrics, cfg.Prune.Until),
		healthSvc: health.NewService(engine),
		registry:  reg,
		cleanup:   func() error { return nil },
	}
}

// Close releases the engine connection.
func (k *Kernel) Close() error { return k.cleanup() }

func (k *Kernel) Sync() in.SyncService { return k.syncSvc }

func (k *Kernel) Images() in.ImageService { return k.imagesSvc }

func (k *Kernel) Health() in.HealthService { return k.healthSvc }

// Registry is the Prometheus registry holding every relay metric.
func (k *Kernel) Registry() *prometheus.Registry { return k.registry }

