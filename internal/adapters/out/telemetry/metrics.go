// Package telemetry exposes relay metrics through Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/pkg/version"
)

const namespace = "imagerelay"

var _ out.RelayMetrics = (*Metrics)(nil)

// Metrics holds the relay's Prometheus instruments.
type Metrics struct {
	syncTotal      *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	pruneTotal     *prometheus.CounterVec
	spaceReclaimed prometheus.Counter
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		syncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Image sync requests by result.",
		}, []string{"result"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_step_duration_seconds",
			Help:      "Duration of each sync step.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		pruneTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_total",
			Help:      "Image prune requests by result.",
		}, []string{"result"}),
		spaceReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_space_reclaimed_bytes_total",
			Help:      "Bytes reclaimed by image prunes.",
		}),
	}
}

// ObserveStep records how long one sync step took.
func (m *Metrics) ObserveStep(step out.SyncStep, d time.Duration) {
	m.stepDuration.WithLabelValues(string(step)).Observe(d.Seconds())
}

// SyncCompleted counts a finished sync.
func (m *Metrics) SyncCompleted(result string) {
	m.syncTotal.WithLabelValues(result).Inc()
}

// PruneCompleted counts a finished prune and the space it freed.
func (m *Metrics) PruneCompleted(result string, spaceReclaimed uint64) {
	m.pruneTotal.WithLabelValues(result).Inc()
	if spaceReclaimed > 0 {
		m.spaceReclaimed.Add(float64(spaceReclaimed))
	}
}

// RegisterBuildInfo exposes imagerelay_build_info with the running version as labels.
func RegisterBuildInfo(reg prometheus.Registerer, info version.Info) {
	promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the running binary. Always 1.",
	}, []string{"version", "commit"}).WithLabelValues(info.Version, info.Commit).Set(1)
}
