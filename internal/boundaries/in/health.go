package in

import "context"

// HealthService reports whether the relay can reach its container engine.
type HealthService interface {
	// Ready returns nil when the engine answers a ping.
	Ready(ctx context.Context) error
}
