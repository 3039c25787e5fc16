package out

import "time"

// SyncStep names one stage of the relay pipeline.
type SyncStep string

const (
	StepPull              SyncStep = "pull"
	StepTag               SyncStep = "tag"
	StepPush              SyncStep = "push"
	StepRemoveSource      SyncStep = "remove_source"
	StepRemoveDestination SyncStep = "remove_destination"
)

// RelayMetrics records relay outcomes.
type RelayMetrics interface {
	ObserveStep(step SyncStep, d time.Duration)
	SyncCompleted(result string)
	PruneCompleted(result string, spaceReclaimed uint64)
}

// Outcome labels for SyncCompleted and PruneCompleted.
const (
	ResultSuccess        = "success"
	ResultMalformed      = "malformed_reference"
	ResultInProgress     = "in_progress"
	ResultEngineFailure  = "engine_failure"
	ResultCleanupFailure = "cleanup_failure"
	ResultError          = "error"
)

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveStep(SyncStep, time.Duration) {}
func (NopMetrics) SyncCompleted(string) {}
func (NopMetrics) PruneCompleted(string, uint64) {}
