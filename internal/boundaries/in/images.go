// Package in defines input ports (interfaces) for use cases.
package in

import (
	"context"

	"github.com/bnema/imagerelay/internal/domain"
)

// ImageService defines image maintenance operations.
type ImageService interface {
	// Prune removes unused images older than the configured age.
	Prune(ctx context.Context) (domain.PruneReport, error)
}

// SyncService relays one image to the destination repository.
type SyncService interface {
	Sync(ctx context.Context, req domain.SyncRequest) (domain.SyncResult, error)
}
