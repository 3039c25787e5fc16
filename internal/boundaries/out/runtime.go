// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (Docker, rate limiting, in-flight tracking).
package out

import (
	"context"

	"github.com/bnema/imagerelay/internal/domain"
)

// ImageEngine defines the image operations the relay needs from a container engine.
// This interface abstracts the underlying engine (Docker, Podman, etc.).
type ImageEngine interface {
	// PullImage pulls ref and consumes the progress stream to completion.
	PullImage(ctx context.Context, ref string) error
	// TagImage creates target pointing at the image identified by source.
	TagImage(ctx context.Context, source, target string) error
	// PushImage pushes ref using creds and consumes the progress stream to completion.
	PushImage(ctx context.Context, ref string, creds domain.Credentials) (PushResult, error)
	// RemoveImage removes ref from the local image store.
	RemoveImage(ctx context.Context, ref string, force bool) error
	// PruneImages removes unused images older than until.
	PruneImages(ctx context.Context, until string) (domain.PruneReport, error)

	// Ping checks that the engine is reachable.
	Ping(ctx context.Context) error
}

// PushResult is the final status reported by the engine after a push.
type PushResult struct {
	Tag    string
	Digest string
	Size   int
}
