package out

import "context"

// RateLimiter admits or rejects requests per key.
type RateLimiter interface {
	// Allow reports whether one more request for key may proceed now.
	// Key is typically "ip:<address>".
	Allow(ctx context.Context, key string) bool
}

// InFlightTracker grants exclusive use of a key for the duration of one operation.
type InFlightTracker interface {
	// TryAcquire claims key. It returns false without blocking when key is
	// already held. The returned release func is safe to call more than once.
	TryAcquire(key string) (release func(), ok bool)
}
