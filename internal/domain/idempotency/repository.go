package idempotency

import (
	"context"
	"time"
)

// Repository persists idempotency records. Every method runs in the
// transaction bound to ctx.
type Repository interface {
	// InsertIfAbsent claims (actorID, key). It reports false when a record already exists.
	InsertIfAbsent(ctx context.Context, actorID string, key Key, createdAt time.Time) (bool, error)
	// Find returns nil when no record exists.
	Find(ctx context.Context, actorID string, key Key) (*Record, error)
	// Reclaim takes over a record that has no response and was created before staleBefore.
	Reclaim(ctx context.Context, actorID string, key Key, staleBefore, now time.Time) (bool, error)
	SaveResponse(ctx context.Context, actorID string, key Key, resp Response) error
}
