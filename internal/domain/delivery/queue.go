package delivery

import "context"

// Queue is the durable delivery queue. Dequeue and Delete must run in the
// transaction bound to ctx; the dequeued row stays locked until it ends.
type Queue interface {
	// Dequeue locks one task not locked by anyone else. It returns nil when none is available.
	Dequeue(ctx context.Context) (*Task, error)
	Delete(ctx context.Context, issueID, recipientEmail string) error
	Depth(ctx context.Context) (int64, error)
}
