package newsletter

import (
	"context"

	"jan-server/services/newsletter-api/internal/domain/subscriber"
)

// Repository persists issues and their delivery tasks.
type Repository interface {
	InsertIssue(ctx context.Context, issue *Issue) error
	// EnqueueDeliveries writes one delivery task per recipient and returns the number written.
	EnqueueDeliveries(ctx context.Context, issueID string, recipients []subscriber.Email) (int64, error)
	// FindIssue returns nil when the issue does not exist.
	FindIssue(ctx context.Context, issueID string) (*Issue, error)
	CountPendingDeliveries(ctx context.Context, issueID string) (int64, error)
}
