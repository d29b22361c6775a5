package newsletter

import "time"

// Issue is an immutable published newsletter.
type Issue struct {
	ID          string
	Title       string
	TextContent string
	HTMLContent string
	PublishedAt time.Time
}

// PublishParams is the content submitted by the operator.
type PublishParams struct {
	Title       string
	TextContent string
	HTMLContent string
}

// PublishResult reports what Publish wrote.
type PublishResult struct {
	Issue    Issue
	Enqueued int64
	Skipped  int
}

// IssueStatus is an issue with the number of deliveries still queued.
type IssueStatus struct {
	Issue             Issue
	PendingDeliveries int64
}
