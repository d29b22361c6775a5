package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/infrastructure/database/entities"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
)

const dequeueSQL = `SELECT q.newsletter_issue_id, q.subscriber_email, i.title, i.text_content, i.html_content
FROM issue_delivery_queue q
JOIN newsletter_issues i ON i.newsletter_issue_id = q.newsletter_issue_id
LIMIT 1
FOR UPDATE OF q SKIP LOCKED`

type queuedRow struct {
	NewsletterIssueID string `gorm:"column:newsletter_issue_id"`
	SubscriberEmail   string `gorm:"column:subscriber_email"`
	Title             string `gorm:"column:title"`
	TextContent       string `gorm:"column:text_content"`
	HTMLContent       string `gorm:"column:html_content"`
}

// PostgresQueue implements delivery.Queue on issue_delivery_queue.
type PostgresQueue struct {
	db  *transaction.Database
	log zerolog.Logger
}

// NewPostgresQueue creates a new PostgreSQL-backed delivery queue.
func NewPostgresQueue(db *transaction.Database, log zerolog.Logger) *PostgresQueue {
	return &PostgresQueue{
		db:  db,
		log: log.With().Str("component", "postgres-queue").Logger(),
	}
}

// Dequeue locks the next task with FOR UPDATE SKIP LOCKED. Rows locked by
// other workers are skipped, so concurrent workers never share a task.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*delivery.Task, error) {
	if !q.db.InTx(ctx) {
		return nil, fmt.Errorf("dequeue task: no transaction in context")
	}

	var rows []queuedRow
	if err := q.db.GetTx(ctx).Raw(dequeueSQL).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("dequeue task: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &delivery.Task{
		IssueID:        row.NewsletterIssueID,
		RecipientEmail: row.SubscriberEmail,
		Title:          row.Title,
		TextContent:    row.TextContent,
		HTMLContent:    row.HTMLContent,
	}, nil
}

// Delete removes a settled task.
func (q *PostgresQueue) Delete(ctx context.Context, issueID, recipientEmail string) error {
	result := q.db.GetTx(ctx).
		Where("newsletter_issue_id = ? AND subscriber_email = ?", issueID, recipientEmail).
		Delete(&entities.IssueDeliveryQueue{})
	if result.Error != nil {
		return fmt.Errorf("delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		q.log.Warn().Str("issue_id", issueID).Msg("delivery task already removed")
	}
	return nil
}

// Depth returns the number of queued delivery tasks.
func (q *PostgresQueue) Depth(ctx context.Context) (int64, error) {
	var count int64
	if err := q.db.GetTx(ctx).Model(&entities.IssueDeliveryQueue{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("get queue depth: %w", err)
	}
	return count, nil
}
