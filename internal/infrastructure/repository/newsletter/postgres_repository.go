package newsletter

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/infrastructure/database/entities"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

const enqueueBatchSize = 500

// PostgresRepository persists issues and their delivery queue rows.
type PostgresRepository struct {
	db *transaction.Database
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(db *transaction.Database) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) InsertIssue(ctx context.Context, issue *domain.Issue) error {
	entity := entities.NewsletterIssue{
		NewsletterIssueID: issue.ID,
		Title:             issue.Title,
		TextContent:       issue.TextContent,
		HTMLContent:       issue.HTMLContent,
		PublishedAt:       issue.PublishedAt,
	}
	if err := r.db.GetTx(ctx).Create(&entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to insert newsletter issue", err, "newsletter-insert-db-001")
	}
	return nil
}

// EnqueueDeliveries inserts one queue row per recipient in batches.
func (r *PostgresRepository) EnqueueDeliveries(ctx context.Context, issueID string, recipients []subscriber.Email) (int64, error) {
	if len(recipients) == 0 {
		return 0, nil
	}

	rows := make([]entities.IssueDeliveryQueue, 0, len(recipients))
	for _, email := range recipients {
		rows = append(rows, entities.IssueDeliveryQueue{
			NewsletterIssueID: issueID,
			SubscriberEmail:   email.String(),
		})
	}

	result := r.db.GetTx(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, enqueueBatchSize)
	if result.Error != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to enqueue delivery tasks", result.Error, "newsletter-enqueue-db-001")
	}
	return result.RowsAffected, nil
}

func (r *PostgresRepository) FindIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	var entity entities.NewsletterIssue
	err := r.db.GetTx(ctx).
		Where("newsletter_issue_id = ?", issueID).
		Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to load newsletter issue", err, "newsletter-find-db-001")
	}
	return &domain.Issue{
		ID:          entity.NewsletterIssueID,
		Title:       entity.Title,
		TextContent: entity.TextContent,
		HTMLContent: entity.HTMLContent,
		PublishedAt: entity.PublishedAt,
	}, nil
}

func (r *PostgresRepository) CountPendingDeliveries(ctx context.Context, issueID string) (int64, error) {
	var count int64
	err := r.db.GetTx(ctx).
		Model(&entities.IssueDeliveryQueue{}).
		Where("newsletter_issue_id = ?", issueID).
		Count(&count).Error
	if err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to count pending deliveries", err, "newsletter-count-db-001")
	}
	return count, nil
}
