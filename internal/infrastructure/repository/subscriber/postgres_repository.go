package subscriber

import (
	"context"

	domain "jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/infrastructure/database/entities"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// PostgresRepository reads the subscriptions table.
type PostgresRepository struct {
	db *transaction.Database
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(db *transaction.Database) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListConfirmed returns every confirmed subscriber, each parsed or carrying its parse error.
func (r *PostgresRepository) ListConfirmed(ctx context.Context) ([]domain.Confirmed, error) {
	var emails []string
	err := r.db.GetTx(ctx).
		Model(&entities.Subscription{}).
		Where("status = ?", entities.SubscriptionStatusConfirmed).
		Order("email").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to list confirmed subscribers", err, "subscriber-list-db-001")
	}

	out := make([]domain.Confirmed, 0, len(emails))
	for _, raw := range emails {
		email, parseErr := domain.ParseEmail(raw)
		out = append(out, domain.Confirmed{Email: email, Raw: raw, Err: parseErr})
	}
	return out, nil
}
