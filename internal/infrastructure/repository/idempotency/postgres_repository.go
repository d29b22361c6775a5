package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "jan-server/services/newsletter-api/internal/domain/idempotency"
	"jan-server/services/newsletter-api/internal/infrastructure/database/entities"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// PostgresRepository persists idempotency records in the idempotency table.
type PostgresRepository struct {
	db *transaction.Database
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(db *transaction.Database) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertIfAbsent relies on the (user_id, idempotency_key) primary key. A
// concurrent insert of the same pair blocks until the other transaction ends.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, actorID string, key domain.Key, createdAt time.Time) (bool, error) {
	record := entities.Idempotency{
		UserID:         actorID,
		IdempotencyKey: key.String(),
		CreatedAt:      createdAt,
	}
	result := r.db.GetTx(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if result.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to insert idempotency record", result.Error, "idempotency-insert-db-001")
	}
	return result.RowsAffected == 1, nil
}

func (r *PostgresRepository) Find(ctx context.Context, actorID string, key domain.Key) (*domain.Record, error) {
	var record entities.Idempotency
	err := r.db.GetTx(ctx).
		Where("user_id = ? AND idempotency_key = ?", actorID, key.String()).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to load idempotency record", err, "idempotency-find-db-001")
	}

	out := &domain.Record{
		ActorID:   record.UserID,
		Key:       domain.Key(record.IdempotencyKey),
		CreatedAt: record.CreatedAt,
	}
	if record.ResponseStatusCode != nil {
		headers, err := decodeHeaders(record.ResponseHeaders)
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to decode cached response headers", err, "idempotency-find-decode-001")
		}
		body := record.ResponseBody
		if body == nil {
			body = []byte{}
		}
		out.Response = &domain.Response{
			StatusCode: int(*record.ResponseStatusCode),
			Headers:    headers,
			Body:       body,
		}
	}
	return out, nil
}

func (r *PostgresRepository) Reclaim(ctx context.Context, actorID string, key domain.Key, staleBefore, now time.Time) (bool, error) {
	result := r.db.GetTx(ctx).
		Model(&entities.Idempotency{}).
		Where("user_id = ? AND idempotency_key = ?", actorID, key.String()).
		Where("response_status_code IS NULL AND created_at < ?", staleBefore).
		Update("created_at", now)
	if result.Error != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to reclaim idempotency record", result.Error, "idempotency-reclaim-db-001")
	}
	return result.RowsAffected == 1, nil
}

func (r *PostgresRepository) SaveResponse(ctx context.Context, actorID string, key domain.Key, resp domain.Response) error {
	headers, err := encodeHeaders(resp.Headers)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal, "failed to encode response headers", err, "idempotency-save-encode-001")
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	result := r.db.GetTx(ctx).
		Model(&entities.Idempotency{}).
		Where("user_id = ? AND idempotency_key = ?", actorID, key.String()).
		Updates(map[string]interface{}{
			"response_status_code": int16(resp.StatusCode),
			"response_headers":     headers,
			"response_body":        body,
		})
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to save idempotent response", result.Error, "idempotency-save-db-001")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "idempotency record not found", nil, "idempotency-save-missing-001")
	}
	return nil
}

func encodeHeaders(pairs []domain.HeaderPair) (datatypes.JSON, error) {
	stored := make([]entities.HeaderPair, 0, len(pairs))
	for _, p := range pairs {
		stored = append(stored, entities.HeaderPair{Name: p.Name, Value: p.Value})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeHeaders(raw datatypes.JSON) ([]domain.HeaderPair, error) {
	if len(raw) == 0 {
		return []domain.HeaderPair{}, nil
	}
	var stored []entities.HeaderPair
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	pairs := make([]domain.HeaderPair, 0, len(stored))
	for _, p := range stored {
		pairs = append(pairs, domain.HeaderPair{Name: p.Name, Value: p.Value})
	}
	return pairs, nil
}
