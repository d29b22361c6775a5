package idempotency

import (
	"context"
	"errors"
	"time"

	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

var errRecordVanished = errors.New("idempotency record disappeared inside transaction")

func storageError(ctx context.Context, message string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, message, err, "")
}

func conflictError(ctx context.Context, retryAfter time.Duration) error {
	err := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, ErrConflictInProgress.Message, nil, conflictUUID)
	err.RetryAfter = retryAfter
	return err
}
