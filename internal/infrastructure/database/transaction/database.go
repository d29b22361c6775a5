package transaction

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domaintx "jan-server/services/newsletter-api/internal/domain/transaction"
)

// ErrTxDone is returned when committing a transaction that already finished.
var ErrTxDone = errors.New("transaction already finished")

type TransactionContextKey struct{}

func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TransactionContextKey{}, tx)
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db}
}

// GetTx returns the transaction bound to ctx, or the pool handle when there is none.
func (t *Database) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return t.db.WithContext(ctx)
}

func (t *Database) InTx(ctx context.Context) bool {
	_, ok := ctx.Value(TransactionContextKey{}).(*gorm.DB)
	return ok
}

func (t *Database) Begin(ctx context.Context) (context.Context, domaintx.Tx, error) {
	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return ctx, nil, tx.Error
	}
	return WithTx(ctx, tx), &gormTx{tx: tx}, nil
}

type gormTx struct {
	tx   *gorm.DB
	done bool
}

func (g *gormTx) Commit() error {
	if g.done {
		return ErrTxDone
	}
	g.done = true
	return g.tx.Commit().Error
}

func (g *gormTx) Rollback() error {
	if g.done {
		return nil
	}
	g.done = true
	return g.tx.Rollback().Error
}
