package transaction

import "context"

// Tx is an open unit of work against the relational store.
// Rollback after a successful Commit is a no-op.
type Tx interface {
	Commit() error
	Rollback() error
}

// Transactor begins transactions. The returned context is bound to the
// transaction; repositories called with it run inside that transaction.
type Transactor interface {
	Begin(ctx context.Context) (context.Context, Tx, error)
	InTx(ctx context.Context) bool
}
