package newsletter

import (
	"context"

	lru "github.com/hashicorp/golang-lru"

	domain "jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/domain/transaction"
)

// CachedRepository keeps recently read issues in memory. Issues never change
// once committed, so entries need no invalidation. Reads made inside a
// transaction bypass the cache because that transaction may still roll back.
type CachedRepository struct {
	domain.Repository
	tx    transaction.Transactor
	cache *lru.Cache
}

// NewCachedRepository wraps inner with an LRU of up to size issues.
func NewCachedRepository(inner domain.Repository, tx transaction.Transactor, size int) (*CachedRepository, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{Repository: inner, tx: tx, cache: cache}, nil
}

func (r *CachedRepository) FindIssue(ctx context.Context, issueID string) (*domain.Issue, error) {
	inTx := r.tx.InTx(ctx)
	if !inTx {
		if v, ok := r.cache.Get(issueID); ok {
			issue := v.(domain.Issue)
			return &issue, nil
		}
	}

	issue, err := r.Repository.FindIssue(ctx, issueID)
	if err != nil || issue == nil {
		return issue, err
	}
	if !inTx {
		r.cache.Add(issueID, *issue)
	}
	return issue, nil
}
