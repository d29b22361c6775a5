package newsletter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/domain/transaction"
)

type txMarker struct{}

type fakeTransactor struct{}

func (fakeTransactor) Begin(ctx context.Context) (context.Context, transaction.Tx, error) {
	return context.WithValue(ctx, txMarker{}, true), nil, nil
}

func (fakeTransactor) InTx(ctx context.Context) bool {
	return ctx.Value(txMarker{}) != nil
}

type countingRepository struct {
	issues map[string]domain.Issue
	finds  int
}

func (r *countingRepository) InsertIssue(context.Context, *domain.Issue) error { return nil }

func (r *countingRepository) EnqueueDeliveries(context.Context, string, []subscriber.Email) (int64, error) {
	return 0, nil
}

func (r *countingRepository) FindIssue(_ context.Context, issueID string) (*domain.Issue, error) {
	r.finds++
	issue, ok := r.issues[issueID]
	if !ok {
		return nil, nil
	}
	return &issue, nil
}

func (r *countingRepository) CountPendingDeliveries(context.Context, string) (int64, error) {
	return 0, nil
}

func TestCachedRepository_FindIssue(t *testing.T) {
	inner := &countingRepository{issues: map[string]domain.Issue{"issue-1": {ID: "issue-1", Title: "Hello"}}}
	repo, err := NewCachedRepository(inner, fakeTransactor{}, 8)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		issue, err := repo.FindIssue(ctx, "issue-1")
		require.NoError(t, err)
		require.NotNil(t, issue)
		assert.Equal(t, "Hello", issue.Title)
	}
	assert.Equal(t, 1, inner.finds)

	// returned issues are copies
	issue, _ := repo.FindIssue(ctx, "issue-1")
	issue.Title = "changed"
	again, _ := repo.FindIssue(ctx, "issue-1")
	assert.Equal(t, "Hello", again.Title)
}

func TestCachedRepository_MissesAndTransactionsAreNotCached(t *testing.T) {
	inner := &countingRepository{issues: map[string]domain.Issue{"issue-1": {ID: "issue-1"}}}
	repo, err := NewCachedRepository(inner, fakeTransactor{}, 8)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		issue, err := repo.FindIssue(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, issue)
	}
	assert.Equal(t, 2, inner.finds)

	txCtx, _, _ := fakeTransactor{}.Begin(context.Background())
	_, _ = repo.FindIssue(txCtx, "issue-1")
	_, _ = repo.FindIssue(txCtx, "issue-1")
	assert.Equal(t, 4, inner.finds)
}

func TestNewCachedRepository_RejectsInvalidSize(t *testing.T) {
	_, err := NewCachedRepository(&countingRepository{}, fakeTransactor{}, 0)
	assert.Error(t, err)
}
