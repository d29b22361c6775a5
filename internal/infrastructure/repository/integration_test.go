//go:build integration

package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"jan-server/services/newsletter-api/internal/domain/delivery"
	"jan-server/services/newsletter-api/internal/domain/idempotency"
	"jan-server/services/newsletter-api/internal/domain/newsletter"
	"jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/infrastructure/database"
	"jan-server/services/newsletter-api/internal/infrastructure/database/entities"
	"jan-server/services/newsletter-api/internal/infrastructure/database/transaction"
	"jan-server/services/newsletter-api/internal/infrastructure/queue"
	idempotencyrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/idempotency"
	newsletterrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/newsletter"
	subscriberrepo "jan-server/services/newsletter-api/internal/infrastructure/repository/subscriber"
)

// setupPostgres starts a disposable PostgreSQL container, applies migrations
// and returns the connected database.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("newsletter_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Connect(database.Config{DSN: dsn, MaxOpenConns: 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.AutoMigrate(ctx, db, zerolog.Nop()))
	return db
}

func seedSubscribers(t *testing.T, db *gorm.DB, confirmed []string, pending []string) {
	t.Helper()
	add := func(email, status string) {
		require.NoError(t, db.Create(&entities.Subscription{
			ID:           uuid.NewString(),
			Email:        email,
			Name:         email,
			SubscribedAt: time.Now().UTC(),
			Status:       status,
		}).Error)
	}
	for _, e := range confirmed {
		add(e, entities.SubscriptionStatusConfirmed)
	}
	for _, e := range pending {
		add(e, entities.SubscriptionStatusPending)
	}
}

type recordingSender struct {
	mu     sync.Mutex
	sent   map[string]int
	failOn map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]int{}, failOn: map[string]bool{}}
}

func (s *recordingSender) Send(_ context.Context, recipient subscriber.Email, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[recipient.String()] {
		return errors.New("provider unavailable")
	}
	s.sent[recipient.String()]++
	return nil
}

func (s *recordingSender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.sent {
		n += c
	}
	return n
}

type stack struct {
	db       *gorm.DB
	txDB     *transaction.Database
	gateway  *idempotency.Gateway
	service  newsletter.Service
	queue    *queue.PostgresQueue
	sender   *recordingSender
	executor *delivery.Executor
}

func newStack(db *gorm.DB) *stack {
	log := zerolog.Nop()
	txDB := transaction.NewDatabase(db)
	q := queue.NewPostgresQueue(txDB, log)
	sender := newRecordingSender()
	return &stack{
		db:       db,
		txDB:     txDB,
		gateway:  idempotency.NewGateway(txDB, idempotencyrepo.NewPostgresRepository(txDB), idempotency.Config{ReclaimAfter: 10 * time.Minute}, log),
		service:  newsletter.NewService(txDB, newsletterrepo.NewPostgresRepository(txDB), subscriberrepo.NewPostgresRepository(txDB), log),
		queue:    q,
		sender:   sender,
		executor: delivery.NewExecutor(txDB, q, sender, delivery.Config{SendTimeout: 5 * time.Second}, log),
	}
}

func (s *stack) publish(ctx context.Context, actor, key string, calls *int) (idempotency.Response, bool, error) {
	k, err := idempotency.ParseKey(key)
	if err != nil {
		return idempotency.Response{}, false, err
	}
	return s.gateway.Execute(ctx, actor, k, func(txCtx context.Context) (idempotency.Response, error) {
		if calls != nil {
			*calls++
		}
		result, err := s.service.Publish(txCtx, newsletter.PublishParams{
			Title:       "Hello",
			TextContent: "plain body",
			HTMLContent: "<p>html body</p>",
		})
		if err != nil {
			return idempotency.Response{}, err
		}
		body, err := json.Marshal(map[string]any{"issue_id": result.Issue.ID, "enqueued": result.Enqueued})
		if err != nil {
			return idempotency.Response{}, err
		}
		return idempotency.Response{
			StatusCode: http.StatusAccepted,
			Headers: []idempotency.HeaderPair{
				{Name: "Content-Type", Value: []byte("application/json")},
				{Name: "Location", Value: []byte("/v1/newsletters/" + result.Issue.ID)},
			},
			Body: body,
		}, nil
	})
}

func (s *stack) drain(t *testing.T, ctx context.Context) []delivery.Outcome {
	t.Helper()
	var outcomes []delivery.Outcome
	for i := 0; i < 100; i++ {
		outcome, err := s.executor.TryExecuteTask(ctx)
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
		if outcome == delivery.OutcomeEmptyQueue {
			return outcomes
		}
	}
	t.Fatal("queue did not drain")
	return nil
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIntegration_PublishDeliverAndReplay(t *testing.T) {
	db := setupPostgres(t)
	seedSubscribers(t, db, []string{"ada@example.com", "bob@example.com"}, []string{"carol@example.com"})
	s := newStack(db)
	ctx := context.Background()

	calls := 0
	first, replayed, err := s.publish(ctx, "U1", "abc123", &calls)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, http.StatusAccepted, first.StatusCode)
	assert.Equal(t, int64(1), count(t, db, &entities.NewsletterIssue{}))
	assert.Equal(t, int64(2), count(t, db, &entities.IssueDeliveryQueue{}))

	outcomes := s.drain(t, ctx)
	assert.Equal(t, []delivery.Outcome{delivery.OutcomeTaskCompleted, delivery.OutcomeTaskCompleted, delivery.OutcomeEmptyQueue}, outcomes)
	assert.Equal(t, map[string]int{"ada@example.com": 1, "bob@example.com": 1}, s.sender.sent)

	second, replayed, err := s.publish(ctx, "U1", "abc123", &calls)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), count(t, db, &entities.NewsletterIssue{}))

	s.drain(t, ctx)
	assert.Equal(t, 2, s.sender.total(), "replay must not trigger more emails")

	// the same key under another actor is an independent submission
	_, replayed, err = s.publish(ctx, "U2", "abc123", &calls)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(2), count(t, db, &entities.NewsletterIssue{}))
}

func TestIntegration_ConcurrentSubmissionsPublishOnce(t *testing.T) {
	db := setupPostgres(t)
	seedSubscribers(t, db, []string{"ada@example.com", "bob@example.com"}, nil)
	s := newStack(db)
	ctx := context.Background()

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		bodies    [][]byte
		errs      []error
		executed  int
		callCount int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			calls := 0
			resp, replayed, err := s.publish(ctx, "U1", "same-key", &calls)
			mu.Lock()
			defer mu.Unlock()
			callCount += calls
			if err != nil {
				errs = append(errs, err)
				return
			}
			if !replayed {
				executed++
			}
			bodies = append(bodies, resp.Body)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, executed)
	assert.Equal(t, 1, callCount)
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
	assert.Equal(t, int64(1), count(t, db, &entities.NewsletterIssue{}))
	assert.Equal(t, int64(2), count(t, db, &entities.IssueDeliveryQueue{}))
}

func TestIntegration_FailedCommandReleasesKey(t *testing.T) {
	db := setupPostgres(t)
	s := newStack(db)
	ctx := context.Background()
	key, err := idempotency.ParseKey("retry-key")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, _, err = s.gateway.Execute(ctx, "U1", key, func(txCtx context.Context) (idempotency.Response, error) {
		_, err := s.service.Publish(txCtx, newsletter.PublishParams{Title: "Hello", TextContent: "t", HTMLContent: "h"})
		require.NoError(t, err)
		return idempotency.Response{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), count(t, db, &entities.NewsletterIssue{}))
	assert.Equal(t, int64(0), count(t, db, &entities.Idempotency{}))

	calls := 0
	_, replayed, err := s.publish(ctx, "U1", "retry-key", &calls)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, calls)
}

func TestIntegration_ZeroSubscribers(t *testing.T) {
	db := setupPostgres(t)
	s := newStack(db)
	ctx := context.Background()

	resp, _, err := s.publish(ctx, "U1", "empty-list", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int64(0), count(t, db, &entities.IssueDeliveryQueue{}))
	assert.Equal(t, []delivery.Outcome{delivery.OutcomeEmptyQueue}, s.drain(t, ctx))
	assert.Zero(t, s.sender.total())
}

func TestIntegration_TransientFailureRedeliversOnlyFailedRecipient(t *testing.T) {
	db := setupPostgres(t)
	seedSubscribers(t, db, []string{"ada@example.com", "bob@example.com"}, nil)
	s := newStack(db)
	ctx := context.Background()

	_, _, err := s.publish(ctx, "U1", "flaky", nil)
	require.NoError(t, err)

	// rows come back in insertion order, so ada is attempted before bob
	s.sender.failOn["bob@example.com"] = true
	for i := 0; i < 3; i++ {
		_, err := s.executor.TryExecuteTask(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, map[string]int{"ada@example.com": 1}, s.sender.sent)
	assert.Equal(t, int64(1), count(t, db, &entities.IssueDeliveryQueue{}))

	s.sender.mu.Lock()
	s.sender.failOn["bob@example.com"] = false
	s.sender.mu.Unlock()
	s.drain(t, ctx)
	assert.Equal(t, map[string]int{"ada@example.com": 1, "bob@example.com": 1}, s.sender.sent)
}

func TestIntegration_DequeueSkipsLockedRows(t *testing.T) {
	db := setupPostgres(t)
	s := newStack(db)
	ctx := context.Background()

	issueID := uuid.NewString()
	require.NoError(t, db.Create(&entities.NewsletterIssue{
		NewsletterIssueID: issueID,
		Title:             "Hello",
		TextContent:       "t",
		HTMLContent:       "h",
		PublishedAt:       time.Now().UTC(),
	}).Error)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		require.NoError(t, db.Create(&entities.IssueDeliveryQueue{NewsletterIssueID: issueID, SubscriberEmail: email}).Error)
	}

	seen := map[string]bool{}
	var txs []func() error
	for i := 0; i < 2; i++ {
		txCtx, tx, err := s.txDB.Begin(ctx)
		require.NoError(t, err)
		txs = append(txs, tx.Rollback)

		task, err := s.queue.Dequeue(txCtx)
		require.NoError(t, err)
		require.NotNil(t, task, fmt.Sprintf("worker %d should get a row", i))
		assert.False(t, seen[task.RecipientEmail], "rows must not be shared")
		seen[task.RecipientEmail] = true
	}

	txCtx, tx, err := s.txDB.Begin(ctx)
	require.NoError(t, err)
	task, err := s.queue.Dequeue(txCtx)
	require.NoError(t, err)
	assert.Nil(t, task, "every row is locked")
	require.NoError(t, tx.Rollback())

	for _, rollback := range txs {
		require.NoError(t, rollback())
	}

	depth, err := s.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), depth)
}
