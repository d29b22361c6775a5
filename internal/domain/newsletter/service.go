package newsletter

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/domain/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

var (
	ErrIssueNotFound = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "newsletter issue not found", nil, "newsletter-issue-not-found")
	ErrInvalidIssue  = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "title, text content and html content are required", nil, "newsletter-invalid-issue")
	ErrNoTransaction = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "publish must run inside a claimed transaction", nil, "newsletter-no-transaction")
)

// Service describes the business logic surface for newsletter issues.
type Service interface {
	// Publish stores the issue and enqueues one delivery per confirmed subscriber.
	// ctx must carry the transaction of an idempotency claim.
	Publish(ctx context.Context, params PublishParams) (*PublishResult, error)
	GetIssue(ctx context.Context, issueID string) (*IssueStatus, error)
}

type service struct {
	tx          transaction.Transactor
	repo        Repository
	subscribers subscriber.Source
	now         func() time.Time
	log         zerolog.Logger
}

// NewService wires the newsletter service with its repositories.
func NewService(tx transaction.Transactor, repo Repository, subscribers subscriber.Source, log zerolog.Logger) Service {
	return &service{
		tx:          tx,
		repo:        repo,
		subscribers: subscribers,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "newsletter-service").Logger(),
	}
}

func (s *service) Publish(ctx context.Context, params PublishParams) (*PublishResult, error) {
	if !s.tx.InTx(ctx) {
		return nil, ErrNoTransaction
	}
	if strings.TrimSpace(params.Title) == "" || params.TextContent == "" || params.HTMLContent == "" {
		return nil, ErrInvalidIssue
	}

	issue := Issue{
		ID:          uuid.NewString(),
		Title:       params.Title,
		TextContent: params.TextContent,
		HTMLContent: params.HTMLContent,
		PublishedAt: s.now(),
	}
	if err := s.repo.InsertIssue(ctx, &issue); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "insert newsletter issue")
	}

	confirmed, err := s.subscribers.ListConfirmed(ctx)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "list confirmed subscribers")
	}

	recipients := make([]subscriber.Email, 0, len(confirmed))
	skipped := 0
	for _, c := range confirmed {
		if c.Err != nil {
			skipped++
			continue
		}
		recipients = append(recipients, c.Email)
	}
	if skipped > 0 {
		s.log.Warn().
			Str("issue_id", issue.ID).
			Int("skipped", skipped).
			Msg("skipping confirmed subscribers with invalid stored contact details")
	}

	enqueued, err := s.repo.EnqueueDeliveries(ctx, issue.ID, recipients)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "enqueue delivery tasks")
	}

	s.log.Info().
		Str("issue_id", issue.ID).
		Int64("enqueued", enqueued).
		Msg("newsletter issue published")

	return &PublishResult{Issue: issue, Enqueued: enqueued, Skipped: skipped}, nil
}

func (s *service) GetIssue(ctx context.Context, issueID string) (*IssueStatus, error) {
	if _, err := uuid.Parse(issueID); err != nil {
		return nil, ErrIssueNotFound
	}
	issue, err := s.repo.FindIssue(ctx, issueID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find newsletter issue")
	}
	if issue == nil {
		return nil, ErrIssueNotFound
	}
	pending, err := s.repo.CountPendingDeliveries(ctx, issueID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "count pending deliveries")
	}
	return &IssueStatus{Issue: *issue, PendingDeliveries: pending}, nil
}
