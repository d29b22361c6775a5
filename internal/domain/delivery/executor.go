package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/subscriber"
	"jan-server/services/newsletter-api/internal/domain/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

// Config tunes task execution.
type Config struct {
	SendTimeout time.Duration
	Classify    FailureClassifier
	// RedactRecipient rewrites recipient addresses before they reach logs.
	RedactRecipient func(string) string
	// RedactText scrubs addresses out of send errors, which often echo the
	// provider's reply.
	RedactText func(string) string
	// OnFailure, when set, is told how each failed task was settled once its
	// transaction has committed.
	OnFailure func(Failure)
}

// Executor runs one delivery task per call.
type Executor struct {
	tx     transaction.Transactor
	queue  Queue
	sender Sender
	cfg    Config
	log    zerolog.Logger
}

// NewExecutor wires an executor with its queue and sender.
func NewExecutor(tx transaction.Transactor, queue Queue, sender Sender, cfg Config, log zerolog.Logger) *Executor {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.Classify == nil {
		cfg.Classify = DefaultClassifier
	}
	if cfg.RedactRecipient == nil {
		cfg.RedactRecipient = func(s string) string { return s }
	}
	if cfg.RedactText == nil {
		cfg.RedactText = func(s string) string { return s }
	}
	return &Executor{
		tx:     tx,
		queue:  queue,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("component", "delivery-executor").Logger(),
	}
}

// TryExecuteTask locks one queued task, attempts the send, and settles the row.
// The row is deleted after a successful send or a permanent failure and kept
// after a transient one. When err is non-nil the outcome is meaningless and
// the transaction has been rolled back.
func (e *Executor) TryExecuteTask(ctx context.Context) (Outcome, error) {
	txCtx, tx, err := e.tx.Begin(ctx)
	if err != nil {
		return OutcomeTaskFailed, storageError(ctx, "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	task, err := e.queue.Dequeue(txCtx)
	if err != nil {
		return OutcomeTaskFailed, storageError(ctx, "dequeue delivery task", err)
	}
	if task == nil {
		if err := tx.Commit(); err != nil {
			return OutcomeTaskFailed, storageError(ctx, "commit empty dequeue", err)
		}
		return OutcomeEmptyQueue, nil
	}

	log := e.log.With().
		Str("issue_id", task.IssueID).
		Str("recipient", e.cfg.RedactRecipient(task.RecipientEmail)).
		Logger()

	outcome := OutcomeTaskCompleted
	failure := FailurePermanent
	remove := true

	email, err := subscriber.ParseEmail(task.RecipientEmail)
	if err != nil {
		outcome = OutcomeTaskFailed
		log.Warn().Msg("dropping delivery: stored contact details are invalid")
	} else if sendErr := e.send(ctx, email, task); sendErr != nil {
		outcome = OutcomeTaskFailed
		failure = e.cfg.Classify(sendErr)
		reason := e.cfg.RedactText(sendErr.Error())
		if failure == FailurePermanent {
			log.Warn().Str("error", reason).Msg("dropping delivery after permanent failure")
		} else {
			remove = false
			log.Error().Str("error", reason).Msg("failed to deliver issue, keeping task for retry")
		}
	}

	if remove {
		if err := e.queue.Delete(txCtx, task.IssueID, task.RecipientEmail); err != nil {
			return OutcomeTaskFailed, storageError(ctx, "delete delivery task", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return OutcomeTaskFailed, storageError(ctx, "commit delivery task", err)
	}

	if outcome == OutcomeTaskCompleted {
		log.Debug().Msg("issue delivered")
	} else if e.cfg.OnFailure != nil {
		e.cfg.OnFailure(failure)
	}
	return outcome, nil
}

func (e *Executor) send(ctx context.Context, recipient subscriber.Email, task *Task) error {
	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	defer cancel()
	return e.sender.Send(sendCtx, recipient, task.Title, task.HTMLContent, task.TextContent)
}

// QueueDepth reports how many tasks are waiting.
func (e *Executor) QueueDepth(ctx context.Context) (int64, error) {
	depth, err := e.queue.Depth(ctx)
	if err != nil {
		return 0, storageError(ctx, "read queue depth", err)
	}
	return depth, nil
}

func storageError(ctx context.Context, message string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeDatabaseError, message, err, "")
}
