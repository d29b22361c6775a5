package idempotency

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/newsletter-api/internal/domain/transaction"
	"jan-server/services/newsletter-api/internal/utils/platformerrors"
)

const conflictUUID = "idempotency-conflict-in-progress"

// ErrConflictInProgress is returned when another request holds the key and has
// not produced a response yet. Callers may retry later.
var ErrConflictInProgress = platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "a request with this idempotency key is still in progress", nil, conflictUUID)

// Command runs inside the claim's transaction and produces the response to cache.
type Command func(ctx context.Context) (Response, error)

// Config tunes the gateway.
type Config struct {
	// ReclaimAfter is how old a claim without a response must be before a new
	// request may take it over. Zero disables reclaiming.
	ReclaimAfter time.Duration
	// RetryAfter is the hint returned with ErrConflictInProgress.
	RetryAfter time.Duration
}

// Gateway guarantees at-most-once execution per (actor, key).
type Gateway struct {
	tx   transaction.Transactor
	repo Repository
	cfg  Config
	now  func() time.Time
	log  zerolog.Logger
}

// NewGateway wires the gateway with its store.
func NewGateway(tx transaction.Transactor, repo Repository, cfg Config, log zerolog.Logger) *Gateway {
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Second
	}
	return &Gateway{
		tx:   tx,
		repo: repo,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log.With().Str("component", "idempotency-gateway").Logger(),
	}
}

// Claim is held by the single owner of a key. Its context is bound to the
// transaction that inserted the claim.
type Claim struct {
	ctx     context.Context
	tx      transaction.Tx
	actorID string
	key     Key
	done    bool
}

// Context returns the transaction-bound context for the owner's command.
func (c *Claim) Context() context.Context {
	return c.ctx
}

// Abort rolls the claim back so the key can be used again. No-op once finished.
func (c *Claim) Abort() {
	if c.done {
		return
	}
	c.done = true
	_ = c.tx.Rollback()
}

// TryProcessing claims (actorID, key) or returns the saved response.
func (g *Gateway) TryProcessing(ctx context.Context, actorID string, key Key) (NextAction, error) {
	if actorID == "" {
		return NextAction{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "actor is required", nil, "idempotency-missing-actor")
	}
	if _, err := ParseKey(string(key)); err != nil {
		return NextAction{}, err
	}

	txCtx, tx, err := g.tx.Begin(ctx)
	if err != nil {
		return NextAction{}, storageError(ctx, "begin transaction", err)
	}

	now := g.now()
	inserted, err := g.repo.InsertIfAbsent(txCtx, actorID, key, now)
	if err != nil {
		_ = tx.Rollback()
		return NextAction{}, storageError(ctx, "insert idempotency record", err)
	}
	if inserted {
		return NextAction{Claim: &Claim{ctx: txCtx, tx: tx, actorID: actorID, key: key}}, nil
	}

	record, err := g.repo.Find(txCtx, actorID, key)
	if err != nil {
		_ = tx.Rollback()
		return NextAction{}, storageError(ctx, "load idempotency record", err)
	}
	if record == nil {
		_ = tx.Rollback()
		return NextAction{}, storageError(ctx, "load idempotency record", errRecordVanished)
	}
	if record.Response != nil {
		if err := tx.Rollback(); err != nil {
			g.log.Warn().Err(err).Msg("rollback after replay lookup")
		}
		return NextAction{Saved: record.Response}, nil
	}

	if g.cfg.ReclaimAfter > 0 {
		cutoff := now.Add(-g.cfg.ReclaimAfter)
		if record.CreatedAt.Before(cutoff) {
			reclaimed, err := g.repo.Reclaim(txCtx, actorID, key, cutoff, now)
			if err != nil {
				_ = tx.Rollback()
				return NextAction{}, storageError(ctx, "reclaim idempotency record", err)
			}
			if reclaimed {
				g.log.Warn().
					Str("actor_id", actorID).
					Str("idempotency_key", key.String()).
					Time("claimed_at", record.CreatedAt).
					Msg("reclaimed abandoned idempotency record")
				return NextAction{Claim: &Claim{ctx: txCtx, tx: tx, actorID: actorID, key: key}}, nil
			}

			// Another request reclaimed the record first; the reclaim waited on
			// its row lock, so its response may be committed by now.
			record, err = g.repo.Find(txCtx, actorID, key)
			if err != nil {
				_ = tx.Rollback()
				return NextAction{}, storageError(ctx, "load idempotency record", err)
			}
			if record != nil && record.Response != nil {
				_ = tx.Rollback()
				return NextAction{Saved: record.Response}, nil
			}
		}
	}

	_ = tx.Rollback()
	return NextAction{}, conflictError(ctx, g.cfg.RetryAfter)
}

// SaveResponse stores resp on the claimed record and commits the claim's transaction.
func (g *Gateway) SaveResponse(claim *Claim, resp Response) (Response, error) {
	if claim == nil || claim.done {
		return Response{}, platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "idempotency claim already finished", nil, "idempotency-claim-finished")
	}
	if err := g.repo.SaveResponse(claim.ctx, claim.actorID, claim.key, resp); err != nil {
		claim.Abort()
		return Response{}, storageError(claim.ctx, "save idempotent response", err)
	}
	claim.done = true
	if err := claim.tx.Commit(); err != nil {
		return Response{}, storageError(claim.ctx, "commit idempotent response", err)
	}
	return resp, nil
}

// Execute runs cmd at most once for (actorID, key). The second return value is
// true when the response was replayed from storage. A command error rolls back
// everything the command wrote, including the claim.
func (g *Gateway) Execute(ctx context.Context, actorID string, key Key, cmd Command) (Response, bool, error) {
	next, err := g.TryProcessing(ctx, actorID, key)
	if err != nil {
		return Response{}, false, err
	}
	if next.Saved != nil {
		return *next.Saved, true, nil
	}

	claim := next.Claim
	defer claim.Abort()

	resp, err := cmd(claim.Context())
	if err != nil {
		return Response{}, false, err
	}
	saved, err := g.SaveResponse(claim, resp)
	if err != nil {
		return Response{}, false, err
	}
	return saved, false, nil
}
