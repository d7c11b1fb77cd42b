package approvals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/internal/notify"
)

// ErrNotFound is returned when no pending decision exists for an id.
var ErrNotFound = fmt.Errorf("pending decision not found")

// ErrExpired is returned when a decision is approved after its deadline.
var ErrExpired = fmt.Errorf("pending decision expired")

// AdapterSelector picks the execution adapter for an environment
type AdapterSelector interface {
	AdapterFor(env account.Environment) execution.Adapter
}

// Queue is the durable queue of decisions awaiting human approval.
// Approval executes through the account's current environment adapter;
// expiry is checked lazily at approval time and swept periodically.
type Queue struct {
	repo     *Repository
	accounts *account.Service
	adapters AdapterSelector
	prices   market.Source
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewQueue creates a new pending decision queue
func NewQueue(
	repo *Repository,
	accounts *account.Service,
	adapters AdapterSelector,
	prices market.Source,
	notifier notify.Notifier,
	log zerolog.Logger,
) *Queue {
	return &Queue{
		repo:     repo,
		accounts: accounts,
		adapters: adapters,
		prices:   prices,
		notifier: notifier,
		log:      log.With().Str("service", "approvals").Logger(),
	}
}

// Create enqueues a decision for approval and notifies the operator
func (q *Queue) Create(acct *account.Account, coin string, decision trading.Decision, explanation string, ttl time.Duration) (*PendingDecision, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pending, err := q.repo.Create(PendingDecision{
		ID:          uuid.NewString(),
		AccountID:   acct.ID,
		Coin:        coin,
		Decision:    decision,
		Explanation: explanation,
		ExpiresAt:   time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return nil, err
	}

	q.log.Info().
		Str("account", acct.ID).
		Str("coin", coin).
		Str("signal", string(decision.Signal)).
		Str("id", pending.ID).
		Msg("Decision queued for approval")

	message := fmt.Sprintf("%s %s qty %.6f at %dx leverage awaits approval (expires %s)",
		coin, decision.Signal, decision.Quantity, decision.Leverage,
		pending.ExpiresAt.Format(time.RFC3339))
	if err := q.notifier.Send("Trade approval required", message, notify.PriorityNormal, acct.ID); err != nil {
		q.log.Warn().Err(err).Msg("Failed to send approval notification")
	}

	return pending, nil
}

// List retrieves queued decisions, optionally filtered
func (q *Queue) List(accountID string, status Status, limit int) ([]PendingDecision, error) {
	return q.repo.List(accountID, status, limit)
}

// Approve resolves a pending decision, executes it through the account's
// current environment adapter and journals the execution result. Approving
// after the deadline fails and leaves the decision expired, not approved.
func (q *Queue) Approve(ctx context.Context, id string, mods *Modifications) (*execution.Result, error) {
	pending, err := q.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if pending.Status != StatusPending {
		return nil, fmt.Errorf("pending decision %s already %s", id, pending.Status)
	}

	if pending.Expired(time.Now().UTC()) {
		if err := q.repo.Resolve(id, StatusExpired, nil); err != nil {
			q.log.Error().Err(err).Str("id", id).Msg("Failed to mark decision expired")
		}
		return nil, fmt.Errorf("%w: %s", ErrExpired, id)
	}

	acct, err := q.accounts.Get(pending.AccountID)
	if err != nil {
		return nil, err
	}

	decision := mods.Apply(pending.Decision)

	if err := q.repo.Resolve(id, StatusApproved, mods); err != nil {
		return nil, err
	}

	result := q.execute(ctx, acct, pending.Coin, decision)

	event := ApprovalEvent{
		DecisionID:      id,
		Approved:        true,
		ExecutionResult: result,
	}
	if err := q.repo.CreateEvent(event); err != nil {
		q.log.Error().Err(err).Str("id", id).Msg("Failed to journal approval event")
	}

	q.log.Info().
		Str("id", id).
		Str("account", acct.ID).
		Str("status", string(result.Status)).
		Msg("Decision approved and executed")

	return result, nil
}

// Reject resolves a pending decision without executing anything
func (q *Queue) Reject(id, reason string) error {
	pending, err := q.repo.Get(id)
	if err != nil {
		return err
	}
	if pending == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if pending.Status != StatusPending {
		return fmt.Errorf("pending decision %s already %s", id, pending.Status)
	}

	if err := q.repo.Resolve(id, StatusRejected, nil); err != nil {
		return err
	}

	event := ApprovalEvent{
		DecisionID: id,
		Approved:   false,
		Reason:     reason,
	}
	if err := q.repo.CreateEvent(event); err != nil {
		q.log.Error().Err(err).Str("id", id).Msg("Failed to journal rejection event")
	}

	q.log.Info().Str("id", id).Str("reason", reason).Msg("Decision rejected")

	return nil
}

// ExpireStale sweeps overdue pending decisions to expired
func (q *Queue) ExpireStale() (int64, error) {
	swept, err := q.repo.ExpireStale(time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		q.log.Info().Int64("count", swept).Msg("Expired stale pending decisions")
	}

	return swept, nil
}

func (q *Queue) execute(ctx context.Context, acct *account.Account, coin string, decision trading.Decision) *execution.Result {
	quotes, err := q.prices.GetQuotes(ctx, []string{coin})
	if err != nil {
		return &execution.Result{
			Status: execution.StatusFailed,
			Coin:   coin,
			Error:  fmt.Sprintf("failed to fetch market price: %v", err),
		}
	}

	quote, ok := quotes[coin]
	if !ok || quote.Price <= 0 {
		return &execution.Result{
			Status: execution.StatusFailed,
			Coin:   coin,
			Error:  "no market price available",
		}
	}

	adapter := q.adapters.AdapterFor(acct.Environment)
	return adapter.Execute(ctx, acct, coin, decision, quote.Price)
}
