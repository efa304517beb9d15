// Package driver runs the distribution cycle: scan the pool, plan a round,
// re-validate the selection, submit, record and advance.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"token-dispenser/internal/domain"
	"token-dispenser/internal/node"
	"token-dispenser/internal/observability"
	"token-dispenser/internal/planner"
	"token-dispenser/internal/selector"
	"token-dispenser/internal/storage"
)

// Default configuration values.
const (
	DefaultStalenessThreshold = 30 * time.Second
	DefaultRetryDelay         = 60 * time.Second
	DefaultBlockInterval      = 120 * time.Second

	// maxConservationFailures stops the process after this many consecutive
	// conservation violations.
	maxConservationFailures = 3
)

// ErrStaleSelection indicates a selected box was spent between scan and
// submission. The round is re-planned from a fresh snapshot next cycle.
var ErrStaleSelection = errors.New("selection contains a spent box")

// Scanner produces pool snapshots.
type Scanner interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// BoxChecker re-validates that a box is still unspent.
type BoxChecker interface {
	BoxByID(ctx context.Context, boxID string) (*node.Box, error)
}

// Submitter sends a plan to the node.
type Submitter interface {
	Submit(ctx context.Context, plan *domain.DistributionPlan) (string, error)
}

// Options configures the Runner.
type Options struct {
	Planner   *planner.Planner
	Scanner   Scanner
	Checker   BoxChecker
	Submitter Submitter

	Configs    []*domain.TokenConfig
	Recipients []string

	Rounds  storage.RoundStore
	Plans   storage.PlanRecordStore          // optional audit records
	History storage.DistributionHistoryStore // optional analytics rows

	Metrics *observability.Metrics // optional
	Logger  *log.Logger

	// BlocksBetweenDispense is the number of blocks between rounds.
	BlocksBetweenDispense int
	// Heights delivers new block heights; when nil the runner falls back to
	// a timer of BlocksBetweenDispense × BlockInterval.
	Heights <-chan int64

	StalenessThreshold time.Duration
	RetryDelay         time.Duration
	BlockInterval      time.Duration
}

// Runner drives the distribution cycle.
type Runner struct {
	opts  Options
	log   *log.Logger
	round int64

	conservationFailures int
}

// New validates options and creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Planner == nil {
		return nil, errors.New("planner is required")
	}
	if opts.Scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if opts.Rounds == nil {
		return nil, errors.New("round store is required")
	}
	if len(opts.Configs) == 0 {
		return nil, errors.New("at least one token config is required")
	}
	if len(opts.Recipients) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	if opts.BlocksBetweenDispense < 1 {
		return nil, errors.New("blocks between dispense must be positive")
	}

	if opts.StalenessThreshold == 0 {
		opts.StalenessThreshold = DefaultStalenessThreshold
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.BlockInterval == 0 {
		opts.BlockInterval = DefaultBlockInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Runner{opts: opts, log: opts.Logger}, nil
}

// Run executes cycles until the context is cancelled. The round counter is
// resumed from the round store, starting at 1 on first run.
func (r *Runner) Run(ctx context.Context) error {
	round, err := r.opts.Rounds.Current(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		round = 1
	case err != nil:
		return fmt.Errorf("load round counter: %w", err)
	}
	r.round = round

	r.log.Printf("[driver] starting at round %d with %d tokens, %d recipients",
		r.round, len(r.opts.Configs), len(r.opts.Recipients))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		err := r.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var consErr *planner.ConservationError
			if errors.As(err, &consErr) {
				r.conservationFailures++
				if r.conservationFailures >= maxConservationFailures {
					return fmt.Errorf("repeated conservation violations: %w", err)
				}
			}

			r.log.Printf("[driver] cycle failed, retrying in %s: %v", r.opts.RetryDelay, err)
			if !sleep(ctx, r.opts.RetryDelay) {
				return nil
			}
			continue
		}
		r.conservationFailures = 0

		if !r.waitNextRound(ctx) {
			return nil
		}
	}
}

// RunOnce executes a single cycle: scan, plan, validate, submit, record.
// Idle rounds (nothing to distribute, insufficient funds) advance the round
// and return nil. A stale selection returns ErrStaleSelection without
// advancing, so the same round is re-planned from a fresh snapshot.
func (r *Runner) RunOnce(ctx context.Context) error {
	snap, err := r.opts.Scanner.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("scan pool: %w", err)
	}
	scannedAt := time.Now()

	if m := r.opts.Metrics; m != nil {
		m.BoxesScanned.Set(float64(snap.Len()))
		m.CurrentRound.Set(float64(r.round))
	}

	plan, err := r.opts.Planner.Plan(snap, r.opts.Configs, r.round, r.opts.Recipients)
	if err != nil {
		var insufficient *selector.InsufficientFundsError
		switch {
		case errors.Is(err, planner.ErrNothingToDistribute):
			r.log.Printf("[driver] round %d: nothing to distribute", r.round)
			if m := r.opts.Metrics; m != nil {
				m.RoundsIdle.Inc()
			}
			return r.advanceRound(ctx)
		case errors.As(err, &insufficient):
			r.log.Printf("[driver] round %d: selection failed: %v", r.round, err)
			if m := r.opts.Metrics; m != nil {
				m.PlanFailures.WithLabelValues("insufficient_funds").Inc()
			}
			return r.advanceRound(ctx)
		default:
			if m := r.opts.Metrics; m != nil {
				m.PlanFailures.WithLabelValues("plan").Inc()
			}
			return fmt.Errorf("plan round %d: %w", r.round, err)
		}
	}

	r.log.Printf("[driver] round %d: plan %s, %d tokens, %d inputs",
		r.round, plan.PlanID, len(plan.Distributions), len(plan.InputBoxIDs))
	if m := r.opts.Metrics; m != nil {
		m.RoundsPlanned.Inc()
	}

	r.recordPlan(ctx, plan)

	if time.Since(scannedAt) > r.opts.StalenessThreshold {
		if err := r.revalidate(ctx, plan); err != nil {
			return err
		}
	}

	txID, err := r.opts.Submitter.Submit(ctx, plan)
	if err != nil {
		r.updatePlanStatus(ctx, plan.PlanID, storage.PlanStatusFailed, "")
		if m := r.opts.Metrics; m != nil {
			m.PlanFailures.WithLabelValues("submit").Inc()
		}
		return fmt.Errorf("submit round %d: %w", r.round, err)
	}

	r.log.Printf("[driver] round %d: submitted tx %s", r.round, txID)
	r.updatePlanStatus(ctx, plan.PlanID, storage.PlanStatusSubmitted, txID)
	r.recordHistory(ctx, plan)

	if m := r.opts.Metrics; m != nil {
		m.PlansSubmitted.Inc()
		m.BoxesConsumed.Add(float64(len(plan.InputBoxIDs)))
		if plan.Change != nil {
			m.ChangeOutputs.Inc()
		}
		for _, dist := range plan.Distributions {
			m.TokensPlanned.WithLabelValues(dist.TokenID).Add(float64(dist.TotalAmount))
		}
		m.LastSuccessfulRound.SetToCurrentTime()
	}

	return r.advanceRound(ctx)
}

// Round returns the current round counter.
func (r *Runner) Round() int64 {
	return r.round
}

// SetRound overrides the round counter. Used when resuming is handled by the
// caller.
func (r *Runner) SetRound(round int64) {
	r.round = round
}

// revalidate re-checks every selected box against the node. Skipped when no
// checker is configured.
func (r *Runner) revalidate(ctx context.Context, plan *domain.DistributionPlan) error {
	if r.opts.Checker == nil {
		return nil
	}

	r.log.Printf("[driver] round %d: snapshot older than %s, re-checking %d boxes",
		r.round, r.opts.StalenessThreshold, len(plan.InputBoxIDs))

	for _, boxID := range plan.InputBoxIDs {
		_, err := r.opts.Checker.BoxByID(ctx, boxID)
		if errors.Is(err, node.ErrBoxNotFound) {
			r.log.Printf("[driver] round %d: box %s no longer available", r.round, boxID)
			r.updatePlanStatus(ctx, plan.PlanID, storage.PlanStatusStale, "")
			if m := r.opts.Metrics; m != nil {
				m.StaleSelections.Inc()
			}
			return fmt.Errorf("box %s: %w", boxID, ErrStaleSelection)
		}
		if err != nil {
			return fmt.Errorf("re-check box %s: %w", boxID, err)
		}
	}

	return nil
}

// advanceRound increments and persists the round counter.
func (r *Runner) advanceRound(ctx context.Context) error {
	r.round++
	if err := r.opts.Rounds.Set(ctx, r.round); err != nil {
		return fmt.Errorf("persist round %d: %w", r.round, err)
	}
	if m := r.opts.Metrics; m != nil {
		m.CurrentRound.Set(float64(r.round))
	}
	return nil
}

// recordPlan inserts the audit record. Best effort.
func (r *Runner) recordPlan(ctx context.Context, plan *domain.DistributionPlan) {
	if r.opts.Plans == nil {
		return
	}

	tokenTotals := make(map[string]int64, len(plan.Distributions))
	for _, dist := range plan.Distributions {
		tokenTotals[dist.TokenID] = dist.TotalAmount
	}

	rec := &storage.PlanRecord{
		PlanID:      plan.PlanID,
		Round:       plan.Round,
		Status:      storage.PlanStatusPlanned,
		InputCount:  len(plan.InputBoxIDs),
		Recipients:  len(plan.Recipients),
		TotalValue:  plan.Inputs.TotalValue,
		TokenTotals: tokenTotals,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.opts.Plans.Insert(ctx, rec); err != nil {
		r.log.Printf("[driver] failed to record plan %s: %v", plan.PlanID, err)
	}
}

// updatePlanStatus transitions the audit record. Best effort.
func (r *Runner) updatePlanStatus(ctx context.Context, planID, status, txID string) {
	if r.opts.Plans == nil {
		return
	}
	if err := r.opts.Plans.UpdateStatus(ctx, planID, status, txID); err != nil {
		r.log.Printf("[driver] failed to update plan %s to %s: %v", planID, status, err)
	}
}

// recordHistory appends per-token history rows. Best effort.
func (r *Runner) recordHistory(ctx context.Context, plan *domain.DistributionPlan) {
	if r.opts.History == nil {
		return
	}

	now := time.Now().UTC()
	rows := make([]*storage.DistributionRow, 0, len(plan.Distributions))
	for _, dist := range plan.Distributions {
		rows = append(rows, &storage.DistributionRow{
			PlanID:             plan.PlanID,
			Round:              plan.Round,
			TokenID:            dist.TokenID,
			AmountPerRecipient: dist.AmountPerRecipient,
			TotalAmount:        dist.TotalAmount,
			ChangeAmount:       plan.ChangeAmount(dist.TokenID),
			Recipients:         len(plan.Recipients),
			Timestamp:          now,
		})
	}
	if err := r.opts.History.InsertRows(ctx, rows); err != nil {
		r.log.Printf("[driver] failed to record history for plan %s: %v", plan.PlanID, err)
	}
}

// waitNextRound blocks until the next round is due. With a block feed it
// counts BlocksBetweenDispense new blocks; otherwise it sleeps the
// equivalent wall-clock time. Returns false on shutdown.
func (r *Runner) waitNextRound(ctx context.Context) bool {
	if r.opts.Heights == nil {
		return sleep(ctx, time.Duration(r.opts.BlocksBetweenDispense)*r.opts.BlockInterval)
	}

	remaining := r.opts.BlocksBetweenDispense
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return false
		case height, ok := <-r.opts.Heights:
			if !ok {
				// Feed closed, fall back to the timer for the rest
				return sleep(ctx, time.Duration(remaining)*r.opts.BlockInterval)
			}
			if m := r.opts.Metrics; m != nil {
				m.BlockHeight.Set(float64(height))
			}
			remaining--
		}
	}
	return true
}

// sleep waits for d or until the context is cancelled. Returns false when
// cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
