// Package planner assembles a full distribution plan for one round:
// per-token emission amounts, input selection, per-recipient outputs and
// the change output, with an exact conservation check before the plan is
// released to the caller.
package planner

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"token-dispenser/internal/domain"
	"token-dispenser/internal/idhash"
	"token-dispenser/internal/schedule"
	"token-dispenser/internal/selector"
)

// ErrNothingToDistribute is returned when no token yields a non-zero
// distribution this round. It is an idle round, not a failure.
var ErrNothingToDistribute = errors.New("nothing to distribute this round")

// ErrNoRecipients is returned when the recipient list is empty.
var ErrNoRecipients = errors.New("recipient list is empty")

// ConservationError reports a plan whose outputs do not add up to the
// covered input totals. It indicates a bug, never a user condition, and
// aborts the round.
type ConservationError struct {
	Resource string // token id or "reserve"
	Covered  int64
	Out      int64 // recipients + change (+ fee for reserve)
}

func (e *ConservationError) Error() string {
	return fmt.Sprintf("conservation violation for %s: covered %d but outputs account for %d",
		e.Resource, e.Covered, e.Out)
}

// Planner builds distribution plans. It holds no per-round state; the
// round number is an argument to every call.
type Planner struct {
	params        domain.LedgerParams
	sourceAddress string // change destination: the pool's own address
	logger        *log.Logger
}

// New creates a Planner. A nil logger falls back to log.Default().
func New(params domain.LedgerParams, sourceAddress string, logger *log.Logger) (*Planner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if sourceAddress == "" {
		return nil, fmt.Errorf("%w: empty source address", domain.ErrConfigInvalid)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{params: params, sourceAddress: sourceAddress, logger: logger}, nil
}

// Distributions derives the per-token releases for the round. Invalid
// token configs are isolated: they are reported in the returned slice of
// errors and do not block the remaining tokens. Tokens whose per-recipient
// amount floors to zero are skipped entirely.
// The result is ordered by token id for determinism.
func (p *Planner) Distributions(snap *domain.Snapshot, configs []*domain.TokenConfig, round int64, numRecipients int) ([]*domain.TokenDistribution, []error) {
	var dists []*domain.TokenDistribution
	var errs []error

	for _, cfg := range configs {
		roundAmount, err := schedule.RoundAmount(cfg, round)
		if err != nil {
			errs = append(errs, fmt.Errorf("token %q: %w", cfg.Name, err))
			continue
		}

		available := snap.TokenTotal(cfg.TokenID)
		perRecipient := schedule.PerRecipient(roundAmount, available, numRecipients)
		if perRecipient == 0 {
			continue
		}

		dists = append(dists, &domain.TokenDistribution{
			TokenID:            cfg.TokenID,
			AmountPerRecipient: perRecipient,
			TotalAmount:        perRecipient * int64(numRecipients),
		})
	}

	sort.Slice(dists, func(i, j int) bool { return dists[i].TokenID < dists[j].TokenID })
	return dists, errs
}

// Plan builds the round's distribution plan, or returns
// ErrNothingToDistribute when no token emits,
// *selector.InsufficientFundsError when the snapshot cannot cover the
// requirements, or *ConservationError on an internal inconsistency.
func (p *Planner) Plan(snap *domain.Snapshot, configs []*domain.TokenConfig, round int64, recipients []string) (*domain.DistributionPlan, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	dists, cfgErrs := p.Distributions(snap, configs, round, len(recipients))
	for _, err := range cfgErrs {
		p.logger.Printf("[planner] skipping token: %v", err)
	}
	if len(dists) == 0 {
		return nil, ErrNothingToDistribute
	}

	selected, err := selector.Select(snap, dists, len(recipients), p.params)
	if err != nil {
		return nil, err
	}

	outputs := p.buildRecipientOutputs(dists, recipients)
	change := p.buildChange(selected, dists, len(recipients))

	plan := &domain.DistributionPlan{
		Round:         round,
		Distributions: dists,
		Recipients:    outputs,
		Change:        change,
		InputBoxIDs:   selected.BoxIDs(),
		Inputs:        selected,
	}

	if err := p.checkConservation(plan, selected, len(recipients)); err != nil {
		return nil, err
	}

	plan.PlanID = idhash.ComputePlanID(round, plan.InputBoxIDs, plan.Recipients, plan.Change)
	return plan, nil
}

// PlanSingle plans a round for exactly one token. Kept for single-token
// pools; semantics are identical to Plan with a one-element config list.
func (p *Planner) PlanSingle(snap *domain.Snapshot, cfg *domain.TokenConfig, round int64, recipients []string) (*domain.DistributionPlan, error) {
	return p.Plan(snap, []*domain.TokenConfig{cfg}, round, recipients)
}

// buildRecipientOutputs creates one output per recipient carrying the
// fixed reserve amount and every distributed token's per-recipient share.
func (p *Planner) buildRecipientOutputs(dists []*domain.TokenDistribution, recipients []string) []domain.Output {
	outputs := make([]domain.Output, 0, len(recipients))
	for _, recipient := range recipients {
		tokens := make(map[string]int64, len(dists))
		for _, dist := range dists {
			tokens[dist.TokenID] = dist.AmountPerRecipient
		}
		outputs = append(outputs, domain.Output{
			Address: recipient,
			Value:   p.params.OutputValue(),
			Tokens:  tokens,
		})
	}
	return outputs
}

// buildChange computes the leftover returned to the pool. Every token in
// the selection is accounted for: distributed tokens return covered minus
// paid, tokens that were selected incidentally return in full. Value and
// tokens may not be created or destroyed, so a selected but undistributed
// token always rides back in the change output.
func (p *Planner) buildChange(selected *domain.UTXOSet, dists []*domain.TokenDistribution, numRecipients int) *domain.Output {
	distributed := make(map[string]int64, len(dists))
	for _, dist := range dists {
		distributed[dist.TokenID] = dist.TotalAmount
	}

	changeTokens := make(map[string]int64)
	for tokenID, covered := range selected.TokenAmounts {
		leftover := covered - distributed[tokenID]
		if leftover > 0 {
			changeTokens[tokenID] = leftover
		}
	}

	changeValue := selected.TotalValue - p.params.RequiredReserve(numRecipients)

	if changeValue <= 0 && len(changeTokens) == 0 {
		return nil
	}

	// The ledger rejects outputs below the minimum box value.
	value := changeValue
	if value < p.params.MinBoxValue {
		value = p.params.MinBoxValue
	}

	return &domain.Output{
		Address: p.sourceAddress,
		Value:   value,
		Tokens:  changeTokens,
	}
}

// checkConservation verifies that for every selected token the recipient
// amounts plus change equal the covered total, and that the reserve
// currency adds up net of the change floor. Any violation aborts the plan.
func (p *Planner) checkConservation(plan *domain.DistributionPlan, selected *domain.UTXOSet, numRecipients int) error {
	for tokenID, covered := range selected.TokenAmounts {
		out := plan.TokenOut(tokenID) + plan.ChangeAmount(tokenID)
		if out != covered {
			return &ConservationError{Resource: tokenID, Covered: covered, Out: out}
		}
	}

	// Reserve: recipient outputs + fee + raw leftover must equal the
	// selected total. The emitted change value may sit above the raw
	// leftover only because of the minimum box value floor.
	rawChange := selected.TotalValue - p.params.RequiredReserve(numRecipients)
	if rawChange < 0 {
		rawChange = 0
	}
	var outValue int64
	for i := range plan.Recipients {
		outValue += plan.Recipients[i].Value
	}
	total := outValue + p.params.Fee + rawChange
	if total != selected.TotalValue {
		return &ConservationError{Resource: "reserve", Covered: selected.TotalValue, Out: total}
	}

	return nil
}
