// Package selector picks a consistent set of input boxes covering all
// token targets and the reserve currency requirement for one round.
//
// Selection is a deterministic two-pass greedy: boxes carrying several of
// the requested tokens are consumed first (fewer inputs is a real cost
// saving on a UTXO ledger), then each still-short token is topped up from
// the largest remaining boxes holding it. A box id can never be consumed
// twice, across passes or across tokens.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"token-dispenser/internal/domain"
)

// Shortfall describes one unmet requirement.
type Shortfall struct {
	Resource string // token id, or "reserve" for the native currency
	Need     int64
	Have     int64
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s: need %d, have %d", s.Resource, s.Need, s.Have)
}

// InsufficientFundsError reports every resource the snapshot could not
// cover. The selection is discarded wholesale: no boxes are consumed.
type InsufficientFundsError struct {
	Reserve *Shortfall  // nil when the reserve requirement was met
	Tokens  []Shortfall // per-token shortfalls, ordered by token id
}

func (e *InsufficientFundsError) Error() string {
	parts := make([]string, 0, len(e.Tokens)+1)
	for _, s := range e.Tokens {
		parts = append(parts, s.String())
	}
	if e.Reserve != nil {
		parts = append(parts, e.Reserve.String())
	}
	return "insufficient funds: " + strings.Join(parts, "; ")
}

// Select chooses input boxes covering every distribution's total and the
// reserve requirement for numRecipients outputs plus the fee. On failure
// it returns *InsufficientFundsError and no selection.
func Select(snap *domain.Snapshot, dists []*domain.TokenDistribution, numRecipients int, params domain.LedgerParams) (*domain.UTXOSet, error) {
	targets := make(map[string]int64, len(dists))
	for _, dist := range dists {
		targets[dist.TokenID] = dist.TotalAmount
	}
	neededReserve := params.RequiredReserve(numRecipients)

	selected := domain.NewUTXOSet()

	// Pass 1: consolidate boxes that carry more than one requested token.
	for _, box := range multiTokenCandidates(snap, targets) {
		selected.Add(box)
	}

	// Pass 2: top up each token still short of its target, largest
	// holdings first.
	for _, dist := range sortedDists(dists) {
		for _, box := range topUpCandidates(snap, selected, dist.TokenID) {
			if selected.Covered(dist.TokenID) >= dist.TotalAmount {
				break
			}
			selected.Add(box)
		}
	}

	// Verify coverage of every target and the reserve.
	var tokenShortfalls []Shortfall
	for _, dist := range sortedDists(dists) {
		covered := selected.Covered(dist.TokenID)
		if covered < dist.TotalAmount {
			tokenShortfalls = append(tokenShortfalls, Shortfall{
				Resource: dist.TokenID,
				Need:     dist.TotalAmount,
				Have:     covered,
			})
		}
	}

	var reserveShortfall *Shortfall
	if selected.TotalValue < neededReserve {
		reserveShortfall = &Shortfall{
			Resource: "reserve",
			Need:     neededReserve,
			Have:     selected.TotalValue,
		}
	}

	if len(tokenShortfalls) > 0 || reserveShortfall != nil {
		return nil, &InsufficientFundsError{
			Reserve: reserveShortfall,
			Tokens:  tokenShortfalls,
		}
	}

	return selected, nil
}

// multiTokenCandidates returns the snapshot's boxes carrying more than
// one requested token, sorted by descending count of distinct requested
// tokens, ties broken by box id ascending.
func multiTokenCandidates(snap *domain.Snapshot, targets map[string]int64) []*domain.UTXO {
	var candidates []*domain.UTXO
	for _, box := range snap.Boxes() {
		if countRequested(box, targets) > 1 {
			candidates = append(candidates, box)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := countRequested(candidates[i], targets), countRequested(candidates[j], targets)
		if ci != cj {
			return ci > cj
		}
		return candidates[i].BoxID < candidates[j].BoxID
	})

	return candidates
}

// topUpCandidates returns unused boxes holding the token, sorted by
// descending amount of that token, ties broken by box id ascending.
func topUpCandidates(snap *domain.Snapshot, selected *domain.UTXOSet, tokenID string) []*domain.UTXO {
	var candidates []*domain.UTXO
	for _, box := range snap.ForToken(tokenID) {
		if !selected.Contains(box.BoxID) {
			candidates = append(candidates, box)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ai, aj := candidates[i].TokenAmount(tokenID), candidates[j].TokenAmount(tokenID)
		if ai != aj {
			return ai > aj
		}
		return candidates[i].BoxID < candidates[j].BoxID
	})

	return candidates
}

func countRequested(box *domain.UTXO, targets map[string]int64) int {
	count := 0
	for tokenID := range targets {
		if box.HasToken(tokenID) {
			count++
		}
	}
	return count
}

// sortedDists returns the distributions ordered by token id so pass 2
// and the shortfall report are independent of caller ordering.
func sortedDists(dists []*domain.TokenDistribution) []*domain.TokenDistribution {
	sorted := make([]*domain.TokenDistribution, len(dists))
	copy(sorted, dists)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TokenID < sorted[j].TokenID })
	return sorted
}
