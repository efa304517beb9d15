// Package schedule computes per-round emission amounts from a token's
// configured curve. All functions are pure: the round number is supplied
// by the caller and no state is kept here.
package schedule

import (
	"errors"
	"fmt"
	"math"

	"token-dispenser/internal/domain"
)

// ErrInvalidRound is returned when the round number is not positive.
var ErrInvalidRound = errors.New("round must be positive")

// TotalRounds returns the number of rounds the token's schedule spans:
// ceil(TotalAmount / TokensPerRound). Always >= 1 for a valid config.
func TotalRounds(cfg *domain.TokenConfig) (int64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	total := cfg.TotalAmount / cfg.TokensPerRound
	if cfg.TotalAmount%cfg.TokensPerRound != 0 {
		total++
	}
	return total, nil
}

// RoundAmount returns the nominal amount of the token to release in the
// given round. Past the final round the logarithmic and quadratic curves
// return 0 rather than failing: a finished schedule simply emits nothing.
func RoundAmount(cfg *domain.TokenConfig, round int64) (int64, error) {
	if round < 1 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidRound, round)
	}

	totalRounds, err := TotalRounds(cfg)
	if err != nil {
		return 0, err
	}

	switch cfg.DistributionType {
	case domain.DistributionLinear, domain.DistributionConstant:
		return cfg.TokensPerRound, nil

	case domain.DistributionLogarithmic:
		// ln(totalRounds) is zero for a single-round schedule and the
		// log argument goes non-positive past the final round; both mean
		// no further emission.
		if totalRounds <= 1 || round > totalRounds {
			return 0, nil
		}
		factor := math.Log(float64(totalRounds-round+1)) / math.Log(float64(totalRounds))
		return floorAmount(cfg.TokensPerRound, factor), nil

	case domain.DistributionQuadratic:
		if round >= totalRounds {
			return 0, nil
		}
		ratio := float64(totalRounds-round) / float64(totalRounds)
		return floorAmount(cfg.TokensPerRound, ratio*ratio), nil

	default:
		// Validate above rejects unknown types; kept for exhaustiveness.
		return 0, fmt.Errorf("%w: unknown distribution type %q", domain.ErrConfigInvalid, cfg.DistributionType)
	}
}

// PerRecipient derives the amount each recipient receives this round,
// capped by what the snapshot actually holds. A zero result means the
// token is skipped for the round entirely.
func PerRecipient(roundAmount, available int64, numRecipients int) int64 {
	if numRecipients <= 0 {
		return 0
	}
	amount := roundAmount
	if available < amount {
		amount = available
	}
	if amount <= 0 {
		return 0
	}
	return amount / int64(numRecipients)
}

func floorAmount(base int64, factor float64) int64 {
	if factor <= 0 {
		return 0
	}
	return int64(math.Floor(float64(base) * factor))
}
