package domain

import "fmt"

// DistributionType selects the emission curve for a token.
type DistributionType string

const (
	DistributionLinear      DistributionType = "linear"
	DistributionLogarithmic DistributionType = "logarithmic"
	DistributionQuadratic   DistributionType = "quadratic"
	DistributionConstant    DistributionType = "constant"
)

// Valid reports whether the distribution type is one of the known curves.
func (d DistributionType) Valid() bool {
	switch d {
	case DistributionLinear, DistributionLogarithmic, DistributionQuadratic, DistributionConstant:
		return true
	default:
		return false
	}
}

// TokenConfig describes one token's emission schedule. Loaded once from
// configuration and treated as read-only by the engine.
type TokenConfig struct {
	Name             string           // human-readable name, used in logs only
	TokenID          string           // ledger token identifier
	TotalAmount      int64            // lifetime emission cap
	Decimals         int              // display only, never used in arithmetic
	DistributionType DistributionType // emission curve
	TokensPerRound   int64            // nominal base release per round
}

// Validate checks the numeric invariants. Violations wrap ErrConfigInvalid
// so callers can isolate a bad token without stopping the others.
func (c *TokenConfig) Validate() error {
	if c.TokenID == "" {
		return fmt.Errorf("%w: token %q has empty token id", ErrConfigInvalid, c.Name)
	}
	if c.TotalAmount <= 0 {
		return fmt.Errorf("%w: token %q total_amount must be positive, got %d",
			ErrConfigInvalid, c.Name, c.TotalAmount)
	}
	if c.TokensPerRound <= 0 {
		return fmt.Errorf("%w: token %q tokens_per_round must be positive, got %d",
			ErrConfigInvalid, c.Name, c.TokensPerRound)
	}
	if !c.DistributionType.Valid() {
		return fmt.Errorf("%w: token %q has unknown distribution type %q",
			ErrConfigInvalid, c.Name, c.DistributionType)
	}
	return nil
}

// TokenDistribution is the derived per-round release of one token.
type TokenDistribution struct {
	TokenID            string
	AmountPerRecipient int64
	TotalAmount        int64 // AmountPerRecipient * recipient count
}
