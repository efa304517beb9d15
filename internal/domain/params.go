package domain

import "fmt"

// NanoErgPerErg is the reserve currency's smallest-unit scale.
const NanoErgPerErg = 1_000_000_000

// LedgerParams holds the ledger constants the planner needs: the reserve
// currency attached to each recipient output, the minimum value any box
// must carry, and the flat transaction fee. All values are nanoERG.
type LedgerParams struct {
	PerRecipientValue int64
	MinBoxValue       int64
	Fee               int64
}

// DefaultLedgerParams matches the original deployment: 0.001 ERG for
// each parameter.
var DefaultLedgerParams = LedgerParams{
	PerRecipientValue: NanoErgPerErg / 1000,
	MinBoxValue:       NanoErgPerErg / 1000,
	Fee:               NanoErgPerErg / 1000,
}

// Validate checks that all parameters are positive.
func (p LedgerParams) Validate() error {
	if p.PerRecipientValue <= 0 {
		return fmt.Errorf("%w: per-recipient value must be positive, got %d", ErrConfigInvalid, p.PerRecipientValue)
	}
	if p.MinBoxValue <= 0 {
		return fmt.Errorf("%w: min box value must be positive, got %d", ErrConfigInvalid, p.MinBoxValue)
	}
	if p.Fee <= 0 {
		return fmt.Errorf("%w: fee must be positive, got %d", ErrConfigInvalid, p.Fee)
	}
	return nil
}

// OutputValue is the reserve currency carried by each recipient output.
func (p LedgerParams) OutputValue() int64 {
	return p.PerRecipientValue + p.MinBoxValue
}

// RequiredReserve is the total reserve currency a round must cover:
// every recipient output plus the flat fee.
func (p LedgerParams) RequiredReserve(numRecipients int) int64 {
	return p.OutputValue()*int64(numRecipients) + p.Fee
}
