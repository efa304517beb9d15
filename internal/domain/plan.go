package domain

// Output is one box to be created by the distribution transaction.
type Output struct {
	Address string           // recipient address, or the pool address for change
	Value   int64            // reserve currency in nanoERG
	Tokens  map[string]int64 // token_id -> amount
}

// TokenAmount returns the amount of the token carried by the output.
func (o *Output) TokenAmount(tokenID string) int64 {
	return o.Tokens[tokenID]
}

// DistributionPlan is the assembled result of one planning round.
//
// Conservation invariant: for every token, the sum of recipient amounts
// plus the change amount equals the total covered by the selected inputs.
// The plan carries the exact input box ids so the driver can re-validate
// them against the node before submission.
type DistributionPlan struct {
	PlanID        string
	Round         int64
	Distributions []*TokenDistribution
	Recipients    []Output  // one output per recipient, in recipient order
	Change        *Output   // nil when nothing is left over
	InputBoxIDs   []string  // sorted ascending
	Inputs        *UTXOSet  // the selection the plan was built from
}

// TokenOut returns the total amount of the token paid to recipients.
func (p *DistributionPlan) TokenOut(tokenID string) int64 {
	var total int64
	for i := range p.Recipients {
		total += p.Recipients[i].TokenAmount(tokenID)
	}
	return total
}

// ChangeAmount returns the token amount returned to the pool, zero when
// the plan has no change output.
func (p *DistributionPlan) ChangeAmount(tokenID string) int64 {
	if p.Change == nil {
		return 0
	}
	return p.Change.TokenAmount(tokenID)
}
