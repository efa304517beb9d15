package node

import (
	"context"
	"fmt"
	"log"
	"sort"

	"token-dispenser/internal/domain"
)

// Submitter turns distribution plans into wallet transaction requests that
// spend exactly the plan's selected boxes. Signing stays with the node wallet.
type Submitter struct {
	client *Client
	logger *log.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(client *Client, logger *log.Logger) *Submitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Submitter{client: client, logger: logger}
}

// Submit sends a plan as one wallet transaction pinned to the plan's input
// boxes. The change math only holds when the transaction spends exactly the
// selected boxes, so the inputs are fetched in serialized form and handed to
// the wallet rather than letting it pick its own. Returns the tx ID.
func (s *Submitter) Submit(ctx context.Context, plan *domain.DistributionPlan) (string, error) {
	requests := make([]PaymentRequest, 0, len(plan.Recipients)+1)
	for i := range plan.Recipients {
		requests = append(requests, outputToRequest(&plan.Recipients[i]))
	}
	if plan.Change != nil {
		requests = append(requests, outputToRequest(plan.Change))
	}

	inputs := make([]string, 0, len(plan.InputBoxIDs))
	for _, boxID := range plan.InputBoxIDs {
		raw, err := s.client.BoxBytesByID(ctx, boxID)
		if err != nil {
			return "", fmt.Errorf("fetch input box %s for plan %s: %w", boxID, plan.PlanID, err)
		}
		inputs = append(inputs, raw)
	}

	txID, err := s.client.SubmitTransaction(ctx, TransactionRequest{
		Requests:  requests,
		InputsRaw: inputs,
	})
	if err != nil {
		return "", fmt.Errorf("submit plan %s: %w", plan.PlanID, err)
	}

	s.logger.Printf("[submitter] plan %s submitted with %d inputs, tx %s",
		plan.PlanID, len(inputs), txID)
	return txID, nil
}

// outputToRequest converts a plan output, with assets sorted by token ID so
// the request body is deterministic.
func outputToRequest(out *domain.Output) PaymentRequest {
	tokenIDs := make([]string, 0, len(out.Tokens))
	for id := range out.Tokens {
		tokenIDs = append(tokenIDs, id)
	}
	sort.Strings(tokenIDs)

	assets := make([]Asset, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		assets = append(assets, Asset{TokenID: id, Amount: out.Tokens[id]})
	}

	return PaymentRequest{
		Address: out.Address,
		Value:   out.Value,
		Assets:  assets,
	}
}
