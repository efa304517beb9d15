// Package main is a one-shot dry-run planner: build a distribution plan for
// a given round from either a snapshot file or a live node scan, and print
// it as JSON without submitting anything.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"token-dispenser/internal/config"
	"token-dispenser/internal/domain"
	"token-dispenser/internal/node"
	"token-dispenser/internal/planner"
	"token-dispenser/internal/selector"
)

// planOutput is the printable shape of a dry-run plan.
type planOutput struct {
	PlanID        string                      `json:"plan_id"`
	Round         int64                       `json:"round"`
	Distributions []*domain.TokenDistribution `json:"distributions"`
	Recipients    []domain.Output             `json:"recipients"`
	Change        *domain.Output              `json:"change,omitempty"`
	InputBoxIDs   []string                    `json:"input_box_ids"`
	TotalValue    int64                       `json:"total_input_value"`
}

func main() {
	configPath := flag.String("config", os.Getenv("DISPENSER_CONFIG"), "Path to bot_info.json config file")
	snapshotPath := flag.String("snapshot", "", "Path to a JSON file of unspent boxes (skips the node scan)")
	round := flag.Int64("round", 1, "Round to plan")

	flag.Parse()

	logger := log.New(os.Stderr, "[plan] ", log.LstdFlags)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := loadSnapshot(ctx, cfg, *snapshotPath, logger)
	if err != nil {
		logger.Fatalf("Failed to build snapshot: %v", err)
	}
	logger.Printf("Snapshot: %d boxes, total value %d", snap.Len(), snap.TotalValue())

	p, err := planner.New(domain.DefaultLedgerParams, cfg.PoolContractAddress, logger)
	if err != nil {
		logger.Fatalf("Failed to create planner: %v", err)
	}

	plan, err := p.Plan(snap, cfg.TokenConfigs(), *round, cfg.RecipientWallets)
	if err != nil {
		var insufficient *selector.InsufficientFundsError
		switch {
		case errors.Is(err, planner.ErrNothingToDistribute):
			logger.Printf("Round %d: nothing to distribute", *round)
			os.Exit(0)
		case errors.As(err, &insufficient):
			logger.Fatalf("Round %d: %v", *round, err)
		default:
			logger.Fatalf("Planning failed: %v", err)
		}
	}

	out := planOutput{
		PlanID:        plan.PlanID,
		Round:         plan.Round,
		Distributions: plan.Distributions,
		Recipients:    plan.Recipients,
		Change:        plan.Change,
		InputBoxIDs:   plan.InputBoxIDs,
		TotalValue:    plan.Inputs.TotalValue,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("Failed to encode plan: %v", err)
	}
}

// loadSnapshot reads boxes from a file when given, otherwise scans the node.
func loadSnapshot(ctx context.Context, cfg *config.Config, path string, logger *log.Logger) (*domain.Snapshot, error) {
	if path != "" {
		return snapshotFromFile(path)
	}

	if cfg.Node.NodeURL == "" {
		return nil, errors.New("config is missing node.node_url (or pass --snapshot)")
	}

	client := node.NewClient(cfg.Node.NodeURL, node.WithAPIKey(cfg.Node.APIKey))
	scanner := node.NewScanner(client, cfg.PoolContractAddress, logger)
	return scanner.Snapshot(ctx)
}

// snapshotFromFile parses a JSON array of boxes in the node's wire format.
func snapshotFromFile(path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var boxes []node.Box
	if err := json.Unmarshal(data, &boxes); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	utxos := make([]*domain.UTXO, 0, len(boxes))
	for i := range boxes {
		u, err := boxes[i].ToUTXO()
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u)
	}

	return domain.NewSnapshot(utxos)
}
