package node

import (
	"context"
	"fmt"
	"log"

	"token-dispenser/internal/domain"
)

// Scanner builds UTXO snapshots from the pool address.
type Scanner struct {
	client      *Client
	poolAddress string
	logger      *log.Logger
}

// NewScanner creates a Scanner for the given pool address.
func NewScanner(client *Client, poolAddress string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		client:      client,
		poolAddress: poolAddress,
		logger:      logger,
	}
}

// Snapshot scans all unspent boxes at the pool address and returns them as a
// domain snapshot.
func (s *Scanner) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	boxes, err := s.client.UnspentBoxesByAddress(ctx, s.poolAddress)
	if err != nil {
		return nil, fmt.Errorf("scan pool address: %w", err)
	}

	utxos := make([]*domain.UTXO, 0, len(boxes))
	for i := range boxes {
		u, err := boxes[i].ToUTXO()
		if err != nil {
			return nil, fmt.Errorf("convert box: %w", err)
		}
		utxos = append(utxos, u)
	}

	snap, err := domain.NewSnapshot(utxos)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	s.logger.Printf("[scanner] found %d UTXOs at pool address", snap.Len())
	return snap, nil
}

// SnapshotForToken scans unspent boxes at the pool address keeping only boxes
// that hold the given token.
func (s *Scanner) SnapshotForToken(ctx context.Context, tokenID string) (*domain.Snapshot, error) {
	boxes, err := s.client.UnspentBoxesByAddress(ctx, s.poolAddress)
	if err != nil {
		return nil, fmt.Errorf("scan pool address: %w", err)
	}

	var utxos []*domain.UTXO
	for i := range boxes {
		u, err := boxes[i].ToUTXO()
		if err != nil {
			return nil, fmt.Errorf("convert box: %w", err)
		}
		if u.HasToken(tokenID) {
			utxos = append(utxos, u)
		}
	}

	snap, err := domain.NewSnapshot(utxos)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	s.logger.Printf("[scanner] found %d UTXOs containing token %s", snap.Len(), tokenID)
	return snap, nil
}
