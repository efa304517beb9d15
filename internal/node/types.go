package node

import (
	"fmt"

	"token-dispenser/internal/domain"
)

// Box is the wire representation of an unspent box as returned by the node.
type Box struct {
	BoxID  string  `json:"boxId"`
	Value  int64   `json:"value"`
	Assets []Asset `json:"assets"`
}

// Asset is one token entry inside a box.
type Asset struct {
	TokenID string `json:"tokenId"`
	Amount  int64  `json:"amount"`
}

// ToUTXO converts a wire box into a domain UTXO.
func (b *Box) ToUTXO() (*domain.UTXO, error) {
	tokens := make(map[string]int64, len(b.Assets))
	for _, a := range b.Assets {
		tokens[a.TokenID] += a.Amount
	}

	u, err := domain.NewUTXO(b.BoxID, b.Value, tokens)
	if err != nil {
		return nil, fmt.Errorf("box %s: %w", b.BoxID, err)
	}
	return u, nil
}

// PaymentRequest is one output of a wallet payment, matching the node's
// wallet API request shape.
type PaymentRequest struct {
	Address string  `json:"address"`
	Value   int64   `json:"value"`
	Assets  []Asset `json:"assets,omitempty"`
}

// SerializedBox is the node's binary form of an unspent box, hex-encoded.
type SerializedBox struct {
	BoxID string `json:"boxId"`
	Bytes string `json:"bytes"`
}

// TransactionRequest asks the wallet to assemble, sign and send a
// transaction spending exactly the given serialized input boxes.
type TransactionRequest struct {
	Requests  []PaymentRequest `json:"requests"`
	InputsRaw []string         `json:"inputsRaw"`
}

// nodeInfo is the subset of GET /info this package needs.
type nodeInfo struct {
	FullHeight int64 `json:"fullHeight"`
}
