package domain

import (
	"fmt"
	"sort"
)

// UTXO represents one unspent box in the source pool.
// A box must be consumed whole by a spending transaction; it is never
// mutated after being observed in a snapshot.
type UTXO struct {
	BoxID  string           // unique box identifier
	Value  int64            // reserve currency in nanoERG
	Tokens map[string]int64 // token_id -> amount (absent means zero)
}

// NewUTXO creates a validated UTXO. The tokens map is copied so the
// caller cannot mutate the box after construction.
func NewUTXO(boxID string, value int64, tokens map[string]int64) (*UTXO, error) {
	if boxID == "" {
		return nil, fmt.Errorf("%w: empty box id", ErrInvalidUTXO)
	}
	if value < 0 {
		return nil, fmt.Errorf("%w: negative value %d in box %s", ErrInvalidUTXO, value, boxID)
	}

	copied := make(map[string]int64, len(tokens))
	for tokenID, amount := range tokens {
		if tokenID == "" {
			return nil, fmt.Errorf("%w: empty token id in box %s", ErrInvalidUTXO, boxID)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("%w: non-positive amount %d for token %s in box %s",
				ErrInvalidUTXO, amount, tokenID, boxID)
		}
		copied[tokenID] = amount
	}

	return &UTXO{BoxID: boxID, Value: value, Tokens: copied}, nil
}

// TokenAmount returns the amount of the given token held by the box,
// zero if the box does not carry it.
func (u *UTXO) TokenAmount(tokenID string) int64 {
	return u.Tokens[tokenID]
}

// HasToken reports whether the box carries a positive amount of the token.
func (u *UTXO) HasToken(tokenID string) bool {
	return u.Tokens[tokenID] > 0
}

// Snapshot is an immutable view of the pool's unspent boxes at scan time.
// The same box appears once regardless of how many tokens it carries.
type Snapshot struct {
	boxes   map[string]*UTXO   // keyed by box id
	byToken map[string][]*UTXO // token_id -> boxes carrying it
}

// NewSnapshot indexes the given boxes. Duplicate box ids are rejected.
func NewSnapshot(boxes []*UTXO) (*Snapshot, error) {
	s := &Snapshot{
		boxes:   make(map[string]*UTXO, len(boxes)),
		byToken: make(map[string][]*UTXO),
	}

	for _, box := range boxes {
		if box == nil {
			return nil, fmt.Errorf("%w: nil box", ErrInvalidUTXO)
		}
		if _, exists := s.boxes[box.BoxID]; exists {
			return nil, fmt.Errorf("%w: duplicate box id %s", ErrInvalidUTXO, box.BoxID)
		}
		s.boxes[box.BoxID] = box
		for tokenID := range box.Tokens {
			s.byToken[tokenID] = append(s.byToken[tokenID], box)
		}
	}

	// Deterministic per-token ordering regardless of input order.
	for tokenID := range s.byToken {
		list := s.byToken[tokenID]
		sort.Slice(list, func(i, j int) bool { return list[i].BoxID < list[j].BoxID })
	}

	return s, nil
}

// Boxes returns all boxes sorted by box id.
func (s *Snapshot) Boxes() []*UTXO {
	result := make([]*UTXO, 0, len(s.boxes))
	for _, box := range s.boxes {
		result = append(result, box)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BoxID < result[j].BoxID })
	return result
}

// ForToken returns the boxes carrying the token, sorted by box id.
func (s *Snapshot) ForToken(tokenID string) []*UTXO {
	return s.byToken[tokenID]
}

// TokenTotal returns the total amount of the token across the snapshot.
func (s *Snapshot) TokenTotal(tokenID string) int64 {
	var total int64
	for _, box := range s.byToken[tokenID] {
		total += box.Tokens[tokenID]
	}
	return total
}

// TotalValue returns the total reserve currency across the snapshot.
func (s *Snapshot) TotalValue() int64 {
	var total int64
	for _, box := range s.boxes {
		total += box.Value
	}
	return total
}

// Len returns the number of boxes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.boxes)
}

// UTXOSet is the result of input selection: the chosen boxes together
// with their accumulated totals. Box ids are tracked as a set so no box
// can be consumed twice.
type UTXOSet struct {
	Boxes        []*UTXO
	TotalValue   int64
	TokenAmounts map[string]int64 // covered totals for every token present in the selection

	ids map[string]struct{}
}

// NewUTXOSet creates an empty selection result.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		TokenAmounts: make(map[string]int64),
		ids:          make(map[string]struct{}),
	}
}

// Contains reports whether the box id is already selected.
func (s *UTXOSet) Contains(boxID string) bool {
	_, ok := s.ids[boxID]
	return ok
}

// Add consumes the box into the selection. Adding an already selected
// box is a no-op so double consumption cannot occur.
func (s *UTXOSet) Add(box *UTXO) {
	if s.Contains(box.BoxID) {
		return
	}
	s.ids[box.BoxID] = struct{}{}
	s.Boxes = append(s.Boxes, box)
	s.TotalValue += box.Value
	for tokenID, amount := range box.Tokens {
		s.TokenAmounts[tokenID] += amount
	}
}

// Covered returns the selected total for the token.
func (s *UTXOSet) Covered(tokenID string) int64 {
	return s.TokenAmounts[tokenID]
}

// BoxIDs returns the selected box ids sorted ascending.
func (s *UTXOSet) BoxIDs() []string {
	result := make([]string, 0, len(s.ids))
	for id := range s.ids {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of selected boxes.
func (s *UTXOSet) Len() int {
	return len(s.Boxes)
}
