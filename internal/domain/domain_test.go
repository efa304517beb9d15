package domain

import (
	"errors"
	"testing"
)

func TestNewUTXO_Valid(t *testing.T) {
	u, err := NewUTXO("box1", 1000, map[string]int64{"tokenA": 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.TokenAmount("tokenA") != 50 {
		t.Errorf("expected tokenA amount 50, got %d", u.TokenAmount("tokenA"))
	}
	if u.TokenAmount("tokenB") != 0 {
		t.Errorf("expected absent token amount 0, got %d", u.TokenAmount("tokenB"))
	}
}

func TestNewUTXO_CopiesTokens(t *testing.T) {
	tokens := map[string]int64{"tokenA": 50}
	u, err := NewUTXO("box1", 1000, tokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens["tokenA"] = 999
	if u.TokenAmount("tokenA") != 50 {
		t.Errorf("box mutated through caller map: got %d", u.TokenAmount("tokenA"))
	}
}

func TestNewUTXO_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		boxID  string
		value  int64
		tokens map[string]int64
	}{
		{"empty box id", "", 100, nil},
		{"negative value", "box1", -1, nil},
		{"zero token amount", "box1", 100, map[string]int64{"tokenA": 0}},
		{"negative token amount", "box1", 100, map[string]int64{"tokenA": -5}},
		{"empty token id", "box1", 100, map[string]int64{"": 5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUTXO(tc.boxID, tc.value, tc.tokens)
			if !errors.Is(err, ErrInvalidUTXO) {
				t.Errorf("expected ErrInvalidUTXO, got %v", err)
			}
		})
	}
}

func TestNewSnapshot_RejectsDuplicateBoxIDs(t *testing.T) {
	a, _ := NewUTXO("box1", 100, nil)
	b, _ := NewUTXO("box1", 200, nil)

	_, err := NewSnapshot([]*UTXO{a, b})
	if !errors.Is(err, ErrInvalidUTXO) {
		t.Errorf("expected ErrInvalidUTXO for duplicate box id, got %v", err)
	}
}

func TestSnapshot_TokenIndexAndTotals(t *testing.T) {
	a, _ := NewUTXO("box-a", 100, map[string]int64{"tokenA": 10, "tokenB": 5})
	b, _ := NewUTXO("box-b", 200, map[string]int64{"tokenA": 30})
	c, _ := NewUTXO("box-c", 300, nil)

	snap, err := NewSnapshot([]*UTXO{c, b, a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := snap.TokenTotal("tokenA"); got != 40 {
		t.Errorf("expected tokenA total 40, got %d", got)
	}
	if got := snap.TokenTotal("tokenB"); got != 5 {
		t.Errorf("expected tokenB total 5, got %d", got)
	}
	if got := snap.TokenTotal("missing"); got != 0 {
		t.Errorf("expected missing token total 0, got %d", got)
	}
	if got := snap.TotalValue(); got != 600 {
		t.Errorf("expected total value 600, got %d", got)
	}

	// ForToken is sorted by box id regardless of insertion order.
	forA := snap.ForToken("tokenA")
	if len(forA) != 2 || forA[0].BoxID != "box-a" || forA[1].BoxID != "box-b" {
		t.Errorf("unexpected ForToken ordering: %+v", forA)
	}
}

func TestUTXOSet_AddIsIdempotent(t *testing.T) {
	set := NewUTXOSet()
	box, _ := NewUTXO("box1", 100, map[string]int64{"tokenA": 10})

	set.Add(box)
	set.Add(box)

	if set.Len() != 1 {
		t.Errorf("expected 1 box after double add, got %d", set.Len())
	}
	if set.TotalValue != 100 {
		t.Errorf("expected total value 100, got %d", set.TotalValue)
	}
	if set.Covered("tokenA") != 10 {
		t.Errorf("expected covered tokenA 10, got %d", set.Covered("tokenA"))
	}
}

func TestTokenConfig_Validate(t *testing.T) {
	valid := TokenConfig{
		Name:             "alpha",
		TokenID:          "id-a",
		TotalAmount:      1000,
		DistributionType: DistributionLinear,
		TokensPerRound:   100,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TokenConfig)
	}{
		{"empty token id", func(c *TokenConfig) { c.TokenID = "" }},
		{"zero total", func(c *TokenConfig) { c.TotalAmount = 0 }},
		{"zero per round", func(c *TokenConfig) { c.TokensPerRound = 0 }},
		{"bad type", func(c *TokenConfig) { c.DistributionType = "exponential" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if !errors.Is(cfg.Validate(), ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid")
			}
		})
	}
}

func TestLedgerParams_RequiredReserve(t *testing.T) {
	p := LedgerParams{PerRecipientValue: 1000, MinBoxValue: 500, Fee: 100}

	if got := p.OutputValue(); got != 1500 {
		t.Errorf("expected output value 1500, got %d", got)
	}
	// (1000+500)*3 + 100
	if got := p.RequiredReserve(3); got != 4600 {
		t.Errorf("expected required reserve 4600, got %d", got)
	}
}
