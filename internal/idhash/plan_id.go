// Package idhash computes deterministic identifiers for plans.
package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"

	"token-dispenser/internal/domain"
)

// ComputePlanID computes a deterministic plan identifier from the round,
// the consumed input set and every output. Two identical planning runs
// on the same snapshot therefore produce the same id.
// The digest is SHA256 over a canonical string, rendered base58.
func ComputePlanID(round int64, inputBoxIDs []string, recipients []domain.Output, change *domain.Output) string {
	var b strings.Builder

	fmt.Fprintf(&b, "round=%d", round)

	sortedInputs := make([]string, len(inputBoxIDs))
	copy(sortedInputs, inputBoxIDs)
	sort.Strings(sortedInputs)
	fmt.Fprintf(&b, "|inputs=%s", strings.Join(sortedInputs, ","))

	for i := range recipients {
		writeOutput(&b, &recipients[i])
	}
	if change != nil {
		b.WriteString("|change")
		writeOutput(&b, change)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return base58.Encode(hash[:])
}

func writeOutput(b *strings.Builder, out *domain.Output) {
	fmt.Fprintf(b, "|out=%s:%d", out.Address, out.Value)

	tokenIDs := make([]string, 0, len(out.Tokens))
	for tokenID := range out.Tokens {
		tokenIDs = append(tokenIDs, tokenID)
	}
	sort.Strings(tokenIDs)
	for _, tokenID := range tokenIDs {
		fmt.Fprintf(b, ":%s=%d", tokenID, out.Tokens[tokenID])
	}
}
