// Package textnorm normalizes free text before comparison. Profile bios and
// usernames arrive from heterogeneous extractors with inconsistent Unicode
// forms; keyword overlap and duplicate fingerprints must not be defeated by
// visually identical but byte-different strings.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s in NFKC form, case-folded and space-trimmed.
// A fresh Caser per call: cases.Caser is stateful and not goroutine-safe.
func Fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFKC.String(s)))
}

// Tokens splits s into folded word tokens.
func Tokens(s string) []string {
	return strings.Fields(Fold(s))
}

// ContainsFold reports whether folded s contains folded substr.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
