package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "hello world", Fold("  Hello World  "))
	assert.Equal(t, Fold("STRASSE"), Fold("straße"))
	// Fullwidth forms normalize to ASCII under NFKC.
	assert.Equal(t, "abc", Fold("ＡＢＣ"))
	assert.Equal(t, "", Fold("   "))
}

func TestFold_UnicodeForms(t *testing.T) {
	// Precomposed e-acute vs combining accent must fold identically.
	assert.Equal(t, Fold("Caf\u00e9"), Fold("Cafe\u0301"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"pro", "footballer"}, Tokens("  Pro   Footballer "))
	assert.Empty(t, Tokens(""))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Professional Footballer for PSG", "FOOTBALLER"))
	assert.True(t, ContainsFold("ＦＯＯＴＢＡＬＬ fan", "football"))
	assert.False(t, ContainsFold("musician", "footballer"))
}
