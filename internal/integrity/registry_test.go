package integrity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/audit-cli/internal/model"
)

func TestFingerprint_Stability(t *testing.T) {
	a := model.ProfilePayload{
		model.FieldBio:           "  Travel Photographer ",
		model.FieldFollowerCount: int64(100),
		model.FieldLinks:         []string{"https://example.com"},
	}
	b := model.ProfilePayload{
		model.FieldBio:           "travel photographer",
		model.FieldFollowerCount: float64(100),
		model.FieldLinks:         []any{"https://example.com"},
	}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_DifferentContent(t *testing.T) {
	a := model.ProfilePayload{model.FieldBio: "bio one"}
	b := model.ProfilePayload{model.FieldBio: "bio two"}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_EmptyPayload(t *testing.T) {
	assert.Equal(t, "", Fingerprint(model.ProfilePayload{}))
	assert.Equal(t, "", Fingerprint(model.ProfilePayload{"unrelated": "x"}))
}

func TestObserve_EmptyFingerprintNeverRegistered(t *testing.T) {
	r := NewFingerprintRegistry()
	_, dup := r.Observe(model.Subject{Platform: model.PlatformTwitch, Username: "a"}, "")
	assert.False(t, dup)
	_, dup = r.Observe(model.Subject{Platform: model.PlatformTwitch, Username: "b"}, "")
	assert.False(t, dup)
	assert.Equal(t, 0, r.Len())
}

func TestObserve_ReportsFirstOwner(t *testing.T) {
	r := NewFingerprintRegistry()
	a := model.Subject{Platform: model.PlatformYouTube, Username: "a"}
	b := model.Subject{Platform: model.PlatformYouTube, Username: "b"}

	_, dup := r.Observe(a, "fp1")
	require.False(t, dup)

	first, dup := r.Observe(b, "fp1")
	require.True(t, dup)
	assert.Equal(t, a, first)

	// Same subject re-observing its own fingerprint is not a conflict.
	_, dup = r.Observe(a, "fp1")
	assert.False(t, dup)
}

func TestObserve_ConcurrentSingleWinner(t *testing.T) {
	r := NewFingerprintRegistry()

	const workers = 32
	var wg sync.WaitGroup
	dups := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			subj := model.Subject{Platform: model.PlatformLinktree, Username: string(rune('a' + n))}
			_, dup := r.Observe(subj, "shared")
			dups <- dup
		}(i)
	}
	wg.Wait()
	close(dups)

	clean := 0
	for dup := range dups {
		if !dup {
			clean++
		}
	}
	// Exactly one subject wins the insert; everyone else sees the conflict.
	assert.Equal(t, 1, clean)
	assert.Equal(t, 1, r.Len())
}
