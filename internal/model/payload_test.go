package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload ProfilePayload
		wantErr bool
	}{
		{"nil payload", nil, true},
		{"empty payload", ProfilePayload{}, false},
		{"well formed", ProfilePayload{
			FieldUsername:      "creator",
			FieldBio:           "bio text",
			FieldFollowerCount: int64(100),
			FieldVerified:      true,
			FieldLinks:         []string{"https://a.com"},
		}, false},
		{"links from json decode", ProfilePayload{
			FieldLinks: []any{"https://a.com", "https://b.com"},
		}, false},
		{"bio wrong type", ProfilePayload{FieldBio: 42}, true},
		{"follower count wrong type", ProfilePayload{FieldFollowerCount: "many"}, true},
		{"verified wrong type", ProfilePayload{FieldVerified: "yes"}, true},
		{"links wrong element type", ProfilePayload{FieldLinks: []any{"ok", 7}}, true},
		{"unknown fields ignored", ProfilePayload{"extra": struct{}{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFollowerCountNumericWidths(t *testing.T) {
	for _, v := range []any{int(42), int64(42), float64(42)} {
		p := ProfilePayload{FieldFollowerCount: v}
		n, ok := p.FollowerCount()
		require.True(t, ok)
		assert.Equal(t, int64(42), n)
	}

	_, ok := ProfilePayload{}.FollowerCount()
	assert.False(t, ok)
}

func TestStringAccessorsIgnoreEmpty(t *testing.T) {
	p := ProfilePayload{FieldUsername: ""}
	_, ok := p.Username()
	assert.False(t, ok)

	p = ProfilePayload{FieldUsername: "creator"}
	u, ok := p.Username()
	require.True(t, ok)
	assert.Equal(t, "creator", u)
}

func TestLinksAndPrimaryLink(t *testing.T) {
	p := ProfilePayload{FieldLinks: []any{"https://a.com", "https://b.com"}}
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, p.Links())

	first, ok := p.PrimaryLink()
	require.True(t, ok)
	assert.Equal(t, "https://a.com", first)

	_, ok = ProfilePayload{}.PrimaryLink()
	assert.False(t, ok)
}

func TestSubjectKey(t *testing.T) {
	s := Subject{Platform: PlatformInstagram, Username: "creator"}
	assert.Equal(t, "instagram:creator", s.Key())
}

func TestHasFollowerRange(t *testing.T) {
	var nilProfile *ExpectedProfile
	assert.False(t, nilProfile.HasFollowerRange())
	assert.False(t, (&ExpectedProfile{}).HasFollowerRange())
	assert.True(t, (&ExpectedProfile{FollowerMin: 1}).HasFollowerRange())
	assert.True(t, (&ExpectedProfile{FollowerMax: 10}).HasFollowerRange())
}
