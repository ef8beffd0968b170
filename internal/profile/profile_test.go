package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/audit-cli/internal/model"
)

const profilesYAML = `
profiles:
  - platform: instagram
    username: cristiano
    follower_min: 600000000
    follower_max: 650000000
    bio_keywords: [footballer]
    verified: true
    expected_links:
      - https://www.livescore.com
  - platform: youtube
    username: mkbhd
    bio_keywords: [tech, reviews]
    link_patterns: ["youtube.com"]
  - platform: instagram
    username: other
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeTemp(t, profilesYAML))
	require.NoError(t, err)

	subjects := s.Subjects()
	require.Len(t, subjects, 3)
	assert.Equal(t, model.Subject{Platform: model.PlatformInstagram, Username: "cristiano"}, subjects[0])

	p := s.Get(subjects[0])
	require.NotNil(t, p)
	assert.Equal(t, int64(600_000_000), p.FollowerMin)
	assert.Equal(t, []string{"footballer"}, p.BioKeywords)
	require.NotNil(t, p.Verified)
	assert.True(t, *p.Verified)
	assert.Equal(t, []string{"https://www.livescore.com"}, p.ExpectedLinks)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyProfiles(t *testing.T) {
	_, err := Load(writeTemp(t, "profiles: []\n"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "profiles: [unclosed"))
	assert.Error(t, err)
}

func TestGet_UnknownSubject(t *testing.T) {
	s, err := Load(writeTemp(t, profilesYAML))
	require.NoError(t, err)

	p := s.Get(model.Subject{Platform: model.PlatformTikTok, Username: "nobody"})
	assert.Nil(t, p)

	var nilStore *Store
	assert.Nil(t, nilStore.Get(model.Subject{}))
}

func TestFilter(t *testing.T) {
	s, err := Load(writeTemp(t, profilesYAML))
	require.NoError(t, err)

	insta := s.Filter(model.PlatformInstagram, "")
	assert.Len(t, insta, 2)

	one := s.Filter(model.PlatformInstagram, "cristiano")
	require.Len(t, one, 1)
	assert.Equal(t, "cristiano", one[0].Username)

	byName := s.Filter("", "mkbhd")
	require.Len(t, byName, 1)
	assert.Equal(t, model.PlatformYouTube, byName[0].Platform)

	all := s.Filter("", "")
	assert.Len(t, all, 3)

	assert.Empty(t, s.Filter(model.PlatformTwitch, ""))
}

func TestNew_DuplicateEntriesLastWins(t *testing.T) {
	s := New([]Entry{
		{Platform: model.PlatformInstagram, Username: "a", Expected: model.ExpectedProfile{FollowerMin: 1}},
		{Platform: model.PlatformInstagram, Username: "a", Expected: model.ExpectedProfile{FollowerMin: 2}},
	})

	assert.Len(t, s.Subjects(), 1)
	p := s.Get(model.Subject{Platform: model.PlatformInstagram, Username: "a"})
	require.NotNil(t, p)
	assert.Equal(t, int64(2), p.FollowerMin)
}
