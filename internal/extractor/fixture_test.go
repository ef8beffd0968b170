package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/audit-cli/internal/model"
)

const fixtureYAML = `
subjects:
  - platform: instagram
    username: flaky
    steps:
      - fail: "429 too many requests"
      - fail: "429 too many requests"
      - payload:
          bio: finally worked
  - platform: youtube
    username: stable
    steps:
      - payload:
          bio: always works
          follower_count: 1000
`

func loadFixture(t *testing.T) *FixtureFactory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	f, err := LoadFixtureFile(path)
	require.NoError(t, err)
	return f
}

func extractOnce(t *testing.T, f *FixtureFactory, subject model.Subject) (model.ProfilePayload, error) {
	t.Helper()
	session, err := f.NewSession(context.Background(), subject.Platform)
	require.NoError(t, err)
	defer session.Close() //nolint:errcheck
	return session.Extract(context.Background(), subject)
}

func TestFixture_ScriptAdvancesAcrossSessions(t *testing.T) {
	f := loadFixture(t)
	subject := model.Subject{Platform: model.PlatformInstagram, Username: "flaky"}

	// Each attempt gets a fresh session, but the script cursor lives in the
	// factory so the third call reaches the success step.
	_, err := extractOnce(t, f, subject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = extractOnce(t, f, subject)
	require.Error(t, err)

	payload, err := extractOnce(t, f, subject)
	require.NoError(t, err)
	bio, ok := payload.Bio()
	require.True(t, ok)
	assert.Equal(t, "finally worked", bio)
}

func TestFixture_LastStepRepeats(t *testing.T) {
	f := loadFixture(t)
	subject := model.Subject{Platform: model.PlatformYouTube, Username: "stable"}

	for i := 0; i < 3; i++ {
		payload, err := extractOnce(t, f, subject)
		require.NoError(t, err)
		count, ok := payload.FollowerCount()
		require.True(t, ok)
		assert.Equal(t, int64(1000), count)
	}
}

func TestFixture_UnknownSubject(t *testing.T) {
	f := loadFixture(t)
	_, err := extractOnce(t, f, model.Subject{Platform: model.PlatformTwitch, Username: "nobody"})
	assert.Error(t, err)
}

func TestLoadFixtureFile_Errors(t *testing.T) {
	_, err := LoadFixtureFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subjects: []\n"), 0o644))
	_, err = LoadFixtureFile(path)
	assert.Error(t, err)
}

func TestFixtureSession_HonorsCanceledContext(t *testing.T) {
	f := loadFixture(t)
	session, err := f.NewSession(context.Background(), model.PlatformYouTube)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = session.Extract(ctx, model.Subject{Platform: model.PlatformYouTube, Username: "stable"})
	assert.ErrorIs(t, err, context.Canceled)
}
