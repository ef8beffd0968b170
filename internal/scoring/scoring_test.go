package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkscope/audit-cli/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestAccuracy_AllDimensionsPass(t *testing.T) {
	payload := model.ProfilePayload{
		model.FieldBio:           "Professional footballer playing for Al Nassr",
		model.FieldFollowerCount: int64(615_000_000),
		model.FieldVerified:      true,
		model.FieldLinks:         []string{"https://www.nike.com/athlete", "https://livescore.com"},
	}
	expected := &model.ExpectedProfile{
		FollowerMin:  600_000_000,
		FollowerMax:  650_000_000,
		BioKeywords:  []string{"footballer"},
		Verified:     boolPtr(true),
		LinkPatterns: []string{"nike.com", "livescore"},
	}

	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 4, res.Checked)
	assert.Equal(t, 100, res.Score)
}

func TestAccuracy_FollowerVarianceCredit(t *testing.T) {
	// 20% past the max bound earns 0.8 on that dimension.
	payload := model.ProfilePayload{model.FieldFollowerCount: int64(1200)}
	expected := &model.ExpectedProfile{FollowerMin: 500, FollowerMax: 1000}

	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 1, res.Checked)
	assert.InDelta(t, 0.8, res.Credit, 0.001)
	assert.Equal(t, 80, res.Score)
}

func TestAccuracy_FollowerFarOutsideEarnsZero(t *testing.T) {
	payload := model.ProfilePayload{model.FieldFollowerCount: int64(5000)}
	expected := &model.ExpectedProfile{FollowerMax: 1000}

	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 0, res.Score)
}

func TestAccuracy_KeywordThresholdIsPassFail(t *testing.T) {
	expected := &model.ExpectedProfile{
		BioKeywords: []string{"music", "tour", "producer", "berlin", "vinyl"},
	}

	// 4 of 5 keywords matched: 0.8 >= threshold, full credit.
	payload := model.ProfilePayload{model.FieldBio: "music tour producer from berlin"}
	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 100, res.Score)

	// 3 of 5 matched: below threshold, zero credit.
	payload = model.ProfilePayload{model.FieldBio: "music tour producer"}
	res = Accuracy(Config{}, payload, expected)
	assert.Equal(t, 0, res.Score)
}

func TestAccuracy_UncheckableDimensionsSkipped(t *testing.T) {
	// Expectation set but the payload cannot answer it: not checked, so the
	// one answerable dimension decides the score alone.
	payload := model.ProfilePayload{model.FieldVerified: true}
	expected := &model.ExpectedProfile{
		FollowerMin: 1000,
		BioKeywords: []string{"artist"},
		Verified:    boolPtr(true),
	}

	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 100, res.Score)
}

func TestAccuracy_NoCheckableDimensions(t *testing.T) {
	res := Accuracy(Config{}, model.ProfilePayload{}, &model.ExpectedProfile{FollowerMin: 100})
	assert.Equal(t, 0, res.Checked)
	assert.Equal(t, 0, res.Score)

	res = Accuracy(Config{}, model.ProfilePayload{model.FieldBio: "anything"}, nil)
	assert.Equal(t, 0, res.Score)
}

func TestAccuracy_VerifiedMismatch(t *testing.T) {
	payload := model.ProfilePayload{model.FieldVerified: false}
	expected := &model.ExpectedProfile{Verified: boolPtr(true)}

	res := Accuracy(Config{}, payload, expected)
	assert.Equal(t, 0, res.Score)
}

func TestAccuracy_LinkPatternFraction(t *testing.T) {
	payload := model.ProfilePayload{
		model.FieldLinks: []string{"https://shop.example.com", "https://youtube.com/@x"},
	}
	expected := &model.ExpectedProfile{
		LinkPatterns: []string{"example.com", "youtube", "patreon", "spotify"},
	}

	res := Accuracy(Config{}, payload, expected)
	assert.InDelta(t, 0.5, res.Credit, 0.001)
	assert.Equal(t, 50, res.Score)
}

func TestCompleteness_ExactAndDomainMatches(t *testing.T) {
	actual := []string{
		"https://www.youtube.com/@creator",
		"http://shop.merchstore.com/collection",
	}
	expected := []string{
		"youtube.com/@creator",         // exact substring after normalization
		"https://merchstore.com/about", // different path, same registrable domain
		"https://patreon.com/buddy",    // missing
	}

	res := Completeness(actual, expected)
	assert.Equal(t, 1, res.ExactMatches)
	assert.Equal(t, 1, res.DomainMatches)
	assert.Equal(t, []string{"https://patreon.com/buddy"}, res.Missing)
	assert.Equal(t, 67, res.Score)
}

func TestCompleteness_SchemeDifferencesIgnored(t *testing.T) {
	res := Completeness(
		[]string{"http://example.com/page/"},
		[]string{"https://www.example.com/page"},
	)
	assert.Equal(t, 1, res.ExactMatches)
	assert.Equal(t, 100, res.Score)
}

func TestCompleteness_NoExpectations(t *testing.T) {
	res := Completeness([]string{"https://anything.com"}, nil)
	assert.Equal(t, 100, res.Score)

	res = Completeness(nil, nil)
	assert.Equal(t, 0, res.Score)
}

func TestCompleteness_AllMissing(t *testing.T) {
	res := Completeness([]string{"https://unrelated.net"}, []string{"https://expected.com"})
	assert.Equal(t, 0, res.Score)
	assert.Len(t, res.Missing, 1)
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://shop.example.com/path", "example.com"},
		{"www.example.com", "example.com"},
		{"https://foo.bar.co.uk", "bar.co.uk"},
		{"example.com", "example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, registrableDomain(tt.in), "input %q", tt.in)
	}
}
