package model

// Platform identifies a social platform whose extractor is under audit.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitch    Platform = "twitch"
	PlatformLinktree  Platform = "linktree"
	PlatformBeacons   Platform = "beacons"
)

// Subject is an immutable (platform, identity) pair under test.
type Subject struct {
	Platform Platform `json:"platform" yaml:"platform"`
	Username string   `json:"username" yaml:"username"`
}

// Key returns a stable map key for the subject.
func (s Subject) Key() string {
	return string(s.Platform) + ":" + s.Username
}

func (s Subject) String() string {
	return s.Key()
}
