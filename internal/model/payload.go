package model

import (
	"github.com/rotisserie/eris"
)

// Well-known payload field names. Extractors for different platforms return
// differently shaped data; these are the keys the audit engine understands.
const (
	FieldUsername      = "username"
	FieldPlatform      = "platform"
	FieldBio           = "bio"
	FieldFollowerCount = "follower_count"
	FieldVerified      = "verified"
	FieldLinks         = "links"
)

// ProfilePayload is the generic key-value view of an extractor's opaque
// result. It is validated once at the runner boundary (see Validate) so that
// scoring and integrity checks can use the typed accessors without further
// defensive checks.
type ProfilePayload map[string]any

// Validate checks that every well-known field present in the payload carries
// the expected type. Unknown fields are allowed and ignored.
func (p ProfilePayload) Validate() error {
	if p == nil {
		return eris.New("payload: nil")
	}
	for _, key := range []string{FieldUsername, FieldPlatform, FieldBio} {
		if v, ok := p[key]; ok {
			if _, ok := v.(string); !ok {
				return eris.Errorf("payload: field %q is %T, want string", key, v)
			}
		}
	}
	if v, ok := p[FieldFollowerCount]; ok {
		switch v.(type) {
		case int, int64, float64:
		default:
			return eris.Errorf("payload: field %q is %T, want number", FieldFollowerCount, v)
		}
	}
	if v, ok := p[FieldVerified]; ok {
		if _, ok := v.(bool); !ok {
			return eris.Errorf("payload: field %q is %T, want bool", FieldVerified, v)
		}
	}
	if v, ok := p[FieldLinks]; ok {
		switch links := v.(type) {
		case []string:
		case []any:
			for _, l := range links {
				if _, ok := l.(string); !ok {
					return eris.Errorf("payload: field %q contains %T, want string", FieldLinks, l)
				}
			}
		default:
			return eris.Errorf("payload: field %q is %T, want string list", FieldLinks, v)
		}
	}
	return nil
}

func (p ProfilePayload) str(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// Username returns the identity the payload claims to belong to, if present.
func (p ProfilePayload) Username() (string, bool) { return p.str(FieldUsername) }

// Platform returns the platform the payload claims to come from, if present.
func (p ProfilePayload) Platform() (string, bool) { return p.str(FieldPlatform) }

// Bio returns the profile bio text, if present.
func (p ProfilePayload) Bio() (string, bool) { return p.str(FieldBio) }

// FollowerCount returns the follower count, if present. JSON decoding turns
// numbers into float64, so all numeric widths are accepted.
func (p ProfilePayload) FollowerCount() (int64, bool) {
	v, ok := p[FieldFollowerCount]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// Verified returns the verification flag, if present.
func (p ProfilePayload) Verified() (bool, bool) {
	v, ok := p[FieldVerified]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Links returns the extracted link list. Missing or empty yields nil.
func (p ProfilePayload) Links() []string {
	v, ok := p[FieldLinks]
	if !ok {
		return nil
	}
	switch links := v.(type) {
	case []string:
		return links
	case []any:
		out := make([]string, 0, len(links))
		for _, l := range links {
			if s, ok := l.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// PrimaryLink returns the first extracted link, if any.
func (p ProfilePayload) PrimaryLink() (string, bool) {
	links := p.Links()
	if len(links) == 0 {
		return "", false
	}
	return links[0], true
}
