// Package profile loads the expectation oracle: per-subject numeric ranges,
// keyword sets and link sets the scoring engine validates against. Profiles
// are loaded once at run start and are read-only for the run's duration.
package profile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/linkscope/audit-cli/internal/model"
)

// Entry pairs a subject with its expected profile.
type Entry struct {
	Platform model.Platform        `yaml:"platform"`
	Username string                `yaml:"username"`
	Expected model.ExpectedProfile `yaml:",inline"`
}

type storeFile struct {
	Profiles []Entry `yaml:"profiles"`
}

// Store is the read-only expectation oracle keyed by (platform, username).
type Store struct {
	entries  map[string]model.ExpectedProfile
	subjects []model.Subject
}

// Load reads a profile store from a YAML file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}
	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}
	if len(file.Profiles) == 0 {
		return nil, eris.Errorf("profile: %s defines no profiles", path)
	}
	return New(file.Profiles), nil
}

// New builds a Store from entries. Later duplicates overwrite earlier ones.
func New(entries []Entry) *Store {
	s := &Store{entries: make(map[string]model.ExpectedProfile, len(entries))}
	for _, e := range entries {
		subject := model.Subject{Platform: e.Platform, Username: e.Username}
		if _, exists := s.entries[subject.Key()]; !exists {
			s.subjects = append(s.subjects, subject)
		}
		s.entries[subject.Key()] = e.Expected
	}
	return s
}

// Get returns the expected profile for a subject, or nil when none is
// configured. Scoring treats a nil profile as "no expectations".
func (s *Store) Get(subject model.Subject) *model.ExpectedProfile {
	if s == nil {
		return nil
	}
	if p, ok := s.entries[subject.Key()]; ok {
		return &p
	}
	return nil
}

// Subjects returns every configured subject in file order. This is the full
// test matrix; run selectors filter it down.
func (s *Store) Subjects() []model.Subject {
	out := make([]model.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

// Filter returns the subjects matching the given platform and/or username.
// Empty selectors match everything.
func (s *Store) Filter(platform model.Platform, username string) []model.Subject {
	var out []model.Subject
	for _, subj := range s.subjects {
		if platform != "" && subj.Platform != platform {
			continue
		}
		if username != "" && subj.Username != username {
			continue
		}
		out = append(out, subj)
	}
	return out
}
