package extractor

import (
	"context"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/linkscope/audit-cli/internal/model"
)

// FixtureStep is one scripted outcome for a subject: either a payload or a
// failure message. Steps are consumed in order; the last step repeats.
type FixtureStep struct {
	Fail    string         `yaml:"fail,omitempty"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

// FixtureSubject scripts the outcomes for one subject.
type FixtureSubject struct {
	Platform model.Platform `yaml:"platform"`
	Username string         `yaml:"username"`
	Steps    []FixtureStep  `yaml:"steps"`
}

// FixtureFile is the on-disk shape of a fixture script.
type FixtureFile struct {
	Subjects []FixtureSubject `yaml:"subjects"`
}

// FixtureFactory replays scripted outcomes, letting the whole engine run
// end-to-end without real platform scrapers. Each NewSession call returns a
// fresh session; the step cursors live in the factory so retries advance
// through a subject's script across sessions, mirroring how a flaky live
// extractor behaves across attempts.
type FixtureFactory struct {
	mu      sync.Mutex
	scripts map[string][]FixtureStep
	cursor  map[string]int
}

// NewFixtureFactory creates a factory from in-memory scripts.
func NewFixtureFactory(subjects []FixtureSubject) *FixtureFactory {
	f := &FixtureFactory{
		scripts: make(map[string][]FixtureStep),
		cursor:  make(map[string]int),
	}
	for _, s := range subjects {
		key := model.Subject{Platform: s.Platform, Username: s.Username}.Key()
		f.scripts[key] = s.Steps
	}
	return f
}

// LoadFixtureFile reads a YAML fixture script from disk.
func LoadFixtureFile(path string) (*FixtureFactory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", path)
	}
	var file FixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "fixture: parse %s", path)
	}
	if len(file.Subjects) == 0 {
		return nil, eris.Errorf("fixture: %s defines no subjects", path)
	}
	return NewFixtureFactory(file.Subjects), nil
}

// NewSession implements Factory.
func (f *FixtureFactory) NewSession(_ context.Context, _ model.Platform) (Session, error) {
	return &fixtureSession{factory: f}, nil
}

func (f *FixtureFactory) next(subject model.Subject) (FixtureStep, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := subject.Key()
	steps, ok := f.scripts[key]
	if !ok || len(steps) == 0 {
		return FixtureStep{}, eris.Errorf("fixture: subject not found: %s", key)
	}

	i := f.cursor[key]
	if i >= len(steps) {
		i = len(steps) - 1
	} else {
		f.cursor[key] = i + 1
	}
	return steps[i], nil
}

type fixtureSession struct {
	factory *FixtureFactory
}

func (s *fixtureSession) Extract(ctx context.Context, subject model.Subject) (model.ProfilePayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, err := s.factory.next(subject)
	if err != nil {
		return nil, err
	}
	if step.Fail != "" {
		return nil, eris.New(step.Fail)
	}
	return model.ProfilePayload(step.Payload), nil
}

func (s *fixtureSession) Close() error { return nil }
