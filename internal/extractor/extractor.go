// Package extractor defines the boundary to the external platform
// extractors. The audit engine treats an extractor as an opaque, possibly
// stateful capability; the Factory contract exists so every attempt gets a
// freshly constructed, isolated session with no cross-call carryover.
package extractor

import (
	"context"

	"github.com/linkscope/audit-cli/internal/model"
)

// Session is one isolated extraction session. Extract returns the raw
// payload or an error describing the failure; resource teardown (browser
// process, HTTP client state) is the implementation's responsibility and
// happens in Close.
type Session interface {
	Extract(ctx context.Context, subject model.Subject) (model.ProfilePayload, error)
	Close() error
}

// Factory produces a fresh Session per attempt. Sharing state between the
// sessions it hands out violates the isolation precondition the integrity
// validator's duplicate-fingerprint audit exists to catch.
type Factory interface {
	NewSession(ctx context.Context, platform model.Platform) (Session, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, platform model.Platform) (Session, error)

// NewSession implements Factory.
func (f FactoryFunc) NewSession(ctx context.Context, platform model.Platform) (Session, error) {
	return f(ctx, platform)
}

// SessionFunc adapts a function to the Session interface with a no-op Close.
type SessionFunc func(ctx context.Context, subject model.Subject) (model.ProfilePayload, error)

// Extract implements Session.
func (f SessionFunc) Extract(ctx context.Context, subject model.Subject) (model.ProfilePayload, error) {
	return f(ctx, subject)
}

// Close implements Session.
func (f SessionFunc) Close() error { return nil }
