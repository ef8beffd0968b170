package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/linkscope/audit-cli/internal/model"
	"github.com/linkscope/audit-cli/internal/textnorm"
)

// FingerprintRegistry detects cross-subject payload contamination within a
// single run. Extractor sessions are supposed to be freshly isolated per
// attempt; when that precondition is violated upstream a cached payload can
// be returned for the wrong subject. Two different subjects producing the
// same high-cardinality fingerprint is the observable symptom.
//
// The registry is run-scoped and mutex-guarded: concurrent attempts race to
// register fingerprints, and a lost race must not drop a contamination
// signal, so insert-or-check is a single critical section.
type FingerprintRegistry struct {
	mu   sync.Mutex
	seen map[string]model.Subject
}

// NewFingerprintRegistry creates an empty registry for one run.
func NewFingerprintRegistry() *FingerprintRegistry {
	return &FingerprintRegistry{seen: make(map[string]model.Subject)}
}

// Fingerprint hashes the payload's high-cardinality fields: primary bio text,
// follower count and primary link. Payloads with none of these present return
// "" and are never registered, so empty payloads cannot collide.
func Fingerprint(payload model.ProfilePayload) string {
	bio, _ := payload.Bio()
	link, _ := payload.PrimaryLink()
	count, hasCount := payload.FollowerCount()

	if bio == "" && link == "" && !hasCount {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(textnorm.Fold(bio)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(count, 10)))
	h.Write([]byte{0})
	h.Write([]byte(textnorm.Fold(link)))
	return hex.EncodeToString(h.Sum(nil))
}

// Observe registers the fingerprint for the subject, or reports the subject
// that first produced it when a different subject already owns it. The same
// subject re-observing its own fingerprint is not a conflict, which keeps
// validation deterministic for repeated identical inputs.
func (r *FingerprintRegistry) Observe(subject model.Subject, fingerprint string) (model.Subject, bool) {
	if fingerprint == "" {
		return model.Subject{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	first, ok := r.seen[fingerprint]
	if !ok {
		r.seen[fingerprint] = subject
		return model.Subject{}, false
	}
	if first == subject {
		return model.Subject{}, false
	}
	return first, true
}

// Len returns the number of distinct fingerprints observed.
func (r *FingerprintRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
