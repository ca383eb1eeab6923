// Package audittest provides an in-memory audit.Recorder for tests.
package audittest

import (
	"context"
	"sync"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
)

// Recorder captures entries synchronously.
type Recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

// Record implements audit.Recorder.
func (r *Recorder) Record(_ context.Context, entry audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}

// Actions returns the recorded action names in order.
func (r *Recorder) Actions() []string {
	entries := r.Entries()
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
