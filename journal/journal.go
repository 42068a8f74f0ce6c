// Package journal records the effects of a single engine call so that they
// can be persisted together or undone together.
//
// Components mutate their in-memory state first and then Record an undo
// closure plus the Change to persist. On Commit the changes are handed to the
// store; on Rollback the undo closures run in reverse order. A journal that
// has not been begun ignores Record, which is how state is hydrated from a
// store without producing changes.
package journal

import (
	"errors"
	"sync"
)

// ErrActive is returned by Begin when a call is already in progress.
var ErrActive = errors.New("journal: transaction already active")

// ErrInactive is returned by Commit when no call is in progress.
var ErrInactive = errors.New("journal: no active transaction")

// Change is one persisted state delta.
type Change interface {
	// Kind names the record family the change belongs to.
	Kind() string
}

// Journal is an undo log shared by the components of one engine.
type Journal struct {
	mu      sync.Mutex
	active  bool
	undo    []func()
	changes []Change
}

// New returns an inactive journal.
func New() *Journal {
	return &Journal{}
}

// Begin starts recording.
func (j *Journal) Begin() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.active {
		return ErrActive
	}
	j.active = true
	j.undo = j.undo[:0]
	j.changes = j.changes[:0]
	return nil
}

// Active reports whether a call is being recorded.
func (j *Journal) Active() bool {
	if j == nil {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.active
}

// Record appends an undo closure and the change it reverses. Either may be nil.
func (j *Journal) Record(undo func(), c Change) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.active {
		return
	}
	if undo != nil {
		j.undo = append(j.undo, undo)
	}
	if c != nil {
		j.changes = append(j.changes, c)
	}
}

// Changes returns a copy of the changes recorded so far.
func (j *Journal) Changes() []Change {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Change, len(j.changes))
	copy(out, j.changes)
	return out
}

// Commit ends the call and returns its changes.
func (j *Journal) Commit() ([]Change, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.active {
		return nil, ErrInactive
	}
	out := make([]Change, len(j.changes))
	copy(out, j.changes)
	j.reset()
	return out, nil
}

// Rollback undoes every recorded mutation, newest first, and ends the call.
// It is a no-op when nothing is active.
func (j *Journal) Rollback() {
	j.mu.Lock()
	if !j.active {
		j.mu.Unlock()
		return
	}
	undo := j.undo
	j.undo = nil
	j.reset()
	j.mu.Unlock()

	// Undo closures take component locks; run them outside ours.
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

func (j *Journal) reset() {
	j.active = false
	j.undo = j.undo[:0]
	j.changes = j.changes[:0]
}
