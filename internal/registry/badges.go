package registry

import (
	"errors"
	"sync/atomic"

	"github.com/sakif/owners-club/internal/model"
)

// ErrSessionClosed is returned by any operation on a badge session that has
// already been committed or discarded.
var ErrSessionClosed = errors.New("registry: badge session closed")

// BadgeSession tracks an admin's in-progress badge edits for one owner.
//
// A session is a value: Toggle never mutates its receiver, it returns a new
// session with the updated list. All values derived from one
// OpenBadgeSession call share a single open/closed state, so once any of
// them is committed or discarded every one of them reports ErrSessionClosed.
//
// The zero BadgeSession is closed.
type BadgeSession struct {
	ownerID string
	badges  []string
	seed    []string
	state   *lineage
}

type lineage struct {
	closed atomic.Bool
}

// OpenBadgeSession starts an editing session seeded with a copy of o's
// badges.
func OpenBadgeSession(o model.Owner) BadgeSession {
	seed := dedupe(o.Badges)
	return BadgeSession{
		ownerID: o.ID,
		badges:  seed,
		seed:    seed,
		state:   &lineage{},
	}
}

// OwnerID is the id of the owner being edited.
func (s BadgeSession) OwnerID() string { return s.ownerID }

// Badges returns a copy of the working list.
func (s BadgeSession) Badges() []string {
	out := make([]string, len(s.badges))
	copy(out, s.badges)
	return out
}

// Has reports whether label is in the working list.
func (s BadgeSession) Has(label string) bool {
	for _, b := range s.badges {
		if b == label {
			return true
		}
	}
	return false
}

// Closed reports whether the session has been committed or discarded.
func (s BadgeSession) Closed() bool {
	return s.state == nil || s.state.closed.Load()
}

// Toggle returns a new session with label removed if it was present, or
// added if it was not. New labels are appended; a seeded label that was
// removed earlier goes back to its seeded position, so toggling the same
// label twice restores the previous list.
func (s BadgeSession) Toggle(label string) (BadgeSession, error) {
	if s.Closed() {
		return BadgeSession{}, ErrSessionClosed
	}

	next := make([]string, 0, len(s.badges)+1)
	found := false
	for _, b := range s.badges {
		if b == label {
			found = true
			continue
		}
		next = append(next, b)
	}
	if !found {
		next = s.insert(next, label)
	}

	return BadgeSession{ownerID: s.ownerID, badges: next, seed: s.seed, state: s.state}, nil
}

func (s BadgeSession) insert(list []string, label string) []string {
	rank := s.seedIndex(label)
	if rank < 0 {
		return append(list, label)
	}
	for i, b := range list {
		if r := s.seedIndex(b); r < 0 || r > rank {
			out := make([]string, 0, len(list)+1)
			out = append(out, list[:i]...)
			out = append(out, label)
			return append(out, list[i:]...)
		}
	}
	return append(list, label)
}

func (s BadgeSession) seedIndex(label string) int {
	for i, b := range s.seed {
		if b == label {
			return i
		}
	}
	return -1
}

// Commit closes the session and returns the final badge list for the caller
// to persist.
func (s BadgeSession) Commit() ([]string, error) {
	if s.state == nil || !s.state.closed.CompareAndSwap(false, true) {
		return nil, ErrSessionClosed
	}
	return s.Badges(), nil
}

// Discard closes the session without producing a result.
func (s BadgeSession) Discard() error {
	if s.state == nil || !s.state.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	return nil
}
