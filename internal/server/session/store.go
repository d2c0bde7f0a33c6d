// Package session keeps per-browser server state: pending one-time-code
// actions and the mirrored identity of the logged-in user.
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/hiringhub/internal/common"
	"github.com/dmitrijs2005/hiringhub/internal/server/auth"
)

// Kind names the operation a one-time code unlocks.
type Kind string

const (
	KindRegister       Kind = "register"
	KindLogin          Kind = "login"
	KindForgotPassword Kind = "forgot_password"
	KindUpdateProfile  Kind = "update_profile"
)

// MaxAttempts is how many wrong codes a pending action survives.
const MaxAttempts = 5

// PendingAction is an operation waiting for its one-time code.
// Payload is a JSON snapshot of whatever the caller needs to apply it.
type PendingAction struct {
	Kind      Kind
	Code      string
	ExpiresAt time.Time
	Payload   json.RawMessage
	Attempts  int
}

type entry struct {
	pending     map[Kind]PendingAction
	identity    *auth.Identity
	resetTarget string
	lastSeen    time.Time
}

// Store is an in-memory map of session id to session entry. Every method
// is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	idle    time.Duration
	now     func() time.Time
}

// NewStore returns a store that forgets sessions idle for longer than idle.
func NewStore(idle time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		idle:    idle,
		now:     time.Now,
	}
}

// NewID returns a fresh random session id.
func NewID() (string, error) {
	return common.MakeRandHexString(32)
}

// touch returns the live entry for sid, creating it when create is set.
// Caller holds s.mu.
func (s *Store) touch(sid string, create bool) *entry {
	now := s.now()
	e, ok := s.entries[sid]
	if ok && s.idle > 0 && now.Sub(e.lastSeen) > s.idle {
		delete(s.entries, sid)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		e = &entry{pending: make(map[Kind]PendingAction)}
		s.entries[sid] = e
	}
	e.lastSeen = now
	return e
}

// PutPending stores a, replacing any action of the same kind.
func (s *Store) PutPending(sid string, a PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sid, true).pending[a.Kind] = a
}

// DiscardPending drops the action of kind if its code is still code.
func (s *Store) DiscardPending(sid string, kind Kind, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sid, false)
	if e == nil {
		return
	}
	if a, ok := e.pending[kind]; ok && a.Code == code {
		delete(e.pending, kind)
	}
}

// Pending returns the live action of kind. Expired actions are dropped.
func (s *Store) Pending(sid string, kind Kind) (PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sid, false)
	if e == nil {
		return PendingAction{}, false
	}
	a, ok := e.pending[kind]
	if !ok {
		return PendingAction{}, false
	}
	if s.now().After(a.ExpiresAt) {
		delete(e.pending, kind)
		return PendingAction{}, false
	}
	return a, true
}

// Consume checks code against the action of kind and removes it on success.
// The whole check runs under the store lock, so one code is consumed at most once.
//
// Errors: common.ErrorNotFound when nothing is pending, common.ErrExpired when
// the action is past its expiry (it is dropped), common.ErrMismatch when the
// code differs. The action is dropped after MaxAttempts mismatches.
func (s *Store) Consume(sid string, kind Kind, code string) (PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sid, false)
	if e == nil {
		return PendingAction{}, common.ErrorNotFound
	}

	a, ok := e.pending[kind]
	if !ok {
		return PendingAction{}, common.ErrorNotFound
	}

	if s.now().After(a.ExpiresAt) {
		delete(e.pending, kind)
		return PendingAction{}, common.ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(a.Code), []byte(code)) != 1 {
		a.Attempts++
		if a.Attempts >= MaxAttempts {
			delete(e.pending, kind)
		} else {
			e.pending[kind] = a
		}
		return PendingAction{}, common.ErrMismatch
	}

	delete(e.pending, kind)
	return a, nil
}

// Identity implements auth.IdentityMirror.
func (s *Store) Identity(sid string) (*auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sid, false)
	if e == nil || e.identity == nil {
		return nil, false
	}
	return e.identity, true
}

// SetIdentity implements auth.IdentityMirror.
func (s *Store) SetIdentity(sid string, id *auth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sid, true).identity = id
}

// SetResetTarget remembers which account passed the password reset check.
func (s *Store) SetResetTarget(sid, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(sid, true).resetTarget = accountID
}

// TakeResetTarget returns and clears the reset target.
func (s *Store) TakeResetTarget(sid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sid, false)
	if e == nil || e.resetTarget == "" {
		return "", false
	}
	id := e.resetTarget
	e.resetTarget = ""
	return id, true
}

// Exists reports whether sid is a live session.
func (s *Store) Exists(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.touch(sid, false) != nil
}

// Rotate moves the state of oldSID to newSID and forgets oldSID.
// Pending actions and the reset target do not survive the move.
func (s *Store) Rotate(oldSID, newSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(oldSID, false)
	delete(s.entries, oldSID)

	fresh := s.touch(newSID, true)
	if e != nil {
		fresh.identity = e.identity
	}
}

// Clear forgets everything about sid.
func (s *Store) Clear(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, sid)
}

// Sweep drops idle sessions and expired pending actions. It returns the
// number of sessions removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for sid, e := range s.entries {
		if s.idle > 0 && now.Sub(e.lastSeen) > s.idle {
			delete(s.entries, sid)
			removed++
			continue
		}
		for k, a := range e.pending {
			if now.After(a.ExpiresAt) {
				delete(e.pending, k)
			}
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
