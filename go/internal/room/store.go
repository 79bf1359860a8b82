// Package room holds the client-side view of one planning poker session. It
// applies the local participant's actions optimistically and reconciles the
// remote change stream into a single versioned snapshot.
package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/identity"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/notice"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoActiveContext is returned when an operation needs a session or an
	// identity that has not been established.
	ErrNoActiveContext = errors.New("no active session or user")
	// ErrSessionClosed is returned by every mutation once the session has been
	// removed.
	ErrSessionClosed = errors.New("session is closed")
	ErrInvalidName   = errors.New("invalid display name")
	ErrInvalidCard   = errors.New("invalid card value")
)

// Notifier receives the transient notices raised by absorbed failures.
type Notifier interface {
	Push(message string, typ notice.Type) notice.Notice
}

type noopNotifier struct{}

func (noopNotifier) Push(message string, typ notice.Type) notice.Notice {
	return notice.Notice{Message: message, Type: typ}
}

// Store is the session synchronization core. The zero value is not usable;
// construct it with New.
type Store struct {
	backend  backend.Backend
	identity identity.Store
	notifier Notifier

	mu      sync.Mutex
	st      state
	version uint64

	// notifyMu orders snapshot delivery; delivered is the newest version sent.
	notifyMu     sync.Mutex
	delivered    uint64
	watchers     map[chan Snapshot]struct{}
	listeners    map[int]func(Snapshot)
	nextListener int
}

// New creates an empty store. notifier may be nil.
func New(b backend.Backend, ids identity.Store, notifier Notifier) *Store {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if ids == nil {
		ids = identity.NewMemoryStore()
	}
	return &Store{
		backend:   b,
		identity:  ids,
		notifier:  notifier,
		watchers:  make(map[chan Snapshot]struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.snapshot(s.version)
}

// Watch returns a channel that always holds the newest snapshot not yet
// received. It starts with the current snapshot and is closed when ctx ends.
func (s *Store) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	s.notifyMu.Lock()
	ch <- s.Snapshot()
	s.watchers[ch] = struct{}{}
	s.notifyMu.Unlock()

	go func() {
		<-ctx.Done()
		s.notifyMu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.notifyMu.Unlock()
	}()
	return ch
}

// Subscribe calls fn with every new snapshot, in version order, and returns
// its unsubscribe func. fn must not call back into the store synchronously.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.notifyMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.listeners, id)
		s.notifyMu.Unlock()
	}
}

// Join installs an existing session and re-attaches a remembered identity if
// its roster entry still exists.
func (s *Store) Join(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.backend.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("join session %s: %w", sessionID, err)
	}
	votes, err := s.backend.GetVotes(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load votes for %s: %w", sessionID, err)
	}

	remembered, err := s.identity.Get(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to read remembered name")
		remembered = ""
	}

	next := state{
		sessionID: session.ID,
		taskName:  session.TaskName,
		revealed:  session.IsRevealed,
		roster:    models.CloneVotes(votes),
	}
	if remembered != "" {
		for _, v := range votes {
			if models.SameName(v.UserName, remembered) {
				next.userName = v.UserName
				next.localVote = models.CloneCard(v.Value)
				break
			}
		}
		if next.userName == "" {
			if err := s.identity.Remove(ctx, sessionID); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to purge remembered name")
			}
		}
	}

	s.update(func(st *state) bool {
		*st = next
		return true
	})

	log.Info().
		Str("session_id", sessionID.String()).
		Str("user_name", next.userName).
		Int("participants", len(votes)).
		Msg("joined session")
	return nil
}

// JoinByID parses a user-supplied session id. An id that is not a UUID cannot
// name an existing session and is reported as backend.ErrNotFound.
func (s *Store) JoinByID(ctx context.Context, raw string) error {
	sessionID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("join session %q: %w", raw, backend.ErrNotFound)
	}
	return s.Join(ctx, sessionID)
}

// Create starts a new session and installs it.
func (s *Store) Create(ctx context.Context, taskName string) (uuid.UUID, error) {
	session, err := s.backend.CreateSession(ctx, taskName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create session: %w", err)
	}

	s.update(func(st *state) bool {
		*st = state{
			sessionID: session.ID,
			taskName:  session.TaskName,
			revealed:  session.IsRevealed,
			roster:    []models.Vote{},
		}
		return true
	})
	return session.ID, nil
}

// SetIdentity claims a display name. A taken name is rejected and the local
// identity reverted; any other failure keeps the local identity so the caller
// can retry the claim. Once a claim is confirmed, a further call renames that
// record instead of claiming a second one.
func (s *Store) SetIdentity(ctx context.Context, name string) error {
	trimmed, err := models.ValidateDisplayName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	if s.claimed() {
		return s.Rename(ctx, trimmed)
	}

	pre, err := s.optimistic(needSession, fieldUserName|fieldLocalVote, func(st *state) {
		st.userName = trimmed
		st.localVote = nil
	})
	if err != nil {
		return err
	}

	vote, err := s.backend.ClaimName(ctx, pre.sessionID, trimmed)
	if err != nil {
		if errors.Is(err, backend.ErrNameTaken) {
			s.rollback(pre)
		}
		return fmt.Errorf("claim name %q: %w", trimmed, err)
	}

	if err := s.identity.Set(ctx, pre.sessionID, trimmed); err != nil {
		log.Warn().Err(err).Str("session_id", pre.sessionID.String()).Msg("failed to remember name")
	}

	s.update(func(st *state) bool {
		if st.sessionID != pre.sessionID {
			return false
		}
		st.upsert(vote)
		if models.SameName(st.userName, vote.UserName) {
			st.localVote = models.CloneCard(vote.Value)
		}
		return true
	})
	return nil
}

// CastVote applies value locally, then persists it. A failed write restores
// the previous local vote and raises a notice instead of returning an error.
func (s *Store) CastVote(ctx context.Context, value models.CardValue) error {
	if !value.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCard, value)
	}

	var userName string
	pre, err := s.optimistic(needIdentity, fieldLocalVote, func(st *state) {
		userName = st.userName
		st.localVote = models.CardPtr(value)
	})
	if err != nil {
		return err
	}

	vote, err := s.backend.CastVote(ctx, pre.sessionID, userName, value)
	if err != nil {
		s.rollback(pre)
		s.fail(pre.sessionID, err, "Failed to cast your vote. Please try again.")
		return nil
	}

	s.update(func(st *state) bool {
		if st.sessionID != pre.sessionID {
			return false
		}
		st.upsert(vote)
		if models.SameName(st.userName, vote.UserName) {
			st.localVote = models.CloneCard(vote.Value)
		}
		return true
	})
	return nil
}

// Reveal asks the backend first and only then flips the local flag.
func (s *Store) Reveal(ctx context.Context) error {
	sessionID, _, err := s.active(needSession)
	if err != nil {
		return err
	}

	if err := s.backend.Reveal(ctx, sessionID); err != nil {
		s.fail(sessionID, err, "Failed to reveal cards.")
		return nil
	}

	s.update(func(st *state) bool {
		if st.sessionID != sessionID || st.revealed {
			return false
		}
		st.revealed = true
		return true
	})
	return nil
}

// StartNewRound clears the reveal flag, every roster value and the local vote
// and adopts a differing non-empty taskNameOverride. On failure the whole
// prior state of those fields is restored.
func (s *Store) StartNewRound(ctx context.Context, taskNameOverride *string) error {
	var override *string
	pre, err := s.optimistic(needSession, fieldRevealed|fieldRoster|fieldLocalVote|fieldTaskName, func(st *state) {
		st.revealed = false
		st.localVote = nil
		for i := range st.roster {
			st.roster[i].Value = nil
		}
		if taskNameOverride != nil {
			if name := strings.TrimSpace(*taskNameOverride); name != "" && name != st.taskName {
				st.taskName = name
				override = &name
			}
		}
	})
	if err != nil {
		return err
	}

	if err := s.backend.ResetRound(ctx, pre.sessionID, override); err != nil {
		s.rollback(pre)
		s.fail(pre.sessionID, err, "Failed to start a new round.")
		return nil
	}
	return nil
}

// Rename changes the local identity and its roster entry. Failures are both
// raised as a notice and returned.
func (s *Store) Rename(ctx context.Context, newName string) error {
	trimmed, err := models.ValidateDisplayName(newName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	var oldName string
	pre, err := s.optimistic(needIdentity, fieldUserName|fieldRoster, func(st *state) {
		oldName = st.userName
		st.userName = trimmed
		for i := range st.roster {
			if models.SameName(st.roster[i].UserName, oldName) {
				st.roster[i].UserName = trimmed
			}
		}
	})
	if err != nil {
		return err
	}
	if oldName == trimmed {
		return nil
	}

	vote, err := s.backend.RenameVote(ctx, pre.sessionID, oldName, trimmed)
	if err != nil {
		s.rollback(pre)
		msg := "Failed to change your name."
		if errors.Is(err, backend.ErrNameTaken) {
			msg = fmt.Sprintf("The name %q is already taken.", trimmed)
		}
		s.fail(pre.sessionID, err, msg)
		return fmt.Errorf("rename %q to %q: %w", oldName, trimmed, err)
	}

	if err := s.identity.Set(ctx, pre.sessionID, trimmed); err != nil {
		log.Warn().Err(err).Str("session_id", pre.sessionID.String()).Msg("failed to remember name")
	}

	s.update(func(st *state) bool {
		if st.sessionID != pre.sessionID {
			return false
		}
		st.upsert(vote)
		return true
	})
	return nil
}

// CloseSession deletes the session for everyone and resets the store.
func (s *Store) CloseSession(ctx context.Context) error {
	sessionID, _, err := s.active(needSession)
	if err != nil {
		return err
	}

	if err := s.backend.DeleteSession(ctx, sessionID); err != nil {
		s.fail(sessionID, err, "Failed to close the session.")
		return fmt.Errorf("close session %s: %w", sessionID, err)
	}

	if err := s.identity.Remove(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to purge remembered name")
	}

	s.update(func(st *state) bool {
		if st.sessionID != sessionID {
			return false
		}
		*st = state{}
		return true
	})

	log.Info().Str("session_id", sessionID.String()).Msg("session closed")
	return nil
}

// Leave resets the store without touching the backend.
func (s *Store) Leave() {
	s.update(func(st *state) bool {
		if st.sessionID == uuid.Nil {
			return false
		}
		*st = state{}
		return true
	})
}

// active returns the session and identity an operation runs against.
func (s *Store) active(req requirement) (uuid.UUID, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.st.check(req); err != nil {
		return uuid.Nil, "", err
	}
	return s.st.sessionID, s.st.userName, nil
}

// claimed reports whether the local identity has a record in the roster.
func (s *Store) claimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.userName != "" && s.st.indexOfName(s.st.userName) >= 0
}

// optimistic checks req, captures the pre-image of fields and applies fn, all
// under one lock.
func (s *Store) optimistic(req requirement, fields field, fn func(st *state)) (preImage, error) {
	var (
		pre preImage
		err error
	)
	s.update(func(st *state) bool {
		if err = st.check(req); err != nil {
			return false
		}
		pre = capture(st, fields)
		fn(st)
		return true
	})
	return pre, err
}

// rollback restores a pre-image unless the session changed in between.
func (s *Store) rollback(pre preImage) {
	s.update(func(st *state) bool {
		if st.sessionID != pre.sessionID {
			return false
		}
		pre.restore(st)
		return true
	})
}

func (s *Store) fail(sessionID uuid.UUID, err error, message string) {
	log.Error().Err(err).Str("session_id", sessionID.String()).Msg(message)
	s.notifier.Push(message, notice.TypeError)
}

// update applies fn under the state lock. fn reports whether it changed
// anything; only then is the version bumped and the snapshot delivered.
func (s *Store) update(fn func(st *state) bool) {
	s.mu.Lock()
	if !fn(&s.st) {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.st.snapshot(s.version)
	s.mu.Unlock()

	s.deliver(snap)
}

func (s *Store) deliver(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if snap.Version <= s.delivered {
		return
	}
	s.delivered = snap.Version

	for ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	for _, fn := range s.listeners {
		fn(snap)
	}
}
