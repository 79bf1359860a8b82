// Package feed turns a session's realtime subscription into reconciliation
// events for the room store.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/room"
	"github.com/rs/zerolog/log"
)

// Status is the connection status shown to the user.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// DefaultDebounce is how long deletions are collected before the roster is
// re-fetched.
const DefaultDebounce = 100 * time.Millisecond

// VotesFetcher loads the authoritative roster.
type VotesFetcher interface {
	GetVotes(ctx context.Context, sessionID uuid.UUID) ([]models.Vote, error)
}

type Option func(*Adapter)

// WithClock sets the clock driving the debounce timer.
func WithClock(clock clockwork.Clock) Option {
	return func(a *Adapter) { a.clock = clock }
}

// WithDebounce sets the delete debounce window.
func WithDebounce(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.debounce = d
		}
	}
}

// Adapter owns one subscription. Its status moves from connecting to
// connected and from either to error; error is final.
type Adapter struct {
	transport realtime.Transport
	fetcher   VotesFetcher
	sessionID uuid.UUID
	clock     clockwork.Clock
	debounce  time.Duration
	events    chan room.Event

	mu           sync.Mutex
	status       Status
	listeners    map[int]func(Status)
	nextListener int
}

func New(transport realtime.Transport, fetcher VotesFetcher, sessionID uuid.UUID, opts ...Option) *Adapter {
	a := &Adapter{
		transport: transport,
		fetcher:   fetcher,
		sessionID: sessionID,
		clock:     clockwork.NewRealClock(),
		debounce:  DefaultDebounce,
		events:    make(chan room.Event, 64),
		status:    StatusConnecting,
		listeners: make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Events is consumed by room.Store.Run.
func (a *Adapter) Events() <-chan room.Event {
	return a.events
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// OnStatus registers fn for status changes and returns its unsubscribe func.
func (a *Adapter) OnStatus(fn func(Status)) func() {
	a.mu.Lock()
	id := a.nextListener
	a.nextListener++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// Run subscribes and translates changes until ctx is done. The subscription
// is closed and any pending re-fetch dropped on return.
func (a *Adapter) Run(ctx context.Context) error {
	sub, err := a.transport.Subscribe(ctx, a.sessionID)
	if err != nil {
		a.setStatus(StatusError)
		return fmt.Errorf("subscribe to session %s: %w", a.sessionID, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Warn().Err(err).Str("session_id", a.sessionID.String()).Msg("failed to close subscription")
		}
	}()

	var refetch clockwork.Timer
	defer func() {
		if refetch != nil {
			stopAndDrainTimer(refetch)
		}
	}()

	for {
		var fire <-chan time.Time
		if refetch != nil {
			fire = refetch.Chan()
		}

		select {
		case <-ctx.Done():
			log.Debug().Str("session_id", a.sessionID.String()).Msg("feed stopped")
			return nil

		case state := <-sub.States():
			a.handleState(state)

		case change := <-sub.Changes():
			if change.SessionID != a.sessionID {
				continue
			}
			if change.Kind == realtime.KindVoteDeleted {
				refetch = a.replaceTimer(refetch)
				continue
			}
			if ev, ok := a.translate(change); ok {
				a.emit(ctx, ev)
			}

		case <-fire:
			refetch = nil
			a.refetch(ctx)
		}
	}
}

func (a *Adapter) handleState(state realtime.ChannelState) {
	switch state {
	case realtime.StateSubscribed:
		if a.Status() == StatusConnecting {
			a.setStatus(StatusConnected)
		}
	case realtime.StateChannelError, realtime.StateTimedOut, realtime.StateClosed:
		log.Warn().
			Str("session_id", a.sessionID.String()).
			Str("state", string(state)).
			Msg("realtime subscription degraded")
		a.setStatus(StatusError)
	}
}

func (a *Adapter) translate(change realtime.Change) (room.Event, bool) {
	switch change.Kind {
	case realtime.KindVoteInserted, realtime.KindVoteUpdated:
		if change.Vote == nil || change.Vote.SessionID != a.sessionID {
			return room.Event{}, false
		}
		v := *change.Vote
		v.Value = models.CloneCard(change.Vote.Value)
		t := room.EventVoteAdded
		if change.Kind == realtime.KindVoteUpdated {
			t = room.EventVoteUpdated
		}
		return room.Event{Type: t, SessionID: a.sessionID, Vote: &v}, true
	case realtime.KindSessionUpdated:
		if change.Session == nil {
			return room.Event{}, false
		}
		return room.Event{
			Type:      room.EventSessionChanged,
			SessionID: a.sessionID,
			Revealed:  change.Session.IsRevealed,
			TaskName:  change.Session.TaskName,
		}, true
	case realtime.KindSessionDeleted:
		return room.Event{Type: room.EventSessionRemoved, SessionID: a.sessionID}, true
	}
	return room.Event{}, false
}

func (a *Adapter) refetch(ctx context.Context) {
	votes, err := a.fetcher.GetVotes(ctx, a.sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", a.sessionID.String()).Msg("failed to re-fetch votes")
		return
	}
	a.emit(ctx, room.Event{Type: room.EventVotesReplaced, SessionID: a.sessionID, Votes: votes})
}

func (a *Adapter) emit(ctx context.Context, ev room.Event) {
	select {
	case a.events <- ev:
	case <-ctx.Done():
	}
}

// replaceTimer cancels the pending re-fetch, if any, and starts a new one.
func (a *Adapter) replaceTimer(existing clockwork.Timer) clockwork.Timer {
	if existing != nil {
		stopAndDrainTimer(existing)
	}
	return a.clock.NewTimer(a.debounce)
}

// stopAndDrainTimer stops a timer and drains a pending tick.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (a *Adapter) setStatus(s Status) {
	a.mu.Lock()
	if a.status == s || a.status == StatusError {
		a.mu.Unlock()
		return
	}
	a.status = s
	listeners := make([]func(Status), 0, len(a.listeners))
	for _, fn := range a.listeners {
		listeners = append(listeners, fn)
	}
	a.mu.Unlock()

	log.Info().Str("session_id", a.sessionID.String()).Str("status", string(s)).Msg("feed status changed")
	for _, fn := range listeners {
		fn(s)
	}
}
