package room

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Run applies events in delivery order until ctx ends or events is closed.
func (s *Store) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.Apply(ev)
		}
	}
}

// Apply dispatches one event to the matching Observe method.
func (s *Store) Apply(ev Event) {
	switch ev.Type {
	case EventVoteAdded:
		if ev.Vote != nil {
			s.ObserveVoteAdded(*ev.Vote)
		}
	case EventVoteUpdated:
		if ev.Vote != nil {
			s.ObserveVoteUpdated(*ev.Vote)
		}
	case EventVotesReplaced:
		s.ObserveVotesReplaced(ev.SessionID, ev.Votes)
	case EventSessionChanged:
		s.ObserveSessionChanged(ev.SessionID, ev.Revealed, ev.TaskName)
	case EventSessionRemoved:
		s.ObserveSessionRemoved(ev.SessionID)
	default:
		log.Warn().Str("type", string(ev.Type)).Msg("unknown room event")
	}
}

// observing reports whether remote events of sessionID apply to st.
func observing(st *state, sessionID uuid.UUID) bool {
	return st.check(needSession) == nil && st.sessionID == sessionID
}

// ObserveVoteAdded inserts a vote unless one with its id is already present.
func (s *Store) ObserveVoteAdded(vote models.Vote) {
	s.update(func(st *state) bool {
		if !observing(st, vote.SessionID) || st.indexOf(vote.ID) >= 0 {
			return false
		}
		st.upsert(vote)
		return true
	})
}

// ObserveVoteUpdated replaces the vote with the same id. An update for an id
// not in the roster is dropped: the record was deleted or the next roster
// fetch will carry it. An update to the local participant's record also sets
// the local vote.
func (s *Store) ObserveVoteUpdated(vote models.Vote) {
	s.update(func(st *state) bool {
		if !observing(st, vote.SessionID) {
			return false
		}
		i := st.indexOf(vote.ID)
		if i < 0 {
			return false
		}
		st.roster[i] = vote
		st.roster[i].Value = models.CloneCard(vote.Value)
		if st.userName != "" && models.SameName(vote.UserName, st.userName) {
			st.localVote = models.CloneCard(vote.Value)
		}
		return true
	})
}

// ObserveVotesReplaced installs a freshly fetched roster.
func (s *Store) ObserveVotesReplaced(sessionID uuid.UUID, roster []models.Vote) {
	s.update(func(st *state) bool {
		if !observing(st, sessionID) {
			return false
		}
		st.roster = models.CloneVotes(roster)
		if st.roster == nil {
			st.roster = []models.Vote{}
		}
		return true
	})
}

// ObserveSessionChanged updates the reveal flag and task name. Going from
// revealed to hidden starts a new round, so the local vote is cleared.
func (s *Store) ObserveSessionChanged(sessionID uuid.UUID, revealed bool, taskName string) {
	s.update(func(st *state) bool {
		if !observing(st, sessionID) {
			return false
		}
		if st.revealed && !revealed {
			st.localVote = nil
		}
		st.revealed = revealed
		st.taskName = taskName
		return true
	})
}

// ObserveSessionRemoved marks the session closed. This is terminal.
func (s *Store) ObserveSessionRemoved(sessionID uuid.UUID) {
	var applied bool
	s.update(func(st *state) bool {
		if !observing(st, sessionID) {
			return false
		}
		st.closed = true
		applied = true
		return true
	})
	if applied {
		log.Info().Str("session_id", sessionID.String()).Msg("session removed by another participant")
	}
}
