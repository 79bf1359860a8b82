package room

import (
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// EventType identifies a reconciliation event.
type EventType string

const (
	EventVoteAdded      EventType = "vote_added"
	EventVoteUpdated    EventType = "vote_updated"
	EventVotesReplaced  EventType = "votes_replaced"
	EventSessionChanged EventType = "session_changed"
	EventSessionRemoved EventType = "session_removed"
)

// Event is a remote change to reconcile into the store. SessionID names the
// session it belongs to; events for any other session are ignored. Vote is set
// for EventVoteAdded and EventVoteUpdated, Votes for EventVotesReplaced,
// Revealed and TaskName for EventSessionChanged.
type Event struct {
	Type      EventType
	SessionID uuid.UUID
	Vote      *models.Vote
	Votes     []models.Vote
	Revealed  bool
	TaskName  string
}
