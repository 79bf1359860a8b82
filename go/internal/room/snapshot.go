package room

import (
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/moderator"
	"github.com/mcdev12/planpoker/go/internal/results"
)

// Snapshot is an immutable copy of the store state. Version increases with
// every change.
type Snapshot struct {
	Version   uint64
	SessionID uuid.UUID
	TaskName  string
	Revealed  bool
	Closed    bool
	UserName  string
	LocalVote *models.CardValue
	Roster    []models.Vote
}

// HasSession reports whether a session is installed.
func (s Snapshot) HasSession() bool {
	return s.SessionID != uuid.Nil
}

// Moderator is derived from the roster on every call.
func (s Snapshot) Moderator() (string, bool) {
	return moderator.Of(s.Roster)
}

func (s Snapshot) IsModerator() bool {
	return s.UserName != "" && moderator.Is(s.Roster, s.UserName)
}

func (s Snapshot) Results() results.Summary {
	return results.Compute(s.Roster)
}

// Voted reports whether the named participant holds a card.
func (s Snapshot) Voted(name string) bool {
	for _, v := range s.Roster {
		if models.SameName(v.UserName, name) {
			return v.HasVoted()
		}
	}
	return false
}
