// Package moderator derives which participant runs the room.
package moderator

import (
	"sort"

	"github.com/mcdev12/planpoker/go/internal/models"
)

// Of returns the participant with the earliest join timestamp. Ties keep roster
// order. ok is false for an empty roster.
func Of(roster []models.Vote) (name string, ok bool) {
	if len(roster) == 0 {
		return "", false
	}

	ordered := make([]models.Vote, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].VotedAt.Before(ordered[j].VotedAt)
	})
	return ordered[0].UserName, true
}

// Is reports whether userName currently holds the moderator role.
func Is(roster []models.Vote, userName string) bool {
	if userName == "" {
		return false
	}
	name, ok := Of(roster)
	return ok && models.SameName(name, userName)
}
