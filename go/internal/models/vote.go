package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinDisplayNameLength is the shortest display name a participant can claim.
const MinDisplayNameLength = 2

// Vote is a participant's roster entry within a session. Value is nil until the
// participant picks a card and again after a new round starts.
type Vote struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	UserName  string     `json:"user_name"`
	Value     *CardValue `json:"value"`
	VotedAt   time.Time  `json:"voted_at"` // set when the name is claimed
}

// HasVoted reports whether the participant currently holds a card.
func (v Vote) HasVoted() bool {
	return v.Value != nil
}

// CardPtr returns a pointer to a copy of c.
func CardPtr(c CardValue) *CardValue {
	return &c
}

// CloneCard copies a nullable card so snapshots never share pointers.
func CloneCard(c *CardValue) *CardValue {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

// CloneVotes deep-copies a roster.
func CloneVotes(votes []Vote) []Vote {
	if votes == nil {
		return nil
	}
	out := make([]Vote, len(votes))
	for i, v := range votes {
		out[i] = v
		out[i].Value = CloneCard(v.Value)
	}
	return out
}

// SameName compares display names the way the uniqueness constraint does.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ValidateDisplayName trims name and checks its length.
func ValidateDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinDisplayNameLength {
		return "", fmt.Errorf("name must be at least %d characters", MinDisplayNameLength)
	}
	return trimmed, nil
}
