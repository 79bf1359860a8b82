// Package backend defines the persistent store contract for sessions and
// their participant records.
package backend

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

var (
	// ErrNotFound is returned when the session or participant does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNameTaken is returned when a display name is already claimed within
	// the session, compared case-insensitively.
	ErrNameTaken = errors.New("name already taken")
	// ErrInvalidInput is returned for task names, display names or card values
	// that fail validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Backend is the persistent store of sessions and votes.
type Backend interface {
	CreateSession(ctx context.Context, taskName string) (models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (models.Session, error)
	Reveal(ctx context.Context, id uuid.UUID) error
	// ResetRound clears every vote value and the reveal flag. A non-empty
	// taskName replaces the session's task name.
	ResetRound(ctx context.Context, id uuid.UUID, taskName *string) error
	// ClaimName inserts a participant record without a value.
	ClaimName(ctx context.Context, id uuid.UUID, name string) (models.Vote, error)
	// CastVote upserts the participant's value, keyed by lower(name).
	CastVote(ctx context.Context, id uuid.UUID, name string, value models.CardValue) (models.Vote, error)
	// GetVotes lists the roster ordered by join time.
	GetVotes(ctx context.Context, id uuid.UUID) ([]models.Vote, error)
	RenameVote(ctx context.Context, id uuid.UUID, oldName, newName string) (models.Vote, error)
	// DeleteSession removes the session and its votes. Deleting a session that
	// no longer exists is not an error.
	DeleteSession(ctx context.Context, id uuid.UUID) error
}
