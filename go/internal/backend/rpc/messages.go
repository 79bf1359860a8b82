// Package rpc exposes a backend.Backend over connect with a JSON codec, and
// provides a client that implements backend.Backend against that service.
package rpc

import (
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// ServiceName is the fully-qualified name of the session service.
const ServiceName = "planpoker.v1.SessionService"

const (
	CreateSessionProcedure = "/" + ServiceName + "/CreateSession"
	GetSessionProcedure    = "/" + ServiceName + "/GetSession"
	RevealProcedure        = "/" + ServiceName + "/Reveal"
	ResetRoundProcedure    = "/" + ServiceName + "/ResetRound"
	ClaimNameProcedure     = "/" + ServiceName + "/ClaimName"
	CastVoteProcedure      = "/" + ServiceName + "/CastVote"
	GetVotesProcedure      = "/" + ServiceName + "/GetVotes"
	RenameVoteProcedure    = "/" + ServiceName + "/RenameVote"
	DeleteSessionProcedure = "/" + ServiceName + "/DeleteSession"
)

type CreateSessionRequest struct {
	TaskName string `json:"task_name"`
}

// SessionRequest addresses a session by id.
type SessionRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

type ResetRoundRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	TaskName  *string   `json:"task_name,omitempty"`
}

type ClaimNameRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	UserName  string    `json:"user_name"`
}

type CastVoteRequest struct {
	SessionID uuid.UUID        `json:"session_id"`
	UserName  string           `json:"user_name"`
	Value     models.CardValue `json:"value"`
}

type RenameVoteRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	OldName   string    `json:"old_name"`
	NewName   string    `json:"new_name"`
}

type SessionResponse struct {
	Session models.Session `json:"session"`
}

type VoteResponse struct {
	Vote models.Vote `json:"vote"`
}

type VotesResponse struct {
	Votes []models.Vote `json:"votes"`
}

// Empty is the response of calls that return nothing.
type Empty struct{}
