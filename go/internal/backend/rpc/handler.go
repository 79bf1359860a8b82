package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/rs/zerolog/log"
)

// Service serves a backend.Backend as the session service.
type Service struct {
	backend backend.Backend
}

func NewService(b backend.Backend) *Service {
	return &Service{backend: b}
}

// NewHandler returns the path prefix and handler for the session service, in
// the shape of generated connect handlers.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(RevealProcedure, connect.NewUnaryHandler(RevealProcedure, svc.Reveal, opts...))
	mux.Handle(ResetRoundProcedure, connect.NewUnaryHandler(ResetRoundProcedure, svc.ResetRound, opts...))
	mux.Handle(ClaimNameProcedure, connect.NewUnaryHandler(ClaimNameProcedure, svc.ClaimName, opts...))
	mux.Handle(CastVoteProcedure, connect.NewUnaryHandler(CastVoteProcedure, svc.CastVote, opts...))
	mux.Handle(GetVotesProcedure, connect.NewUnaryHandler(GetVotesProcedure, svc.GetVotes, opts...))
	mux.Handle(RenameVoteProcedure, connect.NewUnaryHandler(RenameVoteProcedure, svc.RenameVote, opts...))
	mux.Handle(DeleteSessionProcedure, connect.NewUnaryHandler(DeleteSessionProcedure, svc.DeleteSession, opts...))

	return "/" + ServiceName + "/", mux
}

func (s *Service) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[SessionResponse], error) {
	session, err := s.backend.CreateSession(ctx, req.Msg.TaskName)
	if err != nil {
		return nil, s.failed(CreateSessionProcedure, err)
	}
	log.Info().Str("session_id", session.ID.String()).Str("task_name", session.TaskName).Msg("session created")
	return connect.NewResponse(&SessionResponse{Session: session}), nil
}

func (s *Service) GetSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[SessionResponse], error) {
	session, err := s.backend.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, s.failed(GetSessionProcedure, err)
	}
	return connect.NewResponse(&SessionResponse{Session: session}), nil
}

func (s *Service) Reveal(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[Empty], error) {
	if err := s.backend.Reveal(ctx, req.Msg.SessionID); err != nil {
		return nil, s.failed(RevealProcedure, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ResetRound(ctx context.Context, req *connect.Request[ResetRoundRequest]) (*connect.Response[Empty], error) {
	if err := s.backend.ResetRound(ctx, req.Msg.SessionID, req.Msg.TaskName); err != nil {
		return nil, s.failed(ResetRoundProcedure, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) ClaimName(ctx context.Context, req *connect.Request[ClaimNameRequest]) (*connect.Response[VoteResponse], error) {
	vote, err := s.backend.ClaimName(ctx, req.Msg.SessionID, req.Msg.UserName)
	if err != nil {
		return nil, s.failed(ClaimNameProcedure, err)
	}
	return connect.NewResponse(&VoteResponse{Vote: vote}), nil
}

func (s *Service) CastVote(ctx context.Context, req *connect.Request[CastVoteRequest]) (*connect.Response[VoteResponse], error) {
	vote, err := s.backend.CastVote(ctx, req.Msg.SessionID, req.Msg.UserName, req.Msg.Value)
	if err != nil {
		return nil, s.failed(CastVoteProcedure, err)
	}
	return connect.NewResponse(&VoteResponse{Vote: vote}), nil
}

func (s *Service) GetVotes(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[VotesResponse], error) {
	votes, err := s.backend.GetVotes(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, s.failed(GetVotesProcedure, err)
	}
	return connect.NewResponse(&VotesResponse{Votes: votes}), nil
}

func (s *Service) RenameVote(ctx context.Context, req *connect.Request[RenameVoteRequest]) (*connect.Response[VoteResponse], error) {
	vote, err := s.backend.RenameVote(ctx, req.Msg.SessionID, req.Msg.OldName, req.Msg.NewName)
	if err != nil {
		return nil, s.failed(RenameVoteProcedure, err)
	}
	return connect.NewResponse(&VoteResponse{Vote: vote}), nil
}

func (s *Service) DeleteSession(ctx context.Context, req *connect.Request[SessionRequest]) (*connect.Response[Empty], error) {
	if err := s.backend.DeleteSession(ctx, req.Msg.SessionID); err != nil {
		return nil, s.failed(DeleteSessionProcedure, err)
	}
	log.Info().Str("session_id", req.Msg.SessionID.String()).Msg("session deleted")
	return connect.NewResponse(&Empty{}), nil
}

func (s *Service) failed(procedure string, err error) error {
	cerr := toConnectError(err)
	if connect.CodeOf(cerr) == connect.CodeInternal {
		log.Error().Err(err).Str("procedure", procedure).Msg("backend call failed")
	} else {
		log.Debug().Err(err).Str("procedure", procedure).Msg("backend call rejected")
	}
	return cerr
}
