package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Client implements backend.Backend against a remote session service.
type Client struct {
	createSession *connect.Client[CreateSessionRequest, SessionResponse]
	getSession    *connect.Client[SessionRequest, SessionResponse]
	reveal        *connect.Client[SessionRequest, Empty]
	resetRound    *connect.Client[ResetRoundRequest, Empty]
	claimName     *connect.Client[ClaimNameRequest, VoteResponse]
	castVote      *connect.Client[CastVoteRequest, VoteResponse]
	getVotes      *connect.Client[SessionRequest, VotesResponse]
	renameVote    *connect.Client[RenameVoteRequest, VoteResponse]
	deleteSession *connect.Client[SessionRequest, Empty]
}

var _ backend.Backend = (*Client)(nil)

// NewClient builds a client for the service at baseURL. httpClient may be nil.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)

	return &Client{
		createSession: connect.NewClient[CreateSessionRequest, SessionResponse](httpClient, baseURL+CreateSessionProcedure, opts...),
		getSession:    connect.NewClient[SessionRequest, SessionResponse](httpClient, baseURL+GetSessionProcedure, opts...),
		reveal:        connect.NewClient[SessionRequest, Empty](httpClient, baseURL+RevealProcedure, opts...),
		resetRound:    connect.NewClient[ResetRoundRequest, Empty](httpClient, baseURL+ResetRoundProcedure, opts...),
		claimName:     connect.NewClient[ClaimNameRequest, VoteResponse](httpClient, baseURL+ClaimNameProcedure, opts...),
		castVote:      connect.NewClient[CastVoteRequest, VoteResponse](httpClient, baseURL+CastVoteProcedure, opts...),
		getVotes:      connect.NewClient[SessionRequest, VotesResponse](httpClient, baseURL+GetVotesProcedure, opts...),
		renameVote:    connect.NewClient[RenameVoteRequest, VoteResponse](httpClient, baseURL+RenameVoteProcedure, opts...),
		deleteSession: connect.NewClient[SessionRequest, Empty](httpClient, baseURL+DeleteSessionProcedure, opts...),
	}
}

func (c *Client) CreateSession(ctx context.Context, taskName string) (models.Session, error) {
	res, err := c.createSession.CallUnary(ctx, connect.NewRequest(&CreateSessionRequest{TaskName: taskName}))
	if err != nil {
		return models.Session{}, fromConnectError(CreateSessionProcedure, err)
	}
	return res.Msg.Session, nil
}

func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (models.Session, error) {
	res, err := c.getSession.CallUnary(ctx, connect.NewRequest(&SessionRequest{SessionID: id}))
	if err != nil {
		return models.Session{}, fromConnectError(GetSessionProcedure, err)
	}
	return res.Msg.Session, nil
}

func (c *Client) Reveal(ctx context.Context, id uuid.UUID) error {
	if _, err := c.reveal.CallUnary(ctx, connect.NewRequest(&SessionRequest{SessionID: id})); err != nil {
		return fromConnectError(RevealProcedure, err)
	}
	return nil
}

func (c *Client) ResetRound(ctx context.Context, id uuid.UUID, taskName *string) error {
	req := &ResetRoundRequest{SessionID: id, TaskName: taskName}
	if _, err := c.resetRound.CallUnary(ctx, connect.NewRequest(req)); err != nil {
		return fromConnectError(ResetRoundProcedure, err)
	}
	return nil
}

func (c *Client) ClaimName(ctx context.Context, id uuid.UUID, name string) (models.Vote, error) {
	res, err := c.claimName.CallUnary(ctx, connect.NewRequest(&ClaimNameRequest{SessionID: id, UserName: name}))
	if err != nil {
		return models.Vote{}, fromConnectError(ClaimNameProcedure, err)
	}
	return res.Msg.Vote, nil
}

func (c *Client) CastVote(ctx context.Context, id uuid.UUID, name string, value models.CardValue) (models.Vote, error) {
	req := &CastVoteRequest{SessionID: id, UserName: name, Value: value}
	res, err := c.castVote.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return models.Vote{}, fromConnectError(CastVoteProcedure, err)
	}
	return res.Msg.Vote, nil
}

func (c *Client) GetVotes(ctx context.Context, id uuid.UUID) ([]models.Vote, error) {
	res, err := c.getVotes.CallUnary(ctx, connect.NewRequest(&SessionRequest{SessionID: id}))
	if err != nil {
		return nil, fromConnectError(GetVotesProcedure, err)
	}
	if res.Msg.Votes == nil {
		return []models.Vote{}, nil
	}
	return res.Msg.Votes, nil
}

func (c *Client) RenameVote(ctx context.Context, id uuid.UUID, oldName, newName string) (models.Vote, error) {
	req := &RenameVoteRequest{SessionID: id, OldName: oldName, NewName: newName}
	res, err := c.renameVote.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return models.Vote{}, fromConnectError(RenameVoteProcedure, err)
	}
	return res.Msg.Vote, nil
}

func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := c.deleteSession.CallUnary(ctx, connect.NewRequest(&SessionRequest{SessionID: id})); err != nil {
		return fromConnectError(DeleteSessionProcedure, err)
	}
	return nil
}
