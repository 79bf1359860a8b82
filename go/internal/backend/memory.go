package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Memory is an in-process Backend. Every mutation is announced to the
// configured publisher the way the database triggers announce row changes.
type Memory struct {
	clock     clockwork.Clock
	publisher realtime.Publisher

	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	votes    map[uuid.UUID][]models.Vote
}

// NewMemory creates an empty store. publisher may be nil.
func NewMemory(clock clockwork.Clock, publisher realtime.Publisher) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:     clock,
		publisher: publisher,
		sessions:  make(map[uuid.UUID]models.Session),
		votes:     make(map[uuid.UUID][]models.Vote),
	}
}

func (m *Memory) CreateSession(_ context.Context, taskName string) (models.Session, error) {
	name, err := models.ValidateTaskName(taskName)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	session := models.Session{
		ID:        uuid.New(),
		TaskName:  name,
		CreatedAt: m.clock.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	log.Debug().Str("session_id", session.ID.String()).Msg("session created")
	return session, nil
}

func (m *Memory) GetSession(_ context.Context, id uuid.UUID) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return session, nil
}

func (m *Memory) Reveal(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	session.IsRevealed = true
	m.sessions[id] = session
	m.mu.Unlock()

	m.publish(ctx, sessionChange(session))
	return nil
}

func (m *Memory) ResetRound(ctx context.Context, id uuid.UUID, taskName *string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if taskName != nil && *taskName != "" {
		session.TaskName = *taskName
	}
	session.IsRevealed = false
	m.sessions[id] = session

	var changes []realtime.Change
	votes := m.votes[id]
	for i := range votes {
		if votes[i].Value == nil {
			continue
		}
		votes[i].Value = nil
		changes = append(changes, voteChange(realtime.KindVoteUpdated, votes[i]))
	}
	m.mu.Unlock()

	for _, c := range changes {
		m.publish(ctx, c)
	}
	m.publish(ctx, sessionChange(session))
	return nil
}

func (m *Memory) ClaimName(ctx context.Context, id uuid.UUID, name string) (models.Vote, error) {
	trimmed, err := models.ValidateDisplayName(name)
	if err != nil {
		return models.Vote{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return models.Vote{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if m.indexOf(id, trimmed) >= 0 {
		m.mu.Unlock()
		return models.Vote{}, fmt.Errorf("claim %q: %w", trimmed, ErrNameTaken)
	}
	vote := m.insert(id, trimmed, nil)
	m.mu.Unlock()

	m.publish(ctx, voteChange(realtime.KindVoteInserted, vote))
	return vote, nil
}

func (m *Memory) CastVote(ctx context.Context, id uuid.UUID, name string, value models.CardValue) (models.Vote, error) {
	if !value.Valid() {
		return models.Vote{}, fmt.Errorf("%w: unknown card %q", ErrInvalidInput, value)
	}

	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return models.Vote{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	kind := realtime.KindVoteUpdated
	var vote models.Vote
	if i := m.indexOf(id, name); i >= 0 {
		m.votes[id][i].Value = models.CardPtr(value)
		vote = m.votes[id][i]
	} else {
		trimmed, err := models.ValidateDisplayName(name)
		if err != nil {
			m.mu.Unlock()
			return models.Vote{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		kind = realtime.KindVoteInserted
		vote = m.insert(id, trimmed, models.CardPtr(value))
	}
	vote.Value = models.CloneCard(vote.Value)
	m.mu.Unlock()

	m.publish(ctx, voteChange(kind, vote))
	return vote, nil
}

func (m *Memory) GetVotes(_ context.Context, id uuid.UUID) ([]models.Vote, error) {
	m.mu.Lock()
	votes := models.CloneVotes(m.votes[id])
	m.mu.Unlock()

	if votes == nil {
		votes = []models.Vote{}
	}
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].VotedAt.Before(votes[j].VotedAt)
	})
	return votes, nil
}

func (m *Memory) RenameVote(ctx context.Context, id uuid.UUID, oldName, newName string) (models.Vote, error) {
	trimmed, err := models.ValidateDisplayName(newName)
	if err != nil {
		return models.Vote{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m.mu.Lock()
	i := m.indexOf(id, oldName)
	if i < 0 {
		m.mu.Unlock()
		return models.Vote{}, fmt.Errorf("participant %q: %w", oldName, ErrNotFound)
	}
	if j := m.indexOf(id, trimmed); j >= 0 && j != i {
		m.mu.Unlock()
		return models.Vote{}, fmt.Errorf("rename to %q: %w", trimmed, ErrNameTaken)
	}
	m.votes[id][i].UserName = trimmed
	vote := m.votes[id][i]
	vote.Value = models.CloneCard(vote.Value)
	m.mu.Unlock()

	m.publish(ctx, voteChange(realtime.KindVoteUpdated, vote))
	return vote, nil
}

func (m *Memory) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; !ok {
		m.mu.Unlock()
		return nil
	}
	removed := len(m.votes[id])
	delete(m.sessions, id)
	delete(m.votes, id)
	m.mu.Unlock()

	for i := 0; i < removed; i++ {
		m.publish(ctx, realtime.NewChange(realtime.KindVoteDeleted, id))
	}
	m.publish(ctx, realtime.NewChange(realtime.KindSessionDeleted, id))
	return nil
}

// indexOf finds a participant by name. Callers hold m.mu.
func (m *Memory) indexOf(id uuid.UUID, name string) int {
	for i, v := range m.votes[id] {
		if models.SameName(v.UserName, name) {
			return i
		}
	}
	return -1
}

// insert appends a new participant record. Callers hold m.mu.
func (m *Memory) insert(id uuid.UUID, name string, value *models.CardValue) models.Vote {
	vote := models.Vote{
		ID:        uuid.New(),
		SessionID: id,
		UserName:  name,
		Value:     value,
		VotedAt:   m.clock.Now().UTC(),
	}
	m.votes[id] = append(m.votes[id], vote)
	vote.Value = models.CloneCard(value)
	return vote
}

func (m *Memory) publish(ctx context.Context, change realtime.Change) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, change); err != nil {
		log.Error().
			Err(err).
			Str("session_id", change.SessionID.String()).
			Str("kind", string(change.Kind)).
			Msg("failed to publish change")
	}
}

func voteChange(kind realtime.ChangeKind, vote models.Vote) realtime.Change {
	c := realtime.NewChange(kind, vote.SessionID)
	v := vote
	v.Value = models.CloneCard(vote.Value)
	c.Vote = &v
	return c
}

func sessionChange(session models.Session) realtime.Change {
	c := realtime.NewChange(realtime.KindSessionUpdated, session.ID)
	s := session
	c.Session = &s
	return c
}
