package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

// Postgres error codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// Store is the Postgres implementation of backend.Backend.
type Store struct {
	db      *sql.DB
	queries *queries
}

var _ backend.Backend = (*Store)(nil)

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		queries: newQueries(db),
	}
}

func (s *Store) CreateSession(ctx context.Context, taskName string) (models.Session, error) {
	name, err := models.ValidateTaskName(taskName)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", backend.ErrInvalidInput, err)
	}

	row, err := s.queries.createSession(ctx, name)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", translate(err))
	}

	log.Info().Str("session_id", row.ID.String()).Msg("session created")
	return sessionRowToModel(row), nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (models.Session, error) {
	row, err := s.queries.getSession(ctx, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to get session %s: %w", id, translate(err))
	}
	return sessionRowToModel(row), nil
}

func (s *Store) Reveal(ctx context.Context, id uuid.UUID) error {
	n, err := s.queries.revealSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to reveal session %s: %w", id, translate(err))
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, backend.ErrNotFound)
	}
	return nil
}

// ResetRound clears the votes and the reveal flag in one transaction.
func (s *Store) ResetRound(ctx context.Context, id uuid.UUID, taskName *string) error {
	err := sqlutil.Run(ctx, s.db,
		func(tx *sql.Tx) *queries { return newQueries(tx) },
		func(q *queries) error {
			n, err := q.resetSession(ctx, id, sqlutil.ToSqlStringNonBlank(taskName))
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("session %s: %w", id, backend.ErrNotFound)
			}
			return q.clearVotes(ctx, id)
		},
	)
	if err != nil {
		return fmt.Errorf("failed to reset round: %w", translate(err))
	}
	return nil
}

func (s *Store) ClaimName(ctx context.Context, id uuid.UUID, name string) (models.Vote, error) {
	trimmed, err := models.ValidateDisplayName(name)
	if err != nil {
		return models.Vote{}, fmt.Errorf("%w: %v", backend.ErrInvalidInput, err)
	}

	row, err := s.queries.insertVote(ctx, id, trimmed)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to claim %q: %w", trimmed, translate(err))
	}
	return voteRowToModel(row), nil
}

func (s *Store) CastVote(ctx context.Context, id uuid.UUID, name string, value models.CardValue) (models.Vote, error) {
	if !value.Valid() {
		return models.Vote{}, fmt.Errorf("%w: unknown card %q", backend.ErrInvalidInput, value)
	}

	raw := value.String()
	row, err := s.queries.upsertVote(ctx, id, name, sqlutil.ToSqlString(&raw))
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to cast vote: %w", translate(err))
	}
	return voteRowToModel(row), nil
}

func (s *Store) GetVotes(ctx context.Context, id uuid.UUID) ([]models.Vote, error) {
	rows, err := s.queries.listVotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", translate(err))
	}

	votes := make([]models.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, voteRowToModel(row))
	}
	return votes, nil
}

func (s *Store) RenameVote(ctx context.Context, id uuid.UUID, oldName, newName string) (models.Vote, error) {
	trimmed, err := models.ValidateDisplayName(newName)
	if err != nil {
		return models.Vote{}, fmt.Errorf("%w: %v", backend.ErrInvalidInput, err)
	}

	row, err := s.queries.renameVote(ctx, id, oldName, trimmed)
	if err != nil {
		return models.Vote{}, fmt.Errorf("failed to rename %q: %w", oldName, translate(err))
	}
	return voteRowToModel(row), nil
}

func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.deleteSession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, translate(err))
	}
	log.Info().Str("session_id", id.String()).Msg("session deleted")
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// translate maps driver errors onto the backend error taxonomy.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return backend.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", backend.ErrNameTaken, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", backend.ErrNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s", backend.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return err
}

func sessionRowToModel(row sessionRow) models.Session {
	s := models.Session{
		ID:         row.ID,
		TaskName:   row.TaskName,
		IsRevealed: row.IsRevealed,
	}
	if row.CreatedAt.Valid {
		s.CreatedAt = row.CreatedAt.Time.UTC()
	}
	return s
}

func voteRowToModel(row voteRow) models.Vote {
	v := models.Vote{
		ID:        row.ID,
		SessionID: row.SessionID,
		UserName:  row.UserName,
	}
	if raw := sqlutil.FromSqlStringPtr(row.Value); raw != nil {
		card := models.CardValue(*raw)
		v.Value = &card
	}
	if row.VotedAt.Valid {
		v.VotedAt = row.VotedAt.Time.UTC()
	}
	return v
}
