package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type sessionRow struct {
	ID         uuid.UUID
	TaskName   string
	IsRevealed bool
	CreatedAt  sql.NullTime
}

type voteRow struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserName  string
	Value     sql.NullString
	VotedAt   sql.NullTime
}

const sessionColumns = `id, task_name, is_revealed, created_at`
const voteColumns = `id, session_id, user_name, value, voted_at`

func scanSession(row interface{ Scan(...any) error }) (sessionRow, error) {
	var s sessionRow
	err := row.Scan(&s.ID, &s.TaskName, &s.IsRevealed, &s.CreatedAt)
	return s, err
}

func scanVote(row interface{ Scan(...any) error }) (voteRow, error) {
	var v voteRow
	err := row.Scan(&v.ID, &v.SessionID, &v.UserName, &v.Value, &v.VotedAt)
	return v, err
}

func (q *queries) createSession(ctx context.Context, taskName string) (sessionRow, error) {
	return scanSession(q.db.QueryRowContext(ctx,
		`INSERT INTO sessions (task_name) VALUES ($1) RETURNING `+sessionColumns, taskName))
}

func (q *queries) getSession(ctx context.Context, id uuid.UUID) (sessionRow, error) {
	return scanSession(q.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

func (q *queries) revealSession(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE sessions SET is_revealed = TRUE WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *queries) clearVotes(ctx context.Context, sessionID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE votes SET value = NULL WHERE session_id = $1 AND value IS NOT NULL`, sessionID)
	return err
}

func (q *queries) resetSession(ctx context.Context, id uuid.UUID, taskName sql.NullString) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE sessions SET is_revealed = FALSE, task_name = COALESCE($2, task_name) WHERE id = $1`,
		id, taskName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *queries) insertVote(ctx context.Context, sessionID uuid.UUID, userName string) (voteRow, error) {
	return scanVote(q.db.QueryRowContext(ctx,
		`INSERT INTO votes (session_id, user_name) VALUES ($1, $2) RETURNING `+voteColumns,
		sessionID, userName))
}

func (q *queries) upsertVote(ctx context.Context, sessionID uuid.UUID, userName string, value sql.NullString) (voteRow, error) {
	return scanVote(q.db.QueryRowContext(ctx, `
		INSERT INTO votes (session_id, user_name, value) VALUES ($1, $2, $3)
		ON CONFLICT (session_id, (lower(user_name))) DO UPDATE SET value = EXCLUDED.value
		RETURNING `+voteColumns,
		sessionID, userName, value))
}

func (q *queries) listVotes(ctx context.Context, sessionID uuid.UUID) ([]voteRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+voteColumns+` FROM votes WHERE session_id = $1 ORDER BY voted_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []voteRow
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *queries) renameVote(ctx context.Context, sessionID uuid.UUID, oldName, newName string) (voteRow, error) {
	return scanVote(q.db.QueryRowContext(ctx, `
		UPDATE votes SET user_name = $3
		WHERE session_id = $1 AND lower(user_name) = lower($2)
		RETURNING `+voteColumns,
		sessionID, oldName, newName))
}

func (q *queries) deleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
