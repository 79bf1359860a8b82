package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: sql.ErrNoRows, want: backend.ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", sql.ErrNoRows), want: backend.ErrNotFound},
		{name: "unique", in: &pgconn.PgError{Code: codeUniqueViolation}, want: backend.ErrNameTaken},
		{name: "foreign key", in: &pgconn.PgError{Code: codeForeignKeyViolation}, want: backend.ErrNotFound},
		{name: "check", in: &pgconn.PgError{Code: codeCheckViolation}, want: backend.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translate(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	other := errors.New("connection reset")
	if got := translate(other); got != other {
		t.Errorf("unrelated errors should pass through, got %v", got)
	}
}

func TestMigrationVersionsAreOrderedAndPaired(t *testing.T) {
	versions, err := MigrationVersions()
	if err != nil {
		t.Fatalf("MigrationVersions failed: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations embedded")
	}
	for i, v := range versions {
		if i > 0 && versions[i-1] >= v {
			t.Errorf("migrations out of order: %s before %s", versions[i-1], v)
		}
		down := v[:len(v)-len(".up.sql")] + ".down.sql"
		if _, err := migrationFiles.ReadFile("migrations/" + down); err != nil {
			t.Errorf("missing down migration for %s", v)
		}
	}
}

func TestVoteRowToModel(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	row := voteRow{
		ID:       uuid.New(),
		UserName: "Alice",
		Value:    sql.NullString{String: "13", Valid: true},
		VotedAt:  sql.NullTime{Time: at, Valid: true},
	}

	v := voteRowToModel(row)
	if v.Value == nil || *v.Value != models.Card13 {
		t.Errorf("expected card 13, got %v", v.Value)
	}
	if v.VotedAt.Location() != time.UTC {
		t.Errorf("expected UTC join time, got %v", v.VotedAt.Location())
	}

	row.Value = sql.NullString{}
	if v := voteRowToModel(row); v.Value != nil {
		t.Errorf("expected no value, got %v", *v.Value)
	}
}

// TestStoreAgainstDatabase runs when PLANPOKER_TEST_DATABASE_URL points at a
// disposable database.
func TestStoreAgainstDatabase(t *testing.T) {
	url := os.Getenv("PLANPOKER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PLANPOKER_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}

	store := NewStore(db)
	session, err := store.CreateSession(ctx, "Integration")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	defer store.DeleteSession(ctx, session.ID)

	if _, err := store.ClaimName(ctx, session.ID, "Alice"); err != nil {
		t.Fatalf("ClaimName failed: %v", err)
	}
	if _, err := store.ClaimName(ctx, session.ID, "ALICE"); !errors.Is(err, backend.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}
	if _, err := store.ClaimName(ctx, uuid.New(), "Bob"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}

	if _, err := store.CastVote(ctx, session.ID, "alice", models.Card8); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if _, err := store.CastVote(ctx, session.ID, "Bob", models.Card3); err != nil {
		t.Fatalf("CastVote insert failed: %v", err)
	}

	votes, err := store.GetVotes(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetVotes failed: %v", err)
	}
	if len(votes) != 2 || votes[0].UserName != "Alice" || votes[0].Value == nil || *votes[0].Value != models.Card8 {
		t.Fatalf("unexpected roster: %+v", votes)
	}

	if err := store.Reveal(ctx, session.ID); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	task := "Next task"
	if err := store.ResetRound(ctx, session.ID, &task); err != nil {
		t.Fatalf("ResetRound failed: %v", err)
	}
	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.IsRevealed || got.TaskName != task {
		t.Errorf("unexpected session after reset: %+v", got)
	}

	if _, err := store.RenameVote(ctx, session.ID, "Alice", "bob"); !errors.Is(err, backend.ErrNameTaken) {
		t.Errorf("expected ErrNameTaken on rename, got %v", err)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
