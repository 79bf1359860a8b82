package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
)

type recordingPublisher struct {
	changes []realtime.Change
}

func (r *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func (r *recordingPublisher) kinds() []realtime.ChangeKind {
	out := make([]realtime.ChangeKind, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Kind
	}
	return out
}

func newTestMemory(t *testing.T) (*Memory, *clockwork.FakeClock, *recordingPublisher) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	pub := &recordingPublisher{}
	return NewMemory(clock, pub), clock, pub
}

func TestMemoryCreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMemory(t)

	if _, err := m.CreateSession(ctx, "  a "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short task name, got %v", err)
	}

	s, err := m.CreateSession(ctx, "  Login page ")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if s.TaskName != "Login page" || s.IsRevealed {
		t.Errorf("unexpected session: %+v", s)
	}

	got, err := m.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("expected %s, got %s", s.ID, got.ID)
	}

	if _, err := m.GetSession(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryClaimNameIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	m, _, pub := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")

	v, err := m.ClaimName(ctx, s.ID, "Alice")
	if err != nil {
		t.Fatalf("ClaimName failed: %v", err)
	}
	if v.Value != nil {
		t.Errorf("claimed record should have no value")
	}

	if _, err := m.ClaimName(ctx, s.ID, "alice"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
	if _, err := m.ClaimName(ctx, uuid.New(), "Bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(pub.changes) != 1 || pub.changes[0].Kind != realtime.KindVoteInserted {
		t.Errorf("expected one insert change, got %v", pub.kinds())
	}
}

func TestMemoryCastVoteUpserts(t *testing.T) {
	ctx := context.Background()
	m, clock, pub := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")

	claimed, _ := m.ClaimName(ctx, s.ID, "Alice")
	clock.Advance(time.Minute)

	v, err := m.CastVote(ctx, s.ID, "ALICE", models.Card5)
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if v.ID != claimed.ID {
		t.Errorf("expected upsert of %s, got new record %s", claimed.ID, v.ID)
	}
	if !v.VotedAt.Equal(claimed.VotedAt) {
		t.Errorf("join time changed on cast: %v -> %v", claimed.VotedAt, v.VotedAt)
	}

	inserted, err := m.CastVote(ctx, s.ID, "Bob", models.Card8)
	if err != nil {
		t.Fatalf("CastVote for new name failed: %v", err)
	}
	if inserted.UserName != "Bob" {
		t.Errorf("expected Bob, got %s", inserted.UserName)
	}

	if _, err := m.CastVote(ctx, s.ID, "Alice", models.CardValue("4")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown card, got %v", err)
	}

	want := []realtime.ChangeKind{realtime.KindVoteInserted, realtime.KindVoteUpdated, realtime.KindVoteInserted}
	got := pub.kinds()
	if len(got) != len(want) {
		t.Fatalf("expected changes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestMemoryGetVotesOrderedByJoinTime(t *testing.T) {
	ctx := context.Background()
	m, clock, _ := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")

	for _, name := range []string{"Carol", "Alice", "Bob"} {
		if _, err := m.ClaimName(ctx, s.ID, name); err != nil {
			t.Fatalf("ClaimName(%s) failed: %v", name, err)
		}
		clock.Advance(time.Second)
	}

	votes, err := m.GetVotes(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetVotes failed: %v", err)
	}
	want := []string{"Carol", "Alice", "Bob"}
	for i, v := range votes {
		if v.UserName != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], v.UserName)
		}
	}

	empty, err := m.GetVotes(ctx, uuid.New())
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty roster for unknown session, got %v, %v", empty, err)
	}
}

func TestMemoryResetRound(t *testing.T) {
	ctx := context.Background()
	m, _, pub := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")
	_, _ = m.CastVote(ctx, s.ID, "Alice", models.Card3)
	_, _ = m.ClaimName(ctx, s.ID, "Bob")
	_ = m.Reveal(ctx, s.ID)
	pub.changes = nil

	task := "Payments"
	if err := m.ResetRound(ctx, s.ID, &task); err != nil {
		t.Fatalf("ResetRound failed: %v", err)
	}

	got, _ := m.GetSession(ctx, s.ID)
	if got.IsRevealed || got.TaskName != "Payments" {
		t.Errorf("unexpected session after reset: %+v", got)
	}
	votes, _ := m.GetVotes(ctx, s.ID)
	for _, v := range votes {
		if v.Value != nil {
			t.Errorf("%s still holds %s", v.UserName, *v.Value)
		}
	}

	// only Alice held a card
	want := []realtime.ChangeKind{realtime.KindVoteUpdated, realtime.KindSessionUpdated}
	if kinds := pub.kinds(); len(kinds) != 2 || kinds[0] != want[0] || kinds[1] != want[1] {
		t.Errorf("expected %v, got %v", want, kinds)
	}

	empty := ""
	if err := m.ResetRound(ctx, s.ID, &empty); err != nil {
		t.Fatalf("ResetRound failed: %v", err)
	}
	if got, _ := m.GetSession(ctx, s.ID); got.TaskName != "Payments" {
		t.Errorf("empty override should keep the task name, got %q", got.TaskName)
	}
}

func TestMemoryRenameVote(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")
	_, _ = m.ClaimName(ctx, s.ID, "Alice")
	_, _ = m.ClaimName(ctx, s.ID, "Bob")

	if _, err := m.RenameVote(ctx, s.ID, "alice", "BOB"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
	if _, err := m.RenameVote(ctx, s.ID, "Zed", "Yan"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	v, err := m.RenameVote(ctx, s.ID, "Alice", "ALICE")
	if err != nil {
		t.Fatalf("case-only rename failed: %v", err)
	}
	if v.UserName != "ALICE" {
		t.Errorf("expected ALICE, got %s", v.UserName)
	}
}

func TestMemoryDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	m, _, pub := newTestMemory(t)
	s, _ := m.CreateSession(ctx, "Checkout")
	_, _ = m.ClaimName(ctx, s.ID, "Alice")
	_, _ = m.ClaimName(ctx, s.ID, "Bob")
	pub.changes = nil

	if err := m.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := m.GetSession(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	kinds := pub.kinds()
	if len(kinds) != 3 || kinds[2] != realtime.KindSessionDeleted {
		t.Errorf("expected two vote deletes then session delete, got %v", kinds)
	}

	if err := m.DeleteSession(ctx, s.ID); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}
