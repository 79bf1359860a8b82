package room_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/feed"
	"github.com/mcdev12/planpoker/go/internal/identity"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/room"
)

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestTwoParticipantsConverge drives one participant through the backend and
// checks that a second participant's store follows over the realtime feed.
func TestTwoParticipantsConverge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub()
	b := backend.NewMemory(clockwork.NewRealClock(), hub)

	alice := room.New(b, identity.NewMemoryStore(), nil)
	sessionID, err := alice.Create(ctx, "Login page")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := alice.SetIdentity(ctx, "Alice"); err != nil {
		t.Fatalf("SetIdentity failed: %v", err)
	}

	bob := room.New(b, identity.NewMemoryStore(), nil)
	if err := bob.Join(ctx, sessionID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	adapter := feed.New(hub, b, sessionID, feed.WithDebounce(10*time.Millisecond))

	runErr := make(chan error, 1)
	go func() { runErr <- adapter.Run(ctx) }()
	go func() { _ = bob.Run(ctx, adapter.Events()) }()

	eventually(t, "feed to connect", func() bool { return adapter.Status() == feed.StatusConnected })

	if err := bob.SetIdentity(ctx, "Bob"); err != nil {
		t.Fatalf("Bob SetIdentity failed: %v", err)
	}
	if err := alice.CastVote(ctx, models.Card5); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	eventually(t, "Alice's vote", func() bool { return bob.Snapshot().Voted("Alice") })

	if name, ok := bob.Snapshot().Moderator(); !ok || name != "Alice" {
		t.Errorf("expected Alice as moderator, got %q %v", name, ok)
	}

	if err := bob.CastVote(ctx, models.Card8); err != nil {
		t.Fatalf("Bob CastVote failed: %v", err)
	}
	if err := alice.Reveal(ctx); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	eventually(t, "reveal", func() bool { return bob.Snapshot().Revealed })

	summary := bob.Snapshot().Results()
	if summary.Count != 2 || summary.Average != 6.5 {
		t.Errorf("expected average 6.5 over two votes, got %+v", summary)
	}

	task := "Checkout flow"
	if err := alice.StartNewRound(ctx, &task); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	eventually(t, "new round", func() bool {
		s := bob.Snapshot()
		return !s.Revealed && s.TaskName == task && s.LocalVote == nil && !s.Voted("Alice") && !s.Voted("Bob")
	})

	if err := alice.CloseSession(ctx); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	eventually(t, "session removal", func() bool { return bob.Snapshot().Closed })

	cancel()
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after cancel")
	}
	if n := hub.Subscribers(sessionID); n != 0 {
		t.Errorf("expected subscription released, %d remain", n)
	}
}
