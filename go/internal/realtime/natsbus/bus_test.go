package natsbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
)

func TestSubjects(t *testing.T) {
	id := uuid.MustParse("6f1c1f9e-3d5c-4a55-9a57-0b8f5d1e2f10")

	got := Subject("planpoker.sessions", id, realtime.KindVoteUpdated)
	want := "planpoker.sessions.6f1c1f9e-3d5c-4a55-9a57-0b8f5d1e2f10.vote.updated"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	filter := SessionFilter("planpoker.sessions", id)
	if filter != "planpoker.sessions.6f1c1f9e-3d5c-4a55-9a57-0b8f5d1e2f10.>" {
		t.Errorf("unexpected filter %s", filter)
	}
}

func TestEncodeMsg(t *testing.T) {
	change := realtime.NewChange(realtime.KindVoteInserted, uuid.New())
	change.Vote = &models.Vote{ID: uuid.New(), SessionID: change.SessionID, UserName: "Alice"}

	msg, err := encodeMsg("pp", change)
	if err != nil {
		t.Fatalf("encodeMsg failed: %v", err)
	}
	if msg.Header.Get("Change-ID") != change.ID {
		t.Errorf("expected Change-ID header %s, got %s", change.ID, msg.Header.Get("Change-ID"))
	}
	if msg.Header.Get("Session-ID") != change.SessionID.String() {
		t.Errorf("unexpected Session-ID header %s", msg.Header.Get("Session-ID"))
	}

	decoded, err := realtime.DecodeChange(msg.Data)
	if err != nil {
		t.Fatalf("DecodeChange failed: %v", err)
	}
	if decoded.Vote == nil || decoded.Vote.UserName != "Alice" {
		t.Errorf("unexpected decoded vote: %+v", decoded.Vote)
	}
}

// TestBusRoundTrip runs when PLANPOKER_TEST_NATS_URL points at a NATS server.
func TestBusRoundTrip(t *testing.T) {
	url := os.Getenv("PLANPOKER_TEST_NATS_URL")
	if url == "" {
		t.Skip("PLANPOKER_TEST_NATS_URL not set")
	}

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.SubjectPrefix = "planpoker.test." + uuid.NewString()[:8]

	bus, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	room := uuid.New()
	sub, err := bus.Subscribe(ctx, room)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if state := <-sub.States(); state != realtime.StateSubscribed {
		t.Fatalf("expected %s, got %s", realtime.StateSubscribed, state)
	}

	_ = bus.Publish(ctx, realtime.NewChange(realtime.KindVoteDeleted, uuid.New()))
	want := realtime.NewChange(realtime.KindSessionDeleted, room)
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-sub.Changes():
		if got.ID != want.ID {
			t.Errorf("expected %s, got %s", want.ID, got.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}
