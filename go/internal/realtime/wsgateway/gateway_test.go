package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
)

func startGateway(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := NewService(DefaultConnectionConfig())
	go svc.Start(ctx)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return svc, srv
}

func waitState(t *testing.T, sub realtime.Subscription, want realtime.ChannelState) {
	t.Helper()
	select {
	case got := <-sub.States():
		if got != want {
			t.Fatalf("expected state %s, got %s", want, got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for state %s", want)
	}
}

func waitForConnections(t *testing.T, svc *Service, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for svc.Stats().TotalConnections != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connections, have %d", n, svc.Stats().TotalConnections)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGatewayDeliversSessionChanges(t *testing.T) {
	svc, srv := startGateway(t)
	room := uuid.New()

	client := NewClient(DefaultClientConfig(srv.URL))
	sub, err := client.Subscribe(context.Background(), room)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	waitState(t, sub, realtime.StateSubscribed)
	waitForConnections(t, svc, 1)

	_ = svc.Publish(context.Background(), realtime.NewChange(realtime.KindVoteDeleted, uuid.New()))

	change := realtime.NewChange(realtime.KindVoteInserted, room)
	change.Vote = &models.Vote{ID: uuid.New(), SessionID: room, UserName: "Alice"}
	if err := svc.Publish(context.Background(), change); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-sub.Changes():
		if got.ID != change.ID || got.Vote == nil || got.Vote.UserName != "Alice" {
			t.Errorf("unexpected change: %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestGatewayStats(t *testing.T) {
	svc, srv := startGateway(t)
	room := uuid.New()

	sub, _ := NewClient(DefaultClientConfig(srv.URL)).Subscribe(context.Background(), room)
	defer sub.Close()
	waitState(t, sub, realtime.StateSubscribed)
	waitForConnections(t, svc, 1)

	resp, err := http.Get(srv.URL + "/ws/stats")
	if err != nil {
		t.Fatalf("GET stats failed: %v", err)
	}
	defer resp.Body.Close()

	var stats ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalConnections != 1 || stats.SessionConnections[room.String()] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGatewayRejectsBadSessionID(t *testing.T) {
	_, srv := startGateway(t)

	resp, err := http.Get(srv.URL + SessionsPath + "?session_id=nope")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClientDialFailureIsChannelError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	sub, err := NewClient(DefaultClientConfig(srv.URL)).Subscribe(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()
	waitState(t, sub, realtime.StateChannelError)
}

func TestClientWithoutAckTimesOut(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		<-release
		conn.Close()
	}))
	defer srv.Close()
	defer close(release)

	cfg := DefaultClientConfig(srv.URL)
	cfg.AckTimeout = 100 * time.Millisecond
	sub, _ := NewClient(cfg).Subscribe(context.Background(), uuid.New())
	defer sub.Close()

	waitState(t, sub, realtime.StateTimedOut)
}

func TestClientReportsServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(Envelope{Type: EnvelopeSubscribed})
		conn.Close()
	}))
	defer srv.Close()

	sub, _ := NewClient(DefaultClientConfig(srv.URL)).Subscribe(context.Background(), uuid.New())
	defer sub.Close()

	waitState(t, sub, realtime.StateSubscribed)
	waitState(t, sub, realtime.StateClosed)
}

func TestSessionURL(t *testing.T) {
	id := uuid.MustParse("6f1c1f9e-3d5c-4a55-9a57-0b8f5d1e2f10")
	got, err := SessionURL("https://poker.example.com/", id)
	if err != nil {
		t.Fatalf("SessionURL failed: %v", err)
	}
	want := "wss://poker.example.com/ws/sessions?session_id=6f1c1f9e-3d5c-4a55-9a57-0b8f5d1e2f10"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
