package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/feed"
	"github.com/mcdev12/planpoker/go/internal/identity"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/room"
)

type testClient struct {
	app *app
	buf *bytes.Buffer
}

func newTestClient(b backend.Backend, transport realtime.Transport) *testClient {
	buf := &bytes.Buffer{}
	store := room.New(b, identity.NewMemoryStore(), nil)
	return &testClient{
		app: newApp(store, b, transport, buf, feed.WithDebounce(10*time.Millisecond)),
		buf: buf,
	}
}

func (c *testClient) run(t *testing.T, line string) {
	t.Helper()
	if c.app.execute(context.Background(), line) {
		t.Fatalf("%q should not quit", line)
	}
}

// output returns and clears everything printed so far.
func (c *testClient) output() string {
	c.app.outMu.Lock()
	defer c.app.outMu.Unlock()
	s := c.buf.String()
	c.buf.Reset()
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
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

func TestCommandsDriveTheRoom(t *testing.T) {
	hub := realtime.NewHub()
	b := backend.NewMemory(clockwork.NewRealClock(), hub)

	alice := newTestClient(b, hub)
	bob := newTestClient(b, hub)
	defer alice.app.stopFeed()
	defer bob.app.stopFeed()

	alice.run(t, "create Login page")
	alice.run(t, "name Alice")
	alice.run(t, "vote 5")
	sessionID := alice.app.store.Snapshot().SessionID
	if !strings.Contains(alice.output(), "Created session "+sessionID.String()) {
		t.Fatal("expected the new session id to be printed")
	}

	bob.run(t, "join "+sessionID.String())
	bob.run(t, "name Bob")
	if out := bob.output(); !strings.Contains(out, "You are Bob.") {
		t.Errorf("unexpected output: %q", out)
	}
	waitFor(t, "bob's feed", func() bool { return bob.app.status() == feed.StatusConnected })

	bob.run(t, "reveal")
	if out := bob.output(); !strings.Contains(out, "only the moderator") {
		t.Errorf("expected moderator refusal, got %q", out)
	}

	bob.run(t, "show")
	out := bob.output()
	if !strings.Contains(out, "* Alice") || !strings.Contains(out, "voted") || strings.Contains(out, " 5\n") {
		t.Errorf("hidden room rendered wrong:\n%s", out)
	}

	alice.run(t, "reveal")
	waitFor(t, "reveal", func() bool { return bob.app.store.Snapshot().Revealed })

	bob.run(t, "show")
	out = bob.output()
	if !strings.Contains(out, "Average: 5.0") || !strings.Contains(out, "Consensus") {
		t.Errorf("expected results, got:\n%s", out)
	}

	alice.run(t, "round Checkout flow")
	waitFor(t, "new round", func() bool { return bob.app.store.Snapshot().TaskName == "Checkout flow" })

	alice.run(t, "close")
	waitFor(t, "closed", func() bool { return bob.app.store.Snapshot().Closed })

	bob.run(t, "vote 3")
	if out := bob.output(); !strings.Contains(out, "this session has been closed") {
		t.Errorf("expected closed error, got %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	client := newTestClient(backend.NewMemory(clockwork.NewFakeClock(), nil), realtime.NewHub())
	defer client.app.stopFeed()

	tests := []struct {
		line string
		want string
	}{
		{line: "join not-a-session", want: "session not found"},
		{line: "join " + uuid.NewString(), want: "session not found"},
		{line: "vote 5", want: "create or join a session"},
		{line: "dance", want: `unknown command "dance"`},
		{line: "create ab", want: "invalid input"},
	}

	for _, tt := range tests {
		client.run(t, tt.line)
		if out := client.output(); !strings.Contains(out, tt.want) {
			t.Errorf("%q: expected %q in %q", tt.line, tt.want, out)
		}
	}

	client.run(t, "create Login page")
	client.run(t, "name A")
	if out := client.output(); !strings.Contains(out, "at least 2 characters") {
		t.Errorf("expected name length error, got %q", out)
	}
	client.run(t, "name Alice")
	client.run(t, "vote 4")
	if out := client.output(); !strings.Contains(out, "invalid card") {
		t.Errorf("expected card error, got %q", out)
	}

	if !client.app.execute(context.Background(), "quit") {
		t.Error("quit should exit")
	}
}

type failingSubscription struct {
	changes chan realtime.Change
	states  chan realtime.ChannelState
}

func (s *failingSubscription) Changes() <-chan realtime.Change      { return s.changes }
func (s *failingSubscription) States() <-chan realtime.ChannelState { return s.states }
func (s *failingSubscription) Close() error                         { return nil }

type failingTransport struct{}

func (failingTransport) Subscribe(context.Context, uuid.UUID) (realtime.Subscription, error) {
	sub := &failingSubscription{
		changes: make(chan realtime.Change),
		states:  make(chan realtime.ChannelState, 1),
	}
	sub.states <- realtime.StateChannelError
	return sub, nil
}

func TestDegradedBanner(t *testing.T) {
	client := newTestClient(backend.NewMemory(clockwork.NewFakeClock(), nil), failingTransport{})
	defer client.app.stopFeed()

	client.run(t, "create Login page")
	waitFor(t, "banner", func() bool {
		client.app.outMu.Lock()
		defer client.app.outMu.Unlock()
		return strings.Contains(client.buf.String(), degradedBanner)
	})

	client.run(t, "show")
	if out := client.output(); !strings.Contains(out, "error]") {
		t.Errorf("expected error status in room header, got %q", out)
	}
}

func TestRenderGuideListsEveryCard(t *testing.T) {
	var buf bytes.Buffer
	renderGuide(&buf)
	out := buf.String()
	for _, c := range models.CardValues {
		if !strings.Contains(out, models.CardGuide[c].Title) {
			t.Errorf("guide misses %s", c)
		}
	}
}
