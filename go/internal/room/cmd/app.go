package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/backend"
	"github.com/mcdev12/planpoker/go/internal/feed"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/notice"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/room"
	"github.com/rs/zerolog/log"
)

var errModeratorOnly = errors.New("only the moderator can do that")

const usage = `commands:
  create <task>   start a session
  join <id>       join a session
  name <name>     choose your display name
  vote <card>     cast a card (1 2 3 5 8 13 21 ?)
  reveal          reveal all cards (moderator)
  round [task]    start a new round (moderator)
  rename <name>   change your display name
  close           close the session for everyone (moderator)
  show            print the room
  guide           explain the cards
  quit            leave
`

// app binds the command line to one room store and its feed.
type app struct {
	store     *room.Store
	fetcher   feed.VotesFetcher
	transport realtime.Transport
	feedOpts  []feed.Option

	outMu sync.Mutex
	out   io.Writer

	feedMu     sync.Mutex
	feed       *feed.Adapter
	cancelFeed context.CancelFunc
	feedDone   *sync.WaitGroup
}

func newApp(store *room.Store, fetcher feed.VotesFetcher, transport realtime.Transport, out io.Writer, opts ...feed.Option) *app {
	return &app{
		store:     store,
		fetcher:   fetcher,
		transport: transport,
		feedOpts:  opts,
		out:       out,
	}
}

func (a *app) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) prompt() {
	a.printf("> ")
}

func (a *app) printNotice(n notice.Notice) {
	a.printf("[%s] %s\n", n.Type, n.Message)
}

// execute runs one command line and reports whether the client should exit.
func (a *app) execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(cmd) {
	case "":
	case "help":
		a.printf("%s", usage)
	case "create":
		err = a.create(ctx, arg)
	case "join":
		err = a.join(ctx, arg)
	case "name":
		err = a.store.SetIdentity(ctx, arg)
		if err == nil {
			a.printf("You are %s.\n", a.store.Snapshot().UserName)
		}
	case "vote":
		err = a.vote(ctx, arg)
	case "reveal":
		if err = a.moderatorOnly(); err == nil {
			err = a.store.Reveal(ctx)
		}
	case "round":
		if err = a.moderatorOnly(); err == nil {
			var override *string
			if arg != "" {
				override = &arg
			}
			err = a.store.StartNewRound(ctx, override)
		}
	case "rename":
		err = a.store.Rename(ctx, arg)
		if err == nil {
			a.printf("You are now %s.\n", a.store.Snapshot().UserName)
		}
	case "close":
		if err = a.moderatorOnly(); err == nil {
			if err = a.store.CloseSession(ctx); err == nil {
				a.stopFeed()
				a.printf("Session closed.\n")
			}
		}
	case "show":
		a.render()
	case "guide":
		a.outMu.Lock()
		renderGuide(a.out)
		a.outMu.Unlock()
	case "quit", "exit":
		a.stopFeed()
		return true
	default:
		a.printf("unknown command %q, type \"help\"\n", cmd)
	}

	if err != nil {
		a.printf("error: %s\n", describe(err))
	}
	return false
}

func (a *app) create(ctx context.Context, task string) error {
	id, err := a.store.Create(ctx, task)
	if err != nil {
		return err
	}
	a.startFeed(id)
	a.printf("Created session %s\n", id)
	return nil
}

func (a *app) join(ctx context.Context, raw string) error {
	if err := a.store.JoinByID(ctx, raw); err != nil {
		return err
	}
	snap := a.store.Snapshot()
	a.startFeed(snap.SessionID)
	if snap.UserName != "" {
		a.printf("Welcome back, %s.\n", snap.UserName)
	} else {
		a.printf("Joined %q. Choose a name with: name <name>\n", snap.TaskName)
	}
	return nil
}

func (a *app) vote(ctx context.Context, raw string) error {
	value, err := models.ParseCardValue(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", room.ErrInvalidCard, err)
	}
	return a.store.CastVote(ctx, value)
}

func (a *app) moderatorOnly() error {
	snap := a.store.Snapshot()
	if snap.HasSession() && !snap.Closed && !snap.IsModerator() {
		return errModeratorOnly
	}
	return nil
}

// status is the running feed's status, connecting when there is none.
func (a *app) status() feed.Status {
	a.feedMu.Lock()
	defer a.feedMu.Unlock()
	if a.feed == nil {
		return feed.StatusConnecting
	}
	return a.feed.Status()
}

func (a *app) render() {
	status := a.status()

	a.outMu.Lock()
	defer a.outMu.Unlock()
	renderRoom(a.out, a.store.Snapshot(), status)
}

// startFeed replaces the running feed with one for sessionID.
func (a *app) startFeed(sessionID uuid.UUID) {
	a.stopFeed()

	ctx, cancel := context.WithCancel(context.Background())
	adapter := feed.New(a.transport, a.fetcher, sessionID, a.feedOpts...)
	adapter.OnStatus(func(s feed.Status) {
		if s == feed.StatusError {
			a.printf("%s\n", degradedBanner)
		}
	})

	done := &sync.WaitGroup{}
	done.Add(2)
	go func() {
		defer done.Done()
		if err := adapter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("feed stopped")
		}
	}()
	go func() {
		defer done.Done()
		_ = a.store.Run(ctx, adapter.Events())
	}()

	a.feedMu.Lock()
	a.feed = adapter
	a.cancelFeed = cancel
	a.feedDone = done
	a.feedMu.Unlock()
}

func (a *app) stopFeed() {
	a.feedMu.Lock()
	cancel, done := a.cancelFeed, a.feedDone
	a.feed, a.cancelFeed, a.feedDone = nil, nil, nil
	a.feedMu.Unlock()

	if cancel != nil {
		cancel()
		done.Wait()
	}
}

// describe turns store errors into the messages shown at the prompt.
func describe(err error) string {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return "session not found"
	case errors.Is(err, backend.ErrNameTaken):
		return "that name is already taken in this session"
	case errors.Is(err, room.ErrNoActiveContext):
		return "create or join a session and choose a name first"
	case errors.Is(err, room.ErrSessionClosed):
		return "this session has been closed"
	case errors.Is(err, room.ErrInvalidName):
		return fmt.Sprintf("names need at least %d characters", models.MinDisplayNameLength)
	}
	return err.Error()
}
