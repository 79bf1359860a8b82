// Package natsbus carries session changes over NATS subjects of the form
// <prefix>.<session id>.<change kind>.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	AckTimeout    time.Duration // How long the server may take to confirm a subscription
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "planpoker.sessions",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		AckTimeout:    5 * time.Second,
	}
}

// Bus is both a realtime.Publisher and a realtime.Transport.
type Bus struct {
	nc     *nats.Conn
	config Config

	mu      sync.Mutex
	streams map[*realtime.Stream]struct{}
}

var (
	_ realtime.Publisher = (*Bus)(nil)
	_ realtime.Transport = (*Bus)(nil)
)

// Connect dials NATS. Disconnects degrade every open subscription.
func Connect(cfg Config) (*Bus, error) {
	b := &Bus{
		config:  cfg,
		streams: make(map[*realtime.Stream]struct{}),
	}

	opts := []nats.Option{
		nats.Name("planpoker"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
			b.broadcastState(realtime.StateChannelError)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
			b.broadcastState(realtime.StateClosed)
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	b.nc = nc
	return b, nil
}

// Subject returns the subject a change is published on.
func Subject(prefix string, sessionID uuid.UUID, kind realtime.ChangeKind) string {
	return fmt.Sprintf("%s.%s.%s", prefix, sessionID, kind)
}

// SessionFilter matches every change of one session.
func SessionFilter(prefix string, sessionID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.>", prefix, sessionID)
}

// encodeMsg builds the NATS message for a change.
func encodeMsg(prefix string, change realtime.Change) (*nats.Msg, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("marshal change: %w", err)
	}
	return &nats.Msg{
		Subject: Subject(prefix, change.SessionID, change.Kind),
		Data:    data,
		Header: nats.Header{
			"Change-Kind": []string{string(change.Kind)},
			"Session-ID":  []string{change.SessionID.String()},
			"Change-ID":   []string{change.ID},
		},
	}, nil
}

func (b *Bus) Publish(ctx context.Context, change realtime.Change) error {
	msg, err := encodeMsg(b.config.SubjectPrefix, change)
	if err != nil {
		return err
	}
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("change_id", change.ID).
		Msg("published to NATS")
	return nil
}

// Subscribe listens on the session's subjects and confirms the interest with
// a server round trip before reporting the subscription as live.
func (b *Bus) Subscribe(ctx context.Context, sessionID uuid.UUID) (realtime.Subscription, error) {
	var (
		sub    *nats.Subscription
		stream *realtime.Stream
	)
	stream = realtime.NewStream(0, func() error {
		b.untrack(stream)
		return sub.Unsubscribe()
	})

	sub, err := b.nc.Subscribe(SessionFilter(b.config.SubjectPrefix, sessionID), func(msg *nats.Msg) {
		change, err := realtime.DecodeChange(msg.Data)
		if err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to decode change")
			return
		}
		if change.SessionID != sessionID {
			return
		}
		stream.Deliver(change)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to NATS: %w", err)
	}
	b.track(stream)

	err = b.nc.FlushTimeout(b.config.AckTimeout)
	switch {
	case err == nil:
		stream.SetState(realtime.StateSubscribed)
	case errors.Is(err, nats.ErrTimeout):
		stream.SetState(realtime.StateTimedOut)
	default:
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to confirm subscription")
		stream.SetState(realtime.StateChannelError)
	}
	return stream, nil
}

// Connected reports whether the connection is currently up.
func (b *Bus) Connected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

func (b *Bus) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}

func (b *Bus) track(s *realtime.Stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams[s] = struct{}{}
}

func (b *Bus) untrack(s *realtime.Stream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.streams, s)
}

func (b *Bus) broadcastState(state realtime.ChannelState) {
	b.mu.Lock()
	targets := make([]*realtime.Stream, 0, len(b.streams))
	for s := range b.streams {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.SetState(state)
	}
}
