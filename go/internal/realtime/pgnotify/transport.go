package pgnotify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Transport opens one LISTEN connection per subscription and keeps the
// changes that belong to the subscribed session.
type Transport struct {
	cfg   Config
	clock clockwork.Clock
}

var _ realtime.Transport = (*Transport)(nil)

func NewTransport(cfg Config, clock clockwork.Clock) *Transport {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Transport{cfg: cfg.withDefaults(), clock: clock}
}

func (t *Transport) Subscribe(ctx context.Context, sessionID uuid.UUID) (realtime.Subscription, error) {
	if t.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("pgnotify: database url is required")
	}

	var listener *pq.Listener
	stream := realtime.NewStream(0, func() error { return listener.Close() })
	listener = pq.NewListener(
		t.cfg.DatabaseURL,
		t.cfg.MinReconnectInterval,
		t.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID.String()).Msg("listener event")
			}
			if ev == pq.ListenerEventDisconnected {
				stream.SetState(realtime.StateChannelError)
			}
		},
	)

	go t.run(sessionID, listener, stream)
	return stream, nil
}

func (t *Transport) run(sessionID uuid.UUID, listener *pq.Listener, stream *realtime.Stream) {
	acked := make(chan error, 1)
	go func() {
		acked <- listener.Listen(t.cfg.Channel)
	}()

	select {
	case err := <-acked:
		if err != nil {
			log.Error().Err(err).Str("channel", t.cfg.Channel).Msg("failed to listen to channel")
			stream.SetState(realtime.StateChannelError)
			return
		}
		stream.SetState(realtime.StateSubscribed)
	case <-t.clock.After(t.cfg.AckTimeout):
		stream.SetState(realtime.StateTimedOut)
		return
	case <-stream.Done():
		return
	}

	log.Info().
		Str("channel", t.cfg.Channel).
		Str("session_id", sessionID.String()).
		Msg("listening for session changes")

	ping := t.clock.NewTicker(t.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-stream.Done():
			return
		case note, ok := <-listener.Notify:
			if !ok {
				stream.SetState(realtime.StateClosed)
				return
			}
			if note == nil {
				// reconnected; notifications sent while down are lost
				stream.SetState(realtime.StateChannelError)
				continue
			}
			change, keep, err := decode(note.Extra)
			if err != nil {
				log.Error().Err(err).Msg("failed to decode notification")
				continue
			}
			if keep && change.SessionID == sessionID {
				stream.Deliver(change)
			}
		case <-ping.Chan():
			if err := listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}
