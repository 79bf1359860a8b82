package pgnotify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Relay forwards every change notified on the channel to a publisher. The
// server uses it to feed the websocket gateway and NATS.
type Relay struct {
	listener  *pq.Listener
	publisher realtime.Publisher
	cfg       Config
	running   atomic.Bool
}

func NewRelay(publisher realtime.Publisher, cfg Config) (*Relay, error) {
	cfg = cfg.withDefaults()
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnectInterval,
		cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.Channel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.Channel).
		Msg("listening for notifications")

	return &Relay{
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

func (r *Relay) Start(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	log.Info().
		Str("channel", r.cfg.Channel).
		Dur("ping_interval", r.cfg.PingInterval).
		Msg("relay started")

	pingTicker := time.NewTicker(r.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutting down")
			return r.Stop()
		case note := <-r.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Running reports whether Start is forwarding notifications.
func (r *Relay) Running() bool {
	return r.running.Load()
}

func (r *Relay) Stop() error {
	return r.listener.Close()
}

func (r *Relay) handleNotification(ctx context.Context, extra string) error {
	change, ok, err := decode(extra)
	if err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}
	if !ok {
		return nil
	}
	return publishWithRetry(ctx, r.publisher, change, r.cfg.MaxRetries, r.cfg.RetryDelay)
}

// publishWithRetry attempts to publish a change with a linear backoff.
func publishWithRetry(ctx context.Context, publisher realtime.Publisher, change realtime.Change, maxRetries int, retryDelay time.Duration) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := publisher.Publish(ctx, change); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("change_id", change.ID).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("change_id", change.ID).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", maxRetries+1, lastErr)
}
