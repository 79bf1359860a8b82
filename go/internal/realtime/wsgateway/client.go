package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// ClientConfig configures the websocket client transport.
type ClientConfig struct {
	// BaseURL is the gateway root, e.g. ws://localhost:8080.
	BaseURL    string
	AckTimeout time.Duration
	Dialer     *websocket.Dialer
}

func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:    baseURL,
		AckTimeout: 10 * time.Second,
		Dialer:     websocket.DefaultDialer,
	}
}

// Client is a realtime.Transport backed by the gateway.
type Client struct {
	cfg ClientConfig
}

var _ realtime.Transport = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}
}

// SessionURL builds the subscription URL for a session.
func SessionURL(baseURL string, sessionID uuid.UUID) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = SessionsPath
	u.RawQuery = url.Values{"session_id": []string{sessionID.String()}}.Encode()
	return u.String(), nil
}

// Subscribe connects in the background. Dial failures surface as a channel
// error state.
func (c *Client) Subscribe(ctx context.Context, sessionID uuid.UUID) (realtime.Subscription, error) {
	target, err := SessionURL(c.cfg.BaseURL, sessionID)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		conn *websocket.Conn
	)
	stream := realtime.NewStream(0, func() error {
		mu.Lock()
		defer mu.Unlock()
		if conn == nil {
			return nil
		}
		return conn.Close()
	})

	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.AckTimeout)
		defer cancel()

		ws, _, err := c.cfg.Dialer.DialContext(dialCtx, target, nil)
		if err != nil {
			log.Error().Err(err).Str("url", target).Msg("failed to dial gateway")
			if errors.Is(err, context.DeadlineExceeded) {
				stream.SetState(realtime.StateTimedOut)
			} else {
				stream.SetState(realtime.StateChannelError)
			}
			return
		}

		mu.Lock()
		select {
		case <-stream.Done():
			mu.Unlock()
			_ = ws.Close()
			return
		default:
		}
		conn = ws
		mu.Unlock()

		c.read(ws, stream)
	}()

	return stream, nil
}

func (c *Client) read(ws *websocket.Conn, stream *realtime.Stream) {
	_ = ws.SetReadDeadline(time.Now().Add(c.cfg.AckTimeout))

	acked := false
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-stream.Done():
				return
			default:
			}
			var netErr net.Error
			if !acked && errors.As(err, &netErr) && netErr.Timeout() {
				stream.SetState(realtime.StateTimedOut)
				return
			}
			log.Warn().Err(err).Msg("gateway connection closed")
			stream.SetState(realtime.StateClosed)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Error().Err(err).Msg("failed to decode gateway frame")
			continue
		}

		switch env.Type {
		case EnvelopeSubscribed:
			if !acked {
				acked = true
				_ = ws.SetReadDeadline(time.Time{})
				stream.SetState(realtime.StateSubscribed)
			}
		case EnvelopeChange:
			if env.Change == nil {
				continue
			}
			if err := env.Change.Validate(); err != nil {
				log.Error().Err(err).Msg("invalid change from gateway")
				continue
			}
			stream.Deliver(*env.Change)
		}
	}
}
