// Package realtime defines the row-level change notifications a session emits
// and the transports that carry them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// ChangeKind identifies which row changed and how.
type ChangeKind string

const (
	KindVoteInserted   ChangeKind = "vote.inserted"
	KindVoteUpdated    ChangeKind = "vote.updated"
	KindVoteDeleted    ChangeKind = "vote.deleted"
	KindSessionUpdated ChangeKind = "session.updated"
	KindSessionDeleted ChangeKind = "session.deleted"
)

// Change is one notification. Vote is set for inserts and updates of votes,
// Session for session updates. Deletions carry no row.
type Change struct {
	ID        string          `json:"id"`
	Kind      ChangeKind      `json:"kind"`
	SessionID uuid.UUID       `json:"session_id"`
	Vote      *models.Vote    `json:"vote,omitempty"`
	Session   *models.Session `json:"session,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChange stamps a change with a fresh id.
func NewChange(kind ChangeKind, sessionID uuid.UUID) Change {
	return Change{
		ID:        uuid.New().String(),
		Kind:      kind,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the payload required by the kind is present.
func (c Change) Validate() error {
	switch c.Kind {
	case KindVoteInserted, KindVoteUpdated:
		if c.Vote == nil {
			return fmt.Errorf("%s change without vote", c.Kind)
		}
	case KindSessionUpdated:
		if c.Session == nil {
			return fmt.Errorf("%s change without session", c.Kind)
		}
	case KindVoteDeleted, KindSessionDeleted:
	default:
		return fmt.Errorf("unknown change kind: %s", c.Kind)
	}
	return nil
}

// DecodeChange parses and validates a JSON encoded change.
func DecodeChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("unmarshal change: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Change{}, err
	}
	return c, nil
}

// ChannelState is the connection status signal a subscription reports.
type ChannelState string

const (
	StateSubscribed   ChannelState = "SUBSCRIBED"
	StateChannelError ChannelState = "CHANNEL_ERROR"
	StateTimedOut     ChannelState = "TIMED_OUT"
	StateClosed       ChannelState = "CLOSED"
)

// Subscription delivers the changes of one session until closed.
type Subscription interface {
	Changes() <-chan Change
	States() <-chan ChannelState
	Close() error
}

// Transport opens per-session subscriptions.
type Transport interface {
	Subscribe(ctx context.Context, sessionID uuid.UUID) (Subscription, error)
}

// Publisher pushes a change towards subscribers.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}
