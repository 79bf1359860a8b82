package pgnotify

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/realtime"
)

// notification is the JSON document planpoker_notify_change() sends.
type notification struct {
	Table     string          `json:"table"`
	Op        string          `json:"op"`
	SessionID uuid.UUID       `json:"session_id"`
	Record    json.RawMessage `json:"record"`
}

// decode turns a NOTIFY payload into a change. ok is false for row changes
// that have no realtime meaning, such as session inserts.
func decode(extra string) (change realtime.Change, ok bool, err error) {
	var n notification
	if err := json.Unmarshal([]byte(extra), &n); err != nil {
		return realtime.Change{}, false, fmt.Errorf("unmarshal notification: %w", err)
	}

	switch n.Table {
	case "votes":
		switch n.Op {
		case "INSERT", "UPDATE":
			var v models.Vote
			if err := json.Unmarshal(n.Record, &v); err != nil {
				return realtime.Change{}, false, fmt.Errorf("unmarshal vote record: %w", err)
			}
			kind := realtime.KindVoteInserted
			if n.Op == "UPDATE" {
				kind = realtime.KindVoteUpdated
			}
			change = realtime.NewChange(kind, n.SessionID)
			change.Vote = &v
		case "DELETE":
			change = realtime.NewChange(realtime.KindVoteDeleted, n.SessionID)
		default:
			return realtime.Change{}, false, nil
		}
	case "sessions":
		switch n.Op {
		case "UPDATE":
			var s models.Session
			if err := json.Unmarshal(n.Record, &s); err != nil {
				return realtime.Change{}, false, fmt.Errorf("unmarshal session record: %w", err)
			}
			change = realtime.NewChange(realtime.KindSessionUpdated, n.SessionID)
			change.Session = &s
		case "DELETE":
			change = realtime.NewChange(realtime.KindSessionDeleted, n.SessionID)
		default:
			return realtime.Change{}, false, nil
		}
	default:
		return realtime.Change{}, false, fmt.Errorf("unexpected table %q", n.Table)
	}

	return change, true, change.Validate()
}
