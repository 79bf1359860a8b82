// Package notice is the side channel for transient, auto-dismissing messages
// raised when a background operation fails or succeeds.
package notice

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Type is the severity of a notice.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

// DefaultTTL is how long a notice stays active before it is dismissed.
const DefaultTTL = 4 * time.Second

// Notice is a single transient message.
type Notice struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Tray keeps the currently visible notices and fans new ones out to listeners.
type Tray struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu        sync.Mutex
	nextID    int64
	active    []Notice
	timers    map[int64]clockwork.Timer
	listeners map[int]func(Notice)
	nextSub   int
}

// NewTray creates a tray that dismisses notices after ttl.
func NewTray(clock clockwork.Clock, ttl time.Duration) *Tray {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tray{
		clock:     clock,
		ttl:       ttl,
		timers:    make(map[int64]clockwork.Timer),
		listeners: make(map[int]func(Notice)),
	}
}

// Push raises a notice and schedules its dismissal.
func (t *Tray) Push(message string, typ Type) Notice {
	t.mu.Lock()
	t.nextID++
	n := Notice{
		ID:        t.nextID,
		Message:   message,
		Type:      typ,
		CreatedAt: t.clock.Now(),
	}
	t.active = append(t.active, n)
	id := n.ID
	t.timers[id] = t.clock.AfterFunc(t.ttl, func() { t.Dismiss(id) })

	listeners := make([]func(Notice), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
	return n
}

// Dismiss removes a notice before its ttl expires. Unknown ids are ignored.
func (t *Tray) Dismiss(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	for i, n := range t.active {
		if n.ID == id {
			t.active = append(t.active[:i], t.active[i+1:]...)
			return
		}
	}
}

// Active returns the notices that have not been dismissed yet, oldest first.
func (t *Tray) Active() []Notice {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Notice, len(t.active))
	copy(out, t.active)
	return out
}

// Subscribe registers fn for every new notice and returns a function that removes it.
func (t *Tray) Subscribe(fn func(Notice)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	t.listeners[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Close stops every pending dismissal timer.
func (t *Tray) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
