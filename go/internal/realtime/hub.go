package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Hub is an in-process Transport and Publisher. It backs the in-memory backend
// and lets one process host several clients of the same room.
type Hub struct {
	mu      sync.RWMutex
	streams map[uuid.UUID]map[*Stream]struct{}
	buffer  int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		streams: make(map[uuid.UUID]map[*Stream]struct{}),
		buffer:  DefaultStreamBuffer,
	}
}

// Subscribe registers a stream for sessionID. It is acknowledged immediately.
func (h *Hub) Subscribe(_ context.Context, sessionID uuid.UUID) (Subscription, error) {
	var stream *Stream
	stream = NewStream(h.buffer, func() error {
		h.remove(sessionID, stream)
		return nil
	})

	h.mu.Lock()
	if h.streams[sessionID] == nil {
		h.streams[sessionID] = make(map[*Stream]struct{})
	}
	h.streams[sessionID][stream] = struct{}{}
	h.mu.Unlock()

	stream.SetState(StateSubscribed)
	return stream, nil
}

// Publish delivers a change to every stream of its session.
func (h *Hub) Publish(_ context.Context, change Change) error {
	h.mu.RLock()
	targets := make([]*Stream, 0, len(h.streams[change.SessionID]))
	for s := range h.streams[change.SessionID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Deliver(change)
	}
	return nil
}

// Subscribers returns the number of open streams for a session.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[sessionID])
}

func (h *Hub) remove(sessionID uuid.UUID, stream *Stream) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.streams[sessionID]; ok {
		delete(set, stream)
		if len(set) == 0 {
			delete(h.streams, sessionID)
		}
	}
}

// Fanout publishes every change to several publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, change Change) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
