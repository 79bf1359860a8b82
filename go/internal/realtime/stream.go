package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultStreamBuffer is the number of undelivered changes a stream holds.
const DefaultStreamBuffer = 256

// Stream is the Subscription implementation shared by the transports. Its
// channels are never closed; consumers stop reading when they stop the stream.
type Stream struct {
	changes chan Change
	states  chan ChannelState
	done    chan struct{}

	closeOnce sync.Once
	onClose   func() error
	closeErr  error
}

// NewStream creates a stream. onClose runs once when the stream is closed.
func NewStream(buffer int, onClose func() error) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{
		changes: make(chan Change, buffer),
		states:  make(chan ChannelState, 8),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Deliver queues a change. A full buffer means the consumer fell behind and
// changes would be lost, so the stream reports a channel error instead.
func (s *Stream) Deliver(c Change) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.changes <- c:
		return true
	default:
		log.Warn().
			Str("session_id", c.SessionID.String()).
			Str("kind", string(c.Kind)).
			Msg("stream buffer full, dropping change")
		s.SetState(StateChannelError)
		return false
	}
}

// SetState reports a connection status change.
func (s *Stream) SetState(state ChannelState) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.states <- state:
	default:
		log.Warn().Str("state", string(state)).Msg("stream state buffer full, dropping state")
	}
}

func (s *Stream) Changes() <-chan Change {
	return s.changes
}

func (s *Stream) States() <-chan ChannelState {
	return s.states
}

// Done is closed once the stream is closed.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Close stops delivery and releases the underlying resources.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.closeErr = s.onClose()
		}
	})
	return s.closeErr
}
