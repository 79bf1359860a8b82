package wsgateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Service is the websocket gateway: a realtime.Publisher on the server side
// that broadcasts to the clients of each session.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

var _ realtime.Publisher = (*Service)(nil)

func NewService(config ConnectionConfig) *Service {
	cm := NewConnectionManager(config)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}
}

// Start runs the broadcast loop until ctx is done
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting websocket gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("websocket gateway stopped")
}

func (s *Service) Publish(ctx context.Context, change realtime.Change) error {
	return s.connectionManager.Publish(ctx, change)
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("websocket gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
