package main

import (
	"database/sql"
	"fmt"

	"github.com/mcdev12/planpoker/go/internal/backend/postgres"
	"github.com/mcdev12/planpoker/go/internal/backend/rpc"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/realtime/natsbus"
	"github.com/mcdev12/planpoker/go/internal/realtime/pgnotify"
	"github.com/mcdev12/planpoker/go/internal/realtime/wsgateway"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Sessions *rpc.Service
	Gateway  *wsgateway.Service
	Relay    *pgnotify.Relay
	Bus      *natsbus.Bus // nil unless NATS is configured
}

func setupServices(database *sql.DB, databaseURL string, config *Config) (*Services, error) {
	// Postgres store → Connect service
	store := postgres.NewStore(database)
	sessions := rpc.NewService(store)

	// Notify relay → websocket gateway (+ NATS)
	gateway := wsgateway.NewService(config.gatewayConfig())
	publishers := realtime.Fanout{gateway}

	var bus *natsbus.Bus
	if config.NATS.URL != "" {
		var err error
		bus, err = natsbus.Connect(config.natsConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publishers = append(publishers, bus)
		log.Info().Str("nats_url", config.NATS.URL).Msg("publishing changes to NATS")
	}

	relay, err := pgnotify.NewRelay(publishers, config.notifyConfig(databaseURL))
	if err != nil {
		if bus != nil {
			_ = bus.Close()
		}
		return nil, fmt.Errorf("failed to start notify relay: %w", err)
	}

	return &Services{
		Sessions: sessions,
		Gateway:  gateway,
		Relay:    relay,
		Bus:      bus,
	}, nil
}
