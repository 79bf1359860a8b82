package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy           bool     `json:"healthy"`
	DatabaseConnected bool     `json:"database_connected"`
	NATSConnected     *bool    `json:"nats_connected,omitempty"`
	RelayActive       bool     `json:"relay_active"`
	Connections       int      `json:"connections"`
	ActiveSessions    int      `json:"active_sessions"`
	Errors            []string `json:"errors"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type runner interface {
	Running() bool
}

type natsState interface {
	Connected() bool
}

// HealthChecker reports whether the server can serve and relay changes.
type HealthChecker struct {
	db      pinger
	relay   runner
	nats    natsState // optional
	gateway func() (connections, sessions int)
}

func NewHealthChecker(db pinger, relay runner, nats natsState, gateway func() (int, int)) *HealthChecker {
	return &HealthChecker{db: db, relay: relay, nats: nats, gateway: gateway}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy: true,
		Errors:  []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.nats != nil {
		connected := h.nats.Connected()
		status.NATSConnected = &connected
		if !connected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	status.RelayActive = h.relay.Running()
	if !status.RelayActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not active")
	}

	if h.gateway != nil {
		status.Connections, status.ActiveSessions = h.gateway()
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}
