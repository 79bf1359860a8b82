package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type fakeRunner bool

func (r fakeRunner) Running() bool { return bool(r) }

type fakeNATS bool

func (n fakeNATS) Connected() bool { return bool(n) }

func TestHealth(t *testing.T) {
	gateway := func() (int, int) { return 3, 2 }

	tests := []struct {
		name       string
		checker    *HealthChecker
		wantStatus int
		wantErrors int
	}{
		{
			name:       "healthy without NATS",
			checker:    NewHealthChecker(fakePinger{}, fakeRunner(true), nil, gateway),
			wantStatus: http.StatusOK,
		},
		{
			name:       "healthy with NATS",
			checker:    NewHealthChecker(fakePinger{}, fakeRunner(true), fakeNATS(true), gateway),
			wantStatus: http.StatusOK,
		},
		{
			name:       "database down",
			checker:    NewHealthChecker(fakePinger{err: errors.New("refused")}, fakeRunner(true), nil, gateway),
			wantStatus: http.StatusServiceUnavailable,
			wantErrors: 1,
		},
		{
			name:       "relay stopped and NATS down",
			checker:    NewHealthChecker(fakePinger{}, fakeRunner(false), fakeNATS(false), gateway),
			wantStatus: http.StatusServiceUnavailable,
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if len(status.Errors) != tt.wantErrors {
				t.Errorf("expected %d errors, got %v", tt.wantErrors, status.Errors)
			}
			if status.Connections != 3 || status.ActiveSessions != 2 {
				t.Errorf("unexpected gateway stats: %+v", status)
			}
		})
	}
}
