// Command client is a line-oriented planning poker client. It talks to the
// server's session API and follows the session over a realtime transport.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/planpoker/go/internal/backend/rpc"
	"github.com/mcdev12/planpoker/go/internal/dbconfig"
	"github.com/mcdev12/planpoker/go/internal/identity"
	"github.com/mcdev12/planpoker/go/internal/notice"
	"github.com/mcdev12/planpoker/go/internal/realtime"
	"github.com/mcdev12/planpoker/go/internal/realtime/natsbus"
	"github.com/mcdev12/planpoker/go/internal/realtime/pgnotify"
	"github.com/mcdev12/planpoker/go/internal/realtime/wsgateway"
	"github.com/mcdev12/planpoker/go/internal/room"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	// Logs go to stderr and stay quiet unless asked for
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if getEnv("LOG_LEVEL", "") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	apiURL := getEnv("PLANPOKER_API_URL", "http://localhost:8080")

	transport, closeTransport, err := setupTransport(getEnv("PLANPOKER_TRANSPORT", "ws"), apiURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup realtime transport")
	}
	defer closeTransport()

	ids, err := setupIdentity(getEnv("PLANPOKER_IDENTITY", "file"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup identity store")
	}

	tray := notice.NewTray(clockwork.NewRealClock(), notice.DefaultTTL)
	defer tray.Close()

	sessions := rpc.NewClient(nil, apiURL)
	store := room.New(sessions, ids, tray)
	a := newApp(store, sessions, transport, os.Stdout)
	tray.Subscribe(a.printNotice)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.printf("planpoker: type \"help\" for commands\n")
	lines := readLines(os.Stdin)
	for {
		a.prompt()
		select {
		case <-ctx.Done():
			a.stopFeed()
			return
		case line, ok := <-lines:
			if !ok {
				a.stopFeed()
				return
			}
			if a.execute(ctx, line) {
				return
			}
		}
	}
}

// readLines feeds stdin lines to a channel so the prompt loop can also watch
// for signals.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func setupTransport(kind, apiURL string) (realtime.Transport, func(), error) {
	switch kind {
	case "ws":
		return wsgateway.NewClient(wsgateway.DefaultClientConfig(apiURL)), func() {}, nil
	case "nats":
		cfg := natsbus.DefaultConfig()
		cfg.URL = getEnv("NATS_URL", cfg.URL)
		bus, err := natsbus.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { _ = bus.Close() }, nil
	case "pgnotify":
		cfg := pgnotify.DefaultConfig()
		cfg.DatabaseURL = dbconfig.NewConfigFromEnv().DSN()
		return pgnotify.NewTransport(cfg, clockwork.NewRealClock()), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q (want ws, nats or pgnotify)", kind)
}

func setupIdentity(kind string) (identity.Store, error) {
	switch kind {
	case "memory":
		return identity.NewMemoryStore(), nil
	case "redis":
		return identity.NewRedisStore(getEnv("REDIS_URL", "redis://localhost:6379/0"))
	case "file":
		path := getEnv("PLANPOKER_IDENTITY_FILE", "")
		if path == "" {
			var err error
			if path, err = identity.DefaultFilePath(); err != nil {
				return nil, err
			}
		}
		return identity.NewFileStore(path), nil
	}
	return nil, fmt.Errorf("unknown identity store %q (want file, redis or memory)", kind)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
