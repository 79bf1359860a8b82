package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/planpoker/go/internal/backend/postgres"
	"github.com/mcdev12/planpoker/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context, dbCfg dbconfig.Config) (*sql.DB, error) {
	database, err := postgres.Open(ctx, dbCfg.DSN())
	if err != nil {
		return nil, err
	}

	if err := postgres.ApplyMigrations(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info().Str("database", dbCfg.Redacted()).Msg("connected to database")
	return database, nil
}
