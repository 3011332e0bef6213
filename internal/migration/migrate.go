package migration

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Embed SQL files from the local migrations folder
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func NewGooseLogger(logger zerolog.Logger) goose.Logger {
	return gooseLogger{logger: logger.With().Str("component", "migrations").Logger()}
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(format, v...)
}

// RunMigrations brings the clurb schema up to date.
func RunMigrations(dbURL string, logger zerolog.Logger) error {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("connect to the database: %w", err)
	}
	defer db.Close()

	// Ensure the clurb schema exists before running migrations
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS clurb"); err != nil {
		return fmt.Errorf("create schema clurb: %w", err)
	}

	goose.SetBaseFS(embeddedMigrations)
	goose.SetTableName("clurb.goose_db_version")
	goose.SetLogger(NewGooseLogger(logger))
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}
