package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// NewDB creates a new database connection pool
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "Database").Logger()
	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations creates the audit tables
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id BIGSERIAL PRIMARY KEY,
			trace_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			state_hash TEXT NOT NULL,
			event_count INT NOT NULL,
			facts JSONB NOT NULL,
			events JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_symbol_time
			ON observations (symbol, observed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS validations (
			id BIGSERIAL PRIMARY KEY,
			trace_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			proposed_decision TEXT NOT NULL,
			final_decision TEXT NOT NULL,
			approved BOOLEAN NOT NULL,
			original_confidence DOUBLE PRECISION NOT NULL,
			adjusted_confidence DOUBLE PRECISION NOT NULL,
			veto_reasons JSONB NOT NULL,
			warnings JSONB NOT NULL,
			confluence_count INT NOT NULL,
			reasoning TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validations_symbol_time
			ON validations (symbol, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS phase_transitions (
			id BIGSERIAL PRIMARY KEY,
			symbol TEXT NOT NULL,
			from_phase TEXT NOT NULL,
			to_phase TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL,
			overridden BOOLEAN NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_phase_transitions_symbol_time
			ON phase_transitions (symbol, occurred_at DESC)`,
	}

	for i, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	db.logger.Info().Int("statements", len(migrations)).Msg("migrations complete")
	return nil
}
