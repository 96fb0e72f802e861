package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"raccoon/internal/logger"
)

type DBConfig struct {
	URL        string
	Retries    int
	RetryDelay time.Duration
}

// Open connects to PostgreSQL and pings it until it answers or the retry
// budget is spent. The database container is often not ready at boot.
func Open(ctx context.Context, cfg DBConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := WaitReady(ctx, conn, cfg.Retries, cfg.RetryDelay); err != nil {
		conn.Close()
		return nil, err
	}
	logger.InfoLogger.Info("DB connected successfully")
	return conn, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func WaitReady(ctx context.Context, db pinger, retries int, delay time.Duration) error {
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		logger.WarnLogger.WithField("attempt", attempt).Warnf("Database not ready: %v", err)
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", retries, err)
}

const schema = `
CREATE TABLE IF NOT EXISTS reservations (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	phone        TEXT NOT NULL,
	address      TEXT NOT NULL,
	info         TEXT,
	flat_type    TEXT NOT NULL,
	subscription TEXT NOT NULL,
	plan         TEXT,
	activities   TEXT[] NOT NULL DEFAULT '{}',
	total_price  INTEGER NOT NULL CHECK (total_price >= 0),
	date         DATE NOT NULL,
	time         TIME NOT NULL,
	service_type TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	notes        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reservations_created_at_idx ON reservations (created_at DESC);
CREATE INDEX IF NOT EXISTS reservations_status_idx ON reservations (status);
`

// EnsureSchema creates the reservations table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction. Any error or panic rolls back.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.ErrorLogger.Errorf("rollback failed: %v, original error: %v", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
