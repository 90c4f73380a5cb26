package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/gallerybot/core/logger"
)

const (
	// readyWait bounds how long startup waits for a store that is still booting.
	readyWait     = 20 * time.Second
	readyInterval = time.Second
	pingTimeout   = 5 * time.Second
)

// Connect opens the PostgreSQL pool and waits until the server answers a ping.
func Connect(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(max(cfg.MaxConnections/2, 1))
	db.SetConnMaxIdleTime(5 * time.Minute)

	start := time.Now()
	pings, err := waitReady(db.PingContext, readyWait, readyInterval)
	attrs := []any{
		slog.String("event", "db.connect"),
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("attempts", pings),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		_ = db.Close()
		logger.DB.Error("db connect failed", append(attrs, logger.Err(err))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	logger.DB.Info("db connected", append(attrs, slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// waitReady calls ping until it succeeds or wait has passed, and returns the
// number of pings made together with the last error.
func waitReady(ping func(context.Context) error, wait, interval time.Duration) (int, error) {
	deadline := time.Now().Add(wait)
	for n := 1; ; n++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := ping(ctx)
		cancel()
		if err == nil {
			return n, nil
		}
		if time.Now().Add(interval).After(deadline) {
			return n, err
		}
		time.Sleep(interval)
	}
}
