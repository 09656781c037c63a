// Package postgres opens the lib/pq pool behind API keys and the bulk
// reindex source.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rtrie/pkg/resilience"
)

type Client struct {
	DB *sql.DB
}

// New opens the pool and waits for the server, retrying the first ping a
// few times so a service started alongside its database does not exit
// early.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	c := &Client{DB: db}
	err = resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 250 * time.Millisecond,
	}, func() error { return c.Ping(ctx) })
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Default().With("component", "postgres").Info("connected",
		"host", cfg.Host,
		"database", cfg.Database,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return c, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// ReadOnlyTx runs fn in a read-only REPEATABLE READ transaction, so a long
// scan sees one snapshot. The transaction is always rolled back.
func (c *Client) ReadOnlyTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("beginning read-only transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}
