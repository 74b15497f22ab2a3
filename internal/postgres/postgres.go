package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// NewPool opens a pgx connection pool and waits for the database to accept
// connections before returning.
func NewPool(ctx context.Context, dsn string, log *zap.SugaredLogger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			log.Infow("✅ Connected to database")
			return pool, nil
		}
		log.Infow("⏳ Waiting for database...", "attempt", i+1)
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

// Tx is the transaction handle passed through repositories so that the order
// insert and the stock decrements commit or roll back as one unit.
type Tx interface {
	Commit() error
	Rollback() error
}

// PgxTx implements Tx over a pgx transaction.
type PgxTx struct {
	tx pgx.Tx
}

func (t *PgxTx) Commit() error {
	return t.tx.Commit(context.Background())
}

func (t *PgxTx) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// Begin starts a transaction on the pool.
func Begin(ctx context.Context, pool *pgxpool.Pool) (Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &PgxTx{tx: tx}, nil
}

// Unwrap exposes the underlying pgx transaction to repository code.
func Unwrap(tx Tx) pgx.Tx {
	return tx.(*PgxTx).tx
}
