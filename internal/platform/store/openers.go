package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store/ch"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/store/pg"
)

// sleep is a seam for tests
var sleep = time.Sleep

// openPG opens the pool and waits for it to answer before publishing the
// adapter
func openPG(ctx context.Context, cfg Config, s *Store) (*pgAdapter, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL || cfg.PG.SlowQueryMs > 0 {
		tracer = pg.Tracer(s.Log, cfg.PG.LogSQL)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	err = pingWithBackoff(ctx, p.Pool, attempts, timeout)
	if err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

func pingWithBackoff(ctx context.Context, pool *pgxpool.Pool, attempts int, timeout time.Duration) error {
	backoff := 150 * time.Millisecond
	var last error
	for i := 0; i < attempts; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		last = pool.Ping(pctx)
		cancel()
		if last == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(backoff)
		backoff = min(backoff*2, 2*time.Second)
	}
	return fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, last)
}

func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	return ch.Open(ctx, ch.Config{URL: cfg.CH.URL, Role: cfg.AppName})
}
