package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/ledgernotes/internal/apperr"
)

const pingTimeout = 5 * time.Second

// Postgres reads the indexer's table directly.
type Postgres struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgres opens a pool on the indexer database. An unreachable database
// is only logged: lookups fail until it comes back and the resolver falls
// back to the ledger meanwhile.
func NewPostgres(ctx context.Context, databaseURL string, schema Schema, logger *slog.Logger) (*Postgres, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("indexer: parse database url: %w", errors.Join(err, apperr.ErrConfig))
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("indexer: connect: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("indexer: database unreachable", slog.String("error", err.Error()))
	}
	return &Postgres{pool: pool, query: buildSQL(schema)}, nil
}

func buildSQL(s Schema) string {
	return fmt.Sprintf("SELECT %s::text FROM %s WHERE %s = $1 LIMIT 1",
		pgx.Identifier{s.AddressField}.Sanitize(),
		pgx.Identifier{s.Table}.Sanitize(),
		pgx.Identifier{s.UserField}.Sanitize())
}

// LookupAddress returns the stored address for userID, or nil when there is no row.
func (p *Postgres) LookupAddress(ctx context.Context, userID string) (any, error) {
	var raw *string
	err := p.pool.QueryRow(ctx, p.query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("indexer: query: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	return decodeColumn(*raw), nil
}

// decodeColumn turns a text-cast column into the raw address form. JSON
// columns hold either a quoted string or an optional wrapper.
func decodeColumn(s string) any {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, `"`) {
		var v any
		if err := json.Unmarshal([]byte(t), &v); err == nil {
			return v
		}
	}
	return t
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
