package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skuforge/demandcast/internal/api"
)

// PostgresStore keeps one row per observation.
//
// Schema:
//
//	CREATE TABLE sales_observations (
//	  id BIGSERIAL PRIMARY KEY,
//	  sku VARCHAR(64) NOT NULL,
//	  observed_on DATE NOT NULL,
//	  sold_quantity INT NOT NULL,
//	  ordered_quantity INT NOT NULL,
//	  unit_price DOUBLE PRECISION NOT NULL,
//	  unit_cost DOUBLE PRECISION NOT NULL
//	);
//	CREATE INDEX idx_sales_observations_sku ON sales_observations(sku, observed_on);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and verifies the connection.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Append(ctx context.Context, observations []api.SalesObservation) error {
	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(
			`INSERT INTO sales_observations (sku, observed_on, sold_quantity, ordered_quantity, unit_price, unit_cost)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			obs.SKU, obs.Date, obs.SoldQuantity, obs.OrderedQuantity, obs.UnitPrice, obs.UnitCost,
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range observations {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres insert failed: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, sku string) ([]api.SalesObservation, error) {
	query := `
		SELECT sku, observed_on, sold_quantity, ordered_quantity, unit_price, unit_cost
		FROM sales_observations
		WHERE ($1 = '' OR sku = $1)
		ORDER BY observed_on, sku
	`

	rows, err := p.pool.Query(ctx, query, sku)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	var out []api.SalesObservation
	for rows.Next() {
		var obs api.SalesObservation
		if err := rows.Scan(&obs.SKU, &obs.Date, &obs.SoldQuantity, &obs.OrderedQuantity, &obs.UnitPrice, &obs.UnitCost); err != nil {
			return nil, fmt.Errorf("postgres scan failed: %w", err)
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SKUs(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT sku FROM sales_observations ORDER BY sku`)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	var skus []string
	for rows.Next() {
		var sku string
		if err := rows.Scan(&sku); err != nil {
			return nil, fmt.Errorf("postgres scan failed: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
