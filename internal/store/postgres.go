package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/db"
	"github.com/sells-group/salestax/internal/model"
)

// PostgresStore implements Store using pgxpool. Decimals are stored as NUMERIC.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	text:        func(col string) string { return col + "::text" },
	num:         func(col string) string { return col },
	like:        "ILIKE",
}

// pgNumeric binds a decimal as NUMERIC without a float round trip.
func pgNumeric(d decimal.Decimal) any {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS schedule_records (
	position          INTEGER PRIMARY KEY,
	region            TEXT NOT NULL,
	jurisdiction      TEXT NOT NULL,
	sub_jurisdiction  TEXT NOT NULL DEFAULT '0',
	reporting_code    TEXT NOT NULL DEFAULT '',
	special_districts JSONB NOT NULL DEFAULT '[]',
	composite_rate    NUMERIC(12,10) NOT NULL,
	region_rate       NUMERIC(12,10) NOT NULL,
	county_rate       NUMERIC(12,10) NOT NULL DEFAULT 0,
	city_rate         NUMERIC(12,10) NOT NULL DEFAULT 0,
	special_rates     JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS orders (
	id                TEXT PRIMARY KEY,
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	subtotal          NUMERIC(14,2) NOT NULL,
	ordered_at        TIMESTAMPTZ NOT NULL,
	region            TEXT NOT NULL DEFAULT '',
	jurisdiction      TEXT NOT NULL DEFAULT '',
	sub_jurisdiction  TEXT NOT NULL DEFAULT '',
	reporting_code    TEXT NOT NULL DEFAULT '',
	region_rate       NUMERIC(12,10) NOT NULL DEFAULT 0,
	county_rate       NUMERIC(12,10) NOT NULL DEFAULT 0,
	city_rate         NUMERIC(12,10) NOT NULL DEFAULT 0,
	special_districts JSONB NOT NULL DEFAULT '[]',
	special_rates_sum NUMERIC(12,10) NOT NULL DEFAULT 0,
	composite_rate    NUMERIC(12,10) NOT NULL DEFAULT 0,
	tax_amount        NUMERIC(14,2) NOT NULL DEFAULT 0,
	total_amount      NUMERIC(14,2) NOT NULL DEFAULT 0,
	degraded          BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_ordered_at ON orders(ordered_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_jurisdiction ON orders(jurisdiction);
CREATE INDEX IF NOT EXISTS idx_orders_lat_lon ON orders(latitude, longitude);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ReplaceSchedule swaps the stored schedule in one transaction using COPY.
func (s *PostgresStore) ReplaceSchedule(ctx context.Context, records []model.ScheduleRecord) error {
	rows := make([][]any, 0, len(records))
	for i, r := range records {
		row, err := scheduleRow(i, r, pgNumeric)
		if err != nil {
			return eris.Wrap(err, "postgres: encode schedule record")
		}
		rows = append(rows, row)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace schedule")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM schedule_records`); err != nil {
		return eris.Wrap(err, "postgres: clear schedule")
	}
	n, err := db.CopyFrom(ctx, tx, "schedule_records", splitColumns(scheduleColumns), rows)
	if err != nil {
		return eris.Wrap(err, "postgres: copy schedule")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit replace schedule")
	}
	zap.L().Debug("postgres: schedule replaced", zap.Int64("records", n))
	return nil
}

// LoadSchedule returns the stored schedule in insertion order.
func (s *PostgresStore) LoadSchedule(ctx context.Context) ([]model.ScheduleRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT position, region, jurisdiction, sub_jurisdiction, reporting_code,
		special_districts::text, composite_rate::text, region_rate::text, county_rate::text, city_rate::text,
		special_rates::text FROM schedule_records ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load schedule")
	}
	defer rows.Close()

	var out []model.ScheduleRecord
	for rows.Next() {
		r, err := scanScheduleRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan schedule record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load schedule iterate")
}

// CreateOrder inserts one order.
func (s *PostgresStore) CreateOrder(ctx context.Context, o *model.Order) error {
	row, err := orderRow(o, pgNumeric)
	if err != nil {
		return eris.Wrap(err, "postgres: encode order")
	}
	_, err = s.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO orders (%s) VALUES (%s)`,
			joinColumns(orderColumns), postgresDialect.placeholders(1, len(orderColumns))),
		row...,
	)
	return eris.Wrapf(err, "postgres: insert order %s", o.ID)
}

// CreateOrders bulk-inserts orders with COPY.
func (s *PostgresStore) CreateOrders(ctx context.Context, orders []model.Order) (int, error) {
	rows := make([][]any, 0, len(orders))
	for i := range orders {
		row, err := orderRow(&orders[i], pgNumeric)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: encode order")
		}
		rows = append(rows, row)
	}
	n, err := db.CopyFrom(ctx, s.pool, "orders", orderColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: create orders")
	}
	return int(n), nil
}

// GetOrder returns one order or ErrNotFound.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresDialect.orderSelect()+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: order %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get order %s", id)
	}
	return o, nil
}

// ListOrders returns one page of orders, newest first.
func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	f := filter.Normalize()
	where, args := postgresDialect.where(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "postgres: count orders")
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY ordered_at DESC, id LIMIT $%d OFFSET $%d`,
		postgresDialect.orderSelect(), where, len(args)+1, len(args)+2)
	rows, err := s.pool.Query(ctx, query, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list orders")
	}
	defer rows.Close()

	var items []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan order")
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list orders iterate")
	}
	return newOrderPage(items, total, f), nil
}
