package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/salestax/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Decimals are stored as TEXT.
type SQLiteStore struct {
	db *sql.DB
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	text:        func(col string) string { return col },
	num:         func(col string) string { return "CAST(" + col + " AS REAL)" },
	like:        "LIKE",
}

func sqliteNum(d decimal.Decimal) any { return d.String() }

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS schedule_records (
	position          INTEGER PRIMARY KEY,
	region            TEXT NOT NULL,
	jurisdiction      TEXT NOT NULL,
	sub_jurisdiction  TEXT NOT NULL DEFAULT '0',
	reporting_code    TEXT NOT NULL DEFAULT '',
	special_districts TEXT NOT NULL DEFAULT '[]',
	composite_rate    TEXT NOT NULL,
	region_rate       TEXT NOT NULL,
	county_rate       TEXT NOT NULL DEFAULT '0',
	city_rate         TEXT NOT NULL DEFAULT '0',
	special_rates     TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS orders (
	id                TEXT PRIMARY KEY,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	subtotal          TEXT NOT NULL,
	ordered_at        DATETIME NOT NULL,
	region            TEXT NOT NULL DEFAULT '',
	jurisdiction      TEXT NOT NULL DEFAULT '',
	sub_jurisdiction  TEXT NOT NULL DEFAULT '',
	reporting_code    TEXT NOT NULL DEFAULT '',
	region_rate       TEXT NOT NULL DEFAULT '0',
	county_rate       TEXT NOT NULL DEFAULT '0',
	city_rate         TEXT NOT NULL DEFAULT '0',
	special_districts TEXT NOT NULL DEFAULT '[]',
	special_rates_sum TEXT NOT NULL DEFAULT '0',
	composite_rate    TEXT NOT NULL DEFAULT '0',
	tax_amount        TEXT NOT NULL DEFAULT '0',
	total_amount      TEXT NOT NULL DEFAULT '0',
	degraded          INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_orders_ordered_at ON orders(ordered_at);
CREATE INDEX IF NOT EXISTS idx_orders_jurisdiction ON orders(jurisdiction);
CREATE INDEX IF NOT EXISTS idx_orders_lat_lon ON orders(latitude, longitude);
`

// Migrate creates the tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceSchedule swaps the stored schedule in one transaction.
func (s *SQLiteStore) ReplaceSchedule(ctx context.Context, records []model.ScheduleRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace schedule")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_records`); err != nil {
		return eris.Wrap(err, "sqlite: clear schedule")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO schedule_records (`+scheduleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare schedule insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range records {
		row, err := scheduleRow(i, r, sqliteNum)
		if err != nil {
			return eris.Wrap(err, "sqlite: encode schedule record")
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert schedule record %s/%s", r.Jurisdiction, r.SubJurisdiction)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace schedule")
}

// LoadSchedule returns the stored schedule in insertion order.
func (s *SQLiteStore) LoadSchedule(ctx context.Context) ([]model.ScheduleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedule_records ORDER BY position`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load schedule")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ScheduleRecord
	for rows.Next() {
		r, err := scanScheduleRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan schedule record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load schedule iterate")
}

// CreateOrder inserts one order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *model.Order) error {
	row, err := orderRow(o, sqliteNum)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode order")
	}
	_, err = s.db.ExecContext(ctx, s.insertOrderSQL(), row...)
	return eris.Wrapf(err, "sqlite: insert order %s", o.ID)
}

// CreateOrders inserts orders in one transaction and returns the count written.
func (s *SQLiteStore) CreateOrders(ctx context.Context, orders []model.Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin create orders")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.insertOrderSQL())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare order insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range orders {
		row, err := orderRow(&orders[i], sqliteNum)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: encode order")
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert order %s", orders[i].ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit create orders")
	}
	return len(orders), nil
}

func (s *SQLiteStore) insertOrderSQL() string {
	return fmt.Sprintf(`INSERT INTO orders (%s) VALUES (%s)`,
		joinColumns(orderColumns), sqliteDialect.placeholders(1, len(orderColumns)))
}

// GetOrder returns one order or ErrNotFound.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteDialect.orderSelect()+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: order %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get order %s", id)
	}
	return o, nil
}

// ListOrders returns one page of orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	f := filter.Normalize()
	where, args := sqliteDialect.where(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "sqlite: count orders")
	}

	query := `SELECT ` + sqliteDialect.orderSelect() + ` FROM orders` + where +
		` ORDER BY ordered_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, f.PageSize, f.Offset())...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list orders")
	}
	defer rows.Close() //nolint:errcheck

	var items []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan order")
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list orders iterate")
	}
	return newOrderPage(items, total, f), nil
}
