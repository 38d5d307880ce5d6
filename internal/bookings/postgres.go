package bookings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"docassist/internal/booking"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS bookings (
    reference   TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    name        TEXT,
    email       TEXT,
    phone       TEXT,
    fields      JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
)`

const insertSQL = `INSERT INTO bookings (reference, kind, name, email, phone, fields, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (reference) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGRecorder stores confirmations in a Postgres table.
type PGRecorder struct {
	db   execer
	pool *pgxpool.Pool
}

// NewPGRecorder connects to dsn and makes sure the bookings table exists.
func NewPGRecorder(ctx context.Context, dsn string) (*PGRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	r := &PGRecorder{db: pool, pool: pool}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PGRecorder) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}
	return nil
}

// Record inserts c. Recording the same reference twice is a no-op.
func (r *PGRecorder) Record(ctx context.Context, c *booking.Confirmation) error {
	fields, err := json.Marshal(c.Values())
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, insertSQL,
		c.Reference, string(c.Kind),
		c.Value(booking.FieldName), c.Value(booking.FieldEmail), c.Value(booking.FieldPhone),
		fields, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", c.Reference, err)
	}
	return nil
}

func (r *PGRecorder) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
