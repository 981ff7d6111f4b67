package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/ReinsDesk/internal/db"
)

// SQLStorage keeps entries in the client_storage table.
type SQLStorage struct {
	// DB is the database handle for executing queries.
	DB *sql.DB

	dialect string
	now     func() time.Time
}

// NewSQLStorage wraps an open database. dialect selects placeholder syntax
// and must be db.DriverSQLite or db.DriverPostgres.
func NewSQLStorage(conn *sql.DB, dialect string) *SQLStorage {
	return &SQLStorage{DB: conn, dialect: dialect, now: time.Now}
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Get implements Storage.
func (s *SQLStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.DB.QueryRowContext(
		ctx,
		s.rebind(`SELECT value FROM client_storage WHERE key = ?`),
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Storage with an upsert.
func (s *SQLStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(
		ctx,
		s.rebind(`INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete implements Storage. Every key is attempted; failures are combined.
func (s *SQLStorage) Delete(ctx context.Context, keys ...string) error {
	query := s.rebind(`DELETE FROM client_storage WHERE key = ?`)
	return deleteEach(keys, func(k string) error {
		if _, err := s.DB.ExecContext(ctx, query, k); err != nil {
			return fmt.Errorf("delete %q: %w", k, err)
		}
		return nil
	})
}

// Close closes the database handle.
func (s *SQLStorage) Close() error {
	return s.DB.Close()
}

// Open builds the Storage selected by driver: "file", "memory", "sqlite" or
// "postgres". For "file" an empty dsn means DefaultPath.
func Open(ctx context.Context, driver, dsn string) (Storage, error) {
	switch driver {
	case "", "file":
		if dsn == "" {
			p, err := DefaultPath()
			if err != nil {
				return nil, err
			}
			dsn = p
		}
		return NewFileStorage(dsn)
	case "memory":
		return NewMemoryStorage(), nil
	case db.DriverSQLite, db.DriverPostgres:
		conn, err := db.Open(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLStorage(conn, driver), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
