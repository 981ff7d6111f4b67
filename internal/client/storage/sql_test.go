package storage

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/atinyakov/ReinsDesk/internal/db"
)

func setupSQLMock(t *testing.T, dialect string) (*SQLStorage, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	s := NewSQLStorage(conn, dialect)
	s.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s, mock, func() { conn.Close() }
}

func TestSQLGet_Found(t *testing.T) {
	s, mock, cleanup := setupSQLMock(t, db.DriverPostgres)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM client_storage WHERE key = $1`)).
		WithArgs(KeyToken).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok"))

	v, ok, err := s.Get(context.Background(), KeyToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || v != "tok" {
		t.Errorf("Get = %q, %v; want tok, true", v, ok)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLGet_Missing(t *testing.T) {
	s, mock, cleanup := setupSQLMock(t, db.DriverSQLite)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM client_storage WHERE key = ?`)).
		WithArgs(KeyUser).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := s.Get(context.Background(), KeyUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLSet_Upsert(t *testing.T) {
	s, mock, cleanup := setupSQLMock(t, db.DriverPostgres)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO client_storage (key, value, updated_at) VALUES ($1, $2, $3)`)).
		WithArgs(KeyToken, "tok", s.now().UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.Set(context.Background(), KeyToken, "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSQLDelete_CombinesErrors(t *testing.T) {
	s, mock, cleanup := setupSQLMock(t, db.DriverPostgres)
	defer cleanup()

	del := regexp.QuoteMeta(`DELETE FROM client_storage WHERE key = $1`)
	mock.ExpectExec(del).WithArgs(KeyToken).WillReturnError(errors.New("locked"))
	mock.ExpectExec(del).WithArgs(KeyUser).WillReturnError(errors.New("gone"))

	err := s.Delete(context.Background(), KeyToken, KeyUser)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"locked", "gone"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStorage{dialect: db.DriverPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &SQLStorage{dialect: db.DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}
