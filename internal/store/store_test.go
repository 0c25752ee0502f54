package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourchat.db")
	db, err := Open(path, WithBusyTimeout(1500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 1500 {
		t.Errorf("busy_timeout = %d, want 1500", timeout)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestSetGetOverwrite(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, ok, err := db.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
	}

	if err := db.Set(ctx, "tourchat_cache_tours", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.Set(ctx, "tourchat_cache_tours", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.Get(ctx, "tourchat_cache_tours")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "v2" {
		t.Errorf("Get() = %q, %v; want v2, true", v, ok)
	}

	n, err := db.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1 (overwrite, not insert)", n)
	}
}

func TestRemoveAndRemoveMany(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d"} {
		if err := db.Set(ctx, k, k); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := db.Remove(ctx, "never-set"); err != nil {
		t.Errorf("Remove(absent) error = %v", err)
	}
	if err := db.RemoveMany(ctx, []string{"b", "c"}); err != nil {
		t.Fatal(err)
	}
	if err := db.RemoveMany(ctx, nil); err != nil {
		t.Errorf("RemoveMany(nil) error = %v", err)
	}

	keys, err := db.ListKeys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != "d" {
		t.Errorf("ListKeys() = %v, want [d]", keys)
	}
}

func TestGetWrapsDriverError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = raw.Close() }()
	db := &DB{DB: raw}

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT value FROM kv").WithArgs("k").WillReturnError(boom)

	_, _, err = db.Get(context.Background(), "k")
	if !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want wrapped %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRemoveManyRollsBackOnError(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = raw.Close() }()
	db := &DB{DB: raw}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM kv").WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM kv").WithArgs("b").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	if err := db.RemoveMany(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("RemoveMany() expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
