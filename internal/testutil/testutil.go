// Package testutil holds helpers shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"focus-tasks-backend/internal/db"
	"focus-tasks-backend/internal/store"
)

// NewDB opens a migrated sqlite database in a temp dir, closed on cleanup.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), 0, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close(conn, zap.NewNop()) })
	return conn
}

// NewStore returns a Store over a fresh temp database.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(NewDB(t), zap.NewNop())
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
