package db

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestConnect_AppliesMigrations(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")

	conn, err := Connect(DriverSQLite, dsn, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer Close(conn, zap.NewNop())

	for _, table := range []string{"tasks", "focus_sessions", "recommendations", "synthetic_samples"} {
		var n int
		if err := conn.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Errorf("table %s not queryable: %v", table, err)
		}
	}

	// second run is a no-op
	if err := Migrate(conn.DB, DriverSQLite, zap.NewNop()); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
}

func TestMigrate_UnsupportedDriver(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	conn, err := Connect(DriverSQLite, dsn, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer Close(conn, zap.NewNop())

	if err := Migrate(conn.DB, "mysql", zap.NewNop()); err == nil {
		t.Fatal("Migrate() with unknown driver should fail")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant string
	}{
		{
			name: "plain path",
			in:   "focus.db",
			want: []string{"focus.db?", "_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)", "_time_format=sqlite"},
		},
		{
			name:    "existing query keeps its time format",
			in:      "file:focus.db?_time_format=datetime",
			want:    []string{"&_pragma=foreign_keys(1)"},
			notWant: "_time_format=sqlite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqliteDSN(tt.in)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("sqliteDSN(%q) = %q, missing %q", tt.in, got, w)
				}
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("sqliteDSN(%q) = %q, should not contain %q", tt.in, got, tt.notWant)
			}
		})
	}
}
