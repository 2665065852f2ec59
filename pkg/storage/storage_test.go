package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no params", "SELECT 1", "SELECT 1"},
		{"two params", "SELECT * FROM a WHERE x = ? AND y = ?", "SELECT * FROM a WHERE x = $1 AND y = $2"},
		{"quoted mark", "SELECT '?' FROM a WHERE x = ?", "SELECT '?' FROM a WHERE x = $1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebindDollar(tt.input); got != tt.want {
				t.Errorf("rebindDollar(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_SQLiteRebindIsNoop(t *testing.T) {
	db, err := Open(Config{Driver: SQLite, DSN: filepath.Join(t.TempDir(), "t.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if db.DriverType() != SQLite {
		t.Fatalf("expected sqlite driver, got %s", db.DriverType())
	}
	q := "SELECT ? + ?"
	if got := db.Rebind(q); got != q {
		t.Fatalf("expected unchanged query, got %q", got)
	}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db, err := Open(Config{Driver: SQLite, DSN: filepath.Join(t.TempDir(), "t.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err = db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', 'b')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d rows", n)
	}
}
