package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func insertRun(t *testing.T, db *DB, id string) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		"INSERT INTO runs (id, started_at, completed_at) VALUES (?, ?, ?)",
		id, "2025-01-01T00:00:00.000000000Z", "2025-01-01T00:00:01.000000000Z")
	if err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Dialect() != DialectSQLite {
		t.Errorf("Dialect() = %q, want sqlite", db.Dialect())
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	db, err := Open(nested)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(nested)); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// on Linux, we can't create files under /proc
	_, err := Open("/proc/nonexistent/test.db")
	if err == nil {
		t.Error("expected error opening db at invalid path")
	}
}

func TestOpenPostgres_EmptyDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "  "); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestClose(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	_, err = db.Query(context.Background(), "SELECT 1")
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestMigrate(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"schema_version", "runs", "results", "failures"}
	for _, table := range tables {
		var count int
		row := db.QueryRow(context.Background(), "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Errorf("failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s does not exist", table)
		}
	}

	var url string
	insertRun(t, db, "run-1")
	if err := db.QueryRow(context.Background(), "SELECT artifact_url FROM runs WHERE id = ?", "run-1").Scan(&url); err != nil {
		t.Fatalf("artifact_url column missing: %v", err)
	}
	if url != "" {
		t.Errorf("artifact_url default = %q, want empty", url)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(); err != nil {
			t.Fatalf("Migrate (iteration %d) failed: %v", i, err)
		}
	}

	var version int
	row := db.QueryRow(context.Background(), "SELECT MAX(version) FROM schema_version")
	if err := row.Scan(&version); err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestMigrate_SchemaVersionTracking(t *testing.T) {
	db := setupTestDB(t)

	rows, err := db.Query(context.Background(), "SELECT version FROM schema_version ORDER BY version")
	if err != nil {
		t.Fatalf("failed to query versions: %v", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("failed to scan version: %v", err)
		}
		versions = append(versions, v)
	}

	if len(versions) != SchemaVersion {
		t.Fatalf("got %d versions, want %d", len(versions), SchemaVersion)
	}
	for i, v := range versions {
		if v != i+1 {
			t.Errorf("version[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestExec(t *testing.T) {
	db := setupTestDB(t)

	result, err := db.Exec(context.Background(),
		"INSERT INTO runs (id, started_at, completed_at) VALUES (?, ?, ?)",
		"test-1", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		t.Fatalf("RowsAffected failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("RowsAffected = %d, want 1", affected)
	}
}

func TestQuery(t *testing.T) {
	db := setupTestDB(t)
	insertRun(t, db, "test-1")

	rows, err := db.Query(context.Background(), "SELECT id, started_at FROM runs WHERE id = ?", "test-1")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var id, startedAt string
	if !rows.Next() {
		t.Fatal("expected row, got none")
	}
	if err := rows.Scan(&id, &startedAt); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if id != "test-1" || startedAt != "2025-01-01T00:00:00.000000000Z" {
		t.Errorf("got (%s, %s)", id, startedAt)
	}
}

func TestTransaction_Success(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO runs (id, started_at, completed_at) VALUES (?, ?, ?)",
			"tx-1", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	var count int
	row := db.QueryRow(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", "tx-1")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if count != 1 {
		t.Error("transaction was not committed")
	}
}

func TestTransaction_Rollback(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO runs (id, started_at, completed_at) VALUES (?, ?, ?)",
			"tx-fail", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z")
		if err != nil {
			return err
		}
		return fmt.Errorf("simulated error")
	})
	if err == nil {
		t.Error("expected error from Transaction")
	}

	var count int
	row := db.QueryRow(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", "tx-fail")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("failed to verify: %v", err)
	}
	if count != 0 {
		t.Error("transaction was not rolled back")
	}
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM runs WHERE id = ? AND started_at < ?"

	sqlite := &DB{dialect: DialectSQLite}
	if got := sqlite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %q", got)
	}

	pg := &DB{dialect: DialectPostgres}
	want := "SELECT * FROM runs WHERE id = $1 AND started_at < $2"
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x TEXT);\n\n  CREATE INDEX i ON a(x);\n")
	if len(got) != 2 {
		t.Fatalf("got %d statements, want 2: %q", len(got), got)
	}
	if got[1] != "CREATE INDEX i ON a(x)" {
		t.Errorf("statement[1] = %q", got[1])
	}
}

func TestFormatAndParseTime(t *testing.T) {
	now := time.Now()
	formatted := formatTime(now)
	parsed, err := parseTime(formatted)
	if err != nil {
		t.Fatalf("parseTime failed: %v", err)
	}
	if !now.Equal(parsed) {
		t.Errorf("time round-trip failed: got %v, want %v", parsed, now.UTC())
	}

	// Fixed width keeps lexical order equal to chronological order.
	a := formatTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	b := formatTime(time.Date(2025, 1, 1, 0, 0, 0, 500, time.UTC))
	if len(a) != len(b) || !(a < b) {
		t.Errorf("formatted times not ordered: %q, %q", a, b)
	}
}
