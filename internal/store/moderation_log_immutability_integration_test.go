package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

// TestModerationLogImmutabilityBlocksUpdate verifies that UPDATE operations
// on moderation_log are blocked by the database trigger with a hard failure.
func TestModerationLogImmutabilityBlocksUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDatabase(t, ctx)
	defer db.Close()

	seedLogFixture(t, ctx, db, "doc-immut-update")
	_, err := db.ExecContext(ctx, `
		INSERT INTO moderation_log (document_id, actor_id, action, status_before, status_after, reason)
		VALUES ('doc-immut-update', 'usr-immut', 'APPROVAL', 'PENDING', 'APPROVED', '')
	`)
	if err != nil {
		t.Fatalf("insert test log entry: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE moderation_log
		SET reason = 'revised after the fact'
		WHERE document_id = 'doc-immut-update'
	`)
	if err == nil {
		t.Fatal("expected UPDATE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 (object_not_in_prerequisite_state), got: %s", pgErr.SQLState())
	}
	if pgErr.Message != "moderation_log is immutable; UPDATE is not allowed" {
		t.Fatalf("unexpected error message: %s", pgErr.Message)
	}

	cleanupLogFixture(ctx, db)
}

// TestModerationLogImmutabilityBlocksDelete verifies that DELETE operations
// on moderation_log are blocked by the database trigger with a hard failure.
func TestModerationLogImmutabilityBlocksDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDatabase(t, ctx)
	defer db.Close()

	seedLogFixture(t, ctx, db, "doc-immut-delete")
	_, err := db.ExecContext(ctx, `
		INSERT INTO moderation_log (document_id, actor_id, action, status_before, status_after, reason)
		VALUES ('doc-immut-delete', 'usr-immut', 'REJECTION', 'PENDING', 'REJECTED', 'integration fixture')
	`)
	if err != nil {
		t.Fatalf("insert test log entry: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM moderation_log
		WHERE document_id = 'doc-immut-delete'
	`)
	if err == nil {
		t.Fatal("expected DELETE to be blocked, but it succeeded")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "55000" {
		t.Fatalf("expected SQLSTATE 55000 (object_not_in_prerequisite_state), got: %s", pgErr.SQLState())
	}
	if pgErr.Message != "moderation_log is immutable; DELETE is not allowed" {
		t.Fatalf("unexpected error message: %s", pgErr.Message)
	}

	cleanupLogFixture(ctx, db)
}

// TestModerationLogInsertStillWorks verifies that appends keep working with
// the guard triggers in place.
func TestModerationLogInsertStillWorks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDatabase(t, ctx)
	defer db.Close()

	seedLogFixture(t, ctx, db, "doc-immut-insert")
	_, err := db.ExecContext(ctx, `
		INSERT INTO moderation_log (document_id, actor_id, action, status_before, status_after, reason)
		VALUES ('doc-immut-insert', 'usr-immut', 'REPORT', 'PENDING', 'PENDING', 'integration fixture report')
	`)
	if err != nil {
		t.Fatalf("insert log entry: %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM moderation_log WHERE document_id = 'doc-immut-insert'`).Scan(&count)
	if err != nil {
		t.Fatalf("count log entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 log entry, got %d", count)
	}

	cleanupLogFixture(ctx, db)
}

func openTestDatabase(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	db, err := Open(ctx, getTestDatabaseURL())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	var triggerCount int
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.triggers
		WHERE trigger_name IN ('trg_moderation_log_block_update', 'trg_moderation_log_block_delete')
	`).Scan(&triggerCount)
	if err != nil || triggerCount == 0 {
		db.Close()
		t.Fatalf("immutability triggers not found; migration 0002 may not be applied: %v", err)
	}
	return db
}

func seedLogFixture(t *testing.T, ctx context.Context, db *sql.DB, documentID string) {
	t.Helper()

	statements := []string{
		`INSERT INTO actors (id, display_name, role) VALUES ('usr-immut', 'Immutability Fixture', 'moderator')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO game_systems (id, name, status) VALUES ('sys-immut', 'Fixture System', 'ACTIVE')
		 ON CONFLICT (id) DO NOTHING`,
		`INSERT INTO documents (id, doc_type, title, game_system_id, owner_id)
		 VALUES ('` + documentID + `', 'GENERIC', 'Fixture Document', 'sys-immut', 'usr-immut')
		 ON CONFLICT (id) DO NOTHING`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}
	}
}

// cleanupLogFixture removes the fixture rows. Row-level triggers do not fire
// on TRUNCATE, which is the only way to empty the log.
func cleanupLogFixture(ctx context.Context, db *sql.DB) {
	_, _ = db.ExecContext(ctx, `TRUNCATE moderation_log`)
	_, _ = db.ExecContext(ctx, `DELETE FROM documents WHERE id LIKE 'doc-immut-%'`)
	_, _ = db.ExecContext(ctx, `DELETE FROM game_systems WHERE id = 'sys-immut'`)
	_, _ = db.ExecContext(ctx, `DELETE FROM actors WHERE id = 'usr-immut'`)
}

// getTestDatabaseURL returns the database URL for integration tests. It
// checks TEST_DATABASE_URL first, then the standard Postgres variables.
func getTestDatabaseURL() string {
	if url := testenv("TEST_DATABASE_URL", ""); url != "" {
		return url
	}

	host := testenv("POSTGRES_HOST", "localhost")
	port := testenv("POSTGRES_PORT", "5432")
	user := testenv("POSTGRES_USER", "codex")
	pass := testenv("POSTGRES_PASSWORD", "codex")
	dbname := testenv("POSTGRES_DB", "codex_test")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + dbname + "?sslmode=disable"
}

func testenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
