package sqlitedb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"recitation/internal/sqlitedb"
)

var testSchema = sqlitedb.Schema{
	Name:    "test",
	SQL:     "CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, value TEXT NOT NULL);",
	Version: 2,
}

func TestOpenCreatesAndVerifiesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	ctx := context.Background()

	db, err := sqlitedb.Open(ctx, path, testSchema)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := db.ExecWithRetry(ctx, "INSERT INTO items (value) VALUES (?)", "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	version, err := db.SchemaVersion(ctx)
	if err != nil || version != 2 {
		t.Fatalf("unexpected schema version %d (%v)", version, err)
	}
	if verdict, err := db.IntegrityCheck(ctx); err != nil || verdict != "ok" {
		t.Fatalf("unexpected integrity verdict %q (%v)", verdict, err)
	}
	_ = db.Close()

	reopened, err := sqlitedb.Open(ctx, path, testSchema)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	_ = reopened.Close()

	bumped := testSchema
	bumped.Version = 3
	if _, err := sqlitedb.Open(ctx, path, bumped); !errors.Is(err, sqlitedb.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := sqlitedb.RetryOnBusy(context.Background(), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single attempt with boom, got %d calls and %v", calls, err)
	}
}

func TestRetryOnBusyRetriesLockedErrors(t *testing.T) {
	calls := 0
	err := sqlitedb.RetryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after 3 attempts, got %d calls and %v", calls, err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	parsed, err := sqlitedb.ParseTime(sqlitedb.FormatTime(now))
	if err != nil || !parsed.Equal(now) {
		t.Fatalf("unexpected parsed time %s (%v)", parsed, err)
	}
	zero, err := sqlitedb.ParseTime(" ")
	if err != nil || !zero.IsZero() {
		t.Fatalf("expected zero time for blank, got %s (%v)", zero, err)
	}
}
