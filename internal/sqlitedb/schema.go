package sqlitedb

import (
	"context"
	"fmt"
)

func (db *DB) initSchema(ctx context.Context, schema Schema) error {
	var tableExists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return db.createSchema(ctx, schema)
	}

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != schema.Version {
		return fmt.Errorf("%w: %s database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, schema.Name, version, schema.Version, db.path)
	}
	return nil
}

func (db *DB) createSchema(ctx context.Context, schema Schema) error {
	return RetryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		// Another process may have initialized the schema while we waited for the lock.
		var tableExists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
		).Scan(&tableExists); err != nil {
			return fmt.Errorf("recheck schema_version table: %w", err)
		}
		if tableExists > 0 {
			return tx.Commit()
		}

		if _, err := tx.ExecContext(ctx, schema.SQL); err != nil {
			return fmt.Errorf("create %s schema: %w", schema.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "CREATE TABLE schema_version (version INTEGER NOT NULL)"); err != nil {
			return fmt.Errorf("create schema_version table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schema.Version); err != nil {
			return fmt.Errorf("insert schema version: %w", err)
		}
		return tx.Commit()
	})
}

// SchemaVersion returns the version recorded in the database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := db.QueryRowContext(ensureContext(ctx), "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// IntegrityCheck runs SQLite's integrity check and returns its verdict.
func (db *DB) IntegrityCheck(ctx context.Context) (string, error) {
	var result string
	if err := db.QueryRowContext(ensureContext(ctx), "PRAGMA integrity_check").Scan(&result); err != nil {
		return "", fmt.Errorf("integrity check: %w", err)
	}
	return result, nil
}
