package queue

import (
	"context"
	_ "embed"
	"fmt"

	"recitation/internal/config"
	"recitation/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sqlitedb.DB
	mode Mode
}

// Open initializes or connects to the queue database under paths.data_dir.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("open queue: config is nil")
	}
	mode := Mode(cfg.Queue.Mode)
	if mode != ModeLIFO {
		mode = ModeFIFO
	}
	return OpenPath(context.Background(), cfg.QueuePath(), mode)
}

// OpenPath opens a queue database at an explicit location.
func OpenPath(ctx context.Context, path string, mode Mode) (*Store, error) {
	db, err := sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "queue", SQL: schemaSQL, Version: schemaVersion})
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	return &Store{db: db, mode: mode}, nil
}

// Mode returns the claim order.
func (s *Store) Mode() Mode {
	return s.mode
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
