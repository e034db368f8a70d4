package jobstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recitation/internal/config"
	"recitation/internal/job"
	"recitation/internal/services"
	"recitation/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store persists job records backed by SQLite.
type Store struct {
	db  *sqlitedb.DB
	now func() time.Time
}

// Summary is the per-identifier progress view used by listings.
type Summary struct {
	Identifier  string
	Completed   int
	Total       int
	FailedPhase string
	UpdatedAt   time.Time
}

// Open initializes or connects to the record database under paths.data_dir.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("open records: config is nil")
	}
	return OpenPath(context.Background(), cfg.RecordsPath())
}

// OpenPath opens a record database at an explicit location.
func OpenPath(ctx context.Context, path string) (*Store, error) {
	db, err := sqlitedb.Open(ctx, path, sqlitedb.Schema{Name: "records", SQL: schemaSQL, Version: schemaVersion})
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the record for identifier, or nil when none exists.
func (s *Store) Get(ctx context.Context, identifier string) (*job.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM records WHERE identifier = ?`, identifier).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", identifier, err)
	}
	return decodeRecord(identifier, []byte(payload))
}

// Set overwrites the stored record for rec.Identifier.
func (s *Store) Set(ctx context.Context, rec *job.Record) error {
	if rec == nil || rec.Identifier == "" {
		return services.Wrap(services.ErrValidation, "", "set record", "record identifier is required", nil)
	}
	rec.UpdatedAt = s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	if err := rec.CheckInvariants(); err != nil {
		return services.Wrap(services.ErrStructural, "", "set record", "phase invariants violated", err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Identifier, err)
	}
	if err := ValidatePayload(payload); err != nil {
		return services.Wrap(services.ErrStructural, "", "set record", rec.Identifier, err)
	}

	var failed sql.NullString
	if p, ok := rec.FailedPhase(); ok {
		failed = sql.NullString{String: string(p.Name), Valid: true}
	}
	_, err = s.db.ExecWithRetry(ctx, `INSERT INTO records (identifier, payload, completed, failed_phase, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(identifier) DO UPDATE SET
    payload = excluded.payload,
    completed = excluded.completed,
    failed_phase = excluded.failed_phase,
    updated_at = excluded.updated_at`,
		rec.Identifier, string(payload), rec.CompletedCount(), failed, sqlitedb.FormatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("set record %s: %w", rec.Identifier, err)
	}
	return nil
}

// Keys returns every stored identifier in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier FROM records ORDER BY identifier ASC`)
	if err != nil {
		return nil, fmt.Errorf("list record keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record key: %w", err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

// List returns progress summaries for every stored record.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identifier, completed, failed_phase, updated_at FROM records ORDER BY updated_at DESC, identifier ASC`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			summary Summary
			failed  sql.NullString
			updated string
		)
		if err := rows.Scan(&summary.Identifier, &summary.Completed, &failed, &updated); err != nil {
			return nil, fmt.Errorf("scan record summary: %w", err)
		}
		summary.Total = len(job.PhaseOrder)
		summary.FailedPhase = failed.String
		if summary.UpdatedAt, err = sqlitedb.ParseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func decodeRecord(identifier string, payload []byte) (*job.Record, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, services.Wrap(services.ErrStructural, "", "get record", identifier, err)
	}
	var rec job.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", identifier, err)
	}
	if rec.Assets == nil {
		rec.Assets = map[job.Category]job.AssetBundle{}
	}
	if err := rec.CheckInvariants(); err != nil {
		return nil, services.Wrap(services.ErrStructural, "", "get record", "phase invariants violated", err)
	}
	return &rec, nil
}
