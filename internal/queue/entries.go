package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"recitation/internal/services"
	"recitation/internal/sqlitedb"
)

// Push appends req and returns its sequence number once committed.
func (s *Store) Push(ctx context.Context, req Request) (int64, error) {
	if strings.TrimSpace(req.Identifier) == "" {
		return 0, errors.New("push: identifier is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("push: encode request: %w", err)
	}
	res, err := s.db.ExecWithRetry(ctx,
		`INSERT INTO queue_entries (payload, enqueued_at) VALUES (?, ?)`,
		string(payload), sqlitedb.FormatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("push: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("push: read sequence: %w", err)
	}
	return seq, nil
}

// Pop claims and removes one entry. It returns nil, nil when the queue is empty.
func (s *Store) Pop(ctx context.Context) (*Entry, error) {
	query := `DELETE FROM queue_entries
WHERE seq = (SELECT seq FROM queue_entries ORDER BY seq ` + s.order() + ` LIMIT 1)
RETURNING seq, payload, enqueued_at`

	var (
		seq      int64
		payload  string
		enqueued string
	)
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query).Scan(&seq, &payload, &enqueued)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop: %w", err)
	}
	entry, err := decodeEntry(seq, payload, enqueued)
	if err != nil {
		// The row is already gone; the error carries everything needed to re-queue it.
		return nil, services.WithHint(
			services.Wrap(services.ErrStructural, "", "pop",
				fmt.Sprintf("entry %d was claimed with an undecodable payload %q", seq, payload), err),
			"re-submit the identifier from the payload by hand")
	}
	return entry, nil
}

// PeekAll returns a snapshot of pending entries in claim order.
func (s *Store) PeekAll(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, payload, enqueued_at FROM queue_entries ORDER BY seq `+s.order())
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			seq      int64
			payload  string
			enqueued string
		)
		if err := rows.Scan(&seq, &payload, &enqueued); err != nil {
			return nil, fmt.Errorf("peek: scan: %w", err)
		}
		entry, err := decodeEntry(seq, payload, enqueued)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Len returns the number of pending entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM queue_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return count, nil
}

// Remove deletes a pending entry by sequence. It reports whether a row existed.
func (s *Store) Remove(ctx context.Context, seq int64) (bool, error) {
	res, err := s.db.ExecWithRetry(ctx, `DELETE FROM queue_entries WHERE seq = ?`, seq)
	if err != nil {
		return false, fmt.Errorf("remove entry %d: %w", seq, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove entry %d: %w", seq, err)
	}
	return affected > 0, nil
}

// Clear deletes every pending entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecWithRetry(ctx, `DELETE FROM queue_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// Health reports schema, integrity, and depth for diagnostics.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	summary := HealthSummary{DBPath: s.db.Path(), Mode: s.mode}
	version, err := s.db.SchemaVersion(ctx)
	if err != nil {
		return summary, err
	}
	summary.SchemaVersion = version
	if summary.Integrity, err = s.db.IntegrityCheck(ctx); err != nil {
		return summary, err
	}
	if summary.Pending, err = s.Len(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) order() string {
	if s.mode == ModeLIFO {
		return "DESC"
	}
	return "ASC"
}

func decodeEntry(seq int64, payload, enqueued string) (*Entry, error) {
	var req Request
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", seq, err)
	}
	at, err := sqlitedb.ParseTime(enqueued)
	if err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", seq, err)
	}
	return &Entry{Seq: seq, Request: req, EnqueuedAt: at}, nil
}
