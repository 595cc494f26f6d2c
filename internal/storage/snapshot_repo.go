package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"geomap/internal/snapshot"
)

const currentKey = "current_snapshot_id"

// SnapshotRepo stores each record as one JSON payload row.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Put replaces the whole record in one transaction.
func (r *SnapshotRepo) Put(ctx context.Context, rec *snapshot.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot put begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (snapshot_id, name, created_at, payload)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.CreatedAt.UnixMilli(), string(payload))
	if err != nil {
		return fmt.Errorf("snapshot put: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot put commit: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("snapshot delete: %w", err)
	}
	return nil
}

// Get loads one record; ok is false when it does not exist.
func (r *SnapshotRepo) Get(ctx context.Context, id string) (*snapshot.Record, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE snapshot_id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot get: %w", err)
	}
	var rec snapshot.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, false, fmt.Errorf("snapshot decode %q: %w", id, err)
	}
	return &rec, true, nil
}

// List returns records newest first. Rows whose payload does not decode
// are skipped and logged.
func (r *SnapshotRepo) List(ctx context.Context) ([]*snapshot.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT snapshot_id, payload FROM snapshots ORDER BY created_at DESC, snapshot_id`)
	if err != nil {
		return nil, fmt.Errorf("snapshot list: %w", err)
	}
	defer rows.Close()

	var out []*snapshot.Record
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("snapshot list scan: %w", err)
		}
		var rec snapshot.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			r.db.log.Warn("snapshot_row_skipped", "id", id, "err", err)
			continue
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot list rows: %w", err)
	}
	return out, nil
}

// SetCurrent stores the current pointer; an empty id clears it.
func (r *SnapshotRepo) SetCurrent(ctx context.Context, id string) error {
	var err error
	if id == "" {
		_, err = r.db.ExecContext(ctx, `DELETE FROM snapshot_meta WHERE key = ?`, currentKey)
	} else {
		_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO snapshot_meta (key, value) VALUES (?, ?)`, currentKey, id)
	}
	if err != nil {
		return fmt.Errorf("snapshot set current: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Current(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM snapshot_meta WHERE key = ?`, currentKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("snapshot current: %w", err)
	}
	return id, nil
}
