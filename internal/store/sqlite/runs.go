package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketsynth/internal/model"
)

// RecordRun stores the outcome of a generation run. Re-recording a run ID
// replaces the earlier row.
func (w *Writer) RecordRun(ctx context.Context, r model.Run) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO generation_runs (run_id, at, sink, records, failed)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.At.UnixMilli(), r.Sink, r.Records, r.Failed)
	if err != nil {
		return fmt.Errorf("sqlite insert run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run or an error wrapping model.ErrNotFound.
func (w *Writer) LastRun(ctx context.Context) (model.Run, error) {
	var (
		r  model.Run
		at int64
	)
	err := w.db.QueryRowContext(ctx, `
		SELECT run_id, at, sink, records, failed
		FROM generation_runs ORDER BY at DESC, rowid DESC LIMIT 1
	`).Scan(&r.ID, &at, &r.Sink, &r.Records, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, fmt.Errorf("last run: %w", model.ErrNotFound)
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("sqlite query run: %w", err)
	}
	r.At = time.UnixMilli(at).UTC()
	return r, nil
}
