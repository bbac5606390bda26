package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"marketsynth/internal/model"
)

// CreateTrigger stores t. The caller assigns TriggerID and CreatedAt.
func (w *Writer) CreateTrigger(ctx context.Context, t *model.Trigger) error {
	criteria, lifetime, err := encodeTrigger(t)
	if err != nil {
		return err
	}
	_, err = w.db.ExecContext(ctx, `
		INSERT INTO trade_triggers (trigger_id, username, created_at, criteria, lifetime, frequency, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.TriggerID, t.Username, t.CreatedAt.UnixMilli(), criteria, lifetime, t.Frequency, t.Status)
	if err != nil {
		return fmt.Errorf("sqlite insert trigger: %w", err)
	}
	return nil
}

// GetTrigger loads one trigger or returns an error wrapping model.ErrNotFound.
func (w *Writer) GetTrigger(ctx context.Context, triggerID string) (*model.Trigger, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT trigger_id, username, created_at, criteria, lifetime, frequency, status
		FROM trade_triggers WHERE trigger_id = ?
	`, triggerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trigger: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("sqlite query trigger: %w", err)
		}
		return nil, fmt.Errorf("trigger %s: %w", triggerID, model.ErrNotFound)
	}
	t, err := scanTrigger(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTriggers returns triggers newest first. An empty username lists all.
func (w *Writer) ListTriggers(ctx context.Context, username string) ([]model.Trigger, error) {
	q := `SELECT trigger_id, username, created_at, criteria, lifetime, frequency, status FROM trade_triggers`
	var args []any
	if username != "" {
		q += ` WHERE username = ?`
		args = append(args, username)
	}
	q += ` ORDER BY created_at DESC, trigger_id`

	rows, err := w.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query triggers: %w", err)
	}
	defer rows.Close()

	var out []model.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTrigger replaces the mutable columns of an existing trigger.
// Username and CreatedAt are kept.
func (w *Writer) UpdateTrigger(ctx context.Context, t *model.Trigger) error {
	criteria, lifetime, err := encodeTrigger(t)
	if err != nil {
		return err
	}
	res, err := w.db.ExecContext(ctx, `
		UPDATE trade_triggers SET criteria = ?, lifetime = ?, frequency = ?, status = ?
		WHERE trigger_id = ?
	`, criteria, lifetime, t.Frequency, t.Status, t.TriggerID)
	if err != nil {
		return fmt.Errorf("sqlite update trigger: %w", err)
	}
	return affected(res, t.TriggerID)
}

// DeleteTrigger removes the trigger with the given id.
func (w *Writer) DeleteTrigger(ctx context.Context, triggerID string) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM trade_triggers WHERE trigger_id = ?`, triggerID)
	if err != nil {
		return fmt.Errorf("sqlite delete trigger: %w", err)
	}
	return affected(res, triggerID)
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trigger %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func encodeTrigger(t *model.Trigger) (string, string, error) {
	criteria, err := json.Marshal(t.Criteria)
	if err != nil {
		return "", "", fmt.Errorf("encode criteria: %w", err)
	}
	lifetime, err := json.Marshal(t.Lifetime)
	if err != nil {
		return "", "", fmt.Errorf("encode lifetime: %w", err)
	}
	return string(criteria), string(lifetime), nil
}

func scanTrigger(rows *sql.Rows) (model.Trigger, error) {
	var (
		t                  model.Trigger
		createdAt          int64
		criteria, lifetime string
	)
	if err := rows.Scan(&t.TriggerID, &t.Username, &createdAt, &criteria, &lifetime, &t.Frequency, &t.Status); err != nil {
		return t, fmt.Errorf("sqlite scan trigger: %w", err)
	}
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(criteria), &t.Criteria); err != nil {
		return t, fmt.Errorf("decode criteria %s: %w", t.TriggerID, err)
	}
	if err := json.Unmarshal([]byte(lifetime), &t.Lifetime); err != nil {
		return t, fmt.Errorf("decode lifetime %s: %w", t.TriggerID, err)
	}
	return t, nil
}
