package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"marketsynth/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/marketsynth.db"
}

// Writer stores enriched records and saved triggers. It holds a single
// connection so every batch commits in order.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite opened", "path", cfg.DBPath)
	return &Writer{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			resolution TEXT    NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     INTEGER NOT NULL,
			fields     TEXT    NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS idx_records_symbol_ts ON records (symbol, ts);
		CREATE INDEX IF NOT EXISTS idx_records_ts ON records (ts);

		CREATE TABLE IF NOT EXISTS trade_triggers (
			trigger_id TEXT    PRIMARY KEY,
			username   TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			criteria   TEXT    NOT NULL,
			lifetime   TEXT    NOT NULL,
			frequency  INTEGER NOT NULL,
			status     TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS generation_runs (
			run_id   TEXT    PRIMARY KEY,
			at       INTEGER NOT NULL,
			sink     TEXT    NOT NULL,
			records  INTEGER NOT NULL,
			failed   INTEGER NOT NULL
		);
	`)
	return err
}

// InsertBatch inserts records in a single transaction. Records are appended;
// repeated runs without Reset produce duplicates.
func (w *Writer) InsertBatch(ctx context.Context, records []model.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (symbol, ts, resolution, open, high, low, close, volume, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite encode fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.Symbol, r.TS.UnixMilli(), string(r.Resolution),
			r.Open, r.High, r.Low, r.Close, r.Volume, string(fields)); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// Reset deletes every stored record. Triggers are kept.
func (w *Writer) Reset(ctx context.Context) error {
	res, err := w.db.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return fmt.Errorf("sqlite reset: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Info("sqlite reset", "deleted", n)
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
