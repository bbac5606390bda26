package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"marketsynth/internal/model"
	"marketsynth/internal/query"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored records for the HTTP layer.
type Reader struct {
	db     *sql.DB
	fields query.Fieldset
}

// NewReader opens a read connection. fields is the set of searchable
// columns, normally built from the engine's indicator keys.
func NewReader(dbPath string, fields query.Fieldset) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite reader opened", "path", dbPath)
	return &Reader{db: db, fields: fields}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// Symbols returns the distinct stored symbols in ascending order.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM records ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite scan symbol: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Stocks returns one symbol's records newest first. With w.From set it
// returns everything at or after From across resolutions; otherwise the
// latest w.Limit records, optionally of one resolution.
func (r *Reader) Stocks(ctx context.Context, w model.Window) ([]model.EnrichedRecord, error) {
	var (
		conds []string
		args  []any
	)
	if w.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, w.Symbol)
	}
	limit := 0
	if w.From > 0 {
		conds = append(conds, "ts >= ?")
		args = append(args, w.From)
	} else {
		if w.Resolution != "" {
			conds = append(conds, "resolution = ?")
			args = append(args, string(w.Resolution))
		}
		limit = w.Limit
		if limit <= 0 {
			limit = model.DefaultStocksLimit
		}
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	return r.selectRecords(ctx, where, args, limit)
}

// Search returns records matching criteria, newest first. A limit of zero
// or less returns every match. Malformed criteria yield *query.ValidationError.
func (r *Reader) Search(ctx context.Context, criteria []model.Criterion, limit int) ([]model.EnrichedRecord, error) {
	node, err := query.Build(criteria, r.fields)
	if err != nil {
		return nil, err
	}
	clause, args := render(node)
	return r.selectRecords(ctx, "WHERE "+clause, args, limit)
}

func (r *Reader) selectRecords(ctx context.Context, where string, args []any, limit int) ([]model.EnrichedRecord, error) {
	q := `SELECT symbol, ts, resolution, open, high, low, close, volume, fields FROM records ` +
		where + ` ORDER BY ts DESC, id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query records: %w", err)
	}
	defer rows.Close()

	var out []model.EnrichedRecord
	for rows.Next() {
		var (
			c      model.Candle
			ts     int64
			res    string
			fields string
		)
		if err := rows.Scan(&c.Symbol, &ts, &res, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &fields); err != nil {
			return nil, fmt.Errorf("sqlite scan record: %w", err)
		}
		c.TS = time.UnixMilli(ts).UTC()
		c.Resolution = model.Resolution(res)
		rec := model.NewEnrichedRecord(c)
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode fields %s@%d: %w", c.Symbol, ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
