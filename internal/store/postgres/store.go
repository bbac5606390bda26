// Package postgres stores enriched records through gorm. Production uses
// Postgres; the SQLite dialect is supported for local runs and tests.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

// RecordModel is one enriched record row. Indicator fields are kept as a
// JSON object in a text column.
type RecordModel struct {
	ID         uint    `gorm:"primaryKey"`
	Symbol     string  `gorm:"size:32;not null;index:idx_enriched_sym_ts,priority:1"`
	TS         int64   `gorm:"column:ts;not null;index:idx_enriched_sym_ts,priority:2"` // unix millis
	Resolution string  `gorm:"size:8;not null"`
	Open       float64 `gorm:"not null"`
	High       float64 `gorm:"not null"`
	Low        float64 `gorm:"not null"`
	Close      float64 `gorm:"not null"`
	Volume     int64   `gorm:"not null;default:0"`
	Fields     string  `gorm:"type:text;not null"`
}

func (RecordModel) TableName() string {
	return "enriched_records"
}

func toModel(r *model.EnrichedRecord) (RecordModel, error) {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return RecordModel{}, fmt.Errorf("encode fields %s: %w", r.Symbol, err)
	}
	return RecordModel{
		Symbol:     r.Symbol,
		TS:         r.TS.UnixMilli(),
		Resolution: string(r.Resolution),
		Open:       r.Open,
		High:       r.High,
		Low:        r.Low,
		Close:      r.Close,
		Volume:     r.Volume,
		Fields:     string(fields),
	}, nil
}

func (m *RecordModel) toRecord() (model.EnrichedRecord, error) {
	rec := model.NewEnrichedRecord(model.Candle{
		Symbol:     m.Symbol,
		TS:         time.UnixMilli(m.TS).UTC(),
		Resolution: model.Resolution(m.Resolution),
		Open:       m.Open,
		High:       m.High,
		Low:        m.Low,
		Close:      m.Close,
		Volume:     m.Volume,
	})
	if m.Fields != "" {
		if err := json.Unmarshal([]byte(m.Fields), &rec.Fields); err != nil {
			return rec, fmt.Errorf("decode fields %d: %w", m.ID, err)
		}
	}
	return rec, nil
}

// Open connects to Postgres with gorm's logger silenced.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// insertChunk bounds the rows per INSERT statement. Ten bound parameters
// per row stays well under both the SQLite and Postgres parameter limits.
const insertChunk = 500

// Store implements the batch writer and record reader on gorm.
type Store struct {
	db     *gorm.DB
	fields query.Fieldset
}

// NewStore migrates the records table and returns a store over db.
func NewStore(db *gorm.DB, fields query.Fieldset) (*Store, error) {
	if err := db.AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, fields: fields}, nil
}

// InsertBatch inserts the batch inside one transaction, insertChunk rows
// per statement.
func (s *Store) InsertBatch(ctx context.Context, records []model.EnrichedRecord) error {
	if len(records) == 0 {
		return nil
	}
	ms := make([]RecordModel, 0, len(records))
	for i := range records {
		m, err := toModel(&records[i])
		if err != nil {
			return err
		}
		ms = append(ms, m)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&ms, insertChunk).Error; err != nil {
			return fmt.Errorf("insert enriched_records: %w", err)
		}
		return nil
	})
}

// Reset deletes every record.
func (s *Store) Reset(ctx context.Context) error {
	err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&RecordModel{}).Error
	if err != nil {
		return fmt.Errorf("reset enriched_records: %w", err)
	}
	return nil
}

// Symbols returns the distinct stored symbols in ascending order.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&RecordModel{}).
		Distinct("symbol").Order("symbol").Pluck("symbol", &out).Error
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	return out, nil
}

// Stocks applies the same window rules as the SQLite reader.
func (s *Store) Stocks(ctx context.Context, w model.Window) ([]model.EnrichedRecord, error) {
	q := s.db.WithContext(ctx).Model(&RecordModel{})
	if w.Symbol != "" {
		q = q.Where("symbol = ?", w.Symbol)
	}
	if w.From > 0 {
		q = q.Where("ts >= ?", w.From)
	} else {
		if w.Resolution != "" {
			q = q.Where("resolution = ?", string(w.Resolution))
		}
		limit := w.Limit
		if limit <= 0 {
			limit = model.DefaultStocksLimit
		}
		q = q.Limit(limit)
	}
	return s.find(q)
}

// Search renders criteria into the WHERE clause and returns matches
// newest first. A limit of zero or less returns every match.
func (s *Store) Search(ctx context.Context, criteria []model.Criterion, limit int) ([]model.EnrichedRecord, error) {
	node, err := query.Build(criteria, s.fields)
	if err != nil {
		return nil, err
	}
	clause, args := query.SQL(node, s.indicatorExpr)
	q := s.db.WithContext(ctx).Model(&RecordModel{}).Where(clause, args...)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return s.find(q)
}

// indicatorExpr reads one indicator from the fields column as a number in
// the connected dialect.
func (s *Store) indicatorExpr(key string) (string, []any) {
	if s.db.Dialector.Name() == "postgres" {
		return "CAST(CAST(fields AS jsonb) ->> CAST(? AS text) AS double precision)", []any{key}
	}
	return "json_extract(fields, ?)", []any{`$."` + key + `"`}
}

func (s *Store) find(q *gorm.DB) ([]model.EnrichedRecord, error) {
	var ms []RecordModel
	if err := q.Order("ts DESC, id DESC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("query enriched_records: %w", err)
	}
	out := make([]model.EnrichedRecord, 0, len(ms))
	for i := range ms {
		rec, err := ms[i].toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
