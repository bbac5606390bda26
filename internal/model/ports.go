package model

import (
	"context"
	"time"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the generator and the HTTP layer from concrete
// storage implementations (SQLite, Redis, Postgres).

// BatchWriter accepts ordered batches of enriched records.
// A failed InsertBatch is reported once and never retried by the caller.
type BatchWriter interface {
	InsertBatch(ctx context.Context, records []EnrichedRecord) error
}

// Resetter clears previously stored records before a fresh run.
type Resetter interface {
	Reset(ctx context.Context) error
}

// DefaultStocksLimit applies when a stocks window sets neither From nor Limit.
const DefaultStocksLimit = 100

// Window selects the records served by the stocks endpoint.
// A non-zero From switches to "everything since From" and ignores
// Resolution and Limit.
type Window struct {
	Symbol     string
	Resolution Resolution
	Limit      int
	From       int64 // unix millis, 0 = unset
}

// RecordReader serves stored records newest first.
type RecordReader interface {
	Symbols(ctx context.Context) ([]string, error)
	Stocks(ctx context.Context, w Window) ([]EnrichedRecord, error)
	Search(ctx context.Context, criteria []Criterion, limit int) ([]EnrichedRecord, error)
}

// TriggerStore persists saved searches.
type TriggerStore interface {
	CreateTrigger(ctx context.Context, t *Trigger) error
	GetTrigger(ctx context.Context, triggerID string) (*Trigger, error)
	ListTriggers(ctx context.Context, username string) ([]Trigger, error)
	UpdateTrigger(ctx context.Context, t *Trigger) error
	DeleteTrigger(ctx context.Context, triggerID string) error
}

// Run is the bookkeeping row written after each generation run.
type Run struct {
	ID      string
	At      time.Time
	Sink    string
	Records int
	Failed  int
}

// RunLog persists generation runs so serve can report the latest one.
type RunLog interface {
	RecordRun(ctx context.Context, r Run) error
	LastRun(ctx context.Context) (Run, error)
}
