package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	goredis "github.com/go-redis/redis/v8"

	"marketsynth/internal/model"
	"marketsynth/internal/query"
)

// readPage is the number of stream entries fetched per XREVRANGE.
const readPage = 500

// Reader serves records from the per-symbol streams written by Writer.
// Streams carry no secondary index, so windows and searches walk each
// symbol's stream newest entry first and filter in process.
type Reader struct {
	client *goredis.Client
	fields query.Fieldset
}

// NewReader reads through client, usually the writer's.
func NewReader(client *goredis.Client, fields query.Fieldset) *Reader {
	return &Reader{client: client, fields: fields}
}

// Symbols lists every symbol with a latest key, ascending.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, latestPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return symbolsFromKeys(keys), nil
}

// Stocks applies the same window rules as the SQL readers.
func (r *Reader) Stocks(ctx context.Context, w model.Window) ([]model.EnrichedRecord, error) {
	recs, err := r.load(ctx, w.Symbol)
	if err != nil {
		return nil, err
	}
	return applyWindow(recs, w), nil
}

// Search returns records matching criteria, newest first. A limit of zero
// or less returns every match.
func (r *Reader) Search(ctx context.Context, criteria []model.Criterion, limit int) ([]model.EnrichedRecord, error) {
	node, err := query.Build(criteria, r.fields)
	if err != nil {
		return nil, err
	}
	recs, err := r.load(ctx, "")
	if err != nil {
		return nil, err
	}
	out := query.Filter(node, recs)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// load reads the streams of symbol, or of every symbol when it is empty,
// and orders the records newest first.
func (r *Reader) load(ctx context.Context, symbol string) ([]model.EnrichedRecord, error) {
	symbols := []string{symbol}
	if symbol == "" {
		var err error
		if symbols, err = r.Symbols(ctx); err != nil {
			return nil, err
		}
	}
	var out []model.EnrichedRecord
	for _, sym := range symbols {
		recs, err := r.stream(ctx, sym)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	sortNewestFirst(out)
	return out, nil
}

// stream reads one symbol's stream, newest entry first.
func (r *Reader) stream(ctx context.Context, symbol string) ([]model.EnrichedRecord, error) {
	var out []model.EnrichedRecord
	end := "+"
	for {
		msgs, err := r.client.XRevRangeN(ctx, StreamKey(symbol), end, "-", readPage).Result()
		if err != nil {
			return nil, fmt.Errorf("redis xrevrange %s: %w", symbol, err)
		}
		recs, err := decodeEntries(msgs)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
		if len(msgs) < readPage {
			return out, nil
		}
		end = "(" + msgs[len(msgs)-1].ID
	}
}

func decodeEntries(msgs []goredis.XMessage) ([]model.EnrichedRecord, error) {
	out := make([]model.EnrichedRecord, 0, len(msgs))
	for _, m := range msgs {
		data, ok := m.Values["data"].(string)
		if !ok {
			return nil, fmt.Errorf("redis entry %s: missing data", m.ID)
		}
		var rec model.EnrichedRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("redis entry %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// sortNewestFirst orders by timestamp descending. Equal timestamps keep
// their order, which for a single stream is newest entry first.
func sortNewestFirst(recs []model.EnrichedRecord) {
	slices.SortStableFunc(recs, func(a, b model.EnrichedRecord) int {
		return cmp.Compare(b.TS.UnixMilli(), a.TS.UnixMilli())
	})
}

// applyWindow filters newest-first records: everything since From, or the
// newest Limit of the requested resolution.
func applyWindow(recs []model.EnrichedRecord, w model.Window) []model.EnrichedRecord {
	if w.From > 0 {
		out := make([]model.EnrichedRecord, 0, len(recs))
		for _, rec := range recs {
			if rec.TS.UnixMilli() >= w.From {
				out = append(out, rec)
			}
		}
		return out
	}
	limit := w.Limit
	if limit <= 0 {
		limit = model.DefaultStocksLimit
	}
	out := make([]model.EnrichedRecord, 0, min(limit, len(recs)))
	for _, rec := range recs {
		if len(out) == limit {
			break
		}
		if w.Resolution == "" || rec.Resolution == w.Resolution {
			out = append(out, rec)
		}
	}
	return out
}

func symbolsFromKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if sym := strings.TrimPrefix(k, latestPrefix); sym != "" && sym != k {
			out = append(out, sym)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
