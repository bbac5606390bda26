package generator

import (
	"context"
	"time"

	"marketsynth/internal/metrics"
	"marketsynth/internal/model"
)

// DefaultBatchSize is the number of records per bulk write.
const DefaultBatchSize = 2000

// Emit hands records to w in order, batchSize at a time, waiting for each
// InsertBatch before sending the next. It returns the number of batches
// accepted. The first failure stops emission and is returned as a
// *model.WriteError; nothing is retried.
func Emit(ctx context.Context, w model.BatchWriter, symbol string, records []model.EnrichedRecord, batchSize int) (int, error) {
	if batchSize < 1 {
		return 0, model.Errorf("emit", "batch size must be at least 1, got %d", batchSize)
	}
	batches := 0
	for off := 0; off < len(records); off += batchSize {
		if err := ctx.Err(); err != nil {
			return batches, &model.WriteError{Symbol: symbol, Offset: off, Err: err}
		}
		end := min(off+batchSize, len(records))
		if err := w.InsertBatch(ctx, records[off:end]); err != nil {
			return batches, &model.WriteError{Symbol: symbol, Offset: off, Err: err}
		}
		batches++
	}
	return batches, nil
}

// instrumentedWriter records batch metrics around another writer.
type instrumentedWriter struct {
	next model.BatchWriter
	prom *metrics.Metrics
}

func (w instrumentedWriter) InsertBatch(ctx context.Context, records []model.EnrichedRecord) error {
	start := time.Now()
	err := w.next.InsertBatch(ctx, records)
	w.prom.BatchWriteDur.Observe(time.Since(start).Seconds())
	if err == nil {
		w.prom.BatchesTotal.Inc()
		w.prom.RecordsEmitted.Add(float64(len(records)))
	}
	return err
}
