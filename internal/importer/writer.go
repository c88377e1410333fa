// ABOUTME: BatchWriter accumulating normalized records and flushing bounded batches.
// ABOUTME: Each flush is one multi-row insert committed as a single transaction.
package importer

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// DefaultBatchSize bounds how many rows a crash mid-run can lose: prior
// batches are already committed, only the in-flight batch is at risk.
const DefaultBatchSize = 1000

// Sink is the storage contract the writer needs: a transactional multi-row
// insert reporting how many rows were actually kept.
type Sink interface {
	InsertRecordBatch(records []*models.HealthRecord) (int, error)
}

// BatchWriter buffers records and flushes whenever the batch size is reached.
// A write failure propagates immediately; unlike per-record parse skips,
// the run does not continue past a failed commit.
type BatchWriter struct {
	sink      Sink
	batchSize int
	dedup     bool
	batch     []*models.HealthRecord
	total     int

	// Progress, when set, is called with the running total after each flush.
	Progress func(total int)
}

// NewBatchWriter creates a writer flushing every batchSize records.
// A batchSize <= 0 falls back to DefaultBatchSize.
func NewBatchWriter(sink Sink, batchSize int) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BatchWriter{
		sink:      sink,
		batchSize: batchSize,
		batch:     make([]*models.HealthRecord, 0, batchSize),
	}
}

// WithDedup enables content-derived dedup keys, making re-imports of the same
// file safe: a row whose key already exists is ignored rather than duplicated.
func (w *BatchWriter) WithDedup() *BatchWriter {
	w.dedup = true
	return w
}

// Write buffers one record, flushing when the batch is full.
func (w *BatchWriter) Write(r *models.HealthRecord) error {
	if w.dedup {
		key := dedupKey(r)
		r.DedupKey = &key
	}
	w.batch = append(w.batch, r)
	if len(w.batch) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush commits the buffered records, if any, and clears the buffer.
// Call once more at end of stream for the final partial batch.
func (w *BatchWriter) Flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	inserted, err := w.sink.InsertRecordBatch(w.batch)
	if err != nil {
		return fmt.Errorf("flush batch of %d: %w", len(w.batch), err)
	}
	w.total += inserted
	w.batch = w.batch[:0]
	if w.Progress != nil {
		w.Progress(w.total)
	}
	return nil
}

// Total returns the number of rows committed so far. Without dedup this
// equals the number of records written.
func (w *BatchWriter) Total() int { return w.total }

// dedupKey hashes the record's identifying content. Two exports of the same
// sample produce the same key regardless of the generated row ID.
func dedupKey(r *models.HealthRecord) string {
	h := xxhash.New()
	_, _ = h.WriteString(r.UserID)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(r.RecordType)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(r.Source)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(r.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.FormatFloat(r.Value, 'g', -1, 64))
	if r.Unit != nil {
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(*r.Unit)
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
