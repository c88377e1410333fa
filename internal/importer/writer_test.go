// ABOUTME: Tests for the batch writer.
// ABOUTME: Verifies flush thresholds, running totals, error propagation, and dedup keys.
package importer

import (
	"errors"
	"testing"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/models"
)

// fakeSink records batch sizes and can simulate write failures.
type fakeSink struct {
	batches []int
	failOn  int // fail the nth insert (1-based), 0 = never
	calls   int
	seen    map[string]bool // dedup keys already inserted
}

func (s *fakeSink) InsertRecordBatch(records []*models.HealthRecord) (int, error) {
	s.calls++
	if s.failOn > 0 && s.calls == s.failOn {
		return 0, errors.New("disk full")
	}
	inserted := 0
	for _, r := range records {
		if r.DedupKey != nil {
			if s.seen == nil {
				s.seen = make(map[string]bool)
			}
			if s.seen[*r.DedupKey] {
				continue
			}
			s.seen[*r.DedupKey] = true
		}
		inserted++
	}
	s.batches = append(s.batches, len(records))
	return inserted, nil
}

func testRecord(i int) *models.HealthRecord {
	ts := time.Date(2025, 6, 2, 8, 0, 0, 0, time.FixedZone("EST", -5*3600)).
		Add(time.Duration(i) * time.Second)
	return models.NewHealthRecord("alice", "HKQuantityTypeIdentifierHeartRate", "Watch", ts, 70)
}

func TestBatchWriterFlushThreshold(t *testing.T) {
	sink := &fakeSink{}
	w := NewBatchWriter(sink, 1000)

	for i := 0; i < 2500; i++ {
		if err := w.Write(testRecord(i)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("final Flush failed: %v", err)
	}

	want := []int{1000, 1000, 500}
	if len(sink.batches) != len(want) {
		t.Fatalf("got %d batches, want %d: %v", len(sink.batches), len(want), sink.batches)
	}
	for i, size := range want {
		if sink.batches[i] != size {
			t.Errorf("batch %d: got %d, want %d", i, sink.batches[i], size)
		}
	}
	if w.Total() != 2500 {
		t.Errorf("Total = %d, want 2500", w.Total())
	}
}

func TestBatchWriterEmptyFlush(t *testing.T) {
	sink := &fakeSink{}
	w := NewBatchWriter(sink, 10)

	if err := w.Flush(); err != nil {
		t.Fatalf("empty Flush failed: %v", err)
	}
	if len(sink.batches) != 0 {
		t.Errorf("empty flush should not hit the sink, got %v", sink.batches)
	}
}

func TestBatchWriterWriteFailurePropagates(t *testing.T) {
	sink := &fakeSink{failOn: 2}
	w := NewBatchWriter(sink, 10)

	var gotErr error
	for i := 0; i < 30; i++ {
		if err := w.Write(testRecord(i)); err != nil {
			gotErr = err
			break
		}
	}
	if gotErr == nil {
		t.Fatal("expected the second flush to fail")
	}
	// First batch stays committed, the failed one is not counted.
	if w.Total() != 10 {
		t.Errorf("Total = %d, want 10", w.Total())
	}
}

func TestBatchWriterDefaultSize(t *testing.T) {
	w := NewBatchWriter(&fakeSink{}, 0)
	if w.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", w.batchSize, DefaultBatchSize)
	}
}

func TestBatchWriterProgress(t *testing.T) {
	sink := &fakeSink{}
	w := NewBatchWriter(sink, 5)

	var totals []int
	w.Progress = func(total int) { totals = append(totals, total) }

	for i := 0; i < 12; i++ {
		if err := w.Write(testRecord(i)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := []int{5, 10, 12}
	if len(totals) != len(want) {
		t.Fatalf("progress calls: got %v, want %v", totals, want)
	}
	for i := range want {
		if totals[i] != want[i] {
			t.Errorf("progress %d: got %d, want %d", i, totals[i], want[i])
		}
	}
}

func TestBatchWriterDedup(t *testing.T) {
	sink := &fakeSink{}
	w := NewBatchWriter(sink, 10).WithDedup()

	// Same sample written twice: identical content, different row IDs.
	a := testRecord(1)
	b := testRecord(1)
	if err := w.Write(a); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(b); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if a.DedupKey == nil || b.DedupKey == nil {
		t.Fatal("dedup keys not set")
	}
	if *a.DedupKey != *b.DedupKey {
		t.Errorf("identical content produced different keys: %s vs %s", *a.DedupKey, *b.DedupKey)
	}
	if w.Total() != 1 {
		t.Errorf("Total = %d, want 1 after dedup", w.Total())
	}
}

func TestBatchWriterNoDedupByDefault(t *testing.T) {
	sink := &fakeSink{}
	w := NewBatchWriter(sink, 10)

	r := testRecord(1)
	if err := w.Write(r); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if r.DedupKey != nil {
		t.Error("dedup key should not be set without WithDedup")
	}
}
