// ABOUTME: Migration orchestrator sequencing user upsert, import, aggregation, and device registration.
// ABOUTME: One storage connection for the whole run; every step is independently idempotent except raw ingestion.
package migrate

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Adithyav2000/pulsecontext/internal/aggregate"
	"github.com/Adithyav2000/pulsecontext/internal/cache"
	"github.com/Adithyav2000/pulsecontext/internal/config"
	"github.com/Adithyav2000/pulsecontext/internal/export"
	"github.com/Adithyav2000/pulsecontext/internal/importer"
	"github.com/Adithyav2000/pulsecontext/internal/models"
	"github.com/Adithyav2000/pulsecontext/internal/storage"
)

// Summary is the externally observable result of a run: callers assert on
// these counts and the completion markers written to the progress log.
type Summary struct {
	UserID          string
	RecordsInserted int
	RecordsSkipped  int
	Aggregations    []string
	DeviceSources   int
	Duration        time.Duration
}

// Orchestrator drives the full migration pipeline.
type Orchestrator struct {
	cfg   *config.Config
	store *storage.DB
	cache *cache.Cache // optional; nil disables the snapshot refresh
	out   io.Writer    // progress log
	dedup bool
}

// NewOrchestrator creates an orchestrator. The cache may be nil; out receives
// the human-readable progress log.
func NewOrchestrator(cfg *config.Config, store *storage.DB, snapshots *cache.Cache, out io.Writer) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, cache: snapshots, out: out}
}

// WithDedup enables content-derived dedup keys on ingestion, making
// re-imports of the same file safe.
func (o *Orchestrator) WithDedup() *Orchestrator {
	o.dedup = true
	return o
}

// Run executes the pipeline for one user and export file:
// ensure user, import records, four aggregation passes, device registration,
// snapshot refresh. A failure inside aggregation keeps earlier completed
// steps; re-running repairs the rest because each step fully replaces its
// own output.
func (o *Orchestrator) Run(userID, exportPath string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{UserID: userID}

	user := models.User{UserID: userID, Name: o.cfg.UserName, Timezone: o.cfg.UserTimezone}
	if err := o.store.EnsureUser(user); err != nil {
		return nil, err
	}

	inserted, skipped, err := o.importRecords(userID, exportPath)
	summary.RecordsInserted = inserted
	summary.RecordsSkipped = skipped
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(o.out, "Loaded %d health records (%d skipped)\n", inserted, skipped)

	engine := aggregate.NewEngine(o.store)
	steps := []struct {
		name string
		fn   func(string) error
	}{
		{"daily summaries", engine.ComputeDailySummaries},
		{"hr baselines", engine.ComputeHRBaselines},
		{"hrv baseline", engine.ComputeHRVBaseline},
		{"activity patterns", engine.ComputeActivityPatterns},
	}
	for _, step := range steps {
		if err := step.fn(userID); err != nil {
			return summary, &aggregate.StepError{Step: step.name, Err: err}
		}
		summary.Aggregations = append(summary.Aggregations, step.name)
		fmt.Fprintf(o.out, "Computed %s\n", step.name)
	}

	sources := models.KnownDeviceSources(userID)
	if err := o.store.RegisterDeviceSources(sources); err != nil {
		return summary, err
	}
	summary.DeviceSources = len(sources)
	fmt.Fprintf(o.out, "Registered %d device sources\n", len(sources))

	if err := o.refreshSnapshot(userID); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// Aggregate recomputes the derived tables only, then refreshes the snapshot.
func (o *Orchestrator) Aggregate(userID string) error {
	if err := aggregate.NewEngine(o.store).Run(userID); err != nil {
		return err
	}
	return o.refreshSnapshot(userID)
}

// importRecords streams the export through the normalizer into the batch
// writer. Per-record skips are tolerated and counted; structural parse
// errors and write failures abort.
func (o *Orchestrator) importRecords(userID, exportPath string) (inserted, skipped int, err error) {
	scanner, err := export.OpenExport(exportPath)
	if err != nil {
		return 0, 0, err
	}
	defer scanner.Close()

	normalizer := export.NewNormalizer(userID)
	writer := importer.NewBatchWriter(o.store, o.cfg.BatchSize)
	if o.dedup {
		writer.WithDedup()
	}
	writer.Progress = func(total int) {
		fmt.Fprintf(o.out, "  ...inserted %d records\n", total)
	}

	for scanner.Scan() {
		records, err := normalizer.Normalize(scanner.Element())
		if err != nil {
			var skip *export.SkipError
			if errors.As(err, &skip) {
				fmt.Fprintf(o.out, "  warning: %v\n", skip)
				continue
			}
			return writer.Total(), normalizer.Skipped(), err
		}
		for _, r := range records {
			if err := writer.Write(r); err != nil {
				return writer.Total(), normalizer.Skipped(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return writer.Total(), normalizer.Skipped(), err
	}

	// Final partial batch.
	if err := writer.Flush(); err != nil {
		return writer.Total(), normalizer.Skipped(), err
	}
	return writer.Total(), normalizer.Skipped(), nil
}

// refreshSnapshot rebuilds the cached per-user view from the freshly
// committed derived tables.
func (o *Orchestrator) refreshSnapshot(userID string) error {
	if o.cache == nil {
		return nil
	}

	count, err := o.store.CountRecords(userID)
	if err != nil {
		return err
	}
	summaries, err := o.store.ListDailySummaries(userID)
	if err != nil {
		return err
	}
	hrv, err := o.store.GetHRVBaseline(userID)
	if err != nil {
		return err
	}

	snapshot := &cache.Snapshot{
		UserID:      userID,
		GeneratedAt: time.Now(),
		RecordCount: count,
		HRVBaseline: hrv,
	}
	if len(summaries) > 0 {
		snapshot.LatestSummary = summaries[0]
	}
	return o.cache.PutSnapshot(snapshot)
}
