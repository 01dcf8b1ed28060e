// Package pipeline sequences the conforming stages for one ingestion event:
// normalize, reconcile, deduplicate, partition, write. Error scope follows
// the cause: row errors drop rows, file errors drop files, partition errors
// drop partitions, catalog errors fail the event before anything is written.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trendlake/trendlake"
	"github.com/trendlake/trendlake/dedup"
	"github.com/trendlake/trendlake/normalize"
	"github.com/trendlake/trendlake/partition"
	"github.com/trendlake/trendlake/reconcile"
	"github.com/trendlake/trendlake/writer"
)

// Stage identifies a pipeline stage for state tracking and failure
// reporting.
type Stage string

// Pipeline stages in execution order.
const (
	StageReceived     Stage = "received"
	StageNormalized   Stage = "normalized"
	StageReconciled   Stage = "reconciled"
	StageDeduplicated Stage = "deduplicated"
	StagePartitioned  Stage = "partitioned"
	StageWritten      Stage = "written"
	StageDone         Stage = "done"
)

// StageError is the terminal failure state of an event: which stage failed
// and why.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Cause supports pkg/errors cause chains.
func (e *StageError) Cause() error { return e.Err }

// Option is a functional option type for Pipeline.
type Option func(p *Pipeline)

// OptRetries sets how many times a transiently failing storage operation is
// retried before the failure escalates.
func OptRetries(n int) Option {
	return func(p *Pipeline) {
		p.retries = n
	}
}

// OptTimeout bounds each storage and catalog operation. Zero disables the
// bound.
func OptTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// OptPartitionByDate enables trending_date sub-partitioning of the conformed
// tier.
func OptPartitionByDate(byDate bool) Option {
	return func(p *Pipeline) {
		p.assigner.ByDate = byDate
	}
}

// OptContainerKey sets the JSON key under which source documents nest their
// records.
func OptContainerKey(key string) Option {
	return func(p *Pipeline) {
		p.containerKey = key
	}
}

// Pipeline is the orchestrator for ingestion events. One Pipeline may run
// many events concurrently; events touching the same partition race on the
// dedup read-then-write and may both persist a key, which a later
// reconciliation pass resolves.
type Pipeline struct {
	store   trendlake.Store
	catalog trendlake.Catalog

	reconciler *reconcile.Reconciler
	deduper    *dedup.Deduper
	assigner   partition.Assigner
	writer     *writer.Writer

	containerKey string
	retries      int
	timeout      time.Duration
}

// NewPipeline gets a Pipeline for the dataset with the options applied.
func NewPipeline(store trendlake.Store, catalog trendlake.Catalog, dataset string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		catalog:      catalog,
		reconciler:   reconcile.NewReconciler(),
		deduper:      dedup.NewDeduper(catalog),
		writer:       writer.NewWriter(store, catalog, dataset),
		containerKey: normalize.DefaultContainerKey,
		retries:      2,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report describes what one event did, in enough detail to re-run any failed
// unit without reprocessing the rest.
type Report struct {
	EventID string
	Stage   Stage

	RowsIn        int
	RowsConformed int
	RowsDeduped   int
	RowsWritten   int

	// Malformed lists files skipped as unparseable.
	Malformed []*trendlake.MalformedInputError
	// Dropped lists rows rejected for missing required keys.
	Dropped []*trendlake.SchemaViolationError
	// Written maps partition keys to the object keys published for them.
	Written map[string]string
	// Failed maps partition keys to their write errors.
	Failed map[string]*trendlake.PartitionWriteError
}

func (r *Report) fail(stage Stage, err error) (*Report, error) {
	r.Stage = stage
	return r, &StageError{Stage: stage, Err: err}
}

// srcRow tracks a normalized row's origin for error reporting.
type srcRow struct {
	file string
	idx  int
	row  trendlake.NormalizedRow
}

// Run processes one ingestion event: the given landing-tier object keys as a
// single batch. Returns a Report in all cases; the error is non-nil only
// when the whole event failed (a StageError). Partition-scoped write
// failures do not fail the event; they are recorded in the report.
func (p *Pipeline) Run(ctx context.Context, keys ...string) (*Report, error) {
	rep := &Report{
		EventID: uuid.New().String(),
		Stage:   StageReceived,
		Written: make(map[string]string),
		Failed:  make(map[string]*trendlake.PartitionWriteError),
	}

	// Normalize, one file at a time. A malformed file is logged and skipped;
	// a storage failure that survives the retry bound fails the event.
	var rows []srcRow
	for _, key := range keys {
		normalized, err := p.normalizeObject(ctx, key)
		if err != nil {
			var malformed *trendlake.MalformedInputError
			if errors.As(err, &malformed) {
				log.Printf("skipping file: %v", malformed)
				rep.Malformed = append(rep.Malformed, malformed)
				continue
			}
			return rep.fail(StageNormalized, err)
		}
		for i, row := range normalized {
			rows = append(rows, srcRow{file: key, idx: i, row: row})
		}
	}
	rep.Stage = StageNormalized
	rep.RowsIn = len(rows)

	// Reconcile. Row-scoped and deterministic, never retried.
	conformed := make([]trendlake.ConformedRow, 0, len(rows))
	for _, sr := range rows {
		row, err := p.reconciler.Conform(sr.file, sr.idx, sr.row)
		if err != nil {
			var violation *trendlake.SchemaViolationError
			if errors.As(err, &violation) {
				rep.Dropped = append(rep.Dropped, violation)
				continue
			}
			return rep.fail(StageReconciled, err)
		}
		conformed = append(conformed, row)
	}
	rep.Stage = StageReconciled
	rep.RowsConformed = len(conformed)
	if len(rep.Dropped) > 0 {
		log.Printf("dropped %d of %d rows for schema violations", len(rep.Dropped), len(rows))
	}

	// Dedup. A catalog failure aborts the event; nothing has been written
	// yet, so the trigger can simply re-fire it.
	octx, cancel := p.opCtx(ctx)
	deduped, err := p.deduper.Dedup(octx, conformed)
	cancel()
	if err != nil {
		return rep.fail(StageDeduplicated, err)
	}
	rep.Stage = StageDeduplicated
	rep.RowsDeduped = len(deduped)

	groups := p.assigner.Assign(deduped)
	rep.Stage = StagePartitioned

	// The event may be abandoned with no side effects any time before here.
	if err := ctx.Err(); err != nil {
		return rep.fail(StagePartitioned, err)
	}

	// Flush partitions concurrently. Staging paths are keyed by event
	// identity, so concurrent events never collide; failures are
	// partition-scoped and the rest of the batch proceeds.
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, g := range groups {
		wg.Add(1)
		go func(g partition.Group) {
			defer wg.Done()
			var objKey string
			err := p.retry(func() error {
				wctx, cancel := p.opCtx(ctx)
				defer cancel()
				var werr error
				objKey, werr = p.writer.WriteGroup(wctx, rep.EventID, g)
				return werr
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				perr := &trendlake.PartitionWriteError{Partition: g.Partition.Key(), Err: err}
				log.Printf("%v", perr)
				rep.Failed[g.Partition.Key()] = perr
				return
			}
			rep.Written[g.Partition.Key()] = objKey
			rep.RowsWritten += len(g.Rows)
		}(g)
	}
	wg.Wait()
	rep.Stage = StageWritten

	rep.Stage = StageDone
	return rep, nil
}

func (p *Pipeline) normalizeObject(ctx context.Context, key string) ([]trendlake.NormalizedRow, error) {
	n := normalize.NewNormalizer()
	n.ContainerKey = p.containerKey
	n.DefaultRegion = regionFromKey(key)

	var rows []trendlake.NormalizedRow
	err := p.retry(func() error {
		octx, cancel := p.opCtx(ctx)
		defer cancel()
		r, err := p.store.Get(octx, key)
		if err != nil {
			return err
		}
		rows, err = n.Normalize(r)
		return err
	})
	return rows, err
}

// retry runs op up to 1+retries times, stopping early on success or a
// non-transient error.
func (p *Pipeline) retry(op func() error) error {
	var err error
	for try := 0; try <= p.retries; try++ {
		err = op()
		if err == nil || !trendlake.IsTransient(err) {
			return err
		}
		if try < p.retries {
			log.Printf("retrying after transient storage error (attempt %d of %d): %v", try+1, p.retries+1, err)
		}
	}
	return err
}

func (p *Pipeline) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}

// regionFromKey pulls the region code out of a landing key's region=<code>
// path element, e.g. "trending/raw/region=us/2017-11-14.csv" yields "us".
// Returns "" when the key carries none.
func regionFromKey(key string) string {
	for _, part := range strings.Split(key, "/") {
		if strings.HasPrefix(part, "region=") {
			return strings.TrimPrefix(part, "region=")
		}
	}
	return ""
}
