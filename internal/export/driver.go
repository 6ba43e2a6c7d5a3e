package export

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/concordnow/concord-export/pkg/concord"
)

// Options tunes a driver run.
type Options struct {
	// Statuses filters the agreements listing (repeated query key upstream).
	Statuses []string

	// AccessTypes optionally widens the listing beyond direct access.
	AccessTypes []string

	// PageSize is the listing page size. 0 uses the client default.
	PageSize int

	// MaxPages caps pagination per organization. 0 uses DefaultMaxPages.
	MaxPages int

	// Concurrency is the number of documents enriched in parallel within an
	// organization. 0 or 1 keeps the original strictly sequential behavior.
	Concurrency int

	// ProgressEvery logs a progress line after this many enriched documents.
	// 0 defaults to 1000.
	ProgressEvery int
}

// Summary reports what a run produced.
type Summary struct {
	Organizations int
	OrgFailures   int
	Documents     int
	Rows          int
	Retried       int
	RetryFailures int
}

// retryEntry defers a failed document to the single retry pass. seq is the
// discovery position so the replay order stays deterministic even when
// enrichment ran concurrently.
type retryEntry struct {
	seq int
	org concord.Organization
	doc concord.Agreement
}

// Driver orchestrates organizations, pagination, enrichment, and the retry
// pass, streaming rows to the sink as they are produced. All run state is
// scoped to Run, so a Driver can be reused across runs.
type Driver struct {
	client   concord.Client
	enricher Enricher
	sink     RowWriter
	columns  []string
	opts     Options
}

// NewDriver wires a driver for one export flavor.
func NewDriver(client concord.Client, enricher Enricher, sink RowWriter, columns []string, opts Options) *Driver {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1000
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Driver{
		client:   client,
		enricher: enricher,
		sink:     sink,
		columns:  columns,
		opts:     opts,
	}
}

// runState is the mutable state of a single run. The mutex serializes sink
// writes and retry-queue appends when enrichment is concurrent.
type runState struct {
	mu       sync.Mutex
	summary  Summary
	retries  []retryEntry
	enriched int
}

// Run executes the export. A failure listing organizations is fatal; a
// pagination failure skips that organization; an enrichment failure defers
// the document to the retry queue. Every document ends up either as a row
// in the sink or as a logged terminal failure.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	if err := d.sink.WriteHeader(d.columns); err != nil {
		return nil, err
	}

	orgs, err := d.client.Organizations(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "export: list organizations")
	}

	st := &runState{}
	st.summary.Organizations = len(orgs)

	pag := &Paginator{
		Client:      d.client,
		Statuses:    d.opts.Statuses,
		AccessTypes: d.opts.AccessTypes,
		PageSize:    d.opts.PageSize,
		MaxPages:    d.opts.MaxPages,
	}

	seq := 0
	for _, org := range orgs {
		docs, err := pag.FetchAll(ctx, org.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// One broken organization must not kill the whole export.
			zap.L().Error("skipping organization after pagination failure",
				zap.String("org", org.ID),
				zap.String("name", org.Name),
				zap.Error(err),
			)
			st.summary.OrgFailures++
			continue
		}

		st.summary.Documents += len(docs)
		if err := d.enrichAll(ctx, org, docs, seq, st); err != nil {
			return nil, err
		}
		seq += len(docs)
	}

	if err := d.retryPass(ctx, st); err != nil {
		return nil, err
	}

	return &st.summary, nil
}

// enrichAll enriches one organization's documents, writing successes to the
// sink and deferring failures.
func (d *Driver) enrichAll(ctx context.Context, org concord.Organization, docs []concord.Agreement, seqBase int, st *runState) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)

	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}

			row, err := d.enricher.Enrich(gCtx, org, doc)

			st.mu.Lock()
			defer st.mu.Unlock()

			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				zap.L().Error("enrichment failed, deferring to retry pass",
					zap.String("agreement", doc.UUID),
					zap.Error(err),
				)
				st.retries = append(st.retries, retryEntry{seq: seqBase + i, org: org, doc: doc})
				return nil
			}

			if err := d.sink.WriteRow(row); err != nil {
				return err
			}
			st.summary.Rows++
			st.enriched++
			if st.enriched%d.opts.ProgressEvery == 0 {
				zap.L().Info("export in progress",
					zap.Int("enriched", st.enriched),
					zap.String("org", org.ID),
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// retryPass replays the deferred documents exactly once, in discovery order.
// A document that fails again is logged and dropped for good.
func (d *Driver) retryPass(ctx context.Context, st *runState) error {
	zap.L().Info("retrying documents in error", zap.Int("count", len(st.retries)))

	sort.Slice(st.retries, func(i, j int) bool {
		return st.retries[i].seq < st.retries[j].seq
	})

	for _, e := range st.retries {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "export: retry pass cancelled")
		}

		row, err := d.enricher.Enrich(ctx, e.org, e.doc)
		if err != nil {
			zap.L().Error("enrichment failed on retry, dropping document",
				zap.String("agreement", e.doc.UUID),
				zap.Error(err),
			)
			st.summary.RetryFailures++
			continue
		}

		if err := d.sink.WriteRow(row); err != nil {
			return err
		}
		st.summary.Rows++
		st.summary.Retried++
	}

	return nil
}
