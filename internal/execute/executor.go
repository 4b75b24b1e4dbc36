package execute

import (
	"context"
	"iter"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"metadata-mapper/internal/compile"
	"metadata-mapper/internal/diagnostic"
	"metadata-mapper/internal/domain"
	"metadata-mapper/internal/model"
)

// Source provides input records and schemas.
type Source interface {
	// GetObjects streams the records of a data model. A non-empty
	// recordIDs restricts the stream to those records; limit <= 0 means
	// no limit.
	GetObjects(ctx context.Context, dataModelID model.ID, recordIDs []string, limit int) iter.Seq2[model.Record, error]
	GetSchema(ctx context.Context, dataModelID model.ID) (*model.Schema, error)
}

// Sink stores output records.
type Sink interface {
	CreateObjects(ctx context.Context, dataModelID model.ID, records []model.Record) error
}

// Options tune an Executor.
type Options struct {
	// Workers bounds concurrent record evaluations; zero means GOMAXPROCS.
	Workers int
	// MaxFailureRate is the share of failed records a run tolerates.
	MaxFailureRate float64
	// MinRecords is the number of records processed before the failure
	// rate is enforced.
	MinRecords int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Workers: runtime.GOMAXPROCS(0), MaxFailureRate: 0.5, MinRecords: 10}
}

// Request describes one run.
type Request struct {
	// SelectedRecords restricts the run to the listed input records.
	SelectedRecords []string
	// Limit caps the number of input records; zero means all.
	Limit int
	// Persist writes the output to the sink instead of returning it.
	Persist bool
}

// RecordDiagnostics are the diagnostics of one input record.
type RecordDiagnostics struct {
	RecordID    string                 `json:"record_id"`
	Diagnostics diagnostic.Diagnostics `json:"diagnostics"`
}

// Result summarizes a run.
type Result struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Produced  int    `json:"produced"`
	Persisted bool   `json:"persisted"`
	// Records holds the output when it was not persisted.
	Records     []model.Record      `json:"records,omitempty"`
	Diagnostics []RecordDiagnostics `json:"diagnostics,omitempty"`
	Latency     LatencyStats        `json:"latency"`
}

// Executor runs pipelines.
type Executor struct {
	source Source
	sink   Sink
	opts   Options
	log    logrus.FieldLogger
}

// New creates an executor. sink may be nil when runs never persist.
func New(source Source, sink Sink, opts Options, log logrus.FieldLogger) *Executor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	return &Executor{source: source, sink: sink, opts: opts, log: log}
}

// AttachSchemas loads the schemas a task refers to but does not embed.
func (e *Executor) AttachSchemas(ctx context.Context, task *model.Task) error {
	for _, dm := range []*model.DataModel{task.InputDataModel, task.OutputDataModel} {
		if dm == nil || (dm.Schema != nil && len(dm.Schema.AttributePaths) > 0) {
			continue
		}

		s, err := e.source.GetSchema(ctx, dm.ID)
		if err != nil {
			if domain.IsClientError(err) {
				return err
			}

			return domain.NewExternalStore("record source", "get schema", err)
		}

		dm.Schema = s
	}

	return nil
}

// slot receives the outcome of one record.
type slot struct {
	id      string
	outputs []model.Record
	diags   diagnostic.Diagnostics
}

// run holds the shared state of one Execute call.
type run struct {
	opts    Options
	log     logrus.FieldLogger
	mu      sync.Mutex
	done    int
	failed  int
	latency *latency
}

// finish records a completed record and enforces the failure threshold.
func (r *run) finish(s *slot, took time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done++
	if s.diags.HasErrors() {
		r.failed++
	}

	if err := r.latency.record(took); err != nil {
		r.log.WithError(err).Debug("latency not recorded")
	}

	return r.check()
}

func (r *run) check() error {
	if r.done < max(r.opts.MinRecords, 1) {
		return nil
	}

	if float64(r.failed)/float64(r.done) > r.opts.MaxFailureRate {
		return domain.NewFailureThreshold(r.failed, r.done, r.opts.MaxFailureRate)
	}

	return nil
}

// Execute runs the pipeline over the records of its input data model.
func (e *Executor) Execute(ctx context.Context, req Request, p *compile.Pipeline) (*Result, error) {
	if req.Persist && e.sink == nil {
		return nil, errors.New("persisting requires a record sink")
	}

	runID := uuid.NewString()
	log := e.log.WithFields(logrus.Fields{"run": runID, "task": p.Task})
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	r := &run{opts: e.opts, log: log, latency: newLatency()}

	var (
		slots  []*slot
		srcErr error
	)

	for rec, err := range e.source.GetObjects(gctx, p.InputDataModel, req.SelectedRecords, req.Limit) {
		if gctx.Err() != nil {
			break
		}

		if err != nil {
			srcErr = domain.NewExternalStore("record source", "get objects", err)
			break
		}

		s := &slot{id: rec.ID}
		slots = append(slots, s)

		g.Go(func() error {
			start := time.Now()

			out, diags, err := p.Evaluate(gctx, rec)
			if err != nil {
				return err
			}

			s.outputs, s.diags = out, diags

			if diags.HasErrors() {
				log.WithField("record", rec.ID).Debug(diags.Error())
			}

			return r.finish(s, time.Since(start))
		})
	}

	if srcErr != nil {
		cancel()
	}

	waitErr := g.Wait()

	switch {
	case srcErr != nil:
		return nil, srcErr
	case waitErr != nil:
		log.WithError(waitErr).Warn("run aborted")
		return nil, waitErr
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	res := &Result{RunID: runID, Processed: r.done, Failed: r.failed, Latency: r.latency.stats()}

	var records []model.Record

	for _, s := range slots {
		records = append(records, s.outputs...)

		if !s.diags.Empty() {
			res.Diagnostics = append(res.Diagnostics, RecordDiagnostics{RecordID: s.id, Diagnostics: s.diags})
		}
	}

	res.Produced = len(records)

	if req.Persist {
		if err := e.sink.CreateObjects(ctx, p.OutputDataModel, records); err != nil {
			return nil, domain.NewExternalStore("record sink", "create objects", err)
		}

		res.Persisted = true
	} else {
		res.Records = records
	}

	log.WithFields(logrus.Fields{
		"processed": res.Processed,
		"failed":    res.Failed,
		"produced":  res.Produced,
		"p99_us":    res.Latency.P99,
		"took":      time.Since(started).String(),
	}).Info("run finished")

	return res, nil
}
