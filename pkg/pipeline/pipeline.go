// Package pipeline implements the statistics aggregations run over the
// tracked apps' scan jobs.
//
// Every pipeline is a value built for one invocation. It persists per-job
// records as each job is processed and run-wide library totals once, from
// Finish, after the traversal has visited every app. Running totals are only
// updated after a job's findings were fully processed, so a job that fails
// halfway contributes nothing to them.
package pipeline

import (
	"context"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/attribution"
	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/traversal"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// Pipeline names, as selected on the command line.
const (
	NameJobMetadata         = "findjobs"
	NameCategoryAttribution = "vulnspercat1"
	NameCategoryTypeMatrix  = "vulnspercat2"
	NameCryptoUsage         = "cryptostat1"
	NameOutdatedAlgorithms  = "cryptostat2"
)

// Pipeline aggregates the findings of one job at a time.
type Pipeline interface {
	Name() string
	// ProcessJob handles the selected job of one app. A returned error
	// abandons the job; it is logged by the traversal.
	ProcessJob(ctx context.Context, app store.App, job *vusc.Job) error
	// Finish persists the run-wide totals.
	Finish(ctx context.Context) error
	Stats() Stats
}

// Stats counts what a pipeline wrote.
type Stats struct {
	// Written counts inserted records per table, in first-write order.
	Written       *counting.Map[string]
	PersistErrors int
	Attribution   attribution.Stats
}

// Records returns the total number of records written.
func (s Stats) Records() int {
	if s.Written == nil {
		return 0
	}
	return s.Written.Sum()
}

// Summary describes one pipeline run.
type Summary struct {
	Pipeline  string
	Traversal traversal.Stats
	Stats     Stats
	// FinishErr is the error returned by Finish, if any.
	FinishErr error
	Elapsed   time.Duration
}

// Run walks apps with w, feeding every usable job to p, then calls Finish.
// It never stops early: failures are logged and reflected in the summary.
func Run(ctx context.Context, w *traversal.Walker, apps []store.App, p Pipeline) Summary {
	start := time.Now()
	log := logctx.FromContext(ctx)

	walker := *w
	walker.Name = p.Name()
	ts := walker.ForEachUsableJob(ctx, apps, p.ProcessJob)

	finishCtx := logctx.WithStr(ctx, "pipeline", p.Name())
	finishErr := p.Finish(finishCtx)
	if finishErr != nil {
		finishLog := logctx.FromContext(finishCtx)
		finishLog.Error().Err(finishErr).Msg("failed to finish pipeline")
	}

	s := Summary{
		Pipeline:  p.Name(),
		Traversal: ts,
		Stats:     p.Stats(),
		FinishErr: finishErr,
		Elapsed:   time.Since(start),
	}
	logging.PipelineComplete(log, p.Name(), s.Elapsed).
		Int("apps", ts.Apps).
		Int("jobs", ts.Processed).
		Int("failed", ts.Failed).
		Count("records", int64(s.Stats.Records())).
		Int("persist_errors", s.Stats.PersistErrors).
		Float64("cache_hit_rate", s.Stats.Attribution.HitRate()).
		Log("pipeline finished")
	return s
}

// recorder writes records to a sink. A failed insert is logged and counted;
// it never fails the job.
type recorder struct {
	sink    store.Sink
	written counting.Map[string]
	errors  int
}

func (r *recorder) write(ctx context.Context, rec store.Record) {
	if err := r.sink.Insert(ctx, rec); err != nil {
		log := logctx.FromContext(ctx)
		log.Error().Err(err).Str("table", rec.Table()).Msg("failed to persist record")
		r.errors++
		return
	}
	r.written.Increment(rec.Table())
}

func (r *recorder) stats(cache *attribution.Cache) Stats {
	written := counting.NewMap[string]()
	for _, table := range r.written.Keys() {
		written.Add(table, r.written.Get(table))
	}
	s := Stats{Written: written, PersistErrors: r.errors}
	if cache != nil {
		s.Attribution = cache.Stats()
	}
	return s
}
