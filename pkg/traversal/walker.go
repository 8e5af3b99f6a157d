// Package traversal walks the tracked apps and hands each app's usable scan
// job to a handler.
package traversal

import (
	"context"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// JobFinder returns the jobs for an app fingerprint in service order.
// *vusc.Client implements it.
type JobFinder interface {
	JobsByHash(ctx context.Context, fingerprint string) ([]vusc.Job, error)
}

// Handler processes the selected job of one app. The context carries a
// logger tagged with the app and job.
type Handler func(ctx context.Context, app store.App, job *vusc.Job) error

// Stats summarizes one walk.
type Stats struct {
	Apps      int
	Processed int
	Skipped   int
	Failed    int
	Elapsed   time.Duration
}

// Walker drives a Handler over a list of apps.
type Walker struct {
	Jobs JobFinder
	// Name labels log lines, usually the pipeline name. Per-app contexts
	// carry it as the "pipeline" field.
	Name string
	// ProgressEvery overrides the progress log interval when positive.
	ProgressEvery int64
}

// SelectUsable returns the first finished, non-failed job, or nil.
func SelectUsable(jobs []vusc.Job) *vusc.Job {
	for i := range jobs {
		if jobs[i].Usable() {
			return &jobs[i]
		}
	}
	return nil
}

// ForEachUsableJob visits the apps in order. For each app it fetches the
// jobs, picks the first usable one and calls handler exactly once with it.
// Apps without a usable job are skipped. A failed query or handler is logged
// with the app's identity and the walk moves on.
func (w *Walker) ForEachUsableJob(ctx context.Context, apps []store.App, handler Handler) Stats {
	start := time.Now()
	log := logctx.FromContext(ctx)
	tracker := logging.NewProgressTracker(w.Name, int64(len(apps)), log)
	if w.ProgressEvery > 0 {
		tracker.SetEvery(w.ProgressEvery)
	}

	stats := Stats{Apps: len(apps)}
	for _, app := range apps {
		appStart := time.Now()
		appCtx := logctx.WithApp(ctx, app.APKFileName, app.SHA256)
		if w.Name != "" {
			appCtx = logctx.WithStr(appCtx, "pipeline", w.Name)
		}
		appLog := logctx.FromContext(appCtx)

		jobs, err := w.Jobs.JobsByHash(appCtx, app.SHA256)
		if err != nil {
			appLog.Error().Err(err).Msg("failed to query jobs")
			stats.Failed++
			tracker.RecordFailure()
			continue
		}

		job := SelectUsable(jobs)
		if job == nil {
			appLog.Debug().Int("jobs", len(jobs)).Msg("no usable job")
			stats.Skipped++
			tracker.RecordSkip()
			continue
		}

		jobCtx := logctx.WithJob(appCtx, job.ID)
		if err := handler(jobCtx, app, job); err != nil {
			jobLog := logctx.FromContext(jobCtx)
			jobLog.Error().Err(err).Msg("failed to process job")
			stats.Failed++
			tracker.RecordFailure()
			continue
		}
		stats.Processed++
		tracker.RecordProcessed(time.Since(appStart))
	}

	stats.Elapsed = time.Since(start)
	logging.TraversalComplete(log, w.Name, stats.Elapsed).
		ProgressFromTracker(tracker).
		Log("processed jobs")
	return stats
}
