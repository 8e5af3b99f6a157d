package applist

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// AppAdder stores a newly tracked app. *store.SQLStore implements it.
type AppAdder interface {
	AddApp(ctx context.Context, app store.App) (bool, error)
}

// JobCreator schedules a scan. *vusc.Client implements it.
type JobCreator interface {
	CreateJob(ctx context.Context, fileName string, r io.Reader) (*vusc.Job, error)
}

// ImportStats summarizes an import.
type ImportStats struct {
	Listed     int
	Added      int
	Duplicates int
}

// Import fingerprints every APK in paths and stores one app per APK for the
// given release year. Apps already tracked are counted as duplicates.
func Import(ctx context.Context, o *Opener, apps AppAdder, paths []string, year, workers int) (ImportStats, error) {
	start := time.Now()
	ctx = logctx.WithInt(ctx, "year", year)
	log := logctx.FromContext(ctx)
	stats := ImportStats{Listed: len(paths)}

	sums, err := o.Fingerprints(ctx, paths, workers)
	if err != nil {
		return stats, fmt.Errorf("fingerprint apps: %w", err)
	}

	for i, p := range paths {
		added, err := apps.AddApp(ctx, store.App{Year: year, APKFileName: p, SHA256: sums[i]})
		if err != nil {
			return stats, fmt.Errorf("add app %s: %w", p, err)
		}
		if added {
			stats.Added++
		} else {
			stats.Duplicates++
		}
	}

	logging.PipelineComplete(log, "import", time.Since(start)).
		Int("listed", stats.Listed).
		Int("added", stats.Added).
		Int("duplicates", stats.Duplicates).
		Log("imported apps")
	return stats, nil
}

// SubmitStats summarizes a submission.
type SubmitStats struct {
	Submitted int
	Failed    int
}

// Submit uploads every APK in paths for scanning. A failed upload is logged
// and the next APK is tried.
func Submit(ctx context.Context, o *Opener, jobs JobCreator, paths []string) SubmitStats {
	start := time.Now()
	log := logctx.FromContext(ctx)
	tracker := logging.NewProgressTracker("submit", int64(len(paths)), log)

	var stats SubmitStats
	for _, p := range paths {
		apkStart := time.Now()
		apkCtx := logctx.WithStr(ctx, "apk", p)
		job, err := submitOne(apkCtx, o, jobs, p)
		if err != nil {
			apkLog := logctx.FromContext(apkCtx)
			apkLog.Error().Err(err).Msg("failed to schedule scan")
			stats.Failed++
			tracker.RecordFailure()
			continue
		}
		if job != nil {
			apkLog := logctx.FromContext(apkCtx)
			apkLog.Debug().Int64("job_id", job.ID).Msg("scheduled scan")
		}
		stats.Submitted++
		tracker.RecordProcessed(time.Since(apkStart))
	}

	logging.PipelineComplete(log, "submit", time.Since(start)).
		ProgressFromTracker(tracker).
		Log("submitted apps")
	return stats
}

func submitOne(ctx context.Context, o *Opener, jobs JobCreator, p string) (*vusc.Job, error) {
	rc, err := o.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return jobs.CreateJob(ctx, BaseName(p), rc)
}
