package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunmann/vuln-stats/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// DefaultProgressEvery is how many apps pass between progress log lines.
const DefaultProgressEvery = 100

// ProgressTracker tracks progress through the app list with ETA calculation.
// It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	pipeline  string
	every     int64

	// For moving average of per-app durations
	mu              sync.Mutex
	recentDurations []time.Duration
	maxRecent       int
}

// NewProgressTracker creates a new progress tracker that logs a progress line
// every DefaultProgressEvery apps.
func NewProgressTracker(pipeline string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:           total,
		startTime:       time.Now(),
		log:             log,
		pipeline:        pipeline,
		every:           DefaultProgressEvery,
		recentDurations: make([]time.Duration, 0, 10),
		maxRecent:       10,
	}
}

// SetEvery changes the progress log interval. Values below one disable
// periodic logging.
func (pt *ProgressTracker) SetEvery(n int64) {
	pt.every = n
}

// RecordProcessed records that an app's job was handled in d.
func (pt *ProgressTracker) RecordProcessed(d time.Duration) {
	pt.processed.Add(1)

	pt.mu.Lock()
	if len(pt.recentDurations) >= pt.maxRecent {
		pt.recentDurations = pt.recentDurations[1:]
	}
	pt.recentDurations = append(pt.recentDurations, d)
	pt.mu.Unlock()

	pt.maybeLog()
}

// RecordSkip records that an app had no usable job.
func (pt *ProgressTracker) RecordSkip() {
	pt.skipped.Add(1)
	pt.maybeLog()
}

// RecordFailure records that an app's lookup or handler failed.
func (pt *ProgressTracker) RecordFailure() {
	pt.failed.Add(1)
	pt.maybeLog()
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (processed, skipped, failed, total int64) {
	return pt.processed.Load(), pt.skipped.Load(), pt.failed.Load(), pt.total
}

// Done returns the number of apps visited so far.
func (pt *ProgressTracker) Done() int64 {
	return pt.processed.Load() + pt.skipped.Load() + pt.failed.Load()
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(pt.Done()) * 100.0 / float64(pt.total)
}

// ETA returns the estimated time remaining based on recent per-app durations.
func (pt *ProgressTracker) ETA() time.Duration {
	processed := pt.processed.Load()
	if processed == 0 {
		return 0
	}

	remaining := pt.Remaining()
	if remaining <= 0 {
		return 0
	}

	// Use moving average if available, else overall average
	pt.mu.Lock()
	var avgDuration time.Duration
	if len(pt.recentDurations) > 0 {
		var sum time.Duration
		for _, d := range pt.recentDurations {
			sum += d
		}
		avgDuration = sum / time.Duration(len(pt.recentDurations))
	} else {
		avgDuration = time.Since(pt.startTime) / time.Duration(processed)
	}
	pt.mu.Unlock()

	return avgDuration * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Remaining returns how many apps are left.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.Done()
}

// Total returns the total count.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}

func (pt *ProgressTracker) maybeLog() {
	if pt.every < 1 {
		return
	}
	done := pt.Done()
	if done%pt.every != 0 || done == pt.total {
		return
	}
	NewCompletionEvent(pt.log, "progress", pt.pipeline, pt.Elapsed()).
		ProgressFromTracker(pt).
		LogDebug("traversal progress")
}

// CompletionEvent helps build consistent completion log events.
type CompletionEvent struct {
	log      zerolog.Logger
	event    string
	pipeline string
	elapsed  time.Duration
	fields   map[string]interface{}
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, pipeline string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:      log,
		event:    event,
		pipeline: pipeline,
		elapsed:  elapsed,
		fields:   make(map[string]interface{}),
	}
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Float64 adds a float64 field.
func (ce *CompletionEvent) Float64(key string, val float64) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Count adds count with optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.fields[key] = n
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Count(n)
	}
	return ce
}

// ProgressFromTracker adds progress fields from a ProgressTracker.
func (ce *CompletionEvent) ProgressFromTracker(pt *ProgressTracker) *CompletionEvent {
	processed, skipped, failed, total := pt.Progress()
	ce.fields["processed"] = processed
	ce.fields["skipped"] = skipped
	ce.fields["failed"] = failed
	ce.fields["total"] = total
	if total > 0 {
		ce.fields["progress_pct"] = pt.ProgressPct()
	}
	if eta := pt.ETA(); eta > 0 {
		ce.fields["eta_ms"] = eta.Milliseconds()
		if IsPrettyMode() {
			ce.fields["eta_h"] = humanfmt.Duration(eta)
		}
	}
	return ce
}

// Log emits the completion event.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("pipeline", ce.pipeline).
		Int64("duration_ms", ce.elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}

	for k, v := range ce.fields {
		e = e.Interface(k, v)
	}

	e.Msg(msg)
}

// TraversalComplete logs the end of a walk over the app list.
func TraversalComplete(log zerolog.Logger, pipeline string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "traversal_completed", pipeline, elapsed)
}

// PipelineComplete logs a pipeline completion event.
func PipelineComplete(log zerolog.Logger, pipeline string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "pipeline_completed", pipeline, elapsed)
}

// FileCreated logs a file creation completion event.
func FileCreated(log zerolog.Logger, pipeline string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_created", pipeline, elapsed)
}
