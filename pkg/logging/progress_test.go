package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProgressTracker_BasicOperations(t *testing.T) {
	var buf bytes.Buffer
	pt := NewProgressTracker("vulnspercat1", 10, zerolog.New(&buf))

	pt.RecordProcessed(100 * time.Millisecond)
	pt.RecordProcessed(150 * time.Millisecond)
	pt.RecordSkip()
	pt.RecordFailure()

	processed, skipped, failed, total := pt.Progress()
	if processed != 2 || skipped != 1 || failed != 1 || total != 10 {
		t.Errorf("Progress() = %d, %d, %d, %d, want 2, 1, 1, 10", processed, skipped, failed, total)
	}

	if pct := pt.ProgressPct(); pct != 40.0 {
		t.Errorf("expected progress 40%%, got %.1f%%", pct)
	}
	if remaining := pt.Remaining(); remaining != 6 {
		t.Errorf("expected remaining=6, got %d", remaining)
	}
}

func TestProgressTracker_ETA(t *testing.T) {
	var buf bytes.Buffer
	pt := NewProgressTracker("vulnspercat1", 10, zerolog.New(&buf))

	pt.RecordProcessed(100 * time.Millisecond)
	pt.RecordProcessed(100 * time.Millisecond)

	eta := pt.ETA()
	// 8 remaining at 100ms each
	if eta < 700*time.Millisecond || eta > 900*time.Millisecond {
		t.Errorf("expected ETA ~800ms, got %v", eta)
	}
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	pt := NewProgressTracker("vulnspercat1", 0, zerolog.New(&buf))

	if pct := pt.ProgressPct(); pct != 100.0 {
		t.Errorf("expected 100%% for zero total, got %.1f%%", pct)
	}
	if eta := pt.ETA(); eta != 0 {
		t.Errorf("expected 0 ETA for zero total, got %v", eta)
	}
}

func TestProgressTracker_PeriodicLog(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(oldLevel)

	pt := NewProgressTracker("findjobs", 4, log)
	pt.SetEvery(2)

	pt.RecordSkip()
	if buf.Len() != 0 {
		t.Fatalf("no progress line expected after one app, got: %s", buf.String())
	}
	pt.RecordProcessed(time.Millisecond)
	if got := strings.Count(buf.String(), `"event":"progress"`); got != 1 {
		t.Fatalf("expected one progress line after two apps, got %d: %s", got, buf.String())
	}
	pt.RecordProcessed(time.Millisecond)
	pt.RecordFailure()
	// The last app is reported by the traversal summary instead.
	if got := strings.Count(buf.String(), `"event":"progress"`); got != 1 {
		t.Errorf("expected one progress line, got %d: %s", got, buf.String())
	}
}

func TestCompletionEvent_BasicFields(t *testing.T) {
	var buf bytes.Buffer
	SetPrettyMode(false)

	NewCompletionEvent(zerolog.New(&buf), "test_event", "cryptostat1", 500*time.Millisecond).
		Str("key", "value").
		Int("count", 42).
		Float64("ratio", 0.5).
		Log("test message")

	output := buf.String()
	for _, want := range []string{
		`"event":"test_event"`,
		`"pipeline":"cryptostat1"`,
		`"duration_ms":500`,
		`"key":"value"`,
		`"count":42`,
		`"ratio":0.5`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, `"duration_h"`) {
		t.Errorf("duration_h should only appear in pretty mode, got: %s", output)
	}
}

func TestCompletionEvent_PrettyCounts(t *testing.T) {
	var buf bytes.Buffer
	SetPrettyMode(true)
	defer SetPrettyMode(false)

	NewCompletionEvent(zerolog.New(&buf), "test_event", "vulnspercat2", time.Second).
		Count("records", 1500000).
		Log("test message")

	output := buf.String()
	if !strings.Contains(output, `"records":1500000`) {
		t.Errorf("expected raw records field, got: %s", output)
	}
	if !strings.Contains(output, `"records_h":"1.50M"`) {
		t.Errorf("expected human records field, got: %s", output)
	}
	if !strings.Contains(output, `"duration_h":"1.00s"`) {
		t.Errorf("expected human duration field, got: %s", output)
	}
}

func TestCompletionEvent_ProgressFromTracker(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	SetPrettyMode(false)

	pt := NewProgressTracker("vulnspercat1", 100, log)
	pt.RecordProcessed(100 * time.Millisecond)
	pt.RecordProcessed(100 * time.Millisecond)
	pt.RecordSkip()

	TraversalComplete(log, "vulnspercat1", time.Second).
		ProgressFromTracker(pt).
		Log("traversal done")

	output := buf.String()
	for _, want := range []string{
		`"event":"traversal_completed"`,
		`"processed":2`,
		`"skipped":1`,
		`"failed":0`,
		`"total":100`,
		`"progress_pct":3`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	SetPrettyMode(false)

	tests := []struct {
		name  string
		event *CompletionEvent
		want  string
	}{
		{"pipeline", PipelineComplete(log, "cryptostat2", time.Second), `"event":"pipeline_completed"`},
		{"traversal", TraversalComplete(log, "cryptostat2", time.Second), `"event":"traversal_completed"`},
		{"file", FileCreated(log, "export", time.Millisecond), `"event":"file_created"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.event.Log("done")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %s, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestCompletionEvent_LogDebug(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	SetPrettyMode(false)

	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(oldLevel)

	NewCompletionEvent(log, "test_event", "findjobs", time.Second).LogDebug("debug message")

	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Errorf("expected debug level, got: %s", buf.String())
	}
}
