package traversal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

type fakeJobs struct {
	jobs    map[string][]vusc.Job
	errs    map[string]error
	queries []string
}

func (f *fakeJobs) JobsByHash(_ context.Context, fingerprint string) ([]vusc.Job, error) {
	f.queries = append(f.queries, fingerprint)
	if err := f.errs[fingerprint]; err != nil {
		return nil, err
	}
	return f.jobs[fingerprint], nil
}

func apps(hashes ...string) []store.App {
	out := make([]store.App, len(hashes))
	for i, h := range hashes {
		out[i] = store.App{ID: int64(i + 1), APKFileName: h + ".apk", SHA256: h}
	}
	return out
}

func TestSelectUsable(t *testing.T) {
	tests := []struct {
		name string
		jobs []vusc.Job
		want int64
	}{
		{"empty", nil, 0},
		{"none usable", []vusc.Job{{ID: 1, IsFailed: true, IsFinished: true}, {ID: 2}}, 0},
		{"first usable wins", []vusc.Job{{ID: 1}, {ID: 2, IsFinished: true}, {ID: 3, IsFinished: true}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectUsable(tt.jobs)
			var id int64
			if got != nil {
				id = got.ID
			}
			if id != tt.want {
				t.Errorf("SelectUsable() = job %d, want %d", id, tt.want)
			}
		})
	}
}

func TestOnlyFirstUsableJobIsHandled(t *testing.T) {
	finder := &fakeJobs{jobs: map[string][]vusc.Job{
		"aa": {
			{ID: 10, IsFinished: true, IsFailed: true},
			{ID: 11, IsFinished: true},
			{ID: 12, IsFinished: true},
		},
	}}
	w := &Walker{Jobs: finder, Name: "test"}

	var handled []int64
	stats := w.ForEachUsableJob(context.Background(), apps("aa"), func(_ context.Context, _ store.App, job *vusc.Job) error {
		handled = append(handled, job.ID)
		return nil
	})

	if diff := cmp.Diff([]int64{11}, handled); diff != "" {
		t.Errorf("handled jobs mismatch (-want +got):\n%s", diff)
	}
	if stats.Processed != 1 || stats.Skipped != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestAppsWithoutUsableJobAreSkipped(t *testing.T) {
	finder := &fakeJobs{jobs: map[string][]vusc.Job{
		"aa": {{ID: 1, IsFinished: false}},
		"cc": {{ID: 3, IsFinished: true}},
	}}
	w := &Walker{Jobs: finder}

	var handled []string
	stats := w.ForEachUsableJob(context.Background(), apps("aa", "bb", "cc"), func(_ context.Context, app store.App, _ *vusc.Job) error {
		handled = append(handled, app.SHA256)
		return nil
	})

	if diff := cmp.Diff([]string{"cc"}, handled); diff != "" {
		t.Errorf("handled apps mismatch (-want +got):\n%s", diff)
	}
	want := Stats{Apps: 3, Processed: 1, Skipped: 2}
	stats.Elapsed = 0
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestFailuresAreIsolated(t *testing.T) {
	finder := &fakeJobs{
		jobs: map[string][]vusc.Job{
			"aa": {{ID: 1, IsFinished: true}},
			"cc": {{ID: 3, IsFinished: true}},
			"dd": {{ID: 4, IsFinished: true}},
		},
		errs: map[string]error{"bb": &vusc.StatusError{StatusCode: 500, Body: "boom"}},
	}

	var buf bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), zerolog.New(&buf))
	w := &Walker{Jobs: finder, Name: "test"}

	var handled []string
	stats := w.ForEachUsableJob(ctx, apps("aa", "bb", "cc", "dd"), func(_ context.Context, app store.App, _ *vusc.Job) error {
		handled = append(handled, app.SHA256)
		if app.SHA256 == "cc" {
			return errors.New("malformed attribute")
		}
		return nil
	})

	if diff := cmp.Diff([]string{"aa", "cc", "dd"}, handled); diff != "" {
		t.Errorf("handled apps mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"aa", "bb", "cc", "dd"}, finder.queries); diff != "" {
		t.Errorf("queries mismatch (-want +got):\n%s", diff)
	}
	if stats.Processed != 2 || stats.Failed != 2 {
		t.Errorf("stats = %+v, want 2 processed, 2 failed", stats)
	}

	output := buf.String()
	for _, want := range []string{
		`"sha256":"bb"`,
		`"message":"failed to query jobs"`,
		`"apk":"cc.apk"`,
		`"job_id":3`,
		`"message":"failed to process job"`,
		`"event":"traversal_completed"`,
		`"processed":2`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in log output:\n%s", want, output)
		}
	}
}

func TestHandlerContextCarriesJobLogger(t *testing.T) {
	finder := &fakeJobs{jobs: map[string][]vusc.Job{"aa": {{ID: 77, IsFinished: true}}}}

	var buf bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), zerolog.New(&buf))
	w := &Walker{Jobs: finder}

	w.ForEachUsableJob(ctx, apps("aa"), func(ctx context.Context, _ store.App, _ *vusc.Job) error {
		log := logctx.FromContext(ctx)
		log.Info().Msg("inside handler")
		return nil
	})

	line := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.Contains(line, `"job_id":77`) || !strings.Contains(line, `"sha256":"aa"`) {
		t.Errorf("handler log line lacks app and job fields: %s", line)
	}
}

func TestNamedWalkerTagsPipelineOnce(t *testing.T) {
	finder := &fakeJobs{jobs: map[string][]vusc.Job{"aa": {{ID: 5, IsFinished: true}}}}

	var buf bytes.Buffer
	ctx := logctx.WithLogger(context.Background(), zerolog.New(&buf))
	w := &Walker{Jobs: finder, Name: "cryptostat1"}

	w.ForEachUsableJob(ctx, apps("aa"), func(ctx context.Context, _ store.App, _ *vusc.Job) error {
		log := logctx.FromContext(ctx)
		log.Info().Msg("inside handler")
		return nil
	})

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if n := strings.Count(line, `"pipeline":`); n > 1 {
			t.Errorf("pipeline field repeated %d times: %s", n, line)
		}
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.Contains(first, `"pipeline":"cryptostat1"`) {
		t.Errorf("handler log line lacks pipeline field: %s", first)
	}
}
