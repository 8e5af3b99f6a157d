package vusc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const jobsFixture = `[
  {"id": 7, "isFailed": true, "isFinished": true},
  {
    "id": 8,
    "isFailed": false,
    "isFinished": true,
    "status": {"finishDate": "2019-03-01T10:00:00Z"},
    "metadata": {"type": "APKMetadata", "packageName": "com.example", "versionName": "1.2"},
    "jobResults": {
      "vulnerabilityFindings": [
        {
          "category": "Injection",
          "type": "SqlInjection",
          "location": {"type": "CodeLocation", "className": "okhttp3.Call"}
        }
      ],
      "informationFindings": [
        {
          "category": "Crypto",
          "type": "CryptoStatistics_DigestStatistics",
          "additionalData": [{"name": "MD5", "data": "3"}]
        }
      ]
    }
  }
]`

func TestJobsByHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/v1/jobs/hash/abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); ua != "vulnstats-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		io.WriteString(w, jobsFixture)
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), BaseURL: srv.URL, UserAgent: "vulnstats-test"}
	jobs, err := c.JobsByHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("JobsByHash: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Usable() {
		t.Error("failed job reported as usable")
	}
	if !jobs[1].Usable() {
		t.Error("finished job reported as unusable")
	}

	job := jobs[1]
	if job.Status == nil || job.Status.FinishDate == nil {
		t.Fatal("finish date not decoded")
	}
	if diff := cmp.Diff(&JobMetadata{Type: MetadataAPK, PackageName: "com.example", VersionName: "1.2"}, job.Metadata); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	vulns := job.VulnerabilityFindings()
	if len(vulns) != 1 {
		t.Fatalf("got %d vulnerability findings, want 1", len(vulns))
	}
	if cls, ok := vulns[0].ClassName(); !ok || cls != "okhttp3.Call" {
		t.Errorf("ClassName() = %q, %v", cls, ok)
	}

	info := job.InformationFindings()
	want := []Attribute{{Name: "MD5", Data: "3"}}
	if diff := cmp.Diff(want, info[0].AdditionalData); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
}

func TestLibrariesByClassName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LibrariesEndpoint {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.URL.Query().Get("className") {
		case "okhttp3":
			json.NewEncoder(w).Encode([]Library{{Name: "OkHttp"}})
		default:
			io.WriteString(w, "[]")
		}
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), BaseURL: srv.URL}

	libs, err := c.LibrariesByClassName(context.Background(), "okhttp3")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Library{{Name: "OkHttp"}}, libs); diff != "" {
		t.Errorf("libraries mismatch (-want +got):\n%s", diff)
	}

	libs, err = c.LibrariesByClassName(context.Background(), "com.example")
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 0 {
		t.Errorf("expected no libraries, got %v", libs)
	}
}

func TestStatusErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), BaseURL: srv.URL}
	_, err := c.JobsByHash(context.Background(), "abc")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
	if statusErr.Body != "backend unavailable" {
		t.Errorf("Body = %q", statusErr.Body)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	}))
	defer srv.Close()

	c := &Client{HTTPClient: srv.Client(), BaseURL: srv.URL}
	if _, err := c.JobsByHash(context.Background(), "abc"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCreateJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != JobsEndpoint {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "app.apk" || string(body) != "PK\x03\x04" {
			t.Errorf("upload = %s %q", header.Filename, body)
		}
		io.WriteString(w, `{"id": 99, "isFailed": false, "isFinished": false}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", DefaultConfig())
	job, err := c.CreateJob(context.Background(), "app.apk", strings.NewReader("PK\x03\x04"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID != 99 || job.Usable() {
		t.Errorf("job = %+v", job)
	}
}

func TestFindingClassName(t *testing.T) {
	tests := []struct {
		name    string
		finding Finding
		want    string
		wantOK  bool
	}{
		{"no location", Finding{}, "", false},
		{"code location", Finding{Location: &Location{Type: LocationCode, ClassName: "a.b.C"}}, "a.b.C", true},
		{"other location", Finding{Location: &Location{Type: "ManifestLocation", ClassName: "a.b.C"}}, "", false},
		{"empty class", Finding{Location: &Location{Type: LocationCode}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.finding.ClassName()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ClassName() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
