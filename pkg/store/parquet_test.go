package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/eunmann/vuln-stats/pkg/fileutil"
	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"
)

func TestParquetSinkWritesOneFilePerTable(t *testing.T) {
	dir := t.TempDir()
	sink := NewParquetSink(dir)
	ctx := context.Background()

	crypto := []CryptoStatistics{
		{JobID: 1, NumMD5: 5, NumSHA1: 2},
		{JobID: 2, NumAES: 1},
	}
	for _, rec := range crypto {
		if err := sink.Insert(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	// duplicate job id is dropped
	if err := sink.Insert(ctx, CryptoStatistics{JobID: 1, NumMD5: 99}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Insert(ctx, LibraryCategoryFindingCount{LibraryName: "OkHttp", Category: "Injection", NumFindings: 1}); err != nil {
		t.Fatal(err)
	}

	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := parquet.ReadFile[CryptoStatistics](sink.Path(TableCryptoStatistics))
	if err != nil {
		t.Fatalf("read crypto export: %v", err)
	}
	if diff := cmp.Diff(crypto, got); diff != "" {
		t.Errorf("crypto export mismatch (-want +got):\n%s", diff)
	}

	libs, err := parquet.ReadFile[LibraryCategoryFindingCount](filepath.Join(dir, "LibraryCategoryFindingCount.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || libs[0].LibraryName != "OkHttp" {
		t.Errorf("library export = %+v", libs)
	}

	if fileutil.Exists(sink.Path(TableVulnerabilityCounts)) {
		t.Error("empty table should not produce a file")
	}
}

func TestTeeStopsAtFirstFailingSink(t *testing.T) {
	ctx := context.Background()
	good := NewMemorySink()
	boom := errors.New("unique violation")
	bad := &MemorySink{Err: boom}
	export := NewMemorySink()

	tee := Tee{good, bad, export}
	err := tee.Insert(ctx, CryptoStatistics{JobID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("Insert error = %v, want %v", err, boom)
	}
	if n := len(good.Records()); n != 1 {
		t.Errorf("sink before the failure got %d records, want 1", n)
	}
	if n := len(export.Records()); n != 0 {
		t.Errorf("sink after the failure got %d records, want 0", n)
	}

	bad.Err = nil
	if err := tee.Insert(ctx, CryptoStatistics{JobID: 2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n := len(export.Records()); n != 1 {
		t.Errorf("export got %d records after a clean insert, want 1", n)
	}
}

func TestMemorySinkDuplicates(t *testing.T) {
	ctx := context.Background()
	var sink MemorySink

	sink.Insert(ctx, VulnerabilitiesPerCategory{JobID: 1, Category: "Crypto", NumVulnerabilities: 1})
	sink.Insert(ctx, VulnerabilitiesPerCategory{JobID: 1, Category: "Crypto", NumVulnerabilities: 2})
	sink.Insert(ctx, PerCategoryFindingCount{JobID: 1, Category: "Crypto", Vulnerability: "Weak", Count: 1})
	sink.Insert(ctx, PerCategoryFindingCount{JobID: 1, Category: "Crypto", Vulnerability: "Weak", Count: 1})

	if n := len(sink.Table(TableVulnerabilitiesPerCategory)); n != 1 {
		t.Errorf("got %d per-category records, want 1", n)
	}
	if n := len(sink.Table(TablePerCategoryFindingCount)); n != 2 {
		t.Errorf("got %d finding count records, want 2", n)
	}
}
