package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eunmann/vuln-stats/internal/logctx"
	"github.com/eunmann/vuln-stats/pkg/fileutil"
	"github.com/eunmann/vuln-stats/pkg/humanfmt"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/parquet-go/parquet-go"
)

// ParquetSink buffers records in memory and writes one Parquet file per table
// on Close. Duplicates are dropped using the same keys as the SQL schema.
type ParquetSink struct {
	dir string

	mu     sync.Mutex
	tables []string
	rows   map[string][]Record
	seen   map[string]struct{}
}

// NewParquetSink creates a sink that exports into dir.
func NewParquetSink(dir string) *ParquetSink {
	return &ParquetSink{
		dir:  dir,
		rows: make(map[string][]Record),
		seen: make(map[string]struct{}),
	}
}

// Insert buffers rec.
func (p *ParquetSink) Insert(_ context.Context, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := uniqueKey(rec); ok {
		if _, dup := p.seen[key]; dup {
			return nil
		}
		p.seen[key] = struct{}{}
	}

	table := rec.Table()
	if _, ok := p.rows[table]; !ok {
		p.tables = append(p.tables, table)
	}
	p.rows[table] = append(p.rows[table], rec)
	return nil
}

// Path returns the export path of table.
func (p *ParquetSink) Path(table string) string {
	return filepath.Join(p.dir, table+".parquet")
}

// Flush writes every buffered table. Tables without records produce no file.
func (p *ParquetSink) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := logctx.FromContext(ctx)
	if fileutil.Exists(p.dir) {
		removed, err := fileutil.CleanupTmpFiles(p.dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", p.dir).Msg("failed to clean up stale export files")
		} else if removed > 0 {
			log.Debug().Int("files_removed", removed).Str("dir", p.dir).Msg("removed stale export files")
		}
	}
	for _, table := range p.tables {
		rows := p.rows[table]
		start := time.Now()
		if err := fileutil.WriteAtomic(p.Path(table), func(w io.Writer) error {
			return writeParquet(w, rows)
		}); err != nil {
			return fmt.Errorf("export %s: %w", table, err)
		}
		event := logging.FileCreated(log, "export", time.Since(start)).
			Str("file", p.Path(table)).
			Count("rows", int64(len(rows)))
		if info, err := os.Stat(p.Path(table)); err == nil {
			event.Str("size", humanfmt.Bytes(info.Size()))
		}
		event.Log("wrote parquet export")
	}
	return nil
}

// Close flushes the sink.
func (p *ParquetSink) Close(ctx context.Context) error {
	return p.Flush(ctx)
}

func writeParquet(w io.Writer, rows []Record) error {
	schema := parquet.SchemaOf(rows[0])
	pw := parquet.NewWriter(w, schema)
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	return pw.Close()
}

// uniqueKey renders the natural key of rec, if its table has one.
func uniqueKey(rec Record) (string, bool) {
	switch r := rec.(type) {
	case App:
		return fmt.Sprintf("%s|%s", r.Table(), r.SHA256), true
	case VulnerabilitiesPerCategory:
		return fmt.Sprintf("%s|%d|%s", r.Table(), r.JobID, r.Category), true
	case VulnerabilityCounts:
		return fmt.Sprintf("%s|%d|%s", r.Table(), r.JobID, r.VulnType), true
	case CryptoStatistics:
		return fmt.Sprintf("%s|%d", r.Table(), r.JobID), true
	case OutdatedAlgorithmStatistics:
		return fmt.Sprintf("%s|%d|%s", r.Table(), r.JobID, r.Algorithm), true
	case LibraryFindingCount:
		return fmt.Sprintf("%s|%s|%s", r.Table(), r.LibraryName, r.VulnType), true
	case LibraryCategoryFindingCount:
		return fmt.Sprintf("%s|%s|%s", r.Table(), r.LibraryName, r.Category), true
	case LibraryCryptoCount:
		return fmt.Sprintf("%s|%s|%s", r.Table(), r.LibraryName, r.Algorithm), true
	default:
		return "", false
	}
}
