// Package report renders the end-of-run summary of the aggregation pipelines.
package report

import (
	"io"

	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/humanfmt"
	"github.com/eunmann/vuln-stats/pkg/pipeline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options controls rendering.
type Options struct {
	// Fancy selects rounded box characters for terminals.
	Fancy bool
}

// PrintSummary writes one row per pipeline run, plus a totals row when more
// than one pipeline ran. Nothing is written for an empty slice.
func PrintSummary(w io.Writer, summaries []pipeline.Summary, opts Options) {
	if len(summaries) == 0 {
		return
	}

	t := newTable(w, opts)
	t.AppendHeader(table.Row{"Pipeline", "Apps", "Jobs", "Skipped", "Failed", "Records", "Persist errors", "Lookups", "Cache hits", "Duration"})

	total := pipeline.Summary{Stats: pipeline.Stats{Written: counting.NewMap[string]()}}
	for _, s := range summaries {
		t.AppendRow(row(s.Pipeline, s))
		total.Traversal.Apps += s.Traversal.Apps
		total.Traversal.Processed += s.Traversal.Processed
		total.Traversal.Skipped += s.Traversal.Skipped
		total.Traversal.Failed += s.Traversal.Failed
		total.Stats.PersistErrors += s.Stats.PersistErrors
		total.Stats.Attribution.Lookups += s.Stats.Attribution.Lookups
		total.Stats.Attribution.Hits += s.Stats.Attribution.Hits
		total.Elapsed += s.Elapsed
		if w := s.Stats.Written; w != nil {
			for _, tbl := range w.Keys() {
				total.Stats.Written.Add(tbl, w.Get(tbl))
			}
		}
	}
	if len(summaries) > 1 {
		t.AppendFooter(row("total", total))
	}
	t.Render()
}

func row(name string, s pipeline.Summary) table.Row {
	return table.Row{
		name,
		humanfmt.Comma(int64(s.Traversal.Apps)),
		humanfmt.Comma(int64(s.Traversal.Processed)),
		humanfmt.Comma(int64(s.Traversal.Skipped)),
		humanfmt.Comma(int64(s.Traversal.Failed)),
		humanfmt.Comma(int64(s.Stats.Records())),
		humanfmt.Comma(int64(s.Stats.PersistErrors)),
		humanfmt.Comma(s.Stats.Attribution.Lookups),
		humanfmt.Percent(s.Stats.Attribution.HitRate() * 100),
		humanfmt.Duration(s.Elapsed),
	}
}

func newTable(w io.Writer, opts Options) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if opts.Fancy {
		t.SetStyle(table.StyleRounded)
	} else {
		text.DisableColors()
	}
	t.Style().Options.DoNotColorBordersAndSeparators = true
	// Durations in the footer are case sensitive.
	t.Style().Format.Footer = text.FormatDefault
	return t
}
