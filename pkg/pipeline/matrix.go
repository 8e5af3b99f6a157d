package pipeline

import (
	"context"

	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// CategoryTypeMatrix cross-tabulates each job's vulnerability findings by
// category and type. It keeps no run-wide totals.
type CategoryTypeMatrix struct {
	rec recorder
}

func NewCategoryTypeMatrix(sink store.Sink) *CategoryTypeMatrix {
	return &CategoryTypeMatrix{rec: recorder{sink: sink}}
}

func (p *CategoryTypeMatrix) Name() string { return NameCategoryTypeMatrix }

func (p *CategoryTypeMatrix) ProcessJob(ctx context.Context, _ store.App, job *vusc.Job) error {
	cells := counting.NewTable[string, string]()
	for _, f := range job.VulnerabilityFindings() {
		cells.Increment(f.Category, f.Type)
	}
	cells.Each(func(category, vulnType string, n int) {
		p.rec.write(ctx, store.PerCategoryFindingCount{
			JobID:         job.ID,
			Category:      category,
			Vulnerability: vulnType,
			Count:         n,
		})
	})
	return nil
}

func (p *CategoryTypeMatrix) Finish(context.Context) error { return nil }

func (p *CategoryTypeMatrix) Stats() Stats { return p.rec.stats(nil) }
