package pipeline

import (
	"context"

	"github.com/eunmann/vuln-stats/pkg/attribution"
	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// CategoryAttribution counts each job's vulnerabilities per category and per
// type, together with how many of them sit in library code, and keeps
// run-wide per-library totals.
type CategoryAttribution struct {
	rec   recorder
	cache *attribution.Cache

	libsPerCategory *counting.Table[string, string]
	libsPerType     *counting.Table[string, string]
}

// NewCategoryAttribution creates the pipeline writing to sink and attributing
// classes through lookup.
func NewCategoryAttribution(sink store.Sink, lookup attribution.LibraryLookup) *CategoryAttribution {
	return &CategoryAttribution{
		rec:             recorder{sink: sink},
		cache:           attribution.New(lookup),
		libsPerCategory: counting.NewTable[string, string](),
		libsPerType:     counting.NewTable[string, string](),
	}
}

func (p *CategoryAttribution) Name() string { return NameCategoryAttribution }

func (p *CategoryAttribution) ProcessJob(ctx context.Context, _ store.App, job *vusc.Job) error {
	findings := job.VulnerabilityFindings()
	if len(findings) == 0 {
		return nil
	}

	perCategory := counting.NewMap[string]()
	perType := counting.NewMap[string]()
	libsPerCategory := counting.NewTable[string, string]()
	libsPerType := counting.NewTable[string, string]()

	for i := range findings {
		f := &findings[i]
		perCategory.Increment(f.Category)
		perType.Increment(f.Type)

		className, ok := f.ClassName()
		if !ok {
			continue
		}
		lib, isLib, err := p.cache.Library(ctx, className)
		if err != nil {
			return err
		}
		if isLib {
			libsPerCategory.Increment(f.Category, lib)
			libsPerType.Increment(f.Type, lib)
		}
	}

	for _, category := range perCategory.Keys() {
		total := perCategory.Get(category)
		lib, _ := libsPerCategory.RowSum(category)
		p.rec.write(ctx, store.VulnerabilitiesPerCategory{
			JobID:              job.ID,
			Category:           category,
			NumVulnerabilities: total,
			NumLibVulns:        lib,
			LibraryPercentage:  libraryPercentage(total, lib),
		})
	}
	for _, vulnType := range perType.Keys() {
		total := perType.Get(vulnType)
		lib, _ := libsPerType.RowSum(vulnType)
		p.rec.write(ctx, store.VulnerabilityCounts{
			JobID:              job.ID,
			VulnType:           vulnType,
			NumVulnerabilities: total,
			NumLibVulns:        lib,
			LibraryPercentage:  libraryPercentage(total, lib),
		})
	}

	p.libsPerCategory.Merge(libsPerCategory)
	p.libsPerType.Merge(libsPerType)
	return nil
}

func (p *CategoryAttribution) Finish(ctx context.Context) error {
	p.libsPerCategory.Each(func(category, lib string, n int) {
		p.rec.write(ctx, store.LibraryCategoryFindingCount{LibraryName: lib, Category: category, NumFindings: n})
	})
	p.libsPerType.Each(func(vulnType, lib string, n int) {
		p.rec.write(ctx, store.LibraryFindingCount{LibraryName: lib, VulnType: vulnType, NumFindings: n})
	})
	return nil
}

func (p *CategoryAttribution) Stats() Stats { return p.rec.stats(p.cache) }

// libraryPercentage is lib/(total+lib)*100. Library findings are part of
// total already, so they weigh twice in the denominator; stored statistics
// depend on this. Zero unless both counts are non-zero.
func libraryPercentage(total, lib int) float64 {
	if total == 0 || lib == 0 {
		return 0
	}
	return float64(lib) / float64(total+lib) * 100
}
