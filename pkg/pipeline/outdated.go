package pipeline

import (
	"context"
	"strings"

	"github.com/eunmann/vuln-stats/pkg/attribution"
	"github.com/eunmann/vuln-stats/pkg/counting"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// AlgorithmAttribute names the finding attribute holding the algorithm.
const AlgorithmAttribute = "ALGORITHM"

// OutdatedAlgorithms counts each job's uses of insecure crypto algorithms and
// which share of them sits in library code.
type OutdatedAlgorithms struct {
	rec   recorder
	cache *attribution.Cache

	libsPerAlgorithm *counting.Table[string, string]
}

func NewOutdatedAlgorithms(sink store.Sink, lookup attribution.LibraryLookup) *OutdatedAlgorithms {
	return &OutdatedAlgorithms{
		rec:              recorder{sink: sink},
		cache:            attribution.New(lookup),
		libsPerAlgorithm: counting.NewTable[string, string](),
	}
}

func (p *OutdatedAlgorithms) Name() string { return NameOutdatedAlgorithms }

func (p *OutdatedAlgorithms) ProcessJob(ctx context.Context, _ store.App, job *vusc.Job) error {
	perAlgorithm := counting.NewMap[string]()
	libsPerAlgorithm := counting.NewTable[string, string]()

	findings := job.VulnerabilityFindings()
	for i := range findings {
		f := &findings[i]
		if KindOf(f.Type) != KindInsecureCryptoAlgorithm {
			continue
		}

		lib, isLib := "", false
		if className, ok := f.ClassName(); ok {
			var err error
			lib, isLib, err = p.cache.Library(ctx, className)
			if err != nil {
				return err
			}
		}

		for _, attr := range f.AdditionalData {
			if !strings.EqualFold(attr.Name, AlgorithmAttribute) {
				continue
			}
			perAlgorithm.Increment(attr.Data)
			if isLib {
				libsPerAlgorithm.Increment(attr.Data, lib)
			}
		}
	}

	for _, algorithm := range perAlgorithm.Keys() {
		count := perAlgorithm.Get(algorithm)
		lib, _ := libsPerAlgorithm.RowSum(algorithm)
		p.rec.write(ctx, store.OutdatedAlgorithmStatistics{
			JobID:        job.ID,
			Algorithm:    algorithm,
			Count:        count,
			LibraryRatio: libraryRatio(count, lib),
		})
	}

	p.libsPerAlgorithm.Merge(libsPerAlgorithm)
	return nil
}

func (p *OutdatedAlgorithms) Finish(ctx context.Context) error {
	p.libsPerAlgorithm.Each(func(algorithm, lib string, n int) {
		p.rec.write(ctx, store.LibraryCryptoCount{LibraryName: lib, Algorithm: algorithm, NumFindings: n})
	})
	return nil
}

func (p *OutdatedAlgorithms) Stats() Stats { return p.rec.stats(p.cache) }

// libraryRatio is lib/count as a fraction, zero unless both are non-zero.
func libraryRatio(count, lib int) float64 {
	if count == 0 || lib == 0 {
		return 0
	}
	return float64(lib) / float64(count)
}
