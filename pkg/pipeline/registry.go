package pipeline

import (
	"errors"
	"fmt"

	"github.com/eunmann/vuln-stats/pkg/attribution"
	"github.com/eunmann/vuln-stats/pkg/store"
)

// ErrUnknownPipeline is returned by New for a name not in Names.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// Deps are the collaborators a pipeline may need.
type Deps struct {
	Sink   store.Sink
	Lookup attribution.LibraryLookup
	Apps   AppUpdater
}

// Names returns every pipeline name in the order they run. The metadata
// pipeline comes first so the statistics see freshly linked jobs.
func Names() []string {
	return []string{
		NameJobMetadata,
		NameCategoryAttribution,
		NameCategoryTypeMatrix,
		NameCryptoUsage,
		NameOutdatedAlgorithms,
	}
}

// New builds a fresh pipeline by name.
func New(name string, d Deps) (Pipeline, error) {
	switch name {
	case NameJobMetadata:
		return NewJobMetadata(d.Apps), nil
	case NameCategoryAttribution:
		return NewCategoryAttribution(d.Sink, d.Lookup), nil
	case NameCategoryTypeMatrix:
		return NewCategoryTypeMatrix(d.Sink), nil
	case NameCryptoUsage:
		return NewCryptoUsage(d.Sink), nil
	case NameOutdatedAlgorithms:
		return NewOutdatedAlgorithms(d.Sink, d.Lookup), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, name)
	}
}
