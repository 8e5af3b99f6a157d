// Package attribution decides whether a class belongs to a known third-party
// library, memoizing the knowledgebase lookups per Java package.
package attribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/eunmann/vuln-stats/pkg/vusc"
)

// LibraryLookup resolves a class or package name to the libraries owning it.
// *vusc.Client implements it.
type LibraryLookup interface {
	LibrariesByClassName(ctx context.Context, name string) ([]vusc.Library, error)
}

// Stats holds statistics about cache usage.
type Stats struct {
	// Lookups is the number of calls made to the knowledgebase.
	Lookups int64
	// Hits counts answers served from the cache, including classes in the
	// default package which never need a lookup.
	Hits int64
	// Errors counts failed lookups. Failures are not cached.
	Errors  int64
	Entries int
}

// HitRate returns the cache hit rate as a fraction.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Lookups
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache memoizes library attribution by package name: every class of a
// package is attributed to the same library, so each distinct package costs
// at most one lookup for the lifetime of the cache. Create one Cache per
// pipeline run. A Cache is not safe for concurrent use.
type Cache struct {
	lookup LibraryLookup
	// package name -> first owning library, "" when the package is app code
	libraries map[string]string
	stats     Stats
}

// New creates an empty cache backed by lookup.
func New(lookup LibraryLookup) *Cache {
	return &Cache{
		lookup:    lookup,
		libraries: make(map[string]string),
	}
}

// PackageOf returns the package part of a fully qualified class name. The
// second result is false for classes in the default package.
func PackageOf(className string) (string, bool) {
	i := strings.LastIndexByte(className, '.')
	if i <= 0 {
		return "", false
	}
	return className[:i], true
}

// Library returns the name of the first library owning className's package.
// ok is false when the class is application code. Lookup failures are
// returned and leave the cache untouched.
func (c *Cache) Library(ctx context.Context, className string) (name string, ok bool, err error) {
	pkg, hasPkg := PackageOf(className)
	if !hasPkg {
		c.stats.Hits++
		return "", false, nil
	}
	if lib, cached := c.libraries[pkg]; cached {
		c.stats.Hits++
		return lib, lib != "", nil
	}

	c.stats.Lookups++
	libs, err := c.lookup.LibrariesByClassName(ctx, pkg)
	if err != nil {
		c.stats.Errors++
		return "", false, fmt.Errorf("attribute %s: %w", className, err)
	}

	lib := ""
	for _, l := range libs {
		if l.Name != "" {
			lib = l.Name
			break
		}
	}
	c.libraries[pkg] = lib
	return lib, lib != "", nil
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Entries = len(c.libraries)
	return s
}
