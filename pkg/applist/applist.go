// Package applist reads the lists of APKs to track, fingerprints them and
// feeds them to the store or the scanning service. Lists and APKs may live on
// local disk or in S3.
package applist

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent fingerprinting.
const DefaultWorkers = 4

// Opener opens local files and S3 objects. The S3 client is created on first
// use, so runs without S3 paths never load AWS configuration.
type Opener struct {
	mu         sync.Mutex
	objects    ObjectStreamer
	newObjects func(ctx context.Context) (ObjectStreamer, error)
}

// NewOpener creates an Opener backed by the default AWS configuration.
func NewOpener() *Opener {
	return &Opener{newObjects: func(ctx context.Context) (ObjectStreamer, error) {
		return NewS3Client(ctx)
	}}
}

// NewOpenerWithObjects creates an Opener reading S3 paths through objects.
func NewOpenerWithObjects(objects ObjectStreamer) *Opener {
	return &Opener{objects: objects}
}

func (o *Opener) s3(ctx context.Context) (ObjectStreamer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.objects != nil {
		return o.objects, nil
	}
	if o.newObjects == nil {
		return nil, errors.New("no S3 client configured")
	}
	objects, err := o.newObjects(ctx)
	if err != nil {
		return nil, err
	}
	o.objects = objects
	return objects, nil
}

// Open returns a reader for a local path or an s3:// URI.
func (o *Opener) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if !IsS3URI(p) {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		return f, nil
	}

	bucket, key, err := ParseS3URI(p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("open %s: missing object key", p)
	}
	objects, err := o.s3(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return objects.StreamObject(ctx, bucket, key)
}

// ReadList reads a newline separated list of APK paths. Blank lines are
// skipped; surrounding whitespace is trimmed.
func (o *Opener) ReadList(ctx context.Context, src string) ([]string, error) {
	rc, err := o.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseList(rc)
}

func parseList(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			paths = append(paths, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read app list: %w", err)
	}
	return paths, nil
}

// Fingerprint returns the lowercase hex SHA-256 of the file at p.
func (o *Opener) Fingerprint(ctx context.Context, p string) (string, error) {
	rc, err := o.Open(ctx, p)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprints hashes every path with at most workers files open at once.
// The result lines up with paths. The first failure cancels the rest.
func (o *Opener) Fingerprints(ctx context.Context, paths []string, workers int) ([]string, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	sums := make([]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			sum, err := o.Fingerprint(ctx, p)
			if err != nil {
				return err
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

// BaseName returns the file name part of a local path or S3 key.
func BaseName(p string) string {
	if IsS3URI(p) {
		return path.Base(p)
	}
	return filepath.Base(p)
}
