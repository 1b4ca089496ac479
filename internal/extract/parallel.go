package extract

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// FileSource pairs a file path with its content for extraction.
type FileSource struct {
	Path    string
	Content []byte
}

// Options tunes a parallel extraction pass.
type Options struct {
	// Workers caps the extraction goroutines. Zero means NumCPU.
	Workers int

	// HotPaths additionally applies each language's hot-path call
	// pattern, synthesizing call edges.
	HotPaths bool

	// Cache, when set, is consulted per (path, content hash) before
	// extracting and updated afterwards.
	Cache *Cache

	// Logger is optional; nil uses slog.Default().
	Logger *slog.Logger
}

// ExtractAll runs extraction over independent files on a worker pool.
//
// Workers share no mutable state: each writes only its own result
// slot. Results are reassembled in path-sorted input order and then
// deduplicated, so the returned edges are identical regardless of
// scheduling. Files that no loaded language claims are skipped.
func ExtractAll(ctx context.Context, files []FileSource, reg *langconf.Registry, store *tags.Store, opts Options) ([]Relationship, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	sorted := make([]FileSource, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	results := make([][]Relationship, len(sorted))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = extractOne(sorted[i], reg, store, opts)
			}
		}()
	}

	var canceled error
feed:
	for i := range sorted {
		if err := ctx.Err(); err != nil {
			canceled = err
			break
		}
		select {
		case <-ctx.Done():
			canceled = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if canceled != nil {
		return nil, canceled
	}

	var merged []Relationship
	skipped := 0
	for i, rels := range results {
		if rels == nil {
			if _, ok := reg.ForFile(sorted[i].Path); !ok {
				skipped++
			}
		}
		merged = append(merged, rels...)
	}
	if skipped > 0 {
		logger.Debug("files without a language config skipped", "count", skipped)
	}
	return Dedup(merged), nil
}

func extractOne(file FileSource, reg *langconf.Registry, store *tags.Store, opts Options) []Relationship {
	cfg, ok := reg.ForFile(file.Path)
	if !ok {
		return nil
	}
	if opts.Cache != nil {
		if rels, hit := opts.Cache.Get(file.Path, file.Content); hit {
			return rels
		}
	}

	rels := Extract(file.Content, file.Path, cfg)
	if opts.HotPaths {
		rels = append(rels, HotCalls(file.Content, file.Path, cfg, store)...)
	}
	if opts.Cache != nil {
		opts.Cache.Put(file.Path, file.Content, rels)
	}
	return rels
}
