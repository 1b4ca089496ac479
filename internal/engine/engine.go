// Package engine orchestrates one diagram generation run: load the
// language registry, read symbol records, extract relationships from
// source text, aggregate metadata, scan the source tree, and render
// the requested document.
//
// Every intermediate entity is built fresh per run and discarded on
// return. Only the language registry (immutable after load) and the
// extraction cache are designed for reuse across runs; watch mode
// relies on both.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/codeatlas/atlas-go/internal/diagram"
	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/metadata"
	"github.com/codeatlas/atlas-go/internal/srctree"
	"github.com/codeatlas/atlas-go/internal/tags"
	"github.com/codeatlas/atlas-go/internal/trace"
)

// Options configures a generation run.
type Options struct {
	// TagsPath is the JSON-lines symbol record file. Required.
	TagsPath string

	// SourceRoot is the directory tagged file paths are relative to.
	// Empty resolves tagged paths against the working directory and
	// synthesizes the tree from tagged paths instead of scanning.
	SourceRoot string

	// ConfigDir holds the language configuration documents. Required.
	ConfigDir string

	// OutputPath is the diagram document destination. Required.
	OutputPath string

	// OverlayPath is the overlay payload destination. Empty derives
	// a sibling of OutputPath when trace fusion runs.
	OverlayPath string

	// TracePath is an optional JSON-lines call event file; setting it
	// enables trace fusion and the overlay write.
	TracePath string

	// Title labels the diagram. Empty falls back to the source root's
	// base name when a root is set.
	Title string

	// Direction overrides the layout direction for kinds that take
	// one. Empty uses the language config, then the kind default.
	Direction string

	// Kind selects the diagram shape. Empty uses the dominant
	// language's configured default, then flowchart.
	Kind diagram.Kind

	// Workers caps extraction goroutines. Zero means NumCPU.
	Workers int

	// MaxDepth bounds directory nesting in the code-flow body.
	MaxDepth int

	// TopFiles bounds per-language file leaves in the mindmap body.
	TopFiles int

	// ExpandSymbols adds per-file symbol children to the flowchart.
	ExpandSymbols bool

	// FollowSymlinks resolves directory symlinks during the tree scan.
	FollowSymlinks bool

	// Excludes are glob patterns dropped from the tree scan.
	Excludes []string

	// Logger is optional; nil uses slog.Default().
	Logger *slog.Logger

	// Cache, when set, memoizes per-file extraction across runs.
	Cache *extract.Cache
}

// Result summarizes a completed run.
type Result struct {
	// Files is the number of source files that fed extraction.
	Files int

	// Symbols is the number of accepted symbol records.
	Symbols int

	// Relationships is the number of deduplicated extracted edges.
	Relationships int

	// Warnings counts skipped records, unreadable sources, and
	// skipped trace events.
	Warnings int

	// DurationSecs is the wall-clock run time.
	DurationSecs float64

	// OutputPath and OverlayPath are the files written. OverlayPath
	// is empty when no overlay was produced.
	OutputPath  string
	OverlayPath string
}

// Run executes the full pipeline and writes the diagram document,
// plus the overlay payload when trace input or an overlay path is
// given. On error no partial output is left behind; document and
// overlay writes are both atomic.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TagsPath == "" {
		return nil, errors.New("symbol record path is required")
	}
	if opts.ConfigDir == "" {
		return nil, errors.New("language config directory is required")
	}
	if opts.OutputPath == "" {
		return nil, errors.New("output path is required")
	}

	reg, err := langconf.Load(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("no language configs found in %s", opts.ConfigDir)
	}

	store, report, err := tags.ReadFile(opts.TagsPath, logger)
	if err != nil {
		return nil, err
	}
	warnings := report.Skipped

	files, unreadable := readSources(opts.SourceRoot, store, reg, logger)
	warnings += unreadable

	rels, err := extract.ExtractAll(ctx, files, reg, store, extract.Options{
		Workers:  opts.Workers,
		HotPaths: true,
		Cache:    opts.Cache,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	extract.Sort(rels)

	meta := aggregate(store, rels)

	tree, err := buildTree(opts, reg, store)
	if err != nil {
		return nil, err
	}

	cfg := dominantConfig(reg, store)
	kind, direction, err := resolveKind(opts, cfg)
	if err != nil {
		return nil, err
	}

	gen, err := diagram.New(kind)
	if err != nil {
		return nil, err
	}
	in := &diagram.Inputs{
		Title:         runTitle(opts),
		Store:         store,
		Relationships: rels,
		Meta:          meta,
		Tree:          tree,
		Calls:         extract.NewCallIndex(rels),
		Direction:     direction,
		MaxDepth:      opts.MaxDepth,
		TopFiles:      opts.TopFiles,
		ExpandSymbols: opts.ExpandSymbols,
	}
	if _, err := diagram.GenerateToFile(gen, in, opts.OutputPath); err != nil {
		return nil, err
	}

	result := &Result{
		Files:         len(files),
		Symbols:       store.Len(),
		Relationships: len(rels),
		OutputPath:    opts.OutputPath,
	}

	if opts.TracePath != "" || opts.OverlayPath != "" {
		overlayPath, skipped, err := writeOverlay(opts, rels, store, cfg, logger)
		if err != nil {
			return nil, err
		}
		warnings += skipped
		result.OverlayPath = overlayPath
	}

	result.Warnings = warnings
	result.DurationSecs = time.Since(start).Seconds()

	logger.Info("diagram generated",
		"kind", kind,
		"output", result.OutputPath,
		"files", result.Files,
		"symbols", result.Symbols,
		"relationships", result.Relationships,
		"warnings", result.Warnings,
		"duration_secs", result.DurationSecs)
	return result, nil
}

// readSources loads the content of every tagged file a loaded
// language claims. Unreadable files are skipped with a warning; a tag
// stream may legitimately reference files deleted since indexing.
func readSources(root string, store *tags.Store, reg *langconf.Registry, logger *slog.Logger) ([]extract.FileSource, int) {
	var files []extract.FileSource
	unreadable := 0
	for _, rel := range store.Files() {
		if _, ok := reg.ForFile(rel); !ok {
			continue
		}
		full := filepath.FromSlash(rel)
		if root != "" {
			full = filepath.Join(root, full)
		}
		content, err := os.ReadFile(full)
		if err != nil {
			unreadable++
			logger.Warn("tagged file unreadable, skipped", "path", full, "error", err)
			continue
		}
		// Keep the tag-relative path so extracted edges line up with
		// the symbol records.
		files = append(files, extract.FileSource{Path: rel, Content: content})
	}
	return files, unreadable
}

// aggregate folds tags and edges into a fresh metadata store. It runs
// single threaded over sorted slices, so recorded insertion order is
// identical across runs.
func aggregate(store *tags.Store, rels []extract.Relationship) *metadata.Store {
	meta := metadata.NewStore()

	all := store.All()
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.Name < b.Name
	})
	for _, t := range all {
		meta.RecordFile(t.FilePath)
		meta.RecordNode(t.Name, map[string]string{
			"kind":     string(t.Kind),
			"language": t.Language,
			"file":     t.FilePath,
		})
		meta.RecordSubgraphMembership(t.FilePath, t.Name)
		meta.IncrementStat(t.Language, string(t.Kind))
	}

	for _, r := range rels {
		meta.RecordEdge(r.Key(), metadata.EdgeMeta{
			Kind:       r.Kind,
			Label:      r.Label,
			Style:      r.Style,
			ArrowToken: r.ArrowToken,
		})
	}
	return meta
}

// buildTree scans the source root, or synthesizes a tree from tagged
// paths when no root is configured. The scan keeps only files a
// loaded language claims; depth bounding happens at render time.
func buildTree(opts Options, reg *langconf.Registry, store *tags.Store) (*srctree.Tree, error) {
	if opts.SourceRoot == "" {
		return srctree.FromPaths(store.Files()), nil
	}
	return srctree.Walk(opts.SourceRoot, srctree.WalkOptions{
		Excludes:       opts.Excludes,
		UseGitignore:   true,
		FollowSymlinks: opts.FollowSymlinks,
		Extensions:     registryExtensions(reg),
	})
}

// registryExtensions collects every claimed extension across loaded
// languages.
func registryExtensions(reg *langconf.Registry) []string {
	var exts []string
	for _, name := range reg.Languages() {
		if cfg, ok := reg.ByName(name); ok {
			exts = append(exts, cfg.Extensions...)
		}
	}
	return exts
}

// dominantConfig returns the config of the language with the most
// tags, ties broken by name. Nil when no tagged language has a
// loaded config.
func dominantConfig(reg *langconf.Registry, store *tags.Store) *langconf.Config {
	counts := make(map[string]int)
	for _, t := range store.All() {
		if t.Language != "" {
			counts[t.Language]++
		}
	}

	best := ""
	for lang, n := range counts {
		if _, ok := reg.ByName(lang); !ok {
			continue
		}
		if best == "" || n > counts[best] || (n == counts[best] && lang < best) {
			best = lang
		}
	}
	if best == "" {
		return nil
	}
	cfg, _ := reg.ByName(best)
	return cfg
}

// resolveKind picks the diagram kind and layout direction: explicit
// options first, then the dominant language's configuration, then
// flowchart with the kind's own default direction.
func resolveKind(opts Options, cfg *langconf.Config) (diagram.Kind, string, error) {
	kind := opts.Kind
	if kind == "" {
		if cfg != nil && cfg.Visualization.DefaultDiagram != "" {
			parsed, err := diagram.ParseKind(cfg.Visualization.DefaultDiagram)
			if err != nil {
				return "", "", fmt.Errorf("language %s default_diagram: %w", cfg.Name, err)
			}
			kind = parsed
		} else {
			kind = diagram.KindFlowchart
		}
	} else if !kind.Valid() {
		_, err := diagram.ParseKind(string(kind))
		return "", "", err
	}

	direction := opts.Direction
	if direction == "" && cfg != nil {
		direction = cfg.Layout(string(kind)).Direction
	}
	return kind, direction, nil
}

// runTitle falls back to the source root's base name so generated
// diagrams are labeled after the scanned project by default.
func runTitle(opts Options) string {
	if opts.Title != "" {
		return opts.Title
	}
	if opts.SourceRoot == "" {
		return ""
	}
	abs, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return ""
	}
	return filepath.Base(abs)
}

// writeOverlay fuses trace events into the extracted edges and writes
// the overlay payload. Without a trace file every edge carries zero
// heat, which still yields a useful structural overlay.
func writeOverlay(opts Options, rels []extract.Relationship, store *tags.Store, cfg *langconf.Config, logger *slog.Logger) (string, int, error) {
	var events []trace.Event
	skipped := 0
	if opts.TracePath != "" {
		var report *trace.ReadReport
		var err error
		events, report, err = trace.ReadFile(opts.TracePath, logger)
		if err != nil {
			return "", 0, err
		}
		skipped = report.Skipped
	}

	var colors langconf.HeatColors
	if cfg != nil {
		colors = cfg.HotPaths.Colors
	}
	overlay := trace.BuildOverlay(trace.Fuse(rels, events), store, colors)

	path := opts.OverlayPath
	if path == "" {
		path = overlaySibling(opts.OutputPath)
	}
	if err := overlay.WriteFile(path); err != nil {
		return "", 0, err
	}
	logger.Debug("overlay written", "path", path, "nodes", len(overlay.Nodes), "edges", len(overlay.Edges))
	return path, skipped, nil
}

// overlaySibling derives the default overlay destination from the
// document path: out/diagram.md becomes out/diagram.overlay.json.
func overlaySibling(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return strings.TrimSuffix(outputPath, ext) + ".overlay.json"
}
