package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/srctree"
)

// debounceWindow batches filesystem events so an editor save burst
// triggers one regeneration, not one per event.
const debounceWindow = 2 * time.Second

// watchCacheSize bounds the extraction cache a watch session creates
// when the caller does not supply one.
const watchCacheSize = 4096

// Watch regenerates the diagram whenever a claimed source file or the
// symbol record file changes. It runs the pipeline once up front so
// output exists before the first edit, then blocks until the context
// is cancelled.
//
// Each regeneration is a full Run; the shared extraction cache keeps
// re-runs cheap because only edited files re-extract.
func Watch(ctx context.Context, opts Options) error {
	if opts.SourceRoot == "" {
		return errors.New("watch mode requires a source root")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// The watcher keeps its own registry for event filtering; each
	// run reloads fresh so live config edits reach generation.
	reg, err := langconf.Load(opts.ConfigDir)
	if err != nil {
		return err
	}

	matcher, err := srctree.IgnoreMatcher(opts.SourceRoot)
	if err != nil {
		return err
	}

	if opts.Cache == nil {
		cache, err := extract.NewCache(watchCacheSize)
		if err != nil {
			return err
		}
		opts.Cache = cache
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, opts.SourceRoot, matcher); err != nil {
		return fmt.Errorf("register watch directories: %w", err)
	}
	if opts.TagsPath != "" {
		// The record file usually lives outside the source root;
		// watching its directory catches re-indexing runs.
		if err := watcher.Add(filepath.Dir(opts.TagsPath)); err != nil {
			logger.Warn("symbol record directory not watchable", "path", opts.TagsPath, "error", err)
		}
	}

	if _, err := Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A failing initial run keeps the watch alive; the next edit
		// may fix the input.
		logger.Error("initial generation failed", "error", err)
	}

	changed := make(map[string]struct{})
	debounce := time.NewTimer(debounceWindow)
	debounce.Stop()

	logger.Info("watching for changes", "root", opts.SourceRoot)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !srctree.IsDefaultExcluded(filepath.Base(event.Name)) {
						if err := addWatchDirs(watcher, event.Name, matcher); err != nil {
							logger.Warn("new directory not watchable", "path", event.Name, "error", err)
						}
					}
					continue
				}
			}
			if !relevantEvent(event) {
				continue
			}
			if !watchedFile(event.Name, opts, reg, matcher) {
				continue
			}
			changed[event.Name] = struct{}{}
			debounce.Reset(debounceWindow)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-debounce.C:
			if len(changed) == 0 {
				continue
			}
			n := len(changed)
			changed = make(map[string]struct{})

			logger.Info("changes detected, regenerating", "files", n)
			res, err := Run(ctx, opts)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("regeneration failed", "error", err)
				continue
			}
			logger.Info("diagram regenerated",
				"output", res.OutputPath,
				"files", res.Files,
				"symbols", res.Symbols,
				"relationships", res.Relationships)
		}
	}
}

// addWatchDirs registers root and every non-ignored directory under
// it. Files are not registered; fsnotify reports file events through
// their parent directory.
func addWatchDirs(watcher *fsnotify.Watcher, root string, matcher gitignore.Matcher) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		if rel != "." {
			if srctree.IsDefaultExcluded(d.Name()) {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.Match(splitSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		return watcher.Add(p)
	})
}

// relevantEvent keeps the operations that change file content or
// presence; chmod-only events never affect the diagram.
func relevantEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) ||
		event.Has(fsnotify.Rename)
}

// watchedFile reports whether an event path should trigger
// regeneration: the symbol record file itself, or a non-ignored file
// under the source root that a loaded language claims.
func watchedFile(path string, opts Options, reg *langconf.Registry, matcher gitignore.Matcher) bool {
	if opts.TagsPath != "" && filepath.Clean(path) == filepath.Clean(opts.TagsPath) {
		return true
	}

	rel, err := filepath.Rel(opts.SourceRoot, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	for _, part := range splitSlash(rel) {
		if srctree.IsDefaultExcluded(part) {
			return false
		}
	}
	if matcher != nil && matcher.Match(splitSlash(rel), false) {
		return false
	}
	_, claimed := reg.ForFile(rel)
	return claimed
}

func splitSlash(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}
