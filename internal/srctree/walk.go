package srctree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates an exclude glob could not be compiled.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// defaultExcludedDirs are never descended into regardless of options.
var defaultExcludedDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"node_modules":  {},
	"vendor":        {},
	"__pycache__":   {},
	".venv":         {},
	"venv":          {},
	".tox":          {},
	".pytest_cache": {},
	".mypy_cache":   {},
	".idea":         {},
	".vscode":       {},
	"dist":          {},
	"build":         {},
	"target":        {},
	"bin":           {},
	"obj":           {},
}

// IsDefaultExcluded reports whether a directory base name is in the
// built-in skip set. Watchers use it to avoid registering directories
// a Walk would never descend into.
func IsDefaultExcluded(name string) bool {
	_, skip := defaultExcludedDirs[name]
	return skip
}

// WalkOptions makes every discretionary walk behavior an explicit
// input; there are no hidden defaults beyond the version-control and
// build directories above.
type WalkOptions struct {
	// MaxDepth bounds node depth; directories at the limit are kept
	// but not descended into. Zero means unlimited.
	MaxDepth int

	// Excludes are slash-separated glob patterns matched against
	// relative paths. A pattern that fails to compile aborts the walk
	// before it starts.
	Excludes []string

	// UseGitignore additionally honors the root .gitignore.
	UseGitignore bool

	// FollowSymlinks resolves directory symlinks and walks their
	// targets one level deep. Off by default.
	FollowSymlinks bool

	// Extensions restricts file nodes to the given suffixes (leading
	// dot, e.g. ".cs"). Empty keeps every file.
	Extensions []string
}

// Walk scans root into a tree arena.
func Walk(root string, opts WalkOptions) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	excludes, err := compileExcludes(opts.Excludes)
	if err != nil {
		return nil, err
	}

	var matcher gitignore.Matcher
	if opts.UseGitignore {
		patterns, err := loadGitignore(root)
		if err != nil {
			return nil, err
		}
		matcher = gitignore.NewMatcher(patterns)
	}

	w := &walker{
		root:     root,
		opts:     opts,
		excludes: excludes,
		ignore:   matcher,
		tree:     New(),
	}
	if err := filepath.WalkDir(root, w.visit); err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return w.tree, nil
}

type walker struct {
	root     string
	opts     WalkOptions
	excludes []glob.Glob
	ignore   gitignore.Matcher
	tree     *Tree
}

func (w *walker) visit(p string, d fs.DirEntry, err error) error {
	if err != nil {
		if os.IsPermission(err) {
			return nil
		}
		return err
	}

	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return nil
	}

	if d.IsDir() {
		return w.visitDir(rel, d)
	}
	if d.Type()&fs.ModeSymlink != 0 {
		return w.visitSymlink(p, rel)
	}
	w.insertFile(rel)
	return nil
}

func (w *walker) visitDir(rel string, d fs.DirEntry) error {
	if _, skip := defaultExcludedDirs[d.Name()]; skip {
		return filepath.SkipDir
	}
	if w.excluded(rel, true) {
		return filepath.SkipDir
	}

	depth := pathDepth(rel)
	if w.opts.MaxDepth > 0 && depth > w.opts.MaxDepth {
		return filepath.SkipDir
	}
	w.tree.Insert(rel, true)
	if w.opts.MaxDepth > 0 && depth == w.opts.MaxDepth {
		return filepath.SkipDir
	}
	return nil
}

// visitSymlink resolves a symlink entry. File targets are inserted
// like plain files; directory targets are walked when the options
// allow following.
func (w *walker) visitSymlink(p, rel string) error {
	target, err := filepath.EvalSymlinks(p)
	if err != nil {
		// Broken symlink.
		return nil
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil
	}

	if !info.IsDir() {
		w.insertFile(rel)
		return nil
	}
	if !w.opts.FollowSymlinks {
		return nil
	}
	if _, skip := defaultExcludedDirs[info.Name()]; skip {
		return nil
	}

	return filepath.WalkDir(target, func(tp string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}
		inner, relErr := filepath.Rel(target, tp)
		if relErr != nil {
			return relErr
		}
		joined := rel
		if inner != "." {
			joined = rel + "/" + filepath.ToSlash(inner)
		}
		if d.IsDir() {
			return w.visitDir(joined, d)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// One level of indirection is enough; nested links
			// under a followed link are skipped.
			return nil
		}
		w.insertFile(joined)
		return nil
	})
}

func (w *walker) insertFile(rel string) {
	if w.excluded(rel, false) {
		return
	}
	if w.opts.MaxDepth > 0 && pathDepth(rel) > w.opts.MaxDepth {
		return
	}
	if !w.extensionAllowed(rel) {
		return
	}
	w.tree.Insert(rel, false)
}

func (w *walker) excluded(rel string, isDir bool) bool {
	for _, g := range w.excludes {
		if g.Match(rel) {
			return true
		}
	}
	if w.ignore != nil && w.ignore.Match(strings.Split(rel, "/"), isDir) {
		return true
	}
	return false
}

func (w *walker) extensionAllowed(rel string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(rel)
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
		matchers = append(matchers, g)
	}
	return matchers, nil
}

// IgnoreMatcher loads the root .gitignore into a matcher for callers
// filtering paths outside a Walk, such as the watch loop. A missing
// file yields a matcher that ignores nothing.
func IgnoreMatcher(root string) (gitignore.Matcher, error) {
	patterns, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}
	return gitignore.NewMatcher(patterns), nil
}

// loadGitignore reads the root .gitignore; a missing file yields no
// patterns.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read .gitignore: %w", err)
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

func pathDepth(rel string) int {
	return strings.Count(rel, "/") + 1
}
