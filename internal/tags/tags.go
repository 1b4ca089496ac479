// Package tags provides the symbol record model for Atlas.
//
// Tags are produced by an external indexing tool as a JSON-lines stream
// (one record per line) and consumed read-only by the extraction and
// generation stages. A tag is immutable once parsed.
package tags

import (
	"fmt"
	"sort"
)

// Kind represents the kind of a code symbol.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindMethod    Kind = "method"
	KindMember    Kind = "member"
	KindVariable  Kind = "variable"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindNamespace Kind = "namespace"
	KindStruct    Kind = "struct"
	KindField     Kind = "field"
	KindTypedef   Kind = "typedef"
)

// Tag represents one symbol record emitted by the indexer.
type Tag struct {
	// Name is the symbol name (function name, class name, etc.).
	Name string

	// FilePath is the path of the file defining the symbol.
	FilePath string

	// StartLine is the 1-based line where the symbol starts.
	StartLine int

	// EndLine is the 1-based line where the symbol ends.
	// Zero when the indexer did not report an end line.
	EndLine int

	// Kind is the symbol kind (function, class, method, ...).
	Kind Kind

	// Language is the source language name as reported by the indexer.
	Language string

	// Scope is the enclosing scope name (e.g. the class a method
	// belongs to). Empty for top-level symbols.
	Scope string

	// ScopeKind is the kind of the enclosing scope.
	ScopeKind string
}

// ID returns the identity of the tag: (filePath, name, startLine).
func (t Tag) ID() string {
	return fmt.Sprintf("%s:%s:%d", t.FilePath, t.Name, t.StartLine)
}

// IsType reports whether the tag declares a type-like symbol
// (class, struct, interface, enum).
func (t Tag) IsType() bool {
	switch t.Kind {
	case KindClass, KindStruct, KindInterface, KindEnum:
		return true
	}
	return false
}

// Store holds parsed tags in insertion order with lookup indexes.
// A Store is built once per generation run and read afterwards;
// it is not safe for concurrent writers.
type Store struct {
	all    []Tag
	byFile map[string][]int
	byName map[string][]int
	seen   map[string]struct{}
}

// NewStore returns an empty tag store.
func NewStore() *Store {
	return &Store{
		byFile: make(map[string][]int),
		byName: make(map[string][]int),
		seen:   make(map[string]struct{}),
	}
}

// Add appends a tag to the store. Tags that repeat an identity
// already present are ignored, keeping the store idempotent when
// an indexer emits duplicate records.
func (s *Store) Add(t Tag) {
	id := t.ID()
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	idx := len(s.all)
	s.all = append(s.all, t)
	s.byFile[t.FilePath] = append(s.byFile[t.FilePath], idx)
	s.byName[t.Name] = append(s.byName[t.Name], idx)
}

// Len returns the number of stored tags.
func (s *Store) Len() int {
	return len(s.all)
}

// All returns every tag in insertion order. The returned slice is a
// copy and may be sorted or mutated by the caller.
func (s *Store) All() []Tag {
	out := make([]Tag, len(s.all))
	copy(out, s.all)
	return out
}

// ByFile returns the tags recorded for a file path, in insertion order.
func (s *Store) ByFile(path string) []Tag {
	idxs, ok := s.byFile[path]
	if !ok {
		return nil
	}
	out := make([]Tag, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.all[i])
	}
	return out
}

// ByName returns the tags recorded under a symbol name.
func (s *Store) ByName(name string) []Tag {
	idxs, ok := s.byName[name]
	if !ok {
		return nil
	}
	out := make([]Tag, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.all[i])
	}
	return out
}

// Has reports whether any tag is recorded under the symbol name.
func (s *Store) Has(name string) bool {
	return len(s.byName[name]) > 0
}

// Files returns the distinct file paths in the store, sorted.
func (s *Store) Files() []string {
	out := make([]string, 0, len(s.byFile))
	for p := range s.byFile {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Languages returns the distinct languages in the store, sorted.
func (s *Store) Languages() []string {
	set := make(map[string]struct{})
	for _, t := range s.all {
		if t.Language != "" {
			set[t.Language] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// EnclosingSymbol returns the innermost tag in the given file whose
// line range covers the line. Tags without an end line cover only
// their start line. Used to attribute call-site matches to the
// function or method containing them.
func (s *Store) EnclosingSymbol(path string, line int) (Tag, bool) {
	var (
		best  Tag
		found bool
		span  int
	)
	for _, i := range s.byFile[path] {
		t := s.all[i]
		end := t.EndLine
		if end == 0 {
			end = t.StartLine
		}
		if line < t.StartLine || line > end {
			continue
		}
		width := end - t.StartLine
		if !found || width < span {
			best = t
			found = true
			span = width
		}
	}
	return best, found
}
