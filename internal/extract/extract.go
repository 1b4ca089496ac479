// Package extract applies language relationship rules to source text,
// producing the typed edges the diagram generators consume.
//
// Extraction is offline pattern matching over raw text. It never
// executes or type-checks source; a relationship may name a symbol
// that is absent from the current tag slice (an external base class,
// a library call) and such edges are still emitted so downstream
// diagrams can render the reference as an external node.
package extract

import (
	"fmt"
	"sort"

	"github.com/codeatlas/atlas-go/internal/langconf"
)

// Relationship is one typed edge between two symbols.
type Relationship struct {
	// Kind classifies the edge (inheritance, composition, call, ...).
	Kind langconf.RuleKind

	// Source and Target are symbol names as captured from the text,
	// not resolved against the tag store.
	Source string
	Target string

	// Label is the human-readable edge label.
	Label string

	// Style is the rendering style from the producing rule.
	Style langconf.Style

	// ArrowToken is the diagram arrow token from the producing rule.
	ArrowToken string

	// Rule is the name of the rule that produced the edge.
	Rule string

	// FilePath and Line locate the first match that produced the edge.
	FilePath string
	Line     int
}

// Key returns the deduplication identity of the edge.
func (r Relationship) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Kind, r.Source, r.Target)
}

type edgeKey struct {
	kind           langconf.RuleKind
	source, target string
}

// Extract scans source text with every rule of the language config,
// in declaration order, and returns the deduplicated edges.
//
// All non-overlapping matches of every rule are kept; a single line
// may legitimately match several rules. A match whose mapped capture
// group did not participate (an optional group) is skipped without
// aborting the scan. Duplicate (kind, source, target) edges collapse
// to one, first-seen style wins.
func Extract(src []byte, filePath string, cfg *langconf.Config) []Relationship {
	var out []Relationship
	seen := make(map[edgeKey]struct{})
	lines := newLineIndex(src)

	for _, rule := range cfg.Rules {
		srcGroup := rule.Source.Resolve(rule.Pattern)
		dstGroup := rule.Target.Resolve(rule.Pattern)
		if srcGroup < 0 || dstGroup < 0 {
			continue
		}

		for _, m := range rule.Pattern.FindAllSubmatchIndex(src, -1) {
			source := groupText(src, m, srcGroup)
			target := groupText(src, m, dstGroup)
			if source == "" || target == "" {
				continue
			}

			key := edgeKey{kind: rule.Kind, source: source, target: target}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			out = append(out, Relationship{
				Kind:       rule.Kind,
				Source:     source,
				Target:     target,
				Label:      rule.Label,
				Style:      rule.Style,
				ArrowToken: rule.ArrowToken,
				Rule:       rule.Name,
				FilePath:   filePath,
				Line:       lines.lineAt(m[0]),
			})
		}
	}
	return out
}

// groupText returns the text of a capture group within a match, or
// empty when the group did not participate.
func groupText(src []byte, match []int, group int) string {
	lo, hi := match[2*group], match[2*group+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return string(src[lo:hi])
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) lineAt(offset int) int {
	return sort.SearchInts(l, offset+1)
}

// Dedup collapses duplicate (kind, source, target) edges across an
// already ordered slice, keeping the first occurrence of each.
func Dedup(rels []Relationship) []Relationship {
	seen := make(map[edgeKey]struct{}, len(rels))
	out := rels[:0:0]
	for _, r := range rels {
		key := edgeKey{kind: r.Kind, source: r.Source, target: r.Target}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Sort orders edges by the stable key used for deterministic output:
// source symbol, then target, then kind, then location.
func Sort(rels []Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Line < b.Line
	})
}
