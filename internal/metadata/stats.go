package metadata

import (
	"fmt"
	"sort"
)

// FormatStats renders the aggregate statistics as one line per
// (language, kind) bucket:
//
//	csharp: class: 42
//
// Lines sort by language name, then kind name, then descending count,
// so the rendered block is byte-stable across runs for identical
// input stats. Diagram footers depend on that stability.
func FormatStats(st Stats) []string {
	pairs := make([]LangKind, 0, len(st.ByPair))
	for pair := range st.ByPair {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return st.ByPair[a] > st.ByPair[b]
	})

	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, fmt.Sprintf("%s: %s: %d", pair.Language, pair.Kind, st.ByPair[pair]))
	}
	return out
}
