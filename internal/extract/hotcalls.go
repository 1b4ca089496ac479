package extract

import (
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// hotCallRule names the synthesized rule behind hot-path call edges.
const hotCallRule = "method_call"

// HotCalls scans source text with the language's hot-path call
// pattern and synthesizes call edges attributed to their enclosing
// symbols.
//
// The callee is the last participating capture group of each match;
// the caller is the innermost tag covering the match line. Matches
// outside any tagged symbol are dropped: a call that cannot be
// attributed produces a dangling edge the trace fusion step could
// never match. When the config distinguishes static calls, a receiver
// group naming a known type tag labels the edge "static call";
// otherwise, with virtual dispatch tracking on, calls through unknown
// receivers are labeled "virtual call".
func HotCalls(src []byte, filePath string, cfg *langconf.Config, store *tags.Store) []Relationship {
	hp := cfg.HotPaths
	if hp.CallPattern == nil || store == nil {
		return nil
	}

	var out []Relationship
	seen := make(map[edgeKey]struct{})
	lines := newLineIndex(src)
	groups := hp.CallPattern.NumSubexp()

	for _, m := range hp.CallPattern.FindAllSubmatchIndex(src, -1) {
		callee := lastGroupText(src, m, groups)
		if callee == "" {
			continue
		}

		line := lines.lineAt(m[0])
		caller, ok := store.EnclosingSymbol(filePath, line)
		if !ok {
			continue
		}
		if caller.Name == callee {
			// A pattern that matches the definition site would
			// otherwise report every function as calling itself.
			continue
		}

		key := edgeKey{kind: langconf.KindCall, source: caller.Name, target: callee}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, Relationship{
			Kind:       langconf.KindCall,
			Source:     caller.Name,
			Target:     callee,
			Label:      callLabel(src, m, groups, hp, store),
			Style:      langconf.Style{Edge: langconf.EdgeSolid, Arrow: langconf.ArrowOpen, Width: 1},
			ArrowToken: "-->",
			Rule:       hotCallRule,
			FilePath:   filePath,
			Line:       line,
		})
	}
	return out
}

// lastGroupText returns the text of the highest-numbered capture
// group that participated in the match.
func lastGroupText(src []byte, match []int, groups int) string {
	for g := groups; g >= 1; g-- {
		if text := groupText(src, match, g); text != "" {
			return text
		}
	}
	return ""
}

// callLabel classifies one call match. The receiver, when the pattern
// captures one, is the first participating group before the callee.
func callLabel(src []byte, match []int, groups int, hp langconf.HotPathRules, store *tags.Store) string {
	if groups < 2 {
		return "call"
	}
	receiver := groupText(src, match, 1)
	if receiver == "" {
		return "call"
	}

	if hp.DistinguishStatic && isTypeName(store, receiver) {
		return "static call"
	}
	if hp.TrackVirtualDispatch && !isTypeName(store, receiver) {
		return "virtual call"
	}
	return "call"
}

func isTypeName(store *tags.Store, name string) bool {
	for _, t := range store.ByName(name) {
		if t.IsType() {
			return true
		}
	}
	return false
}
