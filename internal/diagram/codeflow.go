package diagram

import (
	"sort"
	"strings"

	"github.com/codeatlas/atlas-go/internal/srctree"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// CodeFlow renders a depth-bounded directory tree as nested subgraphs
// with call edges between the symbols inside. The header adds the init
// directive nested subgraphs need; the footer documents the emitted
// subgraph boundaries. The boundary list is carried on the struct from
// Body to Footer, so CodeFlow values are single-use.
type CodeFlow struct {
	dirs []dirBoundary
}

type dirBoundary struct {
	path  string
	files int
}

func (g *CodeFlow) Kind() Kind { return KindCodeFlow }

func (g *CodeFlow) ValidateInputs(in *Inputs) error {
	if in.Tree == nil || in.Tree.Len() <= 1 {
		return &InvalidInputError{Kind: KindCodeFlow, Field: "tree", Reason: "no files or directories to draw"}
	}
	if in.Store == nil || in.Store.Len() == 0 {
		return &InvalidInputError{Kind: KindCodeFlow, Field: "store", Reason: "no symbol records"}
	}
	return nil
}

func (g *CodeFlow) Header(doc *Document, in *Inputs) {
	doc.Append(`%%{init: {"flowchart": {"htmlLabels": false, "curve": "basis"}} }%%`)
	doc.Appendf("%s %s", KindCodeFlow.DeclarationToken(), in.direction("TB"))
}

func (g *CodeFlow) Body(doc *Document, in *Inputs) error {
	g.dirs = g.dirs[:0]
	declared := make(map[string]string)
	g.writeChildren(doc, in, in.Tree.Root().ID, 1, declared)
	g.writeCalls(doc, in, declared)
	return nil
}

func (g *CodeFlow) Footer(doc *Document, in *Inputs) {
	doc.Append("")
	if len(g.dirs) == 0 {
		doc.Append("%% Subgraph boundaries: none (flat tree)")
		return
	}
	doc.Append("%% Subgraph boundaries:")
	for _, b := range g.dirs {
		doc.Appendf("%%%%   %s (files: %d)", b.path, b.files)
	}
}

// writeChildren emits a directory's children: subdirectories as nested
// subgraphs, files as symbol subgraphs. Directories deeper than
// MaxDepth are pruned with their whole subtree.
func (g *CodeFlow) writeChildren(doc *Document, in *Inputs, id, level int, declared map[string]string) {
	pad := strings.Repeat("  ", level)
	for _, child := range in.Tree.ChildrenOf(id) {
		if child.IsDir {
			if in.MaxDepth > 0 && child.Depth > in.MaxDepth {
				continue
			}
			doc.Appendf("%ssubgraph %s[\"%s/\"]", pad, makeID("dir", child.Path), escapeLabel(child.Name))
			g.dirs = append(g.dirs, dirBoundary{path: child.Path + "/", files: directFiles(in.Tree, child.ID)})
			g.writeChildren(doc, in, child.ID, level+1, declared)
			doc.Appendf("%send", pad)
			continue
		}
		g.writeFile(doc, in, child, level, declared)
	}
}

// writeFile emits a file as a subgraph around its symbol nodes, or as
// a plain node when it holds none.
func (g *CodeFlow) writeFile(doc *Document, in *Inputs, node *srctree.Node, level int, declared map[string]string) {
	pad := strings.Repeat("  ", level)
	syms := flowSymbols(in.Store.ByFile(node.Path))
	if len(syms) == 0 {
		doc.Appendf("%s%s[\"%s\"]", pad, makeID("file", node.Path), escapeLabel(node.Name))
		return
	}
	doc.Appendf("%ssubgraph %s[\"%s\"]", pad, makeID("file", node.Path), escapeLabel(node.Name))
	for _, t := range syms {
		// Call edges address symbols by bare name, so the first
		// declaration of a name claims its node.
		if _, dup := declared[t.Name]; dup {
			continue
		}
		sid := makeID("sym", t.Name)
		declared[t.Name] = sid
		doc.Appendf("%s  %s[\"%s\"]", pad, sid, escapeLabel(t.Name))
	}
	doc.Appendf("%send", pad)
}

// writeCalls emits the call edges by depth-first descent from the
// entry points. A callee already on the current path gets its edge
// but no descent, so mutually recursive call graphs terminate.
func (g *CodeFlow) writeCalls(doc *Document, in *Inputs, declared map[string]string) {
	if in.Calls == nil || in.Calls.Len() == 0 {
		return
	}
	doc.Append("")

	var externals []string
	nodeFor := func(name string) string {
		if id, ok := declared[name]; ok {
			return id
		}
		id := makeID("sym", name)
		declared[name] = id
		externals = append(externals, id)
		doc.Appendf("  %s[\"%s\"]", id, escapeLabel(name))
		return id
	}

	roots := in.Calls.EntryPoints()
	if len(roots) == 0 {
		roots = in.Calls.Nodes()
	}

	emitted := make(map[[2]string]struct{})
	onPath := make(map[string]struct{})
	done := make(map[string]struct{})

	var walk func(name string)
	walk = func(name string) {
		onPath[name] = struct{}{}
		for _, callee := range in.Calls.Callees(name) {
			pair := [2]string{name, callee}
			if _, dup := emitted[pair]; !dup {
				emitted[pair] = struct{}{}
				doc.Appendf("  %s --> %s", nodeFor(name), nodeFor(callee))
			}
			if _, cyc := onPath[callee]; cyc {
				continue
			}
			if _, fin := done[callee]; fin {
				continue
			}
			walk(callee)
		}
		delete(onPath, name)
		done[name] = struct{}{}
	}
	for _, r := range roots {
		if _, fin := done[r]; !fin {
			walk(r)
		}
	}

	if len(externals) > 0 {
		doc.Append("")
		doc.Append("  classDef external fill:#f5f6fa,stroke:#7f8fa6,stroke-dasharray:4 4")
		doc.Appendf("  class %s external", strings.Join(externals, ","))
	}
}

// flowSymbols filters a file's tags down to the callable and type
// symbols worth a node, in declaration order.
func flowSymbols(fileTags []tags.Tag) []tags.Tag {
	var out []tags.Tag
	for _, t := range fileTags {
		switch t.Kind {
		case tags.KindMember, tags.KindField, tags.KindVariable:
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func directFiles(t *srctree.Tree, id int) int {
	n := 0
	for _, c := range t.ChildrenOf(id) {
		if !c.IsDir {
			n++
		}
	}
	return n
}
