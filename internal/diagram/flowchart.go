package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codeatlas/atlas-go/internal/tags"
)

// depthPalette colors directory levels; levels beyond the palette wrap
// around.
var depthPalette = []string{"#1f6feb", "#2da44e", "#bf8700", "#cf222e", "#8250df", "#1b7c83"}

// Flowchart renders the source tree as a box graph, one node per
// directory and file, color-coded by depth. With ExpandSymbols set,
// each file additionally links to its symbols.
type Flowchart struct{}

func (Flowchart) Kind() Kind { return KindFlowchart }

func (Flowchart) ValidateInputs(in *Inputs) error {
	if in.Tree == nil || in.Tree.Len() <= 1 {
		return &InvalidInputError{Kind: KindFlowchart, Field: "tree", Reason: "no files or directories to draw"}
	}
	return nil
}

func (Flowchart) Body(doc *Document, in *Inputs) error {
	byDepth := make(map[int][]string)

	var declare func(id int)
	declare = func(id int) {
		n := in.Tree.Node(id)
		nid := treeNodeID(n.IsDir, n.Path)
		label := n.Name
		switch {
		case n.Parent < 0 && in.Title != "":
			label = in.Title
		case n.IsDir && n.Parent >= 0:
			label += "/"
		}
		doc.Appendf("  %s[\"%s\"]", nid, escapeLabel(label))
		byDepth[n.Depth] = append(byDepth[n.Depth], nid)
		for _, c := range in.Tree.ChildrenOf(id) {
			declare(c.ID)
		}
	}
	declare(in.Tree.Root().ID)

	doc.Append("")
	var link func(id int)
	link = func(id int) {
		n := in.Tree.Node(id)
		for _, c := range in.Tree.ChildrenOf(id) {
			doc.Appendf("  %s --> %s", treeNodeID(n.IsDir, n.Path), treeNodeID(c.IsDir, c.Path))
			link(c.ID)
		}
	}
	link(in.Tree.Root().ID)

	var symIDs []string
	if in.ExpandSymbols && in.Store != nil && in.Store.Len() > 0 {
		doc.Append("")
		for _, f := range in.Tree.Files() {
			for _, t := range fileSymbols(in.Store, f.Path) {
				sid := makeID("sym", fmt.Sprintf("%s_%s_%d", t.FilePath, t.Name, t.StartLine))
				doc.Appendf("  %s((\"%s\"))", sid, escapeLabel(t.Name))
				doc.Appendf("  %s -.-> %s", treeNodeID(false, f.Path), sid)
				symIDs = append(symIDs, sid)
			}
		}
	}

	doc.Append("")
	depths := make([]int, 0, len(byDepth))
	for d := range byDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		doc.Appendf("  classDef depth%d fill:%s,stroke:#2f3640,color:#fff", d, depthPalette[d%len(depthPalette)])
	}
	for _, d := range depths {
		doc.Appendf("  class %s depth%d", strings.Join(byDepth[d], ","), d)
	}
	if len(symIDs) > 0 {
		doc.Append("  classDef symbol fill:#f5f6fa,stroke:#7f8fa6,color:#2f3640")
		doc.Appendf("  class %s symbol", strings.Join(symIDs, ","))
	}
	return nil
}

// treeNodeID keeps directory and file identifiers in separate
// namespaces so a file can share its path prefix with a directory.
func treeNodeID(isDir bool, path string) string {
	if isDir {
		return makeID("dir", path)
	}
	return makeID("file", path)
}

// fileSymbols returns a file's tags in declaration order.
func fileSymbols(store *tags.Store, path string) []tags.Tag {
	out := store.ByFile(path)
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].Name < out[j].Name
	})
	return out
}
