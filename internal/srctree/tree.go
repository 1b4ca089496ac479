// Package srctree models a scanned source tree as an arena of
// directory and file nodes with explicit parent links.
//
// The code-flow generator recurses over this structure instead of the
// working directory, so its walk is unit-testable against a synthetic
// tree and carries no ambient filesystem state.
package srctree

import (
	"path"
	"sort"
	"strings"
)

// Node is one directory or file in the arena.
type Node struct {
	// ID is the node's index in the arena.
	ID int

	// Parent is the parent node's ID, -1 for the root.
	Parent int

	// Name is the base name; the root is ".".
	Name string

	// Path is the slash-separated path relative to the tree root.
	Path string

	// IsDir marks directories.
	IsDir bool

	// Depth is the distance from the root, which sits at 0.
	Depth int

	// Children holds child node IDs in insertion order.
	Children []int
}

// Tree is an arena of nodes rooted at ".".
type Tree struct {
	nodes  []Node
	byPath map[string]int
}

// New returns a tree holding only the root node.
func New() *Tree {
	t := &Tree{byPath: make(map[string]int)}
	t.nodes = append(t.nodes, Node{ID: 0, Parent: -1, Name: ".", Path: ".", IsDir: true})
	t.byPath["."] = 0
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return &t.nodes[0]
}

// Node returns the node with the given ID.
func (t *Tree) Node(id int) *Node {
	return &t.nodes[id]
}

// Len returns the node count including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Lookup returns the node at a relative path.
func (t *Tree) Lookup(p string) (*Node, bool) {
	id, ok := t.byPath[normalize(p)]
	if !ok {
		return nil, false
	}
	return &t.nodes[id], true
}

// Insert adds a node at the given relative path, creating missing
// parent directories. Inserting an existing path returns the existing
// node unchanged.
func (t *Tree) Insert(p string, isDir bool) *Node {
	p = normalize(p)
	if id, ok := t.byPath[p]; ok {
		return &t.nodes[id]
	}

	parent := t.Insert(path.Dir(p), true)
	parentID, parentDepth := parent.ID, parent.Depth

	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:     id,
		Parent: parentID,
		Name:   path.Base(p),
		Path:   p,
		IsDir:  isDir,
		Depth:  parentDepth + 1,
	})
	t.byPath[p] = id
	t.nodes[parentID].Children = append(t.nodes[parentID].Children, id)
	return &t.nodes[id]
}

// ChildrenOf returns a node's children sorted directories first,
// then by name, for deterministic rendering.
func (t *Tree) ChildrenOf(id int) []*Node {
	kids := t.nodes[id].Children
	out := make([]*Node, 0, len(kids))
	for _, cid := range kids {
		out = append(out, &t.nodes[cid])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Dirs returns every directory node including the root, sorted by path.
func (t *Tree) Dirs() []*Node {
	return t.collect(true)
}

// Files returns every file node, sorted by path.
func (t *Tree) Files() []*Node {
	return t.collect(false)
}

func (t *Tree) collect(dirs bool) []*Node {
	var out []*Node
	for i := range t.nodes {
		if t.nodes[i].IsDir == dirs {
			out = append(out, &t.nodes[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// MaxDepth returns the deepest node depth in the tree.
func (t *Tree) MaxDepth() int {
	max := 0
	for i := range t.nodes {
		if t.nodes[i].Depth > max {
			max = t.nodes[i].Depth
		}
	}
	return max
}

// FromPaths builds a synthetic tree from relative file paths.
// Intermediate directories are created as needed.
func FromPaths(paths []string) *Tree {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	t := New()
	for _, p := range sorted {
		if p = normalize(p); p != "." {
			t.Insert(p, false)
		}
	}
	return t
}

// normalize converts a path to clean, slash-separated, relative form.
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(strings.TrimPrefix(p, "./"))
	if p == "" || p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}
