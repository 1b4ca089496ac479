package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// OverlayNode is one symbol in the overlay payload.
type OverlayNode struct {
	ID string `json:"id"`

	// Kind is the tagged symbol kind, or "external" for symbols the
	// edges reference but no tag declares.
	Kind string `json:"kind"`

	// IsBase marks inheritance and interface-implementation targets.
	IsBase bool `json:"isBase,omitempty"`
}

// OverlayEdge is one heat-weighted edge in the overlay payload.
type OverlayEdge struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Kind  string  `json:"kind"`
	Color string  `json:"color"`
	Heat  float64 `json:"heat"`
}

// Overlay is the payload handed to the external rendering step.
type Overlay struct {
	Nodes []OverlayNode `json:"nodes"`
	Edges []OverlayEdge `json:"edges"`
}

// externalKind marks symbols referenced by an edge but absent from the
// tag store. They render rather than drop, so edges to unscanned code
// stay visible.
const externalKind = "external"

// BuildOverlay shapes fused edges into the overlay payload. Nodes sort
// by ID and edges by (from, to, kind), so the payload is byte-stable
// for identical inputs. Structural edges carry their configured style
// color; call and dependency edges get the heat scale color.
func BuildOverlay(edges []HeatEdge, store *tags.Store, colors langconf.HeatColors) *Overlay {
	baseTargets := make(map[string]struct{})
	names := make(map[string]struct{})
	for _, e := range edges {
		names[e.Source] = struct{}{}
		names[e.Target] = struct{}{}
		switch e.Kind {
		case langconf.KindInheritance, langconf.KindInterfaceImplementation:
			baseTargets[e.Target] = struct{}{}
		}
	}

	// Empty slices keep the JSON arrays present rather than null.
	o := &Overlay{Nodes: []OverlayNode{}, Edges: []OverlayEdge{}}
	for name := range names {
		_, isBase := baseTargets[name]
		o.Nodes = append(o.Nodes, OverlayNode{
			ID:     name,
			Kind:   nodeKind(store, name),
			IsBase: isBase,
		})
	}
	sort.Slice(o.Nodes, func(i, j int) bool { return o.Nodes[i].ID < o.Nodes[j].ID })

	for _, e := range edges {
		color := e.Style.Color
		if !e.Kind.Structural() {
			color = HeatColor(e.Heat, colors)
		}
		o.Edges = append(o.Edges, OverlayEdge{
			From:  e.Source,
			To:    e.Target,
			Kind:  string(e.Kind),
			Color: color,
			Heat:  e.Heat,
		})
	}
	sort.Slice(o.Edges, func(i, j int) bool {
		a, b := o.Edges[i], o.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Kind < b.Kind
	})
	return o
}

// nodeKind resolves a symbol name against the tag store, preferring
// the earliest declaration when a name is tagged more than once.
func nodeKind(store *tags.Store, name string) string {
	if store == nil {
		return externalKind
	}
	decls := store.ByName(name)
	if len(decls) == 0 {
		return externalKind
	}
	sort.Slice(decls, func(i, j int) bool {
		if decls[i].FilePath != decls[j].FilePath {
			return decls[i].FilePath < decls[j].FilePath
		}
		return decls[i].StartLine < decls[j].StartLine
	})
	return string(decls[0].Kind)
}

// WriteFile writes the payload as indented JSON, atomically: the bytes
// go to a temporary file in the target directory which is then renamed
// over the destination.
func (o *Overlay) WriteFile(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".atlas-overlay-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
