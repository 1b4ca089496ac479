package diagram

import (
	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/metadata"
	"github.com/codeatlas/atlas-go/internal/srctree"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// Inputs carries everything a generator may consume. The engine
// hands tags and relationships over pre-sorted by their stable keys,
// so generator output is byte-stable for identical inputs.
type Inputs struct {
	// Title labels the diagram where the grammar has a title slot.
	Title string

	// Store holds the symbol records.
	Store *tags.Store

	// Relationships are the deduplicated, sorted extracted edges.
	Relationships []extract.Relationship

	// Meta is this run's metadata accumulator.
	Meta *metadata.Store

	// Tree is the scanned source tree.
	Tree *srctree.Tree

	// Calls indexes call and dependency edges.
	Calls *extract.CallIndex

	// Direction is the layout direction (TB, LR, ...) for kinds
	// whose grammar takes one.
	Direction string

	// MaxDepth bounds directory nesting in the code-flow body.
	// Zero means unbounded.
	MaxDepth int

	// TopFiles bounds the per-language file leaves in the mindmap
	// body. Zero means the default of 5.
	TopFiles int

	// ExpandSymbols adds per-file symbol children to the flowchart
	// body.
	ExpandSymbols bool
}

// direction returns the configured direction or the given default.
func (in *Inputs) direction(def string) string {
	if in.Direction != "" {
		return in.Direction
	}
	return def
}

// stats returns the metadata stats record, zero-valued without a
// metadata store.
func (in *Inputs) stats() metadata.Stats {
	if in.Meta == nil {
		return metadata.Stats{}
	}
	return in.Meta.Stats()
}
