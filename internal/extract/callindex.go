package extract

import (
	"sort"

	"github.com/codeatlas/atlas-go/internal/langconf"
)

// CallIndex is an adjacency view over call and dependency edges,
// answering who-calls-whom questions for the sequence and code-flow
// generators. Structural edges (inheritance, composition) are not
// indexed; they describe shape, not control flow.
type CallIndex struct {
	outgoing map[string][]string
	incoming map[string][]string
	nodes    []string
}

// NewCallIndex builds the adjacency view from extracted edges.
func NewCallIndex(rels []Relationship) *CallIndex {
	idx := &CallIndex{
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
	nodeSet := make(map[string]struct{})
	edgeSeen := make(map[[2]string]struct{})

	for _, r := range rels {
		if r.Kind != langconf.KindCall && r.Kind != langconf.KindDependency {
			continue
		}
		nodeSet[r.Source] = struct{}{}
		nodeSet[r.Target] = struct{}{}

		pair := [2]string{r.Source, r.Target}
		if _, dup := edgeSeen[pair]; dup {
			continue
		}
		edgeSeen[pair] = struct{}{}
		idx.outgoing[r.Source] = append(idx.outgoing[r.Source], r.Target)
		idx.incoming[r.Target] = append(idx.incoming[r.Target], r.Source)
	}

	for name := range nodeSet {
		idx.nodes = append(idx.nodes, name)
	}
	sort.Strings(idx.nodes)
	for _, adj := range idx.outgoing {
		sort.Strings(adj)
	}
	for _, adj := range idx.incoming {
		sort.Strings(adj)
	}
	return idx
}

// Nodes returns every symbol participating in a call or dependency
// edge, sorted.
func (c *CallIndex) Nodes() []string {
	return c.nodes
}

// Callees returns the symbols the named symbol calls, sorted.
func (c *CallIndex) Callees(name string) []string {
	return c.outgoing[name]
}

// Callers returns the symbols calling the named symbol, sorted.
func (c *CallIndex) Callers(name string) []string {
	return c.incoming[name]
}

// HasIncomingCall reports whether any recorded symbol calls the name.
func (c *CallIndex) HasIncomingCall(name string) bool {
	return len(c.incoming[name]) > 0
}

// EntryPoints returns the symbols that originate calls but are never
// called themselves, sorted. These are the candidate starting points
// for sequence rendering.
func (c *CallIndex) EntryPoints() []string {
	var out []string
	for _, name := range c.nodes {
		if len(c.outgoing[name]) > 0 && len(c.incoming[name]) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Len returns the number of indexed symbols.
func (c *CallIndex) Len() int {
	return len(c.nodes)
}
