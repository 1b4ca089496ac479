// Package metadata accumulates node, edge, and subgraph annotations
// plus aggregate statistics for one diagram generation run.
//
// A Store is a mutable accumulator owned exclusively by the run that
// creates it; it is never shared across concurrent runs and is not
// safe for concurrent writers. Aggregation happens single threaded
// after extraction so insertion order stays deterministic.
package metadata

import (
	"github.com/codeatlas/atlas-go/internal/langconf"
)

// EdgeMeta is the rendering annotation recorded for one edge key.
type EdgeMeta struct {
	Kind       langconf.RuleKind
	Label      string
	Style      langconf.Style
	ArrowToken string
}

// LangKind is a (language, symbol kind) statistics bucket.
type LangKind struct {
	Language string
	Kind     string
}

// Stats aggregates symbol counts for the statistics footer.
type Stats struct {
	// TotalSymbols counts every increment.
	TotalSymbols int

	// ByLanguage and ByKind count symbols per axis.
	ByLanguage map[string]int
	ByKind     map[string]int

	// ByPair counts symbols per (language, kind) bucket; the stats
	// formatter renders one line per bucket.
	ByPair map[LangKind]int

	// FileCount counts distinct recorded files.
	FileCount int
}

// Empty reports whether no statistic was recorded.
func (s Stats) Empty() bool {
	return s.TotalSymbols == 0 && s.FileCount == 0
}

// Store holds the three metadata mappings and the stats record.
type Store struct {
	nodes     map[string]map[string]string
	nodeOrder []string

	edges     map[string]EdgeMeta
	edgeOrder []string

	subgraphs     map[string][]string
	subgraphSeen  map[string]map[string]struct{}
	subgraphOrder []string

	files map[string]struct{}
	stats Stats
}

// NewStore returns an empty metadata store.
func NewStore() *Store {
	return &Store{
		nodes:        make(map[string]map[string]string),
		edges:        make(map[string]EdgeMeta),
		subgraphs:    make(map[string][]string),
		subgraphSeen: make(map[string]map[string]struct{}),
		files:        make(map[string]struct{}),
		stats: Stats{
			ByLanguage: make(map[string]int),
			ByKind:     make(map[string]int),
			ByPair:     make(map[LangKind]int),
		},
	}
}

// RecordNode merges descriptive attributes for a symbol. Recording
// the same node twice is a no-op beyond the first write; conflicting
// attribute values resolve last-write-wins.
func (s *Store) RecordNode(name string, attrs map[string]string) {
	existing, ok := s.nodes[name]
	if !ok {
		existing = make(map[string]string, len(attrs))
		s.nodes[name] = existing
		s.nodeOrder = append(s.nodeOrder, name)
	}
	for k, v := range attrs {
		existing[k] = v
	}
}

// RecordEdge stores the rendering annotation for an edge key.
// Re-recording a key overwrites the annotation; the key keeps its
// first-insertion position.
func (s *Store) RecordEdge(key string, meta EdgeMeta) {
	if _, ok := s.edges[key]; !ok {
		s.edgeOrder = append(s.edgeOrder, key)
	}
	s.edges[key] = meta
}

// RecordSubgraphMembership adds a member symbol to a container,
// once; repeat recordings leave state unchanged.
func (s *Store) RecordSubgraphMembership(container, member string) {
	seen, ok := s.subgraphSeen[container]
	if !ok {
		seen = make(map[string]struct{})
		s.subgraphSeen[container] = seen
		s.subgraphOrder = append(s.subgraphOrder, container)
	}
	if _, dup := seen[member]; dup {
		return
	}
	seen[member] = struct{}{}
	s.subgraphs[container] = append(s.subgraphs[container], member)
}

// IncrementStat bumps the symbol counters for a language and kind.
func (s *Store) IncrementStat(language, kind string) {
	s.stats.TotalSymbols++
	s.stats.ByLanguage[language]++
	s.stats.ByKind[kind]++
	s.stats.ByPair[LangKind{Language: language, Kind: kind}]++
}

// RecordFile counts a file once regardless of repeat recordings.
func (s *Store) RecordFile(path string) {
	if _, dup := s.files[path]; dup {
		return
	}
	s.files[path] = struct{}{}
	s.stats.FileCount++
}

// HasData reports whether any mapping or the stats record is
// non-empty.
func (s *Store) HasData() bool {
	return len(s.nodes) > 0 || len(s.edges) > 0 || len(s.subgraphs) > 0 || !s.stats.Empty()
}

// NodeNames returns recorded node names in insertion order.
func (s *Store) NodeNames() []string {
	out := make([]string, len(s.nodeOrder))
	copy(out, s.nodeOrder)
	return out
}

// Node returns a copy of the attributes recorded for a name.
func (s *Store) Node(name string) map[string]string {
	attrs, ok := s.nodes[name]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// HasNode reports whether the name was recorded.
func (s *Store) HasNode(name string) bool {
	_, ok := s.nodes[name]
	return ok
}

// EdgeKeys returns recorded edge keys in insertion order.
func (s *Store) EdgeKeys() []string {
	out := make([]string, len(s.edgeOrder))
	copy(out, s.edgeOrder)
	return out
}

// Edge returns the annotation recorded for an edge key.
func (s *Store) Edge(key string) (EdgeMeta, bool) {
	meta, ok := s.edges[key]
	return meta, ok
}

// SubgraphNames returns container names in insertion order.
func (s *Store) SubgraphNames() []string {
	out := make([]string, len(s.subgraphOrder))
	copy(out, s.subgraphOrder)
	return out
}

// SubgraphMembers returns a container's members in recording order.
func (s *Store) SubgraphMembers(container string) []string {
	members := s.subgraphs[container]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Stats returns a copy of the aggregate statistics.
func (s *Store) Stats() Stats {
	out := Stats{
		TotalSymbols: s.stats.TotalSymbols,
		FileCount:    s.stats.FileCount,
		ByLanguage:   make(map[string]int, len(s.stats.ByLanguage)),
		ByKind:       make(map[string]int, len(s.stats.ByKind)),
		ByPair:       make(map[LangKind]int, len(s.stats.ByPair)),
	}
	for k, v := range s.stats.ByLanguage {
		out.ByLanguage[k] = v
	}
	for k, v := range s.stats.ByKind {
		out.ByKind[k] = v
	}
	for k, v := range s.stats.ByPair {
		out.ByPair[k] = v
	}
	return out
}
