// Package langconf loads and indexes per-language extraction and
// visualization rule sets for Atlas.
//
// One YAML document describes one language: which file extensions it
// claims, the relationship rules to scan source text with, diagram
// layout defaults, and hot-path call tracking settings. Documents are
// loaded once at startup into an immutable Registry; a malformed
// document aborts the whole load, since a silently skipped rule set
// produces silently wrong diagrams.
package langconf

import (
	"fmt"
	"regexp"
)

// RuleKind classifies a relationship rule.
type RuleKind string

const (
	KindInheritance             RuleKind = "inheritance"
	KindInterfaceImplementation RuleKind = "interface_implementation"
	KindComposition             RuleKind = "composition"
	KindDependency              RuleKind = "dependency"
	KindCall                    RuleKind = "call"
)

// Valid reports whether the kind is one of the recognized rule kinds.
func (k RuleKind) Valid() bool {
	switch k {
	case KindInheritance, KindInterfaceImplementation, KindComposition,
		KindDependency, KindCall:
		return true
	}
	return false
}

// Structural reports whether edges of this kind describe static
// structure. Structural edges keep their configured style and are
// never heat-colored by trace data.
func (k RuleKind) Structural() bool {
	switch k {
	case KindInheritance, KindInterfaceImplementation, KindComposition:
		return true
	}
	return false
}

// EdgeForm is the line form of a rendered edge.
type EdgeForm string

const (
	EdgeSolid  EdgeForm = "solid"
	EdgeDashed EdgeForm = "dashed"
	EdgeDotted EdgeForm = "dotted"
)

// ArrowForm is the arrowhead form of a rendered edge.
type ArrowForm string

const (
	ArrowTriangle ArrowForm = "triangle"
	ArrowDiamond  ArrowForm = "diamond"
	ArrowOpen     ArrowForm = "open"
)

// Style describes how an edge is rendered.
type Style struct {
	// Edge is the line form: solid, dashed, or dotted.
	Edge EdgeForm

	// Arrow is the arrowhead form: triangle, diamond, or open.
	Arrow ArrowForm

	// Color is a hex color, empty for the renderer default.
	Color string

	// Width is the stroke width in pixels.
	Width int
}

// GroupRef identifies a capture group in a rule pattern, either by
// index or by name. Exactly one of the two is set.
type GroupRef struct {
	// Index is the capture group index, 1-based. -1 when Name is used.
	Index int

	// Name is the named capture group. Empty when Index is used.
	Name string
}

func (g GroupRef) String() string {
	if g.Name != "" {
		return g.Name
	}
	return fmt.Sprintf("%d", g.Index)
}

// Resolve returns the submatch index the reference points at within
// the compiled pattern, or -1 when the reference cannot be resolved.
func (g GroupRef) Resolve(re *regexp.Regexp) int {
	if g.Name != "" {
		return re.SubexpIndex(g.Name)
	}
	if g.Index >= 1 && g.Index <= re.NumSubexp() {
		return g.Index
	}
	return -1
}

// RelationshipRule is one text-matching rule of a language config.
// Rules are applied in declaration order; all matches of every rule
// are kept, then deduplicated by (kind, source, target).
type RelationshipRule struct {
	// Name is the rule's key in the configuration document.
	Name string

	// Kind classifies the edges the rule produces.
	Kind RuleKind

	// Pattern is the compiled matching expression.
	Pattern *regexp.Regexp

	// RawPattern is the pattern text as written in the document.
	RawPattern string

	// Source and Target map capture groups to the edge endpoints.
	Source GroupRef
	Target GroupRef

	// Label is the human-readable edge label.
	Label string

	// Style is the rendering style for edges from this rule.
	Style Style

	// ArrowToken is the diagram arrow token (e.g. "--|>").
	ArrowToken string
}

// KindLayout holds per-diagram-kind layout defaults.
type KindLayout struct {
	Layout    string
	Direction string
	GroupBy   string
}

// Visualization holds a language's diagram defaults.
type Visualization struct {
	// DefaultDiagram is the diagram kind generated when the caller
	// does not name one.
	DefaultDiagram string

	// PerKind maps a diagram kind name to its layout defaults.
	PerKind map[string]KindLayout
}

// HeatColors is the three-stop scale hot-path edges are colored with.
type HeatColors struct {
	Cold string
	Warm string
	Hot  string
}

// HotPathRules configures dynamic call tracking for a language.
type HotPathRules struct {
	// CallPattern matches call sites; the last participating capture
	// group names the callee. Nil when the language does not
	// configure hot paths.
	CallPattern *regexp.Regexp

	// RawCallPattern is the pattern text as written.
	RawCallPattern string

	// DistinguishStatic labels calls on known type names as static.
	DistinguishStatic bool

	// TrackVirtualDispatch labels calls through unknown receivers as
	// virtual.
	TrackVirtualDispatch bool

	// Colors is the heat color scale.
	Colors HeatColors
}

// Config is one language's loaded rule set. Immutable after load.
type Config struct {
	// Name is the language name, unique within a registry.
	Name string

	// Extensions are the file extensions the language claims,
	// each with a leading dot.
	Extensions []string

	// Paradigm is a free-form classifier (e.g. object_oriented).
	Paradigm string

	// Rules are the relationship rules in declaration order.
	Rules []RelationshipRule

	// Visualization holds diagram defaults.
	Visualization Visualization

	// HotPaths holds call tracking settings.
	HotPaths HotPathRules

	// Path is the document the config was loaded from.
	Path string
}

// Layout returns the layout defaults for a diagram kind, falling back
// to zero values when the document does not configure the kind.
func (c *Config) Layout(kind string) KindLayout {
	return c.Visualization.PerKind[kind]
}

// ConfigError describes a malformed language configuration document.
// It is fatal to registry load.
type ConfigError struct {
	// Path is the offending document.
	Path string

	// Rule is the offending rule name, empty for document-level faults.
	Rule string

	// Err is the underlying cause.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("language config %s: rule %q: %v", e.Path, e.Rule, e.Err)
	}
	return fmt.Sprintf("language config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
