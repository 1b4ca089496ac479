package langconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// document mirrors one language configuration file. Relationships
// stay a raw node so rule declaration order survives decoding.
type document struct {
	Language struct {
		Name       string   `yaml:"name"`
		Extensions []string `yaml:"extensions"`
		Paradigm   string   `yaml:"paradigm"`
	} `yaml:"language"`
	Relationships yaml.Node            `yaml:"relationships"`
	Visualization map[string]yaml.Node `yaml:"visualization"`
	HotPaths      *hotPathsDoc         `yaml:"hot_paths"`
}

type ruleDoc struct {
	Kind    string `yaml:"kind"`
	Pattern string `yaml:"pattern"`
	Extract struct {
		Source groupRefDoc `yaml:"source"`
		Target groupRefDoc `yaml:"target"`
	} `yaml:"extract"`
	Label   string    `yaml:"label"`
	Style   *styleDoc `yaml:"style"`
	Mermaid string    `yaml:"mermaid"`
}

type styleDoc struct {
	Edge  string `yaml:"edge"`
	Arrow string `yaml:"arrow"`
	Color string `yaml:"color"`
	Width int    `yaml:"width"`
}

type hotPathsDoc struct {
	MethodCallPattern    string `yaml:"method_call_pattern"`
	DistinguishStatic    bool   `yaml:"distinguish_static"`
	TrackVirtualDispatch bool   `yaml:"track_virtual_dispatch"`
	HeatColors           struct {
		Cold string `yaml:"cold"`
		Warm string `yaml:"warm"`
		Hot  string `yaml:"hot"`
	} `yaml:"heat_colors"`
}

// groupRefDoc accepts either an integer group index or a named group.
type groupRefDoc struct {
	ref GroupRef
	set bool
}

func (g *groupRefDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("capture reference must be a group index or name")
	}
	if idx, err := strconv.Atoi(node.Value); err == nil {
		if idx < 1 {
			return fmt.Errorf("capture group index %d out of range", idx)
		}
		g.ref = GroupRef{Index: idx}
		g.set = true
		return nil
	}
	g.ref = GroupRef{Index: -1, Name: node.Value}
	g.set = true
	return nil
}

// defaultArrowTokens maps a rule kind to its class-diagram arrow when
// the document omits an explicit mermaid token.
var defaultArrowTokens = map[RuleKind]string{
	KindInheritance:             "--|>",
	KindInterfaceImplementation: "..|>",
	KindComposition:             "*--",
	KindDependency:              "..>",
	KindCall:                    "-->",
}

// defaultArrowForms maps a rule kind to its arrowhead when the style
// block omits one.
var defaultArrowForms = map[RuleKind]ArrowForm{
	KindInheritance:             ArrowTriangle,
	KindInterfaceImplementation: ArrowTriangle,
	KindComposition:             ArrowDiamond,
	KindDependency:              ArrowOpen,
	KindCall:                    ArrowOpen,
}

// LoadFile parses and validates one language configuration document.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}
	return parseConfig(path, data)
}

func parseConfig(path string, data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse YAML: %w", err)}
	}

	if doc.Language.Name == "" {
		return nil, &ConfigError{Path: path, Err: errors.New("language.name is required")}
	}
	if len(doc.Language.Extensions) == 0 {
		return nil, &ConfigError{Path: path, Err: errors.New("language.extensions must list at least one extension")}
	}

	cfg := &Config{
		Name:     doc.Language.Name,
		Paradigm: doc.Language.Paradigm,
		Path:     path,
	}
	for _, ext := range doc.Language.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return nil, &ConfigError{Path: path, Err: errors.New("empty extension in language.extensions")}
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Extensions = append(cfg.Extensions, strings.ToLower(ext))
	}

	rules, err := parseRules(path, &doc.Relationships)
	if err != nil {
		return nil, err
	}
	cfg.Rules = rules

	vis, err := parseVisualization(path, doc.Visualization)
	if err != nil {
		return nil, err
	}
	cfg.Visualization = vis

	if doc.HotPaths != nil {
		hp, err := parseHotPaths(path, doc.HotPaths)
		if err != nil {
			return nil, err
		}
		cfg.HotPaths = hp
	}
	return cfg, nil
}

// parseRules walks the relationships mapping node pairwise so rules
// keep their declaration order.
func parseRules(path string, node *yaml.Node) ([]RelationshipRule, error) {
	if node.IsZero() {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ConfigError{Path: path, Err: errors.New("relationships must be a mapping of rule name to rule")}
	}

	var rules []RelationshipRule
	seen := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if _, dup := seen[name]; dup {
			return nil, &ConfigError{Path: path, Rule: name, Err: errors.New("duplicate rule name")}
		}
		seen[name] = struct{}{}

		var rd ruleDoc
		if err := node.Content[i+1].Decode(&rd); err != nil {
			return nil, &ConfigError{Path: path, Rule: name, Err: fmt.Errorf("decode rule: %w", err)}
		}
		rule, err := buildRule(path, name, rd)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildRule(path, name string, rd ruleDoc) (RelationshipRule, error) {
	kind := RuleKind(rd.Kind)
	if rd.Kind == "" {
		kind = RuleKind(name)
	}
	if !kind.Valid() {
		return RelationshipRule{}, &ConfigError{
			Path: path, Rule: name,
			Err: fmt.Errorf("unknown relationship kind %q (rule names double as kinds; set kind: explicitly for custom names)", string(kind)),
		}
	}

	if rd.Pattern == "" {
		return RelationshipRule{}, &ConfigError{Path: path, Rule: name, Err: errors.New("pattern is required")}
	}
	re, err := regexp.Compile(rd.Pattern)
	if err != nil {
		return RelationshipRule{}, &ConfigError{Path: path, Rule: name, Err: fmt.Errorf("invalid pattern: %w", err)}
	}

	if !rd.Extract.Source.set || !rd.Extract.Target.set {
		return RelationshipRule{}, &ConfigError{Path: path, Rule: name, Err: errors.New("extract.source and extract.target are required")}
	}
	src := rd.Extract.Source.ref
	dst := rd.Extract.Target.ref
	if src.Resolve(re) < 0 {
		return RelationshipRule{}, &ConfigError{Path: path, Rule: name, Err: fmt.Errorf("extract.source references missing capture group %s", src)}
	}
	if dst.Resolve(re) < 0 {
		return RelationshipRule{}, &ConfigError{Path: path, Rule: name, Err: fmt.Errorf("extract.target references missing capture group %s", dst)}
	}

	style, err := buildStyle(path, name, kind, rd.Style)
	if err != nil {
		return RelationshipRule{}, err
	}

	arrow := rd.Mermaid
	if arrow == "" {
		arrow = defaultArrowTokens[kind]
	}
	label := rd.Label
	if label == "" {
		label = string(kind)
	}

	return RelationshipRule{
		Name:       name,
		Kind:       kind,
		Pattern:    re,
		RawPattern: rd.Pattern,
		Source:     src,
		Target:     dst,
		Label:      label,
		Style:      style,
		ArrowToken: arrow,
	}, nil
}

func buildStyle(path, rule string, kind RuleKind, sd *styleDoc) (Style, error) {
	style := Style{Edge: EdgeSolid, Arrow: defaultArrowForms[kind], Width: 1}
	if sd == nil {
		return style, nil
	}
	if sd.Edge != "" {
		switch EdgeForm(sd.Edge) {
		case EdgeSolid, EdgeDashed, EdgeDotted:
			style.Edge = EdgeForm(sd.Edge)
		default:
			return Style{}, &ConfigError{Path: path, Rule: rule, Err: fmt.Errorf("unknown edge form %q", sd.Edge)}
		}
	}
	if sd.Arrow != "" {
		switch ArrowForm(sd.Arrow) {
		case ArrowTriangle, ArrowDiamond, ArrowOpen:
			style.Arrow = ArrowForm(sd.Arrow)
		default:
			return Style{}, &ConfigError{Path: path, Rule: rule, Err: fmt.Errorf("unknown arrow form %q", sd.Arrow)}
		}
	}
	if sd.Color != "" {
		style.Color = sd.Color
	}
	if sd.Width != 0 {
		if sd.Width < 0 {
			return Style{}, &ConfigError{Path: path, Rule: rule, Err: fmt.Errorf("negative stroke width %d", sd.Width)}
		}
		style.Width = sd.Width
	}
	return style, nil
}

func parseVisualization(path string, nodes map[string]yaml.Node) (Visualization, error) {
	vis := Visualization{PerKind: make(map[string]KindLayout)}
	for key, node := range nodes {
		if key == "default_diagram" {
			if err := node.Decode(&vis.DefaultDiagram); err != nil {
				return Visualization{}, &ConfigError{Path: path, Err: fmt.Errorf("decode visualization.default_diagram: %w", err)}
			}
			continue
		}
		var layout struct {
			Layout    string `yaml:"layout"`
			Direction string `yaml:"direction"`
			GroupBy   string `yaml:"group_by"`
		}
		if err := node.Decode(&layout); err != nil {
			return Visualization{}, &ConfigError{Path: path, Err: fmt.Errorf("decode visualization.%s: %w", key, err)}
		}
		vis.PerKind[key] = KindLayout{
			Layout:    layout.Layout,
			Direction: layout.Direction,
			GroupBy:   layout.GroupBy,
		}
	}
	return vis, nil
}

func parseHotPaths(path string, hd *hotPathsDoc) (HotPathRules, error) {
	hp := HotPathRules{
		DistinguishStatic:    hd.DistinguishStatic,
		TrackVirtualDispatch: hd.TrackVirtualDispatch,
		Colors: HeatColors{
			Cold: hd.HeatColors.Cold,
			Warm: hd.HeatColors.Warm,
			Hot:  hd.HeatColors.Hot,
		},
	}
	if hd.MethodCallPattern != "" {
		re, err := regexp.Compile(hd.MethodCallPattern)
		if err != nil {
			return HotPathRules{}, &ConfigError{Path: path, Err: fmt.Errorf("invalid hot_paths.method_call_pattern: %w", err)}
		}
		if re.NumSubexp() == 0 {
			return HotPathRules{}, &ConfigError{Path: path, Err: errors.New("hot_paths.method_call_pattern needs at least one capture group for the callee")}
		}
		hp.CallPattern = re
		hp.RawCallPattern = hd.MethodCallPattern
	}
	return hp, nil
}

// Load reads every *.yaml / *.yml document under dir into a Registry.
// Any malformed document aborts the load with a *ConfigError.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read language config dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	reg := newRegistry()
	for _, p := range paths {
		cfg, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if err := reg.add(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
