package langconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csharpDoc = `
language:
  name: csharp
  extensions: [".cs", ".razor.cs"]
  paradigm: object_oriented

relationships:
  inheritance:
    pattern: 'class\s+(\w+)\s*:\s*(\w+)'
    extract:
      source: 1
      target: 2
    label: inherits
    style:
      edge: solid
      arrow: triangle
      color: "#2E7D32"
      width: 2
    mermaid: "--|>"
  interface_implementation:
    pattern: 'class\s+(?P<impl>\w+)\s*:.*\bI(?P<iface>[A-Z]\w+)'
    extract:
      source: impl
      target: iface
  uses_service:
    kind: dependency
    pattern: 'private\s+readonly\s+(\w+)\s+_\w+;\s*// in (\w+)'
    extract:
      source: 2
      target: 1
    style:
      edge: dashed

visualization:
  default_diagram: class_diagram
  class_diagram:
    layout: hierarchical
    direction: TB
    group_by: namespace
  flowchart:
    layout: tree
    direction: LR

hot_paths:
  method_call_pattern: '(\w+)\.(\w+)\s*\('
  distinguish_static: true
  track_virtual_dispatch: true
  heat_colors:
    cold: "#2196F3"
    warm: "#FF9800"
    hot: "#F44336"
`

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig("csharp.yaml", []byte(csharpDoc))
	require.NoError(t, err)

	assert.Equal(t, "csharp", cfg.Name)
	assert.Equal(t, []string{".cs", ".razor.cs"}, cfg.Extensions)
	assert.Equal(t, "object_oriented", cfg.Paradigm)

	require.Len(t, cfg.Rules, 3)

	// Declaration order survives the mapping decode.
	assert.Equal(t, "inheritance", cfg.Rules[0].Name)
	assert.Equal(t, "interface_implementation", cfg.Rules[1].Name)
	assert.Equal(t, "uses_service", cfg.Rules[2].Name)

	inh := cfg.Rules[0]
	assert.Equal(t, KindInheritance, inh.Kind)
	assert.Equal(t, GroupRef{Index: 1}, inh.Source)
	assert.Equal(t, GroupRef{Index: 2}, inh.Target)
	assert.Equal(t, "inherits", inh.Label)
	assert.Equal(t, "--|>", inh.ArrowToken)
	assert.Equal(t, EdgeSolid, inh.Style.Edge)
	assert.Equal(t, ArrowTriangle, inh.Style.Arrow)
	assert.Equal(t, "#2E7D32", inh.Style.Color)
	assert.Equal(t, 2, inh.Style.Width)

	iface := cfg.Rules[1]
	assert.Equal(t, KindInterfaceImplementation, iface.Kind)
	assert.Equal(t, "impl", iface.Source.Name)
	assert.Equal(t, "iface", iface.Target.Name)
	// Defaults fill in when the document omits them.
	assert.Equal(t, "..|>", iface.ArrowToken)
	assert.Equal(t, "interface_implementation", iface.Label)
	assert.Equal(t, ArrowTriangle, iface.Style.Arrow)
	assert.Equal(t, 1, iface.Style.Width)

	dep := cfg.Rules[2]
	assert.Equal(t, KindDependency, dep.Kind)
	assert.Equal(t, EdgeDashed, dep.Style.Edge)
	assert.Equal(t, "..>", dep.ArrowToken)

	assert.Equal(t, "class_diagram", cfg.Visualization.DefaultDiagram)
	assert.Equal(t, KindLayout{Layout: "hierarchical", Direction: "TB", GroupBy: "namespace"}, cfg.Layout("class_diagram"))
	assert.Equal(t, "LR", cfg.Layout("flowchart").Direction)
	assert.Zero(t, cfg.Layout("mindmap"))

	require.NotNil(t, cfg.HotPaths.CallPattern)
	assert.True(t, cfg.HotPaths.DistinguishStatic)
	assert.True(t, cfg.HotPaths.TrackVirtualDispatch)
	assert.Equal(t, "#2196F3", cfg.HotPaths.Colors.Cold)
	assert.Equal(t, "#F44336", cfg.HotPaths.Colors.Hot)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		rule    string
		wantMsg string
	}{
		{
			name:    "missing language name",
			doc:     "language:\n  extensions: ['.x']\n",
			wantMsg: "language.name is required",
		},
		{
			name:    "missing extensions",
			doc:     "language:\n  name: x\n",
			wantMsg: "at least one extension",
		},
		{
			name: "invalid pattern fails at load",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: 'class (\w+) : (\w+'
    extract: {source: 1, target: 2}
`,
			rule:    "inheritance",
			wantMsg: "invalid pattern",
		},
		{
			name: "unknown kind",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  my_rule:
    pattern: '(a)(b)'
    extract: {source: 1, target: 2}
`,
			rule:    "my_rule",
			wantMsg: "unknown relationship kind",
		},
		{
			name: "missing extract",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(a)(b)'
`,
			rule:    "inheritance",
			wantMsg: "extract.source and extract.target are required",
		},
		{
			name: "capture index out of range",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(a)'
    extract: {source: 1, target: 2}
`,
			rule:    "inheritance",
			wantMsg: "missing capture group 2",
		},
		{
			name: "named group absent from pattern",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(?P<a>x)(y)'
    extract: {source: a, target: b}
`,
			rule:    "inheritance",
			wantMsg: "missing capture group b",
		},
		{
			name: "unknown edge form",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(a)(b)'
    extract: {source: 1, target: 2}
    style: {edge: wavy}
`,
			rule:    "inheritance",
			wantMsg: "unknown edge form",
		},
		{
			name: "unknown arrow form",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(a)(b)'
    extract: {source: 1, target: 2}
    style: {arrow: barbed}
`,
			rule:    "inheritance",
			wantMsg: "unknown arrow form",
		},
		{
			name: "duplicate rule name",
			doc: `
language: {name: x, extensions: ['.x']}
relationships:
  inheritance:
    pattern: '(a)(b)'
    extract: {source: 1, target: 2}
  inheritance:
    pattern: '(c)(d)'
    extract: {source: 1, target: 2}
`,
			rule:    "inheritance",
			wantMsg: "duplicate rule name",
		},
		{
			name: "hot path pattern without capture group",
			doc: `
language: {name: x, extensions: ['.x']}
hot_paths:
  method_call_pattern: 'call'
`,
			wantMsg: "at least one capture group",
		},
		{
			name: "invalid hot path pattern",
			doc: `
language: {name: x, extensions: ['.x']}
hot_paths:
  method_call_pattern: '(\w+\.'
`,
			wantMsg: "invalid hot_paths.method_call_pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parseConfig("bad.yaml", []byte(tt.doc))
			require.Error(t, err)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			if tt.rule != "" {
				var cerr *ConfigError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.rule, cerr.Rule)
				assert.Equal(t, "bad.yaml", cerr.Path)
			}
		})
	}
}

func TestLoadDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeDoc(t, dir, "csharp.yaml", csharpDoc)
	writeDoc(t, dir, "python.yml", `
language:
  name: python
  extensions: [".py"]
  paradigm: multi_paradigm
relationships:
  inheritance:
    pattern: 'class\s+(\w+)\((\w+)\)'
    extract: {source: 1, target: 2}
visualization:
  default_diagram: flowchart
`)
	writeDoc(t, dir, "notes.txt", "not a config")

	reg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"csharp", "python"}, reg.Languages())

	py, ok := reg.ByName("python")
	require.True(t, ok)
	assert.Equal(t, "flowchart", py.Visualization.DefaultDiagram)

	_, ok = reg.ByName("rust")
	assert.False(t, ok)
}

func TestLoadFailsFast(t *testing.T) {
	t.Parallel()

	t.Run("malformed document aborts the whole load", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeDoc(t, dir, "good.yaml", csharpDoc)
		writeDoc(t, dir, "zbroken.yaml", `
language: {name: broken, extensions: ['.b']}
relationships:
  inheritance:
    pattern: '([unclosed'
    extract: {source: 1, target: 2}
`)

		_, err := Load(dir)
		require.Error(t, err)
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "inheritance", cerr.Rule)
	})

	t.Run("duplicate language name", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeDoc(t, dir, "a.yaml", "language: {name: same, extensions: ['.a']}\n")
		writeDoc(t, dir, "b.yaml", "language: {name: same, extensions: ['.b']}\n")

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `language "same" already defined`)
	})

	t.Run("duplicate extension claim", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeDoc(t, dir, "a.yaml", "language: {name: one, extensions: ['.x']}\n")
		writeDoc(t, dir, "b.yaml", "language: {name: two, extensions: ['.x']}\n")

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `extension ".x" already claimed`)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		_, err := Load(filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read language config dir")
	})
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
