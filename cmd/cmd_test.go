package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas-go/internal/diagram"
	"github.com/codeatlas/atlas-go/internal/engine"
)

const demoConfig = `
language:
  name: demo
  extensions: [".demo"]
  paradigm: object_oriented

relationships:
  inheritance:
    pattern: 'class\s+(\w+)\s*:\s*(\w+)'
    extract: {source: 1, target: 2}
    label: inherits
    mermaid: "--|>"

visualization:
  default_diagram: class_diagram

hot_paths:
  method_call_pattern: '(\w+)\.(\w+)\s*\('
`

const demoTags = `{"_type":"tag","name":"App","path":"src/app.demo","line":1,"end":1,"language":"demo","kind":"class"}
{"_type":"tag","name":"Run","path":"src/app.demo","line":2,"end":4,"language":"demo","kind":"method","scope":"App","scopeKind":"class"}
{"_type":"tag","name":"Base","path":"src/base.demo","line":1,"end":3,"language":"demo","kind":"class"}
{"_type":"tag","name":"Start","path":"src/base.demo","line":2,"end":2,"language":"demo","kind":"method","scope":"Base","scopeKind":"class"}
`

const appSource = `class App : Base
func Run {
  engine.Start()
}
`

const baseSource = `class Base {
  func Start() {}
}
`

// project is one on-disk fixture the generation commands can run
// against: a language config, a symbol record file, and two sources.
type project struct {
	configDir string
	root      string
	tagsPath  string
	outDir    string
}

func newProject(t *testing.T) project {
	t.Helper()

	p := project{
		configDir: t.TempDir(),
		root:      t.TempDir(),
		tagsPath:  filepath.Join(t.TempDir(), "tags.jsonl"),
		outDir:    t.TempDir(),
	}
	writeFile(t, filepath.Join(p.configDir, "demo.yaml"), demoConfig)
	writeFile(t, p.tagsPath, demoTags)
	writeFile(t, filepath.Join(p.root, "src", "app.demo"), appSource)
	writeFile(t, filepath.Join(p.root, "src", "base.demo"), baseSource)
	return p
}

func (p project) flags() GenerateFlags {
	return GenerateFlags{
		Tags:   p.tagsPath,
		Source: p.root,
		Config: p.configDir,
		Output: filepath.Join(p.outDir, "diagram.md"),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGenerateFlagsEngineOptions(t *testing.T) {
	t.Parallel()

	f := GenerateFlags{
		Tags:           "t.jsonl",
		Source:         "src",
		Config:         "cfg",
		Output:         "out.md",
		Kind:           "code_flow",
		Trace:          "trace.jsonl",
		Overlay:        "overlay.json",
		Title:          "Demo",
		Direction:      "LR",
		Depth:          2,
		TopFiles:       7,
		ExpandSymbols:  true,
		Exclude:        []string{"vendor/**"},
		Workers:        3,
		FollowSymlinks: true,
	}

	assert.Equal(t, engine.Options{
		TagsPath:       "t.jsonl",
		SourceRoot:     "src",
		ConfigDir:      "cfg",
		OutputPath:     "out.md",
		OverlayPath:    "overlay.json",
		TracePath:      "trace.jsonl",
		Title:          "Demo",
		Direction:      "LR",
		Kind:           diagram.KindCodeFlow,
		Workers:        3,
		MaxDepth:       2,
		TopFiles:       7,
		ExpandSymbols:  true,
		FollowSymlinks: true,
		Excludes:       []string{"vendor/**"},
	}, f.engineOptions())
}

func TestDiagramCmd(t *testing.T) {
	t.Parallel()

	t.Run("GeneratesDocument", func(t *testing.T) {
		t.Parallel()

		p := newProject(t)
		cmd := &DiagramCmd{GenerateFlags: p.flags()}
		require.NoError(t, cmd.Run())

		content, err := os.ReadFile(cmd.Output)
		require.NoError(t, err)
		text := string(content)

		assert.Contains(t, text, "classDiagram\n")
		assert.Contains(t, text, "App --|> Base : inherits")
		assert.Empty(t, diagram.Validate(text))
	})

	t.Run("KindAndTitleOverrides", func(t *testing.T) {
		t.Parallel()

		p := newProject(t)
		cmd := &DiagramCmd{GenerateFlags: p.flags()}
		cmd.Kind = "pie_chart"
		cmd.Title = "Demo"
		require.NoError(t, cmd.Run())

		content, err := os.ReadFile(cmd.Output)
		require.NoError(t, err)
		assert.Contains(t, string(content), "pie\n")
		assert.Contains(t, string(content), "  title Demo\n")
	})

	t.Run("TraceWritesOverlay", func(t *testing.T) {
		t.Parallel()

		p := newProject(t)
		cmd := &DiagramCmd{GenerateFlags: p.flags()}
		cmd.Trace = filepath.Join(p.outDir, "trace.jsonl")
		cmd.Overlay = filepath.Join(p.outDir, "overlay.json")
		writeFile(t, cmd.Trace, `{"caller":"Run","callee":"Start","count":5}`+"\n")

		require.NoError(t, cmd.Run())

		data, err := os.ReadFile(cmd.Overlay)
		require.NoError(t, err)
		var overlay map[string]any
		require.NoError(t, json.Unmarshal(data, &overlay))
		assert.Contains(t, overlay, "nodes")
		assert.Contains(t, overlay, "edges")
	})

	t.Run("UnknownKind", func(t *testing.T) {
		t.Parallel()

		p := newProject(t)
		cmd := &DiagramCmd{GenerateFlags: p.flags()}
		cmd.Kind = "gantt"

		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown diagram kind")
	})
}

func TestValidateCmd(t *testing.T) {
	t.Parallel()

	t.Run("AcceptsValidDocument", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "diagram.md")
		writeFile(t, path, "```mermaid\ngraph TB\n  app[\"app\"]\n```\n")

		cmd := &ValidateCmd{Path: path}
		require.NoError(t, cmd.Run())
	})

	t.Run("ReportsIssues", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "diagram.md")
		writeFile(t, path, "```mermaid\ngraph TB\nsubgraph one\n```\ntrailing\n")

		cmd := &ValidateCmd{Path: path}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 validation issues")
	})

	t.Run("MissingDocument", func(t *testing.T) {
		t.Parallel()

		cmd := &ValidateCmd{Path: filepath.Join(t.TempDir(), "absent.md")}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading document")
	})
}

func TestLanguagesCmd(t *testing.T) {
	t.Parallel()

	t.Run("ListsLanguages", func(t *testing.T) {
		t.Parallel()

		configDir := t.TempDir()
		writeFile(t, filepath.Join(configDir, "demo.yaml"), demoConfig)

		cmd := &LanguagesCmd{Config: configDir}
		require.NoError(t, cmd.Run())
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		t.Parallel()

		cmd := &LanguagesCmd{Config: t.TempDir()}
		require.NoError(t, cmd.Run())
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		t.Parallel()

		cmd := &LanguagesCmd{Config: filepath.Join(t.TempDir(), "absent")}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read language config dir")
	})

	t.Run("BrokenConfig", func(t *testing.T) {
		t.Parallel()

		configDir := t.TempDir()
		writeFile(t, filepath.Join(configDir, "broken.yaml"), `
language: {name: broken, extensions: ['.b']}
relationships:
  inheritance:
    pattern: '([unclosed'
    extract: {source: 1, target: 2}
`)

		cmd := &LanguagesCmd{Config: configDir}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid pattern")
	})
}

func TestStatsCmd(t *testing.T) {
	t.Parallel()

	t.Run("SummarizesRecords", func(t *testing.T) {
		t.Parallel()

		tagsPath := filepath.Join(t.TempDir(), "tags.jsonl")
		writeFile(t, tagsPath, demoTags)

		cmd := &StatsCmd{Tags: tagsPath}
		require.NoError(t, cmd.Run())
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()

		cmd := &StatsCmd{Tags: filepath.Join(t.TempDir(), "absent.jsonl")}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "opening symbol records")
	})
}

func TestReadTagStream(t *testing.T) {
	t.Run("ReadsFile", func(t *testing.T) {
		tagsPath := filepath.Join(t.TempDir(), "tags.jsonl")
		writeFile(t, tagsPath, demoTags)

		store, report, err := readTagStream(tagsPath)
		require.NoError(t, err)
		assert.Equal(t, 4, store.Len())
		assert.Equal(t, 4, report.Tags)
	})

	// Swaps the process stdin, so no t.Parallel here.
	t.Run("ReadsStdin", func(t *testing.T) {
		r, w, err := os.Pipe()
		require.NoError(t, err)
		orig := os.Stdin
		os.Stdin = r
		t.Cleanup(func() { os.Stdin = orig })

		_, err = w.WriteString(demoTags)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		store, report, err := readTagStream("-")
		require.NoError(t, err)
		assert.Equal(t, 4, store.Len())
		assert.Equal(t, 4, report.Records)
	})
}

func TestSetupCmd(t *testing.T) {
	t.Parallel()

	t.Run("WritesLocalQwenConfig", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cmd := &SetupCmd{Qwen: true, FilePath: dir, Format: "json"}
		require.NoError(t, cmd.Run())

		data, err := os.ReadFile(filepath.Join(dir, "mcp.json"))
		require.NoError(t, err)

		var config map[string]map[string]map[string]any
		require.NoError(t, json.Unmarshal(data, &config))
		server := config["mcpServers"]["atlas-go"]
		assert.Equal(t, "atlas-go", server["command"])
		assert.Equal(t, []any{"serve", "--watch"}, server["args"])
	})

	t.Run("WritesClaudeSettings", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cmd := &SetupCmd{Claude: true, FilePath: dir, Format: "json"}
		require.NoError(t, cmd.Run())

		assert.FileExists(t, filepath.Join(dir, "settings.json"))
	})

	t.Run("TextFormat", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cmd := &SetupCmd{Cursor: true, FilePath: dir, Format: "text"}
		require.NoError(t, cmd.Run())

		data, err := os.ReadFile(filepath.Join(dir, "mcp.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "# MCP configuration for Atlas")
		assert.Contains(t, string(data), "mcpServers")
	})

	t.Run("NoClientPrintsConfig", func(t *testing.T) {
		t.Parallel()

		cmd := &SetupCmd{Format: "json"}
		require.NoError(t, cmd.Run())
	})
}

func TestMCPClientConfig(t *testing.T) {
	t.Parallel()

	config := mcpClientConfig()
	servers, ok := config["mcpServers"].(map[string]any)
	require.True(t, ok)
	server, ok := servers["atlas-go"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "atlas-go", server["command"])
	assert.Equal(t, []string{"serve", "--watch"}, server["args"])
}

func TestGlobalConfigPath(t *testing.T) {
	t.Parallel()

	path := globalConfigPath(".qwen")
	assert.True(t, strings.HasSuffix(path, filepath.Join(".qwen", "global", "mcp.json")),
		"unexpected global config path %s", path)
}

func TestCLIParsing(t *testing.T) {
	t.Parallel()

	newParser := func(t *testing.T, cli *CLI) *kong.Kong {
		t.Helper()
		parser, err := kong.New(cli,
			kong.Name("atlas-go"),
			kong.Vars{"version": "test"},
			kong.Exit(func(int) {}),
		)
		require.NoError(t, err)
		return parser
	}

	t.Run("DiagramFlags", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		ctx, err := newParser(t, cli).Parse([]string{
			"diagram", "-t", "tags.jsonl", "-k", "pie_chart",
			"--top-files", "3", "--exclude", "vendor/**",
		})
		require.NoError(t, err)
		assert.Equal(t, "diagram", ctx.Command())
		assert.Equal(t, "tags.jsonl", cli.Diagram.Tags)
		assert.Equal(t, "pie_chart", cli.Diagram.Kind)
		assert.Equal(t, 3, cli.Diagram.TopFiles)
		assert.Equal(t, []string{"vendor/**"}, cli.Diagram.Exclude)
		assert.Equal(t, ".atlas/languages", cli.Diagram.Config)

		opts := cli.Diagram.engineOptions()
		assert.Equal(t, diagram.KindPieChart, opts.Kind)
		assert.Equal(t, 3, opts.TopFiles)
	})

	t.Run("ValidatePositional", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		ctx, err := newParser(t, cli).Parse([]string{"validate", "out/diagram.md"})
		require.NoError(t, err)
		assert.Equal(t, "validate <path>", ctx.Command())
		assert.Equal(t, "out/diagram.md", cli.Validate.Path)
	})

	t.Run("StatsDefaultsTagsPath", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		ctx, err := newParser(t, cli).Parse([]string{"stats"})
		require.NoError(t, err)
		assert.Equal(t, "stats", ctx.Command())
		assert.Equal(t, ".atlas/tags.jsonl", cli.Stats.Tags)
	})

	t.Run("StatsStdinSentinel", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		_, err := newParser(t, cli).Parse([]string{"stats", "-"})
		require.NoError(t, err)
		assert.Equal(t, "-", cli.Stats.Tags)
	})

	t.Run("ServeWatch", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		ctx, err := newParser(t, cli).Parse([]string{"serve", "-w", "-o", "docs/atlas.md"})
		require.NoError(t, err)
		assert.Equal(t, "serve", ctx.Command())
		assert.True(t, cli.Serve.Watch)
		assert.Equal(t, "docs/atlas.md", cli.Serve.Output)
	})

	t.Run("VerbosityFlags", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		_, err := newParser(t, cli).Parse([]string{"-v", "stats"})
		require.NoError(t, err)
		assert.True(t, cli.Verbose)
	})

	t.Run("UnknownCommand", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		_, err := newParser(t, cli).Parse([]string{"frobnicate"})
		require.Error(t, err)
	})

	t.Run("RejectsBadSetupFormat", func(t *testing.T) {
		t.Parallel()

		cli := &CLI{}
		_, err := newParser(t, cli).Parse([]string{"setup", "--format", "xml"})
		require.Error(t, err)
	})
}

func TestNewCLI(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, NewCLI())
}
