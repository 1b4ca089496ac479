// Package cmd provides CLI command implementations for Atlas.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/codeatlas/atlas-go/internal/diagram"
	"github.com/codeatlas/atlas-go/internal/engine"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/metadata"
	"github.com/codeatlas/atlas-go/internal/tags"
	"github.com/codeatlas/atlas-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// GenerateFlags are the options shared by every command that runs the
// generation pipeline.
type GenerateFlags struct {
	Tags           string   `short:"t" default:".atlas/tags.jsonl" help:"JSON-lines symbol record file"`
	Source         string   `short:"s" default:"." help:"Source root directory the record paths are relative to"`
	Config         string   `short:"c" default:".atlas/languages" help:"Language configuration directory"`
	Output         string   `short:"o" default:"diagram.md" help:"Diagram document destination"`
	Kind           string   `short:"k" help:"Diagram kind (flowchart, class_diagram, pie_chart, mindmap, sequence, code_flow); defaults to the dominant language's configured kind"`
	Trace          string   `help:"JSON-lines call event file; enables heat fusion and the overlay"`
	Overlay        string   `help:"Overlay payload destination (defaults to a sibling of the document)"`
	Title          string   `help:"Diagram title (defaults to the source root name)"`
	Direction      string   `help:"Layout direction override (TB, LR, ...)"`
	Depth          int      `help:"Bound directory nesting in code_flow bodies (0 = unbounded)"`
	TopFiles       int      `help:"File leaves per language branch in mindmap bodies"`
	ExpandSymbols  bool     `help:"Add per-file symbol nodes to flowchart bodies"`
	Exclude        []string `help:"Glob patterns excluded from the source scan"`
	Workers        int      `help:"Extraction goroutines (0 = number of CPUs)"`
	FollowSymlinks bool     `help:"Follow directory symlinks during the source scan"`
}

func (f GenerateFlags) engineOptions() engine.Options {
	return engine.Options{
		TagsPath:       f.Tags,
		SourceRoot:     f.Source,
		ConfigDir:      f.Config,
		OutputPath:     f.Output,
		OverlayPath:    f.Overlay,
		TracePath:      f.Trace,
		Title:          f.Title,
		Direction:      f.Direction,
		Kind:           diagram.Kind(f.Kind),
		Workers:        f.Workers,
		MaxDepth:       f.Depth,
		TopFiles:       f.TopFiles,
		ExpandSymbols:  f.ExpandSymbols,
		FollowSymlinks: f.FollowSymlinks,
		Excludes:       f.Exclude,
	}
}

// DiagramCmd generates a diagram document from symbol records.
type DiagramCmd struct {
	GenerateFlags
}

// Run executes the diagram command.
func (c *DiagramCmd) Run() error {
	res, err := engine.Run(context.Background(), c.engineOptions())
	if err != nil {
		return err
	}

	color.Green("✓ Diagram generated: %s", res.OutputPath)
	fmt.Printf("  Files:          %d\n", res.Files)
	fmt.Printf("  Symbols:        %d\n", res.Symbols)
	fmt.Printf("  Relationships:  %d\n", res.Relationships)
	if res.OverlayPath != "" {
		fmt.Printf("  Overlay:        %s\n", res.OverlayPath)
	}
	if res.Warnings > 0 {
		fmt.Printf("  Warnings:       %d\n", res.Warnings)
	}
	fmt.Printf("  Duration:       %.2fs\n", res.DurationSecs)

	return nil
}

// ValidateCmd checks an existing diagram document.
type ValidateCmd struct {
	Path string `arg:"" help:"Diagram document to check"`
}

// Run executes the validate command.
func (c *ValidateCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	issues := diagram.Validate(string(data))
	if len(issues) == 0 {
		color.Green("✓ %s is valid", c.Path)
		return nil
	}

	for _, issue := range issues {
		fmt.Printf("  %s\n", issue)
	}
	return fmt.Errorf("%s: %d validation issues", c.Path, len(issues))
}

// LanguagesCmd lists the loaded language configurations.
type LanguagesCmd struct {
	Config string `short:"c" default:".atlas/languages" help:"Language configuration directory"`
}

// Run executes the languages command.
func (c *LanguagesCmd) Run() error {
	reg, err := langconf.Load(c.Config)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		fmt.Printf("No language configs found in %s\n", c.Config)
		return nil
	}

	for _, name := range reg.Languages() {
		cfg, _ := reg.ByName(name)
		fmt.Printf("\n%s\n", name)
		fmt.Printf("  Extensions:      %s\n", strings.Join(cfg.Extensions, ", "))
		fmt.Printf("  Rules:           %d\n", len(cfg.Rules))
		if cfg.Visualization.DefaultDiagram != "" {
			fmt.Printf("  Default diagram: %s\n", cfg.Visualization.DefaultDiagram)
		}
		if cfg.HotPaths.CallPattern != nil {
			fmt.Printf("  Hot paths:       tracked\n")
		}
	}

	return nil
}

// StatsCmd summarizes a symbol record stream.
type StatsCmd struct {
	Tags string `arg:"" optional:"" default:".atlas/tags.jsonl" help:"JSON-lines symbol record file (- for stdin)"`
}

// Run executes the stats command.
func (c *StatsCmd) Run() error {
	store, report, err := readTagStream(c.Tags)
	if err != nil {
		return err
	}

	meta := metadata.NewStore()
	for _, t := range store.All() {
		meta.RecordFile(t.FilePath)
		meta.IncrementStat(t.Language, string(t.Kind))
	}
	st := meta.Stats()

	fmt.Printf("Symbol records from %s\n", c.Tags)
	fmt.Printf("  Records:        %d\n", report.Records)
	fmt.Printf("  Tags:           %d\n", report.Tags)
	fmt.Printf("  Files:          %d\n", st.FileCount)
	if report.Skipped > 0 {
		fmt.Printf("  Skipped:        %d\n", report.Skipped)
	}

	if lines := metadata.FormatStats(st); len(lines) > 0 {
		fmt.Println()
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}

	return nil
}

// readTagStream reads symbol records from a file, or from stdin when
// the path is "-". Generation commands need a real file because watch
// mode re-reads it; stats is the one consumer of piped records.
func readTagStream(path string) (*tags.Store, *tags.ReadReport, error) {
	if path == "-" {
		return tags.ReadRecords(os.Stdin, nil)
	}
	return tags.ReadFile(path, nil)
}

// WatchCmd regenerates the diagram whenever sources or records change.
type WatchCmd struct {
	GenerateFlags
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	opts := c.engineOptions()

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", opts.SourceRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	err := engine.Watch(ctx, opts)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom file path for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	// If no specific client is specified, output config to stdout
	if !c.Qwen && !c.Claude && !c.Cursor {
		return c.outputDefaultConfig()
	}

	// If neither local nor global is specified, default to local
	if !c.Local && !c.Global {
		c.Local = true
	}

	clients := []struct {
		enabled bool
		name    string
		dir     string
		file    string
	}{
		{c.Qwen, "Qwen", ".qwen", "mcp.json"},
		{c.Claude, "Claude", ".claude", "settings.json"},
		{c.Cursor, "Cursor", ".cursor", "mcp.json"},
	}

	config := mcpClientConfig()
	for _, client := range clients {
		if !client.enabled {
			continue
		}

		if c.Global {
			path := globalConfigPath(client.dir)
			if err := writeClientConfig(path, config, c.Format); err != nil {
				return err
			}
			color.Green("✓ Created global %s MCP config at %s", client.name, path)
		}

		if c.Local {
			path := filepath.Join(".", client.dir, client.file)
			if c.FilePath != "" {
				path = filepath.Join(c.FilePath, client.file)
			}
			if err := writeClientConfig(path, config, c.Format); err != nil {
				return err
			}
			color.Green("✓ Created local %s MCP config at %s", client.name, path)
		}
	}

	return nil
}

func (c *SetupCmd) outputDefaultConfig() error {
	config := mcpClientConfig()

	if c.Format == "json" {
		jsonBytes, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Println("# Add this to your MCP client configuration:")
	fmt.Println()
	for key, value := range config {
		fmt.Printf("%s: %s\n", key, toJSON(value))
	}
	return nil
}

func mcpClientConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"atlas-go": map[string]any{
				"command": "atlas-go",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

func globalConfigPath(clientDir string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, clientDir, "global", "mcp.json")
}

func writeClientConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	var content []byte
	if format == "json" {
		jsonBytes, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(jsonBytes, '\n')
	} else {
		var sb strings.Builder
		sb.WriteString("# MCP configuration for Atlas\n\n")
		for key, value := range config {
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, toJSON(value)))
		}
		content = []byte(sb.String())
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	GenerateFlags
}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()
	server := mcp.NewServer(c.engineOptions())

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional watch mode.
type ServeCmd struct {
	GenerateFlags
	Watch bool `short:"w" help:"Regenerate the diagram in the background on file changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	opts := c.engineOptions()
	server := mcp.NewServer(opts)

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		// Start watch mode in background
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := engine.Watch(watchCtx, opts)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "File watching enabled")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func toJSON(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Quiet   bool             `short:"q" help:"Log errors only"`

	// Commands
	Diagram   DiagramCmd   `cmd:"" help:"Generate a diagram document from symbol records"`
	Validate  ValidateCmd  `cmd:"" help:"Check an existing diagram document"`
	Languages LanguagesCmd `cmd:"" help:"List loaded language configurations"`
	Stats     StatsCmd     `cmd:"" help:"Summarize a symbol record stream"`
	Watch     WatchCmd     `cmd:"" help:"Regenerate the diagram on file changes"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve     ServeCmd     `cmd:"" help:"Start MCP server with optional watch mode"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("atlas-go"),
		kong.Description("Code-structure diagram engine: symbol records in, validated Mermaid documents out"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	c.configureLogging()
	return kongCtx.Run()
}

// configureLogging maps the verbosity flags onto the default slog
// level. Warnings stay visible by default; --quiet keeps stderr to
// errors only, --verbose surfaces per-stage progress.
func (c *CLI) configureLogging() {
	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	if c.Quiet {
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
