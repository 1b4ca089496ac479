// Package mcp provides the MCP (Model Context Protocol) server for Atlas.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeatlas/atlas-go/internal/diagram"
	"github.com/codeatlas/atlas-go/internal/engine"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/metadata"
	"github.com/codeatlas/atlas-go/internal/tags"
)

// Server represents the MCP server.
type Server struct {
	defaults engine.Options
	server   *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server. Tool calls run against the given
// default generation options; arguments override them field by field.
func NewServer(defaults engine.Options) *Server {
	s := &Server{
		defaults: defaults,
	}

	// Create MCP server
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "atlas-go",
		Version: "0.1.0",
	}, nil)

	// Register tools
	s.registerTools()

	// Register resources
	s.registerResources()

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "atlas_generate",
			Description: "Generate a Mermaid diagram document from symbol records and source text. Omitted arguments keep the server's configured defaults.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"kind":      {Type: "string", Description: "Diagram kind: flowchart, class_diagram, pie_chart, mindmap, sequence, or code_flow"},
					"tags":      {Type: "string", Description: "Path to the JSON-lines symbol record file"},
					"source":    {Type: "string", Description: "Source root directory the record paths are relative to"},
					"config":    {Type: "string", Description: "Language configuration directory"},
					"output":    {Type: "string", Description: "Diagram document destination path"},
					"trace":     {Type: "string", Description: "Path to a JSON-lines call event file; enables heat fusion"},
					"overlay":   {Type: "string", Description: "Overlay payload destination path"},
					"title":     {Type: "string", Description: "Diagram title"},
					"direction": {Type: "string", Description: "Layout direction override (TB, LR, ...)"},
				},
			},
		},
		{
			Name:        "atlas_validate",
			Description: "Statically check a diagram document: fences, diagram declaration, and block balance.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"path": {Type: "string", Description: "Path to the diagram document to check"},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "atlas_languages",
			Description: "List loaded language configurations with their extensions, rule counts, and diagram defaults.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"config": {Type: "string", Description: "Language configuration directory (defaults to the server's)"},
				},
			},
		},
		{
			Name:        "atlas_stats",
			Description: "Summarize a symbol record stream: counts per file, language, and symbol kind.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"tags": {Type: "string", Description: "Path to the JSON-lines symbol record file (defaults to the server's)"},
				},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "atlas://kinds",
			Name:        "Diagram Kinds",
			Description: "The supported diagram kinds with their grammar tokens",
			MimeType:    "text/plain",
		},
		{
			URI:         "atlas://schema",
			Name:        "Language Config Schema",
			Description: "Structure of a language configuration document",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "atlas_generate":
		return handleGenerate(ctx, s.defaults, args)
	case "atlas_validate":
		path, _ := args["path"].(string)
		return handleValidate(path)
	case "atlas_languages":
		dir, _ := args["config"].(string)
		if dir == "" {
			dir = s.defaults.ConfigDir
		}
		return handleLanguages(dir)
	case "atlas_stats":
		path, _ := args["tags"].(string)
		if path == "" {
			path = s.defaults.TagsPath
		}
		return handleStats(path, s.defaults.Logger)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "atlas://kinds":
		return kindsResource(), nil
	case "atlas://schema":
		return schemaResource(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Parse JSON-RPC request
		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		// Handle request
		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "atlas-go",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Tool Handlers

// handleGenerate runs one generation pass. Arguments override the
// server defaults field by field; anything omitted keeps the value the
// server was started with.
func handleGenerate(ctx context.Context, opts engine.Options, args map[string]any) (string, error) {
	if v, _ := args["kind"].(string); v != "" {
		kind, err := diagram.ParseKind(v)
		if err != nil {
			return "", err
		}
		opts.Kind = kind
	}
	if v, _ := args["tags"].(string); v != "" {
		opts.TagsPath = v
	}
	if v, _ := args["source"].(string); v != "" {
		opts.SourceRoot = v
	}
	if v, _ := args["config"].(string); v != "" {
		opts.ConfigDir = v
	}
	if v, _ := args["output"].(string); v != "" {
		opts.OutputPath = v
	}
	if v, _ := args["trace"].(string); v != "" {
		opts.TracePath = v
	}
	if v, _ := args["overlay"].(string); v != "" {
		opts.OverlayPath = v
	}
	if v, _ := args["title"].(string); v != "" {
		opts.Title = v
	}
	if v, _ := args["direction"].(string); v != "" {
		opts.Direction = v
	}

	res, err := engine.Run(ctx, opts)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Diagram Generated\n\n")
	sb.WriteString(fmt.Sprintf("**Output:** `%s`\n", res.OutputPath))
	if res.OverlayPath != "" {
		sb.WriteString(fmt.Sprintf("**Overlay:** `%s`\n", res.OverlayPath))
	}
	sb.WriteString(fmt.Sprintf("**Files:** %d\n", res.Files))
	sb.WriteString(fmt.Sprintf("**Symbols:** %d\n", res.Symbols))
	sb.WriteString(fmt.Sprintf("**Relationships:** %d\n", res.Relationships))
	if res.Warnings > 0 {
		sb.WriteString(fmt.Sprintf("**Warnings:** %d\n", res.Warnings))
	}

	sb.WriteString("\nNext: Use `atlas_validate` to re-check the document after manual edits.")

	return sb.String(), nil
}

func handleValidate(path string) (string, error) {
	if path == "" {
		return "No document path provided", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	issues := diagram.Validate(string(data))
	if len(issues) == 0 {
		return fmt.Sprintf("`%s` is a valid diagram document.", path), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d issues in `%s`:\n\n", len(issues), path))
	for _, issue := range issues {
		sb.WriteString(fmt.Sprintf("- %s\n", issue))
	}

	sb.WriteString("\nNext: Regenerate the document with `atlas_generate` instead of patching it by hand.")

	return sb.String(), nil
}

func handleLanguages(configDir string) (string, error) {
	if configDir == "" {
		return "No language config directory configured", nil
	}

	reg, err := langconf.Load(configDir)
	if err != nil {
		return "", err
	}
	if reg.Len() == 0 {
		return fmt.Sprintf("No language configs found in `%s`.", configDir), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Loaded Languages (%d)\n\n", reg.Len()))

	for _, name := range reg.Languages() {
		cfg, _ := reg.ByName(name)
		sb.WriteString(fmt.Sprintf("### %s\n", name))
		sb.WriteString(fmt.Sprintf("- Extensions: %s\n", strings.Join(cfg.Extensions, ", ")))
		sb.WriteString(fmt.Sprintf("- Rules: %d\n", len(cfg.Rules)))
		if cfg.Visualization.DefaultDiagram != "" {
			sb.WriteString(fmt.Sprintf("- Default diagram: %s\n", cfg.Visualization.DefaultDiagram))
		}
		if cfg.HotPaths.CallPattern != nil {
			sb.WriteString("- Hot paths: tracked\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Next: Use `atlas_generate` against sources in one of these languages.")

	return sb.String(), nil
}

func handleStats(tagsPath string, logger *slog.Logger) (string, error) {
	if tagsPath == "" {
		return "No symbol record file configured", nil
	}

	store, report, err := tags.ReadFile(tagsPath, logger)
	if err != nil {
		return "", err
	}

	meta := metadata.NewStore()
	for _, t := range store.All() {
		meta.RecordFile(t.FilePath)
		meta.IncrementStat(t.Language, string(t.Kind))
	}
	st := meta.Stats()

	var sb strings.Builder
	sb.WriteString("## Symbol Record Statistics\n\n")
	sb.WriteString(fmt.Sprintf("**Records:** %d\n", report.Records))
	sb.WriteString(fmt.Sprintf("**Accepted tags:** %d\n", report.Tags))
	sb.WriteString(fmt.Sprintf("**Files:** %d\n", st.FileCount))
	if report.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("**Skipped records:** %d\n", report.Skipped))
	}

	if lines := metadata.FormatStats(st); len(lines) > 0 {
		sb.WriteString("\n**Symbols by language and kind:**\n\n")
		for _, line := range lines {
			sb.WriteString(fmt.Sprintf("- %s\n", line))
		}
	}

	return sb.String(), nil
}

// Resource Handlers

// kindDescriptions summarizes what each diagram kind shows, for the
// atlas://kinds resource.
var kindDescriptions = map[diagram.Kind]string{
	diagram.KindFlowchart:    "Directory and file structure with extracted relationship edges",
	diagram.KindClassDiagram: "Types with members and structural relationships",
	diagram.KindPieChart:     "Symbol count distribution per language",
	diagram.KindMindmap:      "Languages branching into their symbol-heaviest files",
	diagram.KindSequence:     "Call interactions starting from entry points",
	diagram.KindCodeFlow:     "Directory-grouped call flow between symbols",
}

func kindsResource() string {
	var sb strings.Builder
	sb.WriteString("# Atlas Diagram Kinds\n\n")
	sb.WriteString("| Kind | Declaration | Shows |\n")
	sb.WriteString("|------|-------------|-------|\n")
	for _, k := range diagram.Kinds() {
		sb.WriteString(fmt.Sprintf("| `%s` | `%s` | %s |\n", k, k.DeclarationToken(), kindDescriptions[k]))
	}
	sb.WriteString(fmt.Sprintf("\nEvery document is fenced between a %s line and a %s line.\n", diagram.FenceOpen, diagram.FenceClose))

	return sb.String()
}

func schemaResource() string {
	var sb strings.Builder
	sb.WriteString("# Language Configuration Schema\n\n")
	sb.WriteString("One YAML document per language, loaded from the config directory.\n")
	sb.WriteString("\n## language\n\n")
	sb.WriteString("| Field | Description |\n")
	sb.WriteString("|-------|-------------|\n")
	sb.WriteString("| `name` | Language name, unique across documents |\n")
	sb.WriteString("| `extensions` | File extensions the language claims |\n")
	sb.WriteString("| `paradigm` | Free-form classifier, e.g. object_oriented |\n")
	sb.WriteString("\n## relationships\n\n")
	sb.WriteString("Map of rule name to rule:\n\n")
	sb.WriteString("| Field | Description |\n")
	sb.WriteString("|-------|-------------|\n")
	sb.WriteString("| `kind` | inheritance, interface_implementation, composition, dependency, or call |\n")
	sb.WriteString("| `pattern` | Regular expression matched against source lines |\n")
	sb.WriteString("| `extract.source`, `extract.target` | Capture group index or name for each endpoint |\n")
	sb.WriteString("| `label` | Edge label text |\n")
	sb.WriteString("| `style` | edge, arrow, color, width |\n")
	sb.WriteString("| `mermaid` | Arrow token, e.g. --\\|> |\n")
	sb.WriteString("\n## visualization\n\n")
	sb.WriteString("| Field | Description |\n")
	sb.WriteString("|-------|-------------|\n")
	sb.WriteString("| `default_diagram` | Kind generated when the caller names none |\n")
	sb.WriteString("| `<kind>.layout`, `<kind>.direction`, `<kind>.group_by` | Per-kind layout defaults |\n")
	sb.WriteString("\n## hot_paths\n\n")
	sb.WriteString("| Field | Description |\n")
	sb.WriteString("|-------|-------------|\n")
	sb.WriteString("| `method_call_pattern` | Call-site expression; the last capture group names the callee |\n")
	sb.WriteString("| `distinguish_static` | Label calls on known type names as static |\n")
	sb.WriteString("| `track_virtual_dispatch` | Label calls through unknown receivers as virtual |\n")
	sb.WriteString("| `heat_colors` | cold, warm, hot hex colors for trace fusion |\n")

	return sb.String()
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}

// registerTools registers tools with the MCP server.
func (s *Server) registerTools() {
	// Tools are handled via ListTools and CallTool
}

// registerResources registers resources with the MCP server.
func (s *Server) registerResources() {
	// Resources are handled via ListResources and ReadResource
}
