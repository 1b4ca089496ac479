package diagram

import (
	"fmt"
	"strings"
)

// Issue is one structural problem found in a document.
type Issue struct {
	// Line is the 1-based document line the issue refers to, 0 when
	// the issue concerns the document as a whole.
	Line int

	// Message describes the problem.
	Message string
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("line %d: %s", i.Line, i.Message)
	}
	return i.Message
}

// Validate statically checks a diagram document. An empty result means
// the document is valid.
//
// The scan always covers the entire document, never a trailing window:
// a long statistics footer must not be able to push the closing fence
// out of inspection range. Checks: exactly one opening and one closing
// fence with the closer after the opener and after all content, a
// recognized diagram-kind declaration on the first content line inside
// the fence, and balanced kind-specific block constructs.
//
// Validate is pure; it never mutates or normalizes the document.
func Validate(text string) []Issue {
	var issues []Issue
	lines := strings.Split(text, "\n")

	openLine, closeLine := 0, 0
	opens, closes := 0, 0
	for n, raw := range lines {
		switch strings.TrimSpace(raw) {
		case FenceOpen:
			opens++
			if openLine == 0 {
				openLine = n + 1
			}
		case FenceClose:
			closes++
			closeLine = n + 1
		}
	}

	switch {
	case opens == 0:
		issues = append(issues, Issue{Message: fmt.Sprintf("missing opening fence %q", FenceOpen)})
	case opens > 1:
		issues = append(issues, Issue{Message: fmt.Sprintf("found %d opening fences, want exactly one", opens)})
	}
	switch {
	case closes == 0:
		issues = append(issues, Issue{Message: fmt.Sprintf("missing closing fence %q", FenceClose)})
	case closes > 1:
		issues = append(issues, Issue{Message: fmt.Sprintf("found %d closing fences, want exactly one", closes)})
	}
	if opens != 1 || closes != 1 {
		return issues
	}
	if closeLine < openLine {
		issues = append(issues, Issue{Line: closeLine, Message: "closing fence appears before the opening fence"})
		return issues
	}

	for n := closeLine; n < len(lines); n++ {
		if strings.TrimSpace(lines[n]) != "" {
			issues = append(issues, Issue{Line: n + 1, Message: "content after the closing fence"})
			break
		}
	}

	body := lines[openLine : closeLine-1]
	token, tokenLine := firstContentToken(body, openLine)
	if token == "" {
		issues = append(issues, Issue{Line: openLine, Message: "document has no content between the fences"})
		return issues
	}
	if !recognizedToken(token) {
		issues = append(issues, Issue{
			Line:    tokenLine,
			Message: fmt.Sprintf("unrecognized diagram declaration %q (recognized: %s)", token, strings.Join(recognizedTokens(), ", ")),
		})
		return issues
	}

	issues = append(issues, checkBlocks(token, body, openLine)...)
	return issues
}

// firstContentToken returns the first word of the first content line
// inside the fence. Blank lines and %% lines (comments and init
// directives) are not content.
func firstContentToken(body []string, offset int) (string, int) {
	for n, raw := range body {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		token := line
		if i := strings.IndexByte(line, ' '); i > 0 {
			token = line[:i]
		}
		return token, offset + n + 1
	}
	return "", 0
}

func recognizedToken(token string) bool {
	for _, t := range declarationTokens {
		if t == token {
			return true
		}
	}
	return false
}

// recognizedTokens returns the declaration tokens in kind order,
// deduplicated; flowchart and code_flow share none but the set must
// stay stable for error messages.
func recognizedTokens() []string {
	seen := make(map[string]struct{}, len(declarationTokens))
	var out []string
	for _, k := range Kinds() {
		t := declarationTokens[k]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// checkBlocks verifies kind-specific block constructs are balanced.
func checkBlocks(token string, body []string, offset int) []Issue {
	switch token {
	case "graph", "flowchart":
		return checkSubgraphs(body, offset)
	case "classDiagram":
		return checkBraces(body, offset)
	default:
		return nil
	}
}

// checkSubgraphs matches subgraph openings against end lines.
func checkSubgraphs(body []string, offset int) []Issue {
	var issues []Issue
	var openStack []int
	for n, raw := range body {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "subgraph ") || line == "subgraph":
			openStack = append(openStack, offset+n+1)
		case line == "end":
			if len(openStack) == 0 {
				issues = append(issues, Issue{Line: offset + n + 1, Message: "end without a matching subgraph"})
				continue
			}
			openStack = openStack[:len(openStack)-1]
		}
	}
	for _, ln := range openStack {
		issues = append(issues, Issue{Line: ln, Message: "subgraph is never closed"})
	}
	return issues
}

// checkBraces verifies class body braces balance out.
func checkBraces(body []string, offset int) []Issue {
	depth := 0
	for n, raw := range body {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "%%") {
			continue
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth < 0 {
					return []Issue{{Line: offset + n + 1, Message: "closing brace without a matching class body"}}
				}
			}
		}
	}
	if depth > 0 {
		return []Issue{{Message: fmt.Sprintf("class body not closed (%d open)", depth)}}
	}
	return nil
}
