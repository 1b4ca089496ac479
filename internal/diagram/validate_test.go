package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestValidateAcceptsEveryKind(t *testing.T) {
	t.Parallel()

	// Every declaration token the generators can produce must pass;
	// a prior revision rejected two of the six kinds.
	for _, kind := range Kinds() {
		text := doc(FenceOpen, kind.DeclarationToken()+" TB", FenceClose)
		assert.Empty(t, Validate(text), "kind %s", kind)
	}
}

func TestValidateAcceptsTokenWithoutArguments(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Validate(doc(FenceOpen, "mindmap", FenceClose)))
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceOpen, "gantt", FenceClose))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "unrecognized diagram declaration")
	assert.Equal(t, 2, issues[0].Line)
}

func TestValidateSkipsDirectivesAndComments(t *testing.T) {
	t.Parallel()

	text := doc(
		FenceOpen,
		`%%{init: {"flowchart": {"htmlLabels": false}} }%%`,
		"%% a leading comment",
		"flowchart TB",
		"  a --> b",
		FenceClose,
	)
	assert.Empty(t, Validate(text))
}

func TestValidateMissingFences(t *testing.T) {
	t.Parallel()

	issues := Validate(doc("graph TB", "  a --> b"))
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, "missing opening fence")
	assert.Contains(t, issues[1].Message, "missing closing fence")
}

func TestValidateTruncatedClosingFence(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceOpen, "graph TB", "  a --> b"))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "missing closing fence")
}

func TestValidateScansWholeDocument(t *testing.T) {
	t.Parallel()

	// A long statistics footer must not push the fences or the
	// declaration out of inspection range. A suffix-window scan
	// misjudges both of these documents.
	footer := make([]string, 2000)
	for i := range footer {
		footer[i] = "%% demo: class: 1"
	}

	valid := []string{FenceOpen, "graph TB", "  a --> b"}
	valid = append(valid, footer...)
	valid = append(valid, FenceClose)
	assert.Empty(t, Validate(doc(valid...)))

	truncated := []string{FenceOpen, "graph TB", "  a --> b"}
	truncated = append(truncated, footer...)
	issues := Validate(doc(truncated...))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "missing closing fence")
}

func TestValidateRejectsDuplicateFences(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceOpen, FenceOpen, "graph TB", FenceClose, FenceClose))
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, "2 opening fences")
	assert.Contains(t, issues[1].Message, "2 closing fences")
}

func TestValidateClosingFenceBeforeOpening(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceClose, FenceOpen, "graph TB"))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "before the opening fence")
}

func TestValidateContentAfterClosingFence(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceOpen, "pie", `  "go" : 3`, FenceClose, "", "trailing prose"))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "content after the closing fence")
	assert.Equal(t, 6, issues[0].Line)
}

func TestValidateEmptyBody(t *testing.T) {
	t.Parallel()

	issues := Validate(doc(FenceOpen, "", FenceClose))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "no content between the fences")
}

func TestValidateSubgraphBalance(t *testing.T) {
	t.Parallel()

	open := doc(FenceOpen, "flowchart TB", `  subgraph a["a/"]`, "    n1", FenceClose)
	issues := Validate(open)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "never closed")

	stray := doc(FenceOpen, "graph TB", "  n1", "  end", FenceClose)
	issues = Validate(stray)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "end without a matching subgraph")

	nested := doc(
		FenceOpen,
		"flowchart TB",
		`  subgraph a["a/"]`,
		`    subgraph b["b"]`,
		"      n1",
		"    end",
		"  end",
		FenceClose,
	)
	assert.Empty(t, Validate(nested))
}

func TestValidateClassBraceBalance(t *testing.T) {
	t.Parallel()

	unterminated := doc(FenceOpen, "classDiagram", "  class Foo {", "    +Run()", FenceClose)
	issues := Validate(unterminated)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "class body not closed")

	stray := doc(FenceOpen, "classDiagram", "  }", FenceClose)
	issues = Validate(stray)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "closing brace without a matching class body")

	balanced := doc(FenceOpen, "classDiagram", "  class Foo {", "    +Run()", "  }", FenceClose)
	assert.Empty(t, Validate(balanced))
}

func TestIssueString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "line 4: boom", Issue{Line: 4, Message: "boom"}.String())
	assert.Equal(t, "boom", Issue{Message: "boom"}.String())
}
