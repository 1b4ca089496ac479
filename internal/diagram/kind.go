// Package diagram turns extracted structure into validated Mermaid
// documents.
//
// Every generator runs the same fixed pipeline: validate inputs, open
// the fence, header, body, footer, close the fence, validate the full
// document, and only then touch disk. The pipeline owns the fences
// and the validation gate; generators own only their body (and, where
// the grammar demands it, header or footer).
package diagram

import (
	"fmt"
	"sort"
)

// Kind identifies one of the six supported diagram shapes.
type Kind string

const (
	KindFlowchart    Kind = "flowchart"
	KindClassDiagram Kind = "class_diagram"
	KindPieChart     Kind = "pie_chart"
	KindMindmap      Kind = "mindmap"
	KindSequence     Kind = "sequence"
	KindCodeFlow     Kind = "code_flow"
)

// declarationTokens maps each kind to the token its first content
// line starts with. The flowchart kind keeps the classic "graph"
// token; code_flow uses the newer "flowchart" token, which is the
// form that supports nested subgraph layout directives.
var declarationTokens = map[Kind]string{
	KindFlowchart:    "graph",
	KindClassDiagram: "classDiagram",
	KindPieChart:     "pie",
	KindMindmap:      "mindmap",
	KindSequence:     "sequenceDiagram",
	KindCodeFlow:     "flowchart",
}

// DeclarationToken returns the kind's opening grammar token.
func (k Kind) DeclarationToken() string {
	return declarationTokens[k]
}

// Valid reports whether k is one of the six supported kinds.
func (k Kind) Valid() bool {
	_, ok := declarationTokens[k]
	return ok
}

// Kinds returns the supported kinds, sorted by name.
func Kinds() []Kind {
	out := make([]Kind, 0, len(declarationTokens))
	for k := range declarationTokens {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind converts a kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if !k.Valid() {
		return "", fmt.Errorf("unknown diagram kind %q (supported: %v)", name, Kinds())
	}
	return k, nil
}

// Fence delimiters for an emitted document.
const (
	FenceOpen  = "```mermaid"
	FenceClose = "```"
)
