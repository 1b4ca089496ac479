package diagram

import (
	"fmt"

	"github.com/codeatlas/atlas-go/internal/metadata"
)

// Generator supplies the kind-specific parts of the generation
// pipeline. Body is required; header and footer have defaults that a
// generator replaces by additionally implementing headerWriter or
// footerWriter.
type Generator interface {
	// Kind identifies the diagram shape produced.
	Kind() Kind

	// ValidateInputs checks kind-specific preconditions and returns
	// an *InvalidInputError naming the offending field.
	ValidateInputs(in *Inputs) error

	// Body appends the diagram-specific content lines.
	Body(doc *Document, in *Inputs) error
}

// headerWriter replaces the default header for grammars needing a
// kind-specific preamble.
type headerWriter interface {
	Header(doc *Document, in *Inputs)
}

// footerWriter replaces the default statistics footer.
type footerWriter interface {
	Footer(doc *Document, in *Inputs)
}

// Generate runs the fixed pipeline: validate inputs, open fence,
// header, body, footer, close fence, validate the whole document.
// The returned document has passed validation; callers may write it
// out directly.
func Generate(g Generator, in *Inputs) (*Document, error) {
	if err := g.ValidateInputs(in); err != nil {
		return nil, err
	}

	doc := newDocument(g.Kind())
	doc.Append(FenceOpen)

	if hw, ok := g.(headerWriter); ok {
		hw.Header(doc, in)
	} else {
		defaultHeader(doc, g.Kind(), in)
	}

	if err := g.Body(doc, in); err != nil {
		return nil, fmt.Errorf("generate %s body: %w", g.Kind(), err)
	}

	if fw, ok := g.(footerWriter); ok {
		fw.Footer(doc, in)
	} else {
		defaultFooter(doc, in)
	}

	doc.Append(FenceClose)

	if issues := Validate(doc.String()); len(issues) > 0 {
		return nil, &ValidationError{Kind: g.Kind(), Issues: issues}
	}
	return doc, nil
}

// GenerateToFile generates and then atomically writes the document.
func GenerateToFile(g Generator, in *Inputs, path string) (*Document, error) {
	doc, err := Generate(g, in)
	if err != nil {
		return nil, err
	}
	if err := doc.WriteFile(path); err != nil {
		return nil, err
	}
	return doc, nil
}

// defaultHeader emits the declaration token plus the layout direction
// where the grammar takes one.
func defaultHeader(doc *Document, kind Kind, in *Inputs) {
	switch kind {
	case KindFlowchart, KindCodeFlow:
		doc.Appendf("%s %s", kind.DeclarationToken(), in.direction("TB"))
	case KindClassDiagram:
		doc.Append(kind.DeclarationToken())
		if in.Direction != "" {
			doc.Appendf("  direction %s", in.Direction)
		}
	default:
		doc.Append(kind.DeclarationToken())
	}
}

// defaultFooter emits the statistics block as trailing comment lines.
func defaultFooter(doc *Document, in *Inputs) {
	lines := metadata.FormatStats(in.stats())
	if len(lines) == 0 {
		return
	}
	doc.Append("")
	doc.Append("%% Statistics:")
	for _, line := range lines {
		doc.Appendf("%%%% %s", line)
	}
}

// New returns the generator for a kind.
func New(kind Kind) (Generator, error) {
	switch kind {
	case KindFlowchart:
		return &Flowchart{}, nil
	case KindClassDiagram:
		return &ClassDiagram{}, nil
	case KindPieChart:
		return &PieChart{}, nil
	case KindMindmap:
		return &Mindmap{}, nil
	case KindSequence:
		return &Sequence{}, nil
	case KindCodeFlow:
		return &CodeFlow{}, nil
	default:
		return nil, fmt.Errorf("unknown diagram kind %q", kind)
	}
}

// Per-kind entry points for callers that do not want to name
// generator types.

// GenerateFlowchart renders the directory flowchart.
func GenerateFlowchart(in *Inputs) (*Document, error) { return Generate(&Flowchart{}, in) }

// GenerateClassDiagram renders the class diagram.
func GenerateClassDiagram(in *Inputs) (*Document, error) { return Generate(&ClassDiagram{}, in) }

// GeneratePieChart renders the language proportion chart.
func GeneratePieChart(in *Inputs) (*Document, error) { return Generate(&PieChart{}, in) }

// GenerateMindmap renders the language and file mindmap.
func GenerateMindmap(in *Inputs) (*Document, error) { return Generate(&Mindmap{}, in) }

// GenerateSequence renders the call sequence trace.
func GenerateSequence(in *Inputs) (*Document, error) { return Generate(&Sequence{}, in) }

// GenerateCodeFlow renders the nested code-flow graph.
func GenerateCodeFlow(in *Inputs) (*Document, error) { return Generate(&CodeFlow{}, in) }
