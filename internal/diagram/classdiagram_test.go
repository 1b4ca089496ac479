package diagram

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
	"github.com/codeatlas/atlas-go/internal/metadata"
	"github.com/codeatlas/atlas-go/internal/tags"
)

func TestClassDiagramEndToEnd(t *testing.T) {
	t.Parallel()

	store := tags.NewStore()
	store.Add(tags.Tag{Name: "Foo", FilePath: "a.demo", StartLine: 1, Kind: tags.KindClass, Language: "demo"})
	store.Add(tags.Tag{Name: "Bar", FilePath: "a.demo", StartLine: 5, Kind: tags.KindClass, Language: "demo"})

	cfg := &langconf.Config{
		Name: "demo",
		Rules: []langconf.RelationshipRule{{
			Name:       "inheritance",
			Kind:       langconf.KindInheritance,
			Pattern:    regexp.MustCompile(`class\s+(\w+)\s*:\s*(\w+)`),
			Source:     langconf.GroupRef{Index: 1},
			Target:     langconf.GroupRef{Index: 2},
			Label:      "inherits",
			ArrowToken: "--|>",
		}},
	}
	rels := extract.Extract([]byte("class Foo : Bar\n"), "a.demo", cfg)
	require.Len(t, rels, 1)

	meta := metadata.NewStore()
	meta.IncrementStat("demo", "class")
	meta.IncrementStat("demo", "class")

	d, err := GenerateClassDiagram(&Inputs{Store: store, Relationships: rels, Meta: meta})
	require.NoError(t, err)
	text := d.String()

	assert.Contains(t, text, "class Foo")
	assert.Contains(t, text, "class Bar")
	assert.Contains(t, text, "Foo --|> Bar : inherits")
	assert.Equal(t, 1, strings.Count(text, "--|>"))
	assert.Contains(t, text, "%% demo: class: 2")
	assert.Empty(t, Validate(text))
}

func TestClassDiagramMembersAndMethods(t *testing.T) {
	t.Parallel()

	d, err := GenerateClassDiagram(sampleInputs())
	require.NoError(t, err)
	lines := d.Lines()

	appAt := -1
	for i, l := range lines {
		if l == "  class App {" {
			appAt = i
		}
	}
	require.NotEqual(t, -1, appAt)
	assert.Equal(t, "    +count", lines[appAt+1])
	assert.Equal(t, "    +Run()", lines[appAt+2])
	assert.Equal(t, "  }", lines[appAt+3])

	assert.Contains(t, d.String(), "class Engine {")
	assert.Contains(t, d.String(), "    +Start()")
}

func TestClassDiagramAnnotations(t *testing.T) {
	t.Parallel()

	store := tags.NewStore()
	store.Add(tags.Tag{Name: "Reader", FilePath: "a.demo", StartLine: 1, Kind: tags.KindInterface, Language: "demo"})
	store.Add(tags.Tag{Name: "Color", FilePath: "a.demo", StartLine: 9, Kind: tags.KindEnum, Language: "demo"})

	d, err := GenerateClassDiagram(&Inputs{Store: store})
	require.NoError(t, err)
	text := d.String()

	assert.Contains(t, text, "class Color {\n    <<enumeration>>\n  }")
	assert.Contains(t, text, "class Reader {\n    <<interface>>\n  }")
	assert.Empty(t, Validate(text))
}

func TestClassDiagramExternalTargetStub(t *testing.T) {
	t.Parallel()

	store := tags.NewStore()
	store.Add(tags.Tag{Name: "Foo", FilePath: "a.demo", StartLine: 1, Kind: tags.KindClass, Language: "demo"})

	rels := []extract.Relationship{{
		Kind:       langconf.KindInheritance,
		Source:     "Foo",
		Target:     "LibraryBase",
		ArrowToken: "--|>",
	}}
	d, err := GenerateClassDiagram(&Inputs{Store: store, Relationships: rels})
	require.NoError(t, err)

	assert.Contains(t, d.String(), "  class LibraryBase\n")
	assert.Contains(t, d.String(), "Foo --|> LibraryBase")
}

func TestClassDiagramSkipsCallEdges(t *testing.T) {
	t.Parallel()

	store := tags.NewStore()
	store.Add(tags.Tag{Name: "Foo", FilePath: "a.demo", StartLine: 1, Kind: tags.KindClass, Language: "demo"})

	rels := []extract.Relationship{{
		Kind:       langconf.KindCall,
		Source:     "Run",
		Target:     "Start",
		ArrowToken: "-->",
	}}
	d, err := GenerateClassDiagram(&Inputs{Store: store, Relationships: rels})
	require.NoError(t, err)

	assert.NotContains(t, d.String(), "Run")
	assert.NotContains(t, d.String(), "Start")
}

func TestClassDiagramSanitizesNames(t *testing.T) {
	t.Parallel()

	store := tags.NewStore()
	store.Add(tags.Tag{Name: "List<T>", FilePath: "a.demo", StartLine: 1, Kind: tags.KindClass, Language: "demo"})

	d, err := GenerateClassDiagram(&Inputs{Store: store})
	require.NoError(t, err)
	assert.Contains(t, d.String(), "class List_T_")
	assert.Empty(t, Validate(d.String()))
}

func TestClassDiagramRequiresTypesOrEdges(t *testing.T) {
	t.Parallel()

	var invalid *InvalidInputError
	_, err := GenerateClassDiagram(&Inputs{Store: tags.NewStore()})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, KindClassDiagram, invalid.Kind)

	// Edges alone are enough: every endpoint renders as a stub.
	rels := []extract.Relationship{{Kind: langconf.KindDependency, Source: "A", Target: "B", ArrowToken: "..>"}}
	d, err := GenerateClassDiagram(&Inputs{Relationships: rels})
	require.NoError(t, err)
	assert.Contains(t, d.String(), "A ..> B")
}
