package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas-go/internal/srctree"
)

func TestFlowchartBody(t *testing.T) {
	t.Parallel()

	d, err := GenerateFlowchart(sampleInputs())
	require.NoError(t, err)
	text := d.String()

	assert.Contains(t, text, `dir__["Demo"]`)
	assert.Contains(t, text, `dir_src["src/"]`)
	assert.Contains(t, text, `dir_src_core["core/"]`)
	assert.Contains(t, text, `file_src_app_demo["app.demo"]`)
	assert.Contains(t, text, `file_README_md["README.md"]`)

	assert.Contains(t, text, "dir__ --> dir_src")
	assert.Contains(t, text, "dir_src --> dir_src_core")
	assert.Contains(t, text, "dir_src_core --> file_src_core_engine_demo")

	assert.Contains(t, text, "classDef depth0 fill:")
	assert.Contains(t, text, "class dir__ depth0")
	assert.Contains(t, text, "depth2")
	assert.Empty(t, Validate(text))
}

func TestFlowchartRootLabelFallsBackToDot(t *testing.T) {
	t.Parallel()

	in := sampleInputs()
	in.Title = ""
	d, err := GenerateFlowchart(in)
	require.NoError(t, err)
	assert.Contains(t, d.String(), `dir__["."]`)
}

func TestFlowchartExpandSymbols(t *testing.T) {
	t.Parallel()

	in := sampleInputs()
	in.ExpandSymbols = true
	d, err := GenerateFlowchart(in)
	require.NoError(t, err)
	text := d.String()

	assert.Contains(t, text, `(("App"))`)
	assert.Contains(t, text, `(("Run"))`)
	assert.Contains(t, text, "file_src_app_demo -.->")
	assert.Contains(t, text, "classDef symbol")

	// Without the flag no symbol nodes appear.
	plain, err := GenerateFlowchart(sampleInputs())
	require.NoError(t, err)
	assert.NotContains(t, plain.String(), `(("App"))`)
}

func TestFlowchartDirsSortBeforeFiles(t *testing.T) {
	t.Parallel()

	in := sampleInputs()
	in.Tree = srctree.FromPaths([]string{"aaa.demo", "zzz/inner.demo"})
	d, err := GenerateFlowchart(in)
	require.NoError(t, err)

	lines := d.Lines()
	dirAt, fileAt := -1, -1
	for i, l := range lines {
		switch l {
		case `  dir_zzz["zzz/"]`:
			dirAt = i
		case `  file_aaa_demo["aaa.demo"]`:
			fileAt = i
		}
	}
	require.NotEqual(t, -1, dirAt)
	require.NotEqual(t, -1, fileAt)
	assert.Less(t, dirAt, fileAt)
}

func TestFlowchartRequiresTree(t *testing.T) {
	t.Parallel()

	var invalid *InvalidInputError
	_, err := GenerateFlowchart(&Inputs{})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "tree", invalid.Field)

	_, err = GenerateFlowchart(&Inputs{Tree: srctree.New()})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "tree", invalid.Field)
}
