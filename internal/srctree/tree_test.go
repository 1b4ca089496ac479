package srctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPaths(t *testing.T) {
	t.Parallel()

	tree := FromPaths([]string{
		"src/core/engine.cs",
		"src/core/types.cs",
		"src/web/handler.cs",
		"README.md",
	})

	// Root, 3 dirs, 4 files.
	assert.Equal(t, 8, tree.Len())

	root := tree.Root()
	assert.Equal(t, ".", root.Path)
	assert.Equal(t, -1, root.Parent)
	assert.Equal(t, 0, root.Depth)
	assert.True(t, root.IsDir)

	engine, ok := tree.Lookup("src/core/engine.cs")
	require.True(t, ok)
	assert.False(t, engine.IsDir)
	assert.Equal(t, 3, engine.Depth)
	assert.Equal(t, "engine.cs", engine.Name)

	core, ok := tree.Lookup("src/core")
	require.True(t, ok)
	assert.True(t, core.IsDir)
	assert.Equal(t, core.ID, engine.Parent)
	assert.Equal(t, 2, core.Depth)

	assert.Equal(t, 3, tree.MaxDepth())
}

func TestInsertIsIdempotent(t *testing.T) {
	t.Parallel()

	tree := New()
	first := tree.Insert("a/b.go", false)
	second := tree.Insert("a/b.go", false)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, tree.Len())
}

func TestInsertCreatesIntermediateDirs(t *testing.T) {
	t.Parallel()

	tree := New()
	tree.Insert("a/b/c/d.txt", false)

	for _, dir := range []string{"a", "a/b", "a/b/c"} {
		node, ok := tree.Lookup(dir)
		require.True(t, ok, dir)
		assert.True(t, node.IsDir, dir)
	}
}

func TestChildrenOfOrdering(t *testing.T) {
	t.Parallel()

	tree := New()
	tree.Insert("zeta.txt", false)
	tree.Insert("beta/x.txt", false)
	tree.Insert("alpha.txt", false)
	tree.Insert("gamma/y.txt", false)

	var names []string
	for _, child := range tree.ChildrenOf(tree.Root().ID) {
		names = append(names, child.Name)
	}

	// Directories first, then files, each alphabetical.
	assert.Equal(t, []string{"beta", "gamma", "alpha.txt", "zeta.txt"}, names)
}

func TestDirsAndFiles(t *testing.T) {
	t.Parallel()

	tree := FromPaths([]string{"b/two.go", "a/one.go"})

	var dirPaths []string
	for _, d := range tree.Dirs() {
		dirPaths = append(dirPaths, d.Path)
	}
	assert.Equal(t, []string{".", "a", "b"}, dirPaths)

	var filePaths []string
	for _, f := range tree.Files() {
		filePaths = append(filePaths, f.Path)
	}
	assert.Equal(t, []string{"a/one.go", "b/two.go"}, filePaths)
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "plain", in: "a/b.go", expected: "a/b.go"},
		{name: "dot slash prefix", in: "./a/b.go", expected: "a/b.go"},
		{name: "backslashes", in: `a\b.go`, expected: "a/b.go"},
		{name: "empty is root", in: "", expected: "."},
		{name: "dot is root", in: ".", expected: "."},
		{name: "redundant segments", in: "a//b/../c.go", expected: "a/c.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, normalize(tt.in))
		})
	}
}
