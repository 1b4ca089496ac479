package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
)

func TestFuseNormalizesHeat(t *testing.T) {
	t.Parallel()

	rels := []extract.Relationship{
		{Kind: langconf.KindCall, Source: "main", Target: "run"},
		{Kind: langconf.KindCall, Source: "run", Target: "step"},
		{Kind: langconf.KindDependency, Source: "run", Target: "Logger"},
		{Kind: langconf.KindCall, Source: "run", Target: "cleanup"},
	}
	events := []Event{
		{Caller: "main", Callee: "run", Count: 250},
		{Caller: "main", Callee: "run", Count: 750},
		{Caller: "run", Callee: "step", Count: 500},
		{Caller: "run", Callee: "Logger", Count: 100},
	}

	fused := Fuse(rels, events)
	require.Len(t, fused, 4)

	// Counts aggregate per pair before normalizing: main->run totals
	// 1000 and is the hottest pair.
	assert.Equal(t, 1.0, fused[0].Heat)
	assert.Equal(t, 0.5, fused[1].Heat)
	assert.Equal(t, 0.1, fused[2].Heat)
	// No matching event means zero heat.
	assert.Equal(t, 0.0, fused[3].Heat)

	for _, he := range fused {
		assert.GreaterOrEqual(t, he.Heat, 0.0)
		assert.LessOrEqual(t, he.Heat, 1.0)
	}
}

func TestFuseNeverHeatsStructuralEdges(t *testing.T) {
	t.Parallel()

	style := langconf.Style{Edge: langconf.EdgeSolid, Arrow: langconf.ArrowTriangle, Color: "#888888", Width: 2}
	rels := []extract.Relationship{
		{Kind: langconf.KindInheritance, Source: "A", Target: "B", Style: style, ArrowToken: "--|>"},
		{Kind: langconf.KindInterfaceImplementation, Source: "A", Target: "I", Style: style, ArrowToken: "..|>"},
		{Kind: langconf.KindComposition, Source: "A", Target: "C", Style: style, ArrowToken: "*--"},
	}
	// The trace claims heavy traffic on every structural pair.
	events := []Event{
		{Caller: "A", Callee: "B", Count: 1000},
		{Caller: "A", Callee: "I", Count: 1000},
		{Caller: "A", Callee: "C", Count: 1000},
	}

	fused := Fuse(rels, events)
	require.Len(t, fused, 3)
	for _, he := range fused {
		assert.Equal(t, 0.0, he.Heat)
		assert.Equal(t, style, he.Style)
	}
}

func TestFuseWithoutEvents(t *testing.T) {
	t.Parallel()

	rels := []extract.Relationship{{Kind: langconf.KindCall, Source: "a", Target: "b"}}
	fused := Fuse(rels, nil)
	require.Len(t, fused, 1)
	assert.Equal(t, 0.0, fused[0].Heat)
}

func TestHeatColorStops(t *testing.T) {
	t.Parallel()

	colors := langconf.HeatColors{Cold: "#000000", Warm: "#808080", Hot: "#ffffff"}

	assert.Equal(t, "#000000", HeatColor(0, colors))
	assert.Equal(t, "#808080", HeatColor(0.5, colors))
	assert.Equal(t, "#ffffff", HeatColor(1, colors))

	// Midpoints interpolate within their segment.
	assert.Equal(t, "#404040", HeatColor(0.25, colors))

	// Out-of-range heats clamp instead of extrapolating.
	assert.Equal(t, "#000000", HeatColor(-3, colors))
	assert.Equal(t, "#ffffff", HeatColor(9, colors))
}

func TestHeatColorFallsBackOnMalformedStops(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultCold, HeatColor(0, langconf.HeatColors{}))
	assert.Equal(t, defaultHot, HeatColor(1, langconf.HeatColors{Hot: "red"}))
}
