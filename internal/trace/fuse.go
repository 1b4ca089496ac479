package trace

import (
	"fmt"
	"math"

	"github.com/codeatlas/atlas-go/internal/extract"
	"github.com/codeatlas/atlas-go/internal/langconf"
)

// HeatEdge is a relationship with a normalized call-frequency weight.
type HeatEdge struct {
	extract.Relationship

	// Heat is the invocation count normalized against the hottest
	// pair, in [0, 1]. Structural edges are always 0.
	Heat float64
}

// Fuse attaches heat to every relationship whose (source, target) pair
// the trace observed. Counts for a pair aggregate across events before
// normalizing, so the hottest pair lands at exactly 1.0. Inheritance,
// interface implementation, and composition edges keep heat 0 no
// matter what the trace says: heat marks control flow, and a heat
// color on a structural edge would hide the architecture it encodes.
func Fuse(rels []extract.Relationship, events []Event) []HeatEdge {
	counts := make(map[[2]string]int64, len(events))
	for _, e := range events {
		if e.Caller == "" || e.Callee == "" {
			continue
		}
		n := e.Count
		if n <= 0 {
			n = 1
		}
		counts[[2]string{e.Caller, e.Callee}] += n
	}
	var max int64
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	out := make([]HeatEdge, 0, len(rels))
	for _, r := range rels {
		he := HeatEdge{Relationship: r}
		if max > 0 && !r.Kind.Structural() {
			if n, ok := counts[[2]string{r.Source, r.Target}]; ok {
				he.Heat = float64(n) / float64(max)
			}
		}
		out = append(out, he)
	}
	return out
}

// Default heat scale, used when a language config leaves a stop unset.
const (
	defaultCold = "#3498db"
	defaultWarm = "#f1c40f"
	defaultHot  = "#e74c3c"
)

// HeatColor maps a heat value onto the configured three-stop scale:
// cold to warm over [0, 0.5], warm to hot over (0.5, 1].
func HeatColor(h float64, colors langconf.HeatColors) string {
	if h < 0 {
		h = 0
	}
	if h > 1 {
		h = 1
	}
	cold := parseHex(colors.Cold, defaultCold)
	warm := parseHex(colors.Warm, defaultWarm)
	hot := parseHex(colors.Hot, defaultHot)

	if h <= 0.5 {
		return lerpHex(cold, warm, h*2)
	}
	return lerpHex(warm, hot, (h-0.5)*2)
}

type rgb [3]int

// parseHex reads a #rrggbb color, falling back to the default stop on
// anything malformed.
func parseHex(s, fallback string) rgb {
	if c, ok := hexRGB(s); ok {
		return c
	}
	c, _ := hexRGB(fallback)
	return c
}

func hexRGB(s string) (rgb, bool) {
	if len(s) != 7 || s[0] != '#' {
		return rgb{}, false
	}
	var c rgb
	for i := 0; i < 3; i++ {
		hi, okHi := hexVal(s[1+2*i])
		lo, okLo := hexVal(s[2+2*i])
		if !okHi || !okLo {
			return rgb{}, false
		}
		c[i] = hi<<4 | lo
	}
	return c, true
}

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}

func lerpHex(from, to rgb, t float64) string {
	var c rgb
	for i := 0; i < 3; i++ {
		c[i] = from[i] + int(math.Round(t*float64(to[i]-from[i])))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
