package lineage

import (
	"fmt"
	"slices"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/tracetower/pkg/metadata"
)

// Color is an 8-bit RGB fill color.
type Color struct {
	R, G, B uint8
}

// Hex returns the "#rrggbb" form used by DOT fillcolor attributes.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// The legend gradient runs from white to mid-gray. Blending happens in
// linear RGB so the perceived steps stay even, then each sample is
// quantized to 8-bit sRGB.
var (
	gradientStart = colorful.Color{R: 1.0, G: 1.0, B: 1.0}
	gradientEnd   = colorful.Color{R: 0.5, G: 0.5, B: 0.5}
)

// assignColors gives every type a fill color, partitioned by kind: the
// gradient is sampled into as many evenly spaced stops as there are
// artifact types, and independently again for execution types. An artifact
// type and an execution type may therefore share a color; uniqueness is
// only guaranteed within a kind.
//
// The assignment is deterministic: within each kind, types take gradient
// stops in ascending type-ID order.
func assignColors(types map[metadata.TypeID]Type) map[metadata.TypeID]Color {
	var artifactIDs, executionIDs []metadata.TypeID
	for id, t := range types {
		if t.Artifact != nil {
			artifactIDs = append(artifactIDs, id)
		} else {
			executionIDs = append(executionIDs, id)
		}
	}
	slices.Sort(artifactIDs)
	slices.Sort(executionIDs)

	colors := make(map[metadata.TypeID]Color, len(types))
	for i, id := range artifactIDs {
		colors[id] = gradientAt(i, len(artifactIDs))
	}
	for i, id := range executionIDs {
		colors[id] = gradientAt(i, len(executionIDs))
	}
	return colors
}

// gradientAt samples stop i of n evenly spaced stops.
func gradientAt(i, n int) Color {
	t := 0.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	r, g, b := gradientStart.BlendLinearRgb(gradientEnd, t).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}
