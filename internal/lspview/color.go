package lspview

import (
	"github.com/lucasb-eyer/go-colorful"

	"sccp-opt/internal/sccp"
)

// Lattice-state hover colors: a warm hue for Top (still optimistic, nothing
// proven), a cool hue for a resolved Constant, and a desaturated red for
// Bottom. HSLuv keeps the three equally perceptually distinct regardless of
// the lightness each hue would otherwise render at.
var (
	topColor      = colorful.Hsluv(45, 0.9, 0.55)
	constantColor = colorful.Hsluv(140, 0.9, 0.45)
	bottomColor   = colorful.Hsluv(0, 0.85, 0.45)
)

// latticeSwatch renders a hex color swatch annotation for a lattice value,
// shown alongside its hover text.
func latticeSwatch(lv sccp.LatticeValue) string {
	var c colorful.Color
	switch {
	case lv.IsTop():
		c = topColor
	case lv.IsConstant():
		c = constantColor
	default:
		c = bottomColor
	}
	return "(" + c.Hex() + ")"
}
