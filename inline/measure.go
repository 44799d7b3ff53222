package inline

import "github.com/typeflow/typeflow/geom"

// Measurer returns the advance width of a piece of text in a given style.
//
// Implementations must be pure: the same text and style always measure the
// same, so that paragraph layout results can be memoized.
type Measurer interface {
	Advance(text string, style Style) geom.Abs
}

// RuleMeasurer measures text with a uniform per-rune advance, a fraction of
// the font size. It needs no font data and is fully deterministic, which
// makes it the measurer of choice for tests and for estimating layouts
// before fonts are available.
type RuleMeasurer struct {
	// PerRune is the advance of every rune relative to the font size.
	PerRune geom.Em
}

// NewRuleMeasurer creates a measurer with a typical average advance of half
// the font size per rune.
func NewRuleMeasurer() RuleMeasurer {
	return RuleMeasurer{PerRune: 0.5}
}

func (r RuleMeasurer) Advance(text string, style Style) geom.Abs {
	n := 0
	for range text {
		n++
	}
	return r.PerRune.Resolve(style.FontSize).Scale(float64(n))
}
