package region

import "github.com/typeflow/typeflow/geom"

// WidthProvider answers width queries during line breaking. Heights passed
// to WidthAt are cumulative from the start of the paragraph; the provider
// translates them into whatever coordinate system it needs.
//
// Implementations must be pure: the same query always yields the same
// answer, with no side effects, so that layout results can be memoized.
type WidthProvider interface {
	// WidthAt returns the width available at the given cumulative height
	// from the start of the paragraph.
	WidthAt(cumulativeHeight geom.Abs) WidthInfo

	// BaseWidth returns the maximum possible width, used for quick checks
	// and as a fallback when nothing obstructs the paragraph.
	BaseWidth() geom.Abs

	// IsConstant reports whether the width never varies, enabling
	// fast paths in the line breaker.
	IsConstant() bool
}

// ConstantWidth is a provider that always returns the same width.
type ConstantWidth struct {
	width geom.Abs
}

// NewConstantWidth creates a fixed-width provider.
func NewConstantWidth(width geom.Abs) ConstantWidth {
	return ConstantWidth{width: width}
}

func (c ConstantWidth) WidthAt(geom.Abs) WidthInfo { return FullWidth(c.width) }
func (c ConstantWidth) BaseWidth() geom.Abs        { return c.width }
func (c ConstantWidth) IsConstant() bool           { return true }

// CutoutWidth is a provider backed by a region's cutouts. It translates
// paragraph-relative heights to region coordinates via the paragraph's
// starting y offset.
type CutoutWidth struct {
	regionWidth geom.Abs
	cutouts     []Cutout
	yOffset     geom.Abs
	dir         geom.Dir
}

// NewCutoutWidth creates a cutout-backed width provider for a paragraph
// starting at yOffset within the region.
func NewCutoutWidth(regionWidth geom.Abs, cutouts []Cutout, yOffset geom.Abs, dir geom.Dir) CutoutWidth {
	return CutoutWidth{regionWidth: regionWidth, cutouts: cutouts, yOffset: yOffset, dir: dir}
}

func (c CutoutWidth) WidthAt(cumulativeHeight geom.Abs) WidthInfo {
	if len(c.cutouts) == 0 {
		return FullWidth(c.regionWidth)
	}
	return WidthAt(c.regionWidth, c.yOffset+cumulativeHeight, c.cutouts, c.dir)
}

func (c CutoutWidth) BaseWidth() geom.Abs { return c.regionWidth }

func (c CutoutWidth) IsConstant() bool { return len(c.cutouts) == 0 }
