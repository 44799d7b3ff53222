// Package flow arranges block-level elements into regions: it collects
// elements into prepared children, distributes them over columns and pages,
// lets text flow around wrap and masthead cutouts, and carries paragraphs
// and breakable blocks across region boundaries.
package flow

import (
	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/inline"
	"github.com/typeflow/typeflow/logger"
	"github.com/typeflow/typeflow/region"
)

const debugMode = false

// Scope selects which area an inserted element affects: the current column
// or the whole page.
type Scope uint8

const (
	ScopeColumn Scope = iota
	ScopeParent
)

// Overflow selects what happens when masthead content is taller than its
// region.
type Overflow uint8

const (
	// OverflowClip truncates the content to the available height and warns.
	OverflowClip Overflow = iota
	// OverflowPaginate carries the remainder to the next region when that
	// can make progress, and clips otherwise.
	OverflowPaginate
)

// Layouter lays content out into a single region. It is the contract
// through which opaque block content (tables, images, nested flows) enters
// the flow; implementations must be pure with respect to the region.
type Layouter interface {
	Layout(r region.Region) (frame.Frame, error)
}

// MultiLayouter additionally lays content across a sequence of regions,
// producing one frame per used region. Breakable blocks require it.
type MultiLayouter interface {
	Layouter
	LayoutAcross(rs region.Regions) ([]frame.Frame, error)
}

// Costs configures widow and orphan prevention. A non-positive value
// disables the respective rule.
type Costs struct {
	Orphan float64
	Widow  float64
}

// DefaultCosts enables both rules.
func DefaultCosts() Costs { return Costs{Orphan: 1, Widow: 1} }

// Spacing is vertical spacing, either absolute or a fraction of the
// region's free space.
type Spacing interface{ isSpacing() }

// Rel is absolute vertical spacing.
type Rel geom.Abs

// Fr is fractional vertical spacing, resolved against the free space left
// in the region after all absolute content.
type Fr geom.Fr

func (Rel) isSpacing() {}
func (Fr) isSpacing()  {}

// Element is one block-level input to the flow.
type Element interface{ isElement() }

// TagElem is an invisible marker that survives into the output frames.
type TagElem struct {
	Name string
}

// VElem is explicit vertical spacing. Weak spacing collapses against
// adjacent weak spacing and disappears at region boundaries.
type VElem struct {
	Amount Spacing
	Weak   bool
}

// ParElem is a paragraph of text.
type ParElem struct {
	Text     string
	Style    inline.Style
	Costs    Costs
	Strategy inline.Strategy
	// Spacing is the vertical space before and after the paragraph.
	Spacing geom.Abs
}

// BlockElem is an opaque block laid out through its Layouter.
type BlockElem struct {
	Body  Layouter
	Align geom.Align
	// Sticky blocks stay in the same region as the following frame.
	Sticky bool
	// Breakable blocks may split across regions; Body must then implement
	// MultiLayouter.
	Breakable bool
	// HeightFr, if non-nil, sizes the block as a fraction of free space.
	HeightFr *geom.Fr
	// Above and Below override the spacing around the block. Nil falls
	// back to the paragraph spacing.
	Above, Below Spacing
}

// PlaceElem is an absolutely or floatingly placed element.
type PlaceElem struct {
	Body   Layouter
	Float  bool
	AlignX geom.FixedAlign
	// AlignY places a float at the top or bottom of the region. Nil means
	// automatic (top if the float is queued before any content).
	AlignY    *geom.FixedAlign
	Scope     Scope
	Clearance geom.Abs
	// Delta shifts an absolutely placed element after alignment.
	Delta geom.Point
}

// WrapElem is content that text flows around: its frame becomes a cutout
// on the given side, sized by the measured frame width.
type WrapElem struct {
	Body Layouter
	// Side is the side the content sits on. Auto means End.
	Side  geom.Side
	Scope Scope
	// Clearance is the gap kept between the cutout and flowing text.
	// Zero means half an em of the reference font size.
	Clearance geom.Abs
}

// MastheadElem reserves a fixed-width column that text flows around. The
// cutout width is the explicit Width, not the measured frame width, so
// narrow content still reserves the designed column.
type MastheadElem struct {
	Body Layouter
	// Side is the side the reserved column sits on. Auto means Start.
	Side  geom.Side
	Scope Scope
	// Clearance is the gap kept between the cutout and flowing text.
	// Zero means one em of the reference font size.
	Clearance geom.Abs
	Width     geom.Abs
	Overflow  Overflow
}

// FlushElem forces all queued floats to be placed before further content.
type FlushElem struct{}

// ColbreakElem breaks to the next column. A weak break only takes effect
// after some content.
type ColbreakElem struct {
	Weak bool
}

func (TagElem) isElement()      {}
func (VElem) isElement()        {}
func (ParElem) isElement()      {}
func (BlockElem) isElement()    {}
func (PlaceElem) isElement()    {}
func (WrapElem) isElement()     {}
func (MastheadElem) isElement() {}
func (FlushElem) isElement()    {}
func (ColbreakElem) isElement() {}

// Options configures a flow layout run.
type Options struct {
	// Dir is the dominant text direction, used to resolve logical sides.
	Dir geom.Dir
	// Columns is the number of columns per region. Zero means one.
	Columns int
	// ColumnGap is the gutter between columns.
	ColumnGap geom.Abs
	// Measurer measures paragraph text. Nil falls back to a rule-based
	// measurer.
	Measurer inline.Measurer
	// ParSpacing is the default spacing between paragraphs and around
	// blocks without explicit spacing.
	ParSpacing geom.Abs
	// FontSize is the reference size for font-relative defaults, like the
	// clearance of wrap and masthead elements. Zero falls back to the
	// default text size.
	FontSize geom.Abs
}

func (o *Options) fontSize() geom.Abs {
	if o.FontSize <= 0 {
		return inline.DefaultStyle().FontSize
	}
	return o.FontSize
}

func (o *Options) measurer() inline.Measurer {
	if o.Measurer == nil {
		return inline.NewRuleMeasurer()
	}
	return o.Measurer
}

func (o *Options) columns() int {
	if o.Columns < 1 {
		return 1
	}
	return o.Columns
}

// Layout flows the elements through the given regions and returns one frame
// per used region. Each region is split into the configured number of
// columns; wrap and masthead elements carve cutouts out of their column (or,
// with parent scope, out of the whole region) and the surrounding text
// reflows around them.
func Layout(elements []Element, regions region.Regions, opts Options) ([]frame.Frame, error) {
	base := columnSize(regions.Base(), &opts)
	children, err := collect(elements, base, &opts)
	if err != nil {
		return nil, err
	}

	work := newWork(children)
	var output []frame.Frame
	for {
		last := !regions.MayBreak()
		f, err := composeRegion(work, regions, &opts)
		if err != nil {
			return nil, err
		}
		output = append(output, f)
		if work.done() {
			break
		}
		if last {
			// Nothing left to break into. Most content overflows the final
			// frame through the fit checks, but children behind an overfull
			// region cannot be committed anywhere; they are dropped with a
			// diagnostic rather than looping.
			logger.WarningLogger.Println(
				"flow: content left over after the final region was dropped")
			break
		}
		regions.Next()
	}
	return output, nil
}

// columnSize computes the size of one column within a region, splitting the
// width evenly around the gaps.
func columnSize(base geom.Size, opts *Options) geom.Size {
	n := opts.columns()
	width := geom.Abs(float64(base.W+opts.ColumnGap)/float64(n)) - opts.ColumnGap
	return geom.Size{W: width, H: base.H}
}
