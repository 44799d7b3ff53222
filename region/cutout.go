// Package region models the vertical space layout flows into: regions with
// a size and a backlog of follow-up regions, and rectangular exclusion zones
// (cutouts) that reduce the width available to lines at certain vertical
// positions, so that text can flow around images and other placed content.
package region

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/typeflow/typeflow/geom"
)

const debugMode = false

// CutoutSide is the side of the region a cutout occupies, in logical terms.
// Logical sides are resolved against the text direction.
type CutoutSide uint8

const (
	// SideStart is the start side: left in LTR, right in RTL.
	SideStart CutoutSide = iota
	// SideEnd is the end side: right in LTR, left in RTL.
	SideEnd
)

// Opposite returns the other side.
func (s CutoutSide) Opposite() CutoutSide {
	if s == SideStart {
		return SideEnd
	}
	return SideStart
}

// IsLeft reports whether the side corresponds to the physical left under the
// given text direction. Vertical directions treat start as left.
func (s CutoutSide) IsLeft(dir geom.Dir) bool {
	if dir == geom.RTL {
		return s == SideEnd
	}
	return s == SideStart
}

func (s CutoutSide) String() string {
	if s == SideStart {
		return "start"
	}
	return "end"
}

// ResolveSide maps an alignment side to the logical cutout side under the
// given text direction. Start and End pass through unchanged; Left and Right
// are physical and invert under RTL. Vertical directions use the LTR mapping.
//
// ResolveSide and CutoutSide.IsLeft are exact inverses: for any side s and
// direction d, ResolveSide(s, d).IsLeft(d) answers whether s ends up on the
// physical left.
func ResolveSide(side geom.Side, dir geom.Dir) CutoutSide {
	switch side {
	case geom.Start:
		return SideStart
	case geom.End:
		return SideEnd
	case geom.Left:
		if dir == geom.RTL {
			return SideEnd
		}
		return SideStart
	default: // geom.Right
		if dir == geom.RTL {
			return SideStart
		}
		return SideEnd
	}
}

// Cutout is a rectangular exclusion zone in a region. Content does not
// intrude into it; lines overlapping its vertical range shrink by its
// total width on the given side.
type Cutout struct {
	// YStart is the top of the cutout, region-relative.
	YStart geom.Abs
	// YEnd is the bottom of the cutout, region-relative.
	YEnd geom.Abs
	// Side is the side of the region the cutout occupies.
	Side CutoutSide
	// Width is the width of the excluded area itself.
	Width geom.Abs
	// Clearance is the extra spacing kept between the cutout and flowing text.
	Clearance geom.Abs
}

// NewCutout creates a cutout. In debug builds, invalid geometry panics.
func NewCutout(yStart, yEnd geom.Abs, side CutoutSide, width, clearance geom.Abs) Cutout {
	if debugMode {
		if yStart > yEnd {
			panic("region: cutout yStart must be <= yEnd")
		}
		if width < 0 || clearance < 0 {
			panic("region: cutout width and clearance must be non-negative")
		}
	}
	return Cutout{YStart: yStart, YEnd: yEnd, Side: side, Width: width, Clearance: clearance}
}

// TotalWidth is the full reduction the cutout imposes, width plus clearance.
func (c Cutout) TotalWidth() geom.Abs { return c.Width + c.Clearance }

// ContainsY reports whether y lies in the cutout's vertical range,
// start-inclusive and end-exclusive.
func (c Cutout) ContainsY(y geom.Abs) bool { return y >= c.YStart && y < c.YEnd }

// OverlapsRange reports whether the cutout intersects [yStart, yEnd).
func (c Cutout) OverlapsRange(yStart, yEnd geom.Abs) bool {
	// Two ranges [a, b) and [c, d) overlap if a < d && c < b.
	return c.YStart < yEnd && yStart < c.YEnd
}

// Height returns the vertical extent of the cutout.
func (c Cutout) Height() geom.Abs { return c.YEnd - c.YStart }

// Hash returns a deterministic hash of the cutout, computed over the raw
// bit patterns of its lengths so that structurally equal cutouts always
// hash identically.
func (c Cutout) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, bits := range [...]uint64{
		c.YStart.Bits(), c.YEnd.Bits(), uint64(c.Side),
		c.Width.Bits(), c.Clearance.Bits(),
	} {
		binary.LittleEndian.PutUint64(buf[:], bits)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// WidthInfo describes the width available to a line at some vertical
// position. Offsets are physical: StartOffset is always the distance from
// the region's left edge, EndOffset from its right edge, whatever the text
// direction.
type WidthInfo struct {
	// Available is the width usable by content.
	Available geom.Abs
	// StartOffset is the space reserved at the physical left edge.
	StartOffset geom.Abs
	// EndOffset is the space reserved at the physical right edge.
	EndOffset geom.Abs
}

// FullWidth returns a WidthInfo for an unobstructed region of the given width.
func FullWidth(width geom.Abs) WidthInfo {
	return WidthInfo{Available: width}
}

// Fits reports whether content of the given width fits in the available
// space, with floating point tolerance.
func (w WidthInfo) Fits(width geom.Abs) bool { return w.Available.Fits(width) }

// IsFull reports whether the info represents the unobstructed region width.
func (w WidthInfo) IsFull(regionWidth geom.Abs) bool {
	return w.StartOffset.ApproxEq(0) && w.EndOffset.ApproxEq(0) &&
		w.Available.ApproxEq(regionWidth)
}

// Hash returns a deterministic hash over the raw bit patterns of the widths.
func (w WidthInfo) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, bits := range [...]uint64{
		w.Available.Bits(), w.StartOffset.Bits(), w.EndOffset.Bits(),
	} {
		binary.LittleEndian.PutUint64(buf[:], bits)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// WidthAt computes the width available at a y position given a set of
// cutouts. Multiple cutouts on the same side reduce by the maximum of their
// total widths, not the sum. The result's offsets are physical: under RTL
// the start and end reductions swap sides.
func WidthAt(regionWidth, y geom.Abs, cutouts []Cutout, dir geom.Dir) WidthInfo {
	if len(cutouts) == 0 {
		return FullWidth(regionWidth)
	}

	var startRed, endRed geom.Abs
	for _, c := range cutouts {
		if c.ContainsY(y) {
			switch c.Side {
			case SideStart:
				startRed = startRed.Max(c.TotalWidth())
			case SideEnd:
				endRed = endRed.Max(c.TotalWidth())
			}
		}
	}

	return resolveReductions(regionWidth, startRed, endRed, dir)
}

// WidthInRange computes the most restrictive width over a vertical range,
// considering every cutout that overlaps [yStart, yEnd). This is the width
// to use for content that spans several lines at once.
func WidthInRange(regionWidth, yStart, yEnd geom.Abs, cutouts []Cutout, dir geom.Dir) WidthInfo {
	if len(cutouts) == 0 {
		return FullWidth(regionWidth)
	}

	var startRed, endRed geom.Abs
	for _, c := range cutouts {
		if c.OverlapsRange(yStart, yEnd) {
			switch c.Side {
			case SideStart:
				startRed = startRed.Max(c.TotalWidth())
			case SideEnd:
				endRed = endRed.Max(c.TotalWidth())
			}
		}
	}

	return resolveReductions(regionWidth, startRed, endRed, dir)
}

func resolveReductions(regionWidth, startRed, endRed geom.Abs, dir geom.Dir) WidthInfo {
	available := (regionWidth - startRed - endRed).Max(0)

	// The reductions are logical; the offsets are physical. Under RTL the
	// start side is the right edge, so the two swap.
	left, right := startRed, endRed
	if dir == geom.RTL {
		left, right = endRed, startRed
	}

	return WidthInfo{Available: available, StartOffset: left, EndOffset: right}
}

// CutoutsAtY returns the cutouts whose vertical range contains y.
func CutoutsAtY(cutouts []Cutout, y geom.Abs) []Cutout {
	var active []Cutout
	for _, c := range cutouts {
		if c.ContainsY(y) {
			active = append(active, c)
		}
	}
	return active
}

// CutoutsInRange returns the cutouts overlapping [yStart, yEnd).
func CutoutsInRange(cutouts []Cutout, yStart, yEnd geom.Abs) []Cutout {
	var active []Cutout
	for _, c := range cutouts {
		if c.OverlapsRange(yStart, yEnd) {
			active = append(active, c)
		}
	}
	return active
}
