package region

import "github.com/typeflow/typeflow/geom"

// Expand selects, per axis, whether a frame should grow to the region's
// full size or hug its content.
type Expand struct {
	X, Y bool
}

// Region is a single area to lay content into.
type Region struct {
	Size   geom.Size
	Expand Expand
}

// NewRegion creates a region of the given size.
func NewRegion(size geom.Size, expand Expand) Region {
	return Region{Size: size, Expand: expand}
}

// Regions is a sequence of areas to lay content into: a first region that is
// continuously shrunk as content is committed, a backlog of follow-up region
// heights, and an optional height for all regions after the backlog runs out.
type Regions struct {
	// Size is the remaining size of the first region.
	Size geom.Size
	// Full is the initial height of the first region.
	Full geom.Abs
	// Backlog holds the heights of the regions after the first.
	Backlog []geom.Abs
	// Last, if non-nil, is the height of all regions beyond the backlog.
	// The last region repeats, so content never runs out of space.
	Last *geom.Abs
	// Expand selects whether frames grow to the full region size.
	Expand Expand
}

// One creates a single region with no follow-ups.
func One(size geom.Size, expand Expand) Regions {
	return Regions{Size: size, Full: size.H, Expand: expand}
}

// Repeat creates an endless sequence of equally sized regions.
func Repeat(size geom.Size, expand Expand) Regions {
	h := size.H
	return Regions{Size: size, Full: size.H, Last: &h, Expand: expand}
}

// Base returns the base size for resolving relative lengths: the region's
// width and its full, unshrunk height.
func (r Regions) Base() geom.Size {
	return geom.Size{W: r.Size.W, H: r.Full}
}

// InLast reports whether the current region is the last usable one, meaning
// breaking to the next region cannot gain any space.
func (r Regions) InLast() bool {
	return len(r.Backlog) == 0 && (r.Last == nil || r.Size.H.ApproxEq(*r.Last))
}

// MayProgress reports whether breaking into the next region can make
// progress, either because it is larger or because the current one has
// already been partially used.
func (r Regions) MayProgress() bool { return !r.InLast() }

// MayBreak reports whether there is a next region at all.
func (r Regions) MayBreak() bool { return len(r.Backlog) > 0 || r.Last != nil }

// IsFull reports whether the first region is exhausted and a break is needed.
func (r Regions) IsFull() bool {
	return r.Full.IsFinite() && !r.Size.H.Fits(0)
}

// Next advances to the next region, consuming the backlog before falling
// back to the repeating last height. Without a next region it is a no-op.
func (r *Regions) Next() {
	var height geom.Abs
	switch {
	case len(r.Backlog) > 0:
		height = r.Backlog[0]
		r.Backlog = r.Backlog[1:]
	case r.Last != nil:
		height = *r.Last
	default:
		return
	}
	r.Size.H = height
	r.Full = height
}

// Heights returns the heights of all remaining regions: the current one,
// the backlog, and (if present) one instance of the repeating last height.
func (r Regions) Heights() []geom.Abs {
	heights := make([]geom.Abs, 0, len(r.Backlog)+2)
	heights = append(heights, r.Size.H)
	heights = append(heights, r.Backlog...)
	if r.Last != nil {
		heights = append(heights, *r.Last)
	}
	return heights
}
