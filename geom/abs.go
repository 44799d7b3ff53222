// Package geom provides the scalar and geometric primitives shared by the
// layout packages: absolute lengths, fractional units, font-relative lengths,
// text directions and alignment sides.
package geom

import "math"

// Abs is an absolute length, in typographic points (1/72 inch).
type Abs float64

// Tolerance used by Fits and ApproxEq. Layout arithmetic accumulates
// rounding errors well below this threshold.
const eps Abs = 1e-6

// Pt creates an absolute length from a value in points.
func Pt(v float64) Abs { return Abs(v) }

// Pt returns the length as a float64 number of points.
func (a Abs) Pt() float64 { return float64(a) }

// Fits reports whether an element of size `other` fits into `a`,
// with a small tolerance for accumulated floating point error.
func (a Abs) Fits(other Abs) bool { return a+eps >= other }

// ApproxEq reports whether two lengths are equal within tolerance.
func (a Abs) ApproxEq(other Abs) bool {
	d := a - other
	return -eps <= d && d <= eps
}

// Max returns the larger of the two lengths.
func (a Abs) Max(other Abs) Abs {
	if other > a {
		return other
	}
	return a
}

// Min returns the smaller of the two lengths.
func (a Abs) Min(other Abs) Abs {
	if other < a {
		return other
	}
	return a
}

// Scale multiplies the length by a plain factor.
func (a Abs) Scale(f float64) Abs { return Abs(float64(a) * f) }

// IsFinite reports whether the length is neither infinite nor NaN.
func (a Abs) IsFinite() bool {
	f := float64(a)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Bits returns the raw bit pattern of the length.
//
// Hashes of layout inputs must be computed over raw bit patterns, never over
// derived approximate values, so that structurally equal inputs always hash
// identically (memoization correctness depends on this).
func (a Abs) Bits() uint64 { return math.Float64bits(float64(a)) }

// Inf is an unbounded length, used for regions without a height limit.
var Inf = Abs(math.Inf(1))

// Em is a length relative to the font size.
type Em float64

// Resolve converts the font-relative length to an absolute one.
func (e Em) Resolve(fontSize Abs) Abs { return Abs(float64(e) * float64(fontSize)) }

// Fr defines how the remaining space in a region is distributed among
// fractional spacing and fractionally sized blocks.
type Fr float64

// Share returns the amount of `space` that a fraction of `f` out of
// `total` fractions takes up.
func (f Fr) Share(total Fr, space Abs) Abs {
	if total <= 0 {
		return 0
	}
	return space.Scale(float64(f) / float64(total))
}

// Point is a position in a frame's coordinate system.
type Point struct {
	X, Y Abs
}

// Size is the width and height of a rectangular area.
type Size struct {
	W, H Abs
}

// IsZero reports whether both dimensions are zero.
func (s Size) IsZero() bool { return s.W == 0 && s.H == 0 }
