package geom

// FixedAlign is a physical alignment along one axis, already resolved
// against the text direction.
type FixedAlign uint8

const (
	AlignStart FixedAlign = iota
	AlignCenter
	AlignEnd
)

// Position returns the offset that aligns an element within `free` extra
// space.
func (a FixedAlign) Position(free Abs) Abs {
	switch a {
	case AlignCenter:
		return free.Scale(0.5)
	case AlignEnd:
		return free
	default:
		return 0
	}
}

// Max returns the alignment further along the axis. Used to let the
// strongest vertical alignment of a group win.
func (a FixedAlign) Max(other FixedAlign) FixedAlign {
	if other > a {
		return other
	}
	return a
}

// Align is a two-dimensional alignment.
type Align struct {
	X, Y FixedAlign
}
