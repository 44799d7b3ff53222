package geom

// Dir is the direction text and content flows along an axis.
type Dir uint8

const (
	// LTR flows from left to right.
	LTR Dir = iota
	// RTL flows from right to left.
	RTL
	// TTB flows from top to bottom.
	TTB
	// BTT flows from bottom to top.
	BTT
)

// IsPositive reports whether the direction points towards the positive
// coordinate axis (right or down).
func (d Dir) IsPositive() bool { return d == LTR || d == TTB }

// IsHorizontal reports whether the direction runs along the x axis.
func (d Dir) IsHorizontal() bool { return d == LTR || d == RTL }

func (d Dir) String() string {
	switch d {
	case LTR:
		return "ltr"
	case RTL:
		return "rtl"
	case TTB:
		return "ttb"
	case BTT:
		return "btt"
	default:
		return "<invalid direction>"
	}
}

// Side is an alignment side of a region, either logical (Start/End, resolved
// against the text direction) or physical (Left/Right, direction independent).
type Side uint8

const (
	// SideAuto defers to the consuming element's default side.
	SideAuto Side = iota
	// Start is the side text starts on: left in LTR, right in RTL.
	Start
	// End is the side text ends on: right in LTR, left in RTL.
	End
	// Left is always the physical left side.
	Left
	// Right is always the physical right side.
	Right
)

func (s Side) String() string {
	switch s {
	case SideAuto:
		return "auto"
	case Start:
		return "start"
	case End:
		return "end"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "<invalid side>"
	}
}
