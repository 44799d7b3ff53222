package geom

import (
	"testing"

	tu "github.com/typeflow/typeflow/utils/testutils"
)

func TestAbs(t *testing.T) {
	// Fits tolerates accumulated floating point error.
	tu.AssertEqual(t, Abs(100).Fits(100), true)
	tu.AssertEqual(t, Abs(100).Fits(100.0000001), true)
	tu.AssertEqual(t, Abs(100).Fits(100.1), false)

	tu.AssertEqual(t, Abs(3).Max(5), Abs(5))
	tu.AssertEqual(t, Abs(3).Min(5), Abs(3))
	tu.AssertEqual(t, Abs(10).Scale(1.5), Abs(15))

	tu.AssertEqual(t, Inf.IsFinite(), false)
	tu.AssertEqual(t, Abs(0).IsFinite(), true)

	// Equal values share a bit pattern; hashing depends on it.
	tu.AssertEqual(t, Abs(1.5).Bits(), Abs(1.5).Bits())
}

func TestEmAndFr(t *testing.T) {
	tu.AssertEqual(t, Em(0.5).Resolve(12), Abs(6))

	tu.AssertEqual(t, Fr(1).Share(4, 100), Abs(25))
	tu.AssertEqual(t, Fr(3).Share(4, 100), Abs(75))
	tu.AssertEqual(t, Fr(1).Share(0, 100), Abs(0))
}

func TestFixedAlign(t *testing.T) {
	tu.AssertEqual(t, AlignStart.Position(30), Abs(0))
	tu.AssertEqual(t, AlignCenter.Position(30), Abs(15))
	tu.AssertEqual(t, AlignEnd.Position(30), Abs(30))
	tu.AssertEqual(t, AlignStart.Max(AlignEnd), AlignEnd)
}
