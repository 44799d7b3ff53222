package inline

import (
	"testing"

	"github.com/go-text/typesetting/segmenter"

	"github.com/typeflow/typeflow/geom"
	tu "github.com/typeflow/typeflow/utils/testutils"
)

func TestBreakpoints(t *testing.T) {
	tu.AssertEqual(t, Breakpoints([]rune("foo bar baz")), []int{4, 8})
	tu.AssertEqual(t, Breakpoints([]rune("")), []int(nil))
	tu.AssertEqual(t, Breakpoints([]rune("a")), []int(nil))
	// Hyphens are break opportunities too.
	tu.AssertEqual(t, Breakpoints([]rune("well-known")), []int{5})
}

// Both segmentation engines implement UAX #14 and must agree on plain text.
func TestSegmentBreakpoints(t *testing.T) {
	var seg segmenter.Segmenter
	for _, text := range []string{
		"foo bar baz",
		"well-known",
		"a b c d",
	} {
		runes := []rune(text)
		tu.AssertEqual(t, SegmentBreakpoints(&seg, runes), Breakpoints(runes))
	}
}

func TestRuleMeasurer(t *testing.T) {
	m := NewRuleMeasurer()
	style := testStyle()
	tu.AssertEqual(t, m.Advance("abcd", style), geom.Abs(20))
	tu.AssertEqual(t, m.Advance("", style), geom.Abs(0))
	// Runes count, not bytes.
	tu.AssertEqual(t, m.Advance("éé", style), geom.Abs(10))
}
