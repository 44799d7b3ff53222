package inline

import (
	"github.com/benoitkugler/textprocessing/pango"
	"github.com/go-text/typesetting/segmenter"
)

// Breakpoints returns the rune indices before which a line may be broken,
// in increasing order, excluding 0 and len(text). Attributes follow the
// Unicode line breaking algorithm with language tailoring.
func Breakpoints(text []rune) []int {
	if len(text) < 2 {
		return nil
	}
	var out []int
	attrs := pango.ComputeCharacterAttributes(text, -1)
	for i := 1; i < len(text); i++ {
		if attrs[i].IsLineBreak() {
			out = append(out, i)
		}
	}
	return out
}

// SegmentBreakpoints computes the same break opportunities with the
// typesetting segmenter instead of the pango port. Both engines implement
// UAX #14 and agree on common text; this one is kept as the alternative for
// callers already holding a segmenter.
func SegmentBreakpoints(seg *segmenter.Segmenter, text []rune) []int {
	if len(text) < 2 {
		return nil
	}
	seg.Init(text)
	var out []int
	iter := seg.LineIterator()
	for iter.Next() {
		line := iter.Line()
		if end := line.Offset + len(line.Text); end < len(text) {
			out = append(out, end)
		}
	}
	return out
}
