// Package inline breaks paragraphs into lines. The breaker consults a width
// provider per line, so that text shrinks and shifts around region cutouts,
// and falls back to a single fixed width when nothing obstructs it.
package inline

import (
	"github.com/benoitkugler/textlayout/language"
	"golang.org/x/text/unicode/bidi"

	"github.com/typeflow/typeflow/geom"
)

// Align is the horizontal alignment of lines within the paragraph.
type Align uint8

const (
	// AlignStart aligns lines to the start of the text direction.
	AlignStart Align = iota
	// AlignCenter centers lines.
	AlignCenter
	// AlignEnd aligns lines to the end of the text direction.
	AlignEnd
)

// Style carries the text properties the breaker needs.
type Style struct {
	// FontSize is the text size in points.
	FontSize geom.Abs
	// Leading is the spacing between the lines of a paragraph.
	Leading geom.Abs
	// Lang is the language of the text, used for language dependent
	// segmentation rules.
	Lang language.Language
	// Dir is the dominant text direction.
	Dir geom.Dir
	// Align is the horizontal alignment of the lines.
	Align Align
}

// DefaultStyle returns a style with common body-text values.
func DefaultStyle() Style {
	return Style{
		FontSize: 11,
		Leading:  geom.Em(0.65).Resolve(11),
		Lang:     language.NewLanguage("en"),
		Dir:      geom.LTR,
	}
}

// LineHeight estimates the height of one line of text. The true height is
// only known after shaping; the estimate is good enough for the vertical
// positioning that width queries need.
func (s Style) LineHeight() geom.Abs {
	return s.FontSize.Scale(lineHeightFactor)
}

// Ascent and descent of common text faces add up to roughly this multiple
// of the font size.
const lineHeightFactor = 1.2

// DetectDir determines the dominant direction of a paragraph from its
// content: the first character with a strong bidirectional class decides,
// as in rule P2 of the Unicode bidirectional algorithm. Text without any
// strong character reads left to right.
func DetectDir(text string) geom.Dir {
	for i := 0; i < len(text); {
		props, size := bidi.LookupString(text[i:])
		if size == 0 {
			break
		}
		switch props.Class() {
		case bidi.L:
			return geom.LTR
		case bidi.R, bidi.AL:
			return geom.RTL
		}
		i += size
	}
	return geom.LTR
}
