package inline

import (
	"bytes"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/typeflow/typeflow/geom"
)

// ShapedMeasurer measures text by shaping it against a real font,
// summing the glyph advances. It is not safe for concurrent use: the
// underlying shaper keeps an internal buffer.
type ShapedMeasurer struct {
	face   *font.Face
	shaper shaping.HarfbuzzShaper
}

// NewShapedMeasurer parses font data (TTF/OTF) and returns a measurer
// shaping against it.
func NewShapedMeasurer(fontData []byte) (*ShapedMeasurer, error) {
	face, err := font.ParseTTF(bytes.NewReader(fontData))
	if err != nil {
		return nil, err
	}
	out := &ShapedMeasurer{face: face}
	out.shaper.SetFontCacheSize(64)
	return out, nil
}

func (m *ShapedMeasurer) Advance(text string, style Style) geom.Abs {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}

	output := m.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: mapDirection(style.Dir),
		Face:      m.face,
		Size:      fixed.Int26_6(style.FontSize.Pt() * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage(string(style.Lang)),
	})

	var advance fixed.Int26_6
	for _, g := range output.Glyphs {
		advance += g.XAdvance
	}
	return geom.Abs(float64(advance) / 64)
}

func mapDirection(d geom.Dir) di.Direction {
	switch d {
	case geom.RTL:
		return di.DirectionRTL
	case geom.TTB:
		return di.DirectionTTB
	case geom.BTT:
		return di.DirectionBTT
	default:
		return di.DirectionLTR
	}
}

// detectScript returns the script of the first non-space rune. Mixed-script
// text should be split into runs before measuring.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
