package inline

import (
	"strings"

	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/region"
)

// Strategy selects how breakpoints are chosen.
type Strategy uint8

const (
	// StrategySimple fills lines first-fit against the width available at
	// each line's vertical position. Correct for variable widths.
	StrategySimple Strategy = iota
	// StrategyOptimized minimizes a global raggedness cost over the whole
	// paragraph. It assumes one fixed width: when the provider reports a
	// non-constant width, layout falls back to the simple strategy.
	StrategyOptimized
)

// Line is one broken line of a paragraph, ready for placement.
type Line struct {
	// Frame holds the line's text run. Its width is the measured text
	// width, its height the estimated line height.
	Frame frame.Frame
	// Offset is the physical left edge of the line within the region.
	// Alignment and cutout offsets are already folded in, so placement
	// code applies it unconditionally, whatever the text direction.
	Offset geom.Abs
}

// Layout breaks a paragraph into lines against the widths reported by the
// provider. Cumulative height starts at zero at the paragraph's first line
// and advances by the estimated line height plus leading per line.
func Layout(text string, style Style, m Measurer, provider region.WidthProvider, strategy Strategy) []Line {
	if strategy == StrategyOptimized && provider.IsConstant() {
		return layoutOptimized(text, style, m, provider.BaseWidth())
	}
	return layoutSimple(text, style, m, provider)
}

// segment is a run of text between two break opportunities. A line is a
// sequence of consecutive segments.
type segment struct {
	text string
	// full is the advance including trailing whitespace.
	full geom.Abs
	// trimmed is the advance with trailing whitespace removed. Whitespace
	// at a break vanishes, so fit tests use trimmed for the last segment.
	trimmed geom.Abs
}

// itemize splits a paragraph (without mandatory breaks) into segments.
func itemize(text string, style Style, m Measurer) []segment {
	runes := []rune(text)
	bps := Breakpoints(runes)

	segs := make([]segment, 0, len(bps)+1)
	prev := 0
	for _, bp := range append(bps, len(runes)) {
		if bp == prev {
			continue
		}
		piece := string(runes[prev:bp])
		seg := segment{
			text: piece,
			full: m.Advance(piece, style),
		}
		if trimmed := strings.TrimRight(piece, " \t"); trimmed == piece {
			seg.trimmed = seg.full
		} else {
			seg.trimmed = m.Advance(trimmed, style)
		}
		segs = append(segs, seg)
		prev = bp
	}
	return segs
}

func layoutSimple(text string, style Style, m Measurer, provider region.WidthProvider) []Line {
	var lines []Line
	var cum geom.Abs

	for _, chunk := range strings.Split(text, "\n") {
		segs := itemize(chunk, style, m)
		if len(segs) == 0 {
			// An empty chunk from a mandatory break still yields a line.
			info := provider.WidthAt(cum)
			lines = append(lines, buildLine(nil, style, info))
			cum += style.LineHeight() + style.Leading
			continue
		}

		info := provider.WidthAt(cum)
		var current []segment
		var fullSum geom.Abs
		for _, seg := range segs {
			// The first segment of a line always fits: anything else
			// could stall on widths narrower than a single word.
			if len(current) > 0 && !info.Fits(fullSum+seg.trimmed) {
				lines = append(lines, buildLine(current, style, info))
				cum += style.LineHeight() + style.Leading
				info = provider.WidthAt(cum)
				current = nil
				fullSum = 0
			}
			current = append(current, seg)
			fullSum += seg.full
		}
		lines = append(lines, buildLine(current, style, info))
		cum += style.LineHeight() + style.Leading
	}

	return lines
}

// layoutOptimized finds globally optimal breakpoints for one fixed width by
// minimizing the summed squared slack of all lines but the last.
func layoutOptimized(text string, style Style, m Measurer, width geom.Abs) []Line {
	var lines []Line
	info := region.FullWidth(width)

	for _, chunk := range strings.Split(text, "\n") {
		segs := itemize(chunk, style, m)
		if len(segs) == 0 {
			lines = append(lines, buildLine(nil, style, info))
			continue
		}
		for _, group := range optimalGroups(segs, width) {
			lines = append(lines, buildLine(group, style, info))
		}
	}

	return lines
}

const infCost = float64(1e30)

// optimalGroups partitions segments into lines minimizing total cost.
// cost[i] is the best cost of breaking segs[:i]; a line segs[j:i] is
// feasible if its trimmed width fits, or if it is a single segment
// (overlong words overflow rather than stall).
func optimalGroups(segs []segment, width geom.Abs) [][]segment {
	n := len(segs)
	cost := make([]float64, n+1)
	back := make([]int, n+1)
	for i := 1; i <= n; i++ {
		cost[i] = infCost
		var before geom.Abs
		for j := i - 1; j >= 0; j-- {
			// Width of segs[j:i] with the last segment trimmed.
			if j < i-1 {
				before += segs[j].full
			}
			w := before + segs[i-1].trimmed
			if !width.Fits(w) && i-j > 1 {
				break
			}
			var c float64
			if i < n {
				slack := (width - w).Pt()
				c = slack * slack
			}
			if total := cost[j] + c; total < cost[i] {
				cost[i] = total
				back[i] = j
			}
		}
	}

	var groups [][]segment
	for i := n; i > 0; i = back[i] {
		groups = append(groups, segs[back[i]:i])
	}
	// Reverse into document order.
	for l, r := 0, len(groups)-1; l < r; l, r = l+1, r-1 {
		groups[l], groups[r] = groups[r], groups[l]
	}
	return groups
}

func sumWidth(line []segment) geom.Abs {
	var w geom.Abs
	for i, seg := range line {
		if i == len(line)-1 {
			w += seg.trimmed
		} else {
			w += seg.full
		}
	}
	return w
}

// buildLine assembles a line frame and resolves its physical left offset
// from the width info and the paragraph alignment. This is the single place
// logical offsets become physical.
func buildLine(line []segment, style Style, info region.WidthInfo) Line {
	width := sumWidth(line)
	f := frame.New(geom.Size{W: width, H: style.LineHeight()})
	if len(line) > 0 {
		var sb strings.Builder
		for i, seg := range line {
			text := seg.text
			if i == len(line)-1 {
				text = strings.TrimRight(text, " \t")
			}
			sb.WriteString(text)
		}
		// The baseline sits at the estimated ascent.
		f.Push(geom.Point{Y: style.FontSize}, frame.Text{
			Content: sb.String(),
			Width:   width,
			Dir:     style.Dir,
		})
	}

	slack := (info.Available - width).Max(0)
	offset := info.StartOffset
	switch effectiveAlign(style) {
	case AlignCenter:
		offset += slack.Scale(0.5)
	case AlignEnd:
		offset += slack
	}

	return Line{Frame: f, Offset: offset}
}

// effectiveAlign maps the logical alignment to the physical one: in RTL,
// start means the right edge, so start and end swap.
func effectiveAlign(style Style) Align {
	if style.Dir == geom.RTL {
		switch style.Align {
		case AlignStart:
			return AlignEnd
		case AlignEnd:
			return AlignStart
		}
	}
	return style.Align
}
