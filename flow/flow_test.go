package flow

import (
	"bytes"
	"strings"
	"testing"

	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/inline"
	"github.com/typeflow/typeflow/logger"
	"github.com/typeflow/typeflow/region"
	tu "github.com/typeflow/typeflow/utils/testutils"
)

// testStyle measures 5pt per rune with the default rule measurer and has a
// line height of 12pt plus 2pt leading.
func testStyle() inline.Style {
	return inline.Style{FontSize: 10, Leading: 2, Dir: geom.LTR}
}

// fixedBlock always produces a frame of the same size.
type fixedBlock struct {
	size geom.Size
}

func (b fixedBlock) Layout(region.Region) (frame.Frame, error) {
	return frame.New(b.size), nil
}

// splitBlock fills each region it is given until its total height is used up.
type splitBlock struct {
	width, total geom.Abs
}

func (b splitBlock) Layout(r region.Region) (frame.Frame, error) {
	return frame.New(geom.Size{W: b.width, H: b.total.Min(r.Size.H)}), nil
}

func (b splitBlock) LayoutAcross(rs region.Regions) ([]frame.Frame, error) {
	var frames []frame.Frame
	remaining := b.total
	for _, h := range rs.Heights() {
		take := remaining.Min(h)
		frames = append(frames, frame.New(geom.Size{W: b.width, H: take}))
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	return frames, nil
}

// collectTexts returns all text runs of a frame tree, in paint order.
func collectTexts(f frame.Frame) []frame.Text {
	var out []frame.Text
	var walk func(f *frame.Frame)
	walk = func(f *frame.Frame) {
		for _, it := range f.Items() {
			switch c := it.Content.(type) {
			case frame.Group:
				walk(c.Frame)
			case frame.Text:
				out = append(out, c)
			}
		}
	}
	walk(&f)
	return out
}

// textPositions returns the absolute positions of all text runs.
func textPositions(f frame.Frame) []geom.Point {
	var out []geom.Point
	var walk func(f *frame.Frame, off geom.Point)
	walk = func(f *frame.Frame, off geom.Point) {
		for _, it := range f.Items() {
			pos := geom.Point{X: off.X + it.Pos.X, Y: off.Y + it.Pos.Y}
			switch c := it.Content.(type) {
			case frame.Group:
				walk(c.Frame, pos)
			case frame.Text:
				out = append(out, pos)
			}
		}
	}
	walk(&f, geom.Point{})
	return out
}

func hasTag(f frame.Frame, name string) bool {
	var found bool
	var walk func(f *frame.Frame)
	walk = func(f *frame.Frame) {
		for _, it := range f.Items() {
			switch c := it.Content.(type) {
			case frame.Group:
				walk(c.Frame)
			case frame.Tag:
				if c.Name == name {
					found = true
				}
			}
		}
	}
	walk(&f)
	return found
}

func hasFrameSized(f frame.Frame, size geom.Size) bool {
	var found bool
	var walk func(f *frame.Frame)
	walk = func(f *frame.Frame) {
		if f.Size() == size {
			found = true
			return
		}
		for _, it := range f.Items() {
			if g, ok := it.Content.(frame.Group); ok {
				walk(g.Frame)
			}
		}
	}
	walk(&f)
	return found
}

func TestLayoutSingleParagraph(t *testing.T) {
	elements := []Element{
		TagElem{Name: "anchor"},
		FlushElem{},
		ParElem{Text: "hello world", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 200}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)

	// One line of text, hugging its height.
	tu.AssertEqual(t, output[0].Size(), geom.Size{W: 100, H: 12})
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{{X: 0, Y: 10}})
	tu.AssertEqual(t, hasTag(output[0], "anchor"), true)
}

func TestLayoutWeakSpacingCollapses(t *testing.T) {
	elements := []Element{
		ParElem{Text: "aa", Style: testStyle()},
		VElem{Amount: Rel(10), Weak: true},
		VElem{Amount: Rel(20), Weak: true},
		ParElem{Text: "bb", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 200}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)

	// Adjacent weak spacing collapses to the larger amount; trailing weak
	// spacing is trimmed.
	tu.AssertEqual(t, output[0].Height(), geom.Abs(44))
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{
		{X: 0, Y: 10},
		{X: 0, Y: 42},
	})
}

func TestLayoutOrphanPrevention(t *testing.T) {
	// Four lines of four words each at a width of 100pt.
	text := strings.TrimRight(strings.Repeat("word ", 16), " ")
	elements := []Element{
		ParElem{Text: text, Style: testStyle(), Costs: DefaultCosts()},
	}
	// The first region fits one line but not two.
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 16},
		Full:    16,
		Backlog: []geom.Abs{100},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 2)

	// Orphan prevention moves the whole paragraph: the first region stays
	// empty rather than keeping a lone first line.
	tu.AssertEqual(t, output[0].Height(), geom.Abs(0))
	tu.AssertEqual(t, output[1].Height(), geom.Abs(54))
	tu.AssertEqual(t, len(collectTexts(output[1])), 4)
}

func TestLayoutWrapCutout(t *testing.T) {
	elements := []Element{
		WrapElem{Body: fixedBlock{size: geom.Size{W: 40, H: 20}}, Side: geom.Left, Clearance: 5},
		ParElem{Text: "aaaa bbbb cccc dddd eeee", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 200}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)
	tu.AssertEqual(t, output[0].Height(), geom.Abs(40))

	// The first two lines (at y 0 and 14, inside the cutout's range) are
	// narrowed by the wrap width plus clearance and pushed right; the third
	// flows at full width again.
	texts := collectTexts(output[0])
	tu.AssertEqual(t, len(texts), 3)
	tu.AssertEqual(t, texts[0].Width, geom.Abs(45))
	tu.AssertEqual(t, texts[1].Width, geom.Abs(45))
	tu.AssertEqual(t, texts[2].Width, geom.Abs(20))
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{
		{X: 45, Y: 10},
		{X: 45, Y: 24},
		{X: 0, Y: 38},
	})
}

func TestLayoutWrapDefaults(t *testing.T) {
	// At a reference size of 10pt, the wrap defaults to the end side with
	// 5pt of clearance: 55pt remain, so the 60pt text breaks in two lines
	// that both keep the start edge.
	elements := []Element{
		WrapElem{Body: fixedBlock{size: geom.Size{W: 40, H: 20}}},
		ParElem{Text: "aaaa bbbb cc", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 200}, region.Expand{})

	output, err := Layout(elements, regions, Options{FontSize: 10})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{
		{X: 0, Y: 10},
		{X: 0, Y: 24},
	})

	// The masthead defaults to the start side with one em of clearance,
	// pushing the text right by its width plus 10pt.
	elements = []Element{
		MastheadElem{Body: fixedBlock{size: geom.Size{W: 20, H: 20}}, Width: 30},
		ParElem{Text: "aaaa bbbb cc", Style: testStyle()},
	}
	output, err = Layout(elements, regions, Options{FontSize: 10})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{{X: 40, Y: 10}})
}

func TestLayoutWrapFitsRemainder(t *testing.T) {
	// 88pt remain after the first paragraph; the 80pt wrap plus clearance
	// fits exactly and must be placed here, not deferred to region two.
	elements := []Element{
		ParElem{Text: "aa", Style: testStyle()},
		WrapElem{Body: fixedBlock{size: geom.Size{W: 40, H: 80}}, Side: geom.Left, Clearance: 5},
		ParElem{Text: "bbbb cccc", Style: testStyle()},
	}
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 100},
		Full:    100,
		Backlog: []geom.Abs{100},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)
	tu.AssertEqual(t, hasFrameSized(output[0], geom.Size{W: 40, H: 80}), true)
}

func TestLayoutParagraphSpillAcrossCutout(t *testing.T) {
	// 15 words, broken once against the first region's cutout: the first
	// three lines (inside the cutout's range) hold two words, the rest four.
	text := strings.TrimRight(strings.Repeat("aaaa ", 15), " ")
	elements := []Element{
		WrapElem{Body: fixedBlock{size: geom.Size{W: 40, H: 24}}, Side: geom.Left, Clearance: 5},
		ParElem{Text: text, Style: testStyle()},
	}
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 30},
		Full:    30,
		Backlog: []geom.Abs{100},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 2)

	// Two narrowed lines fit next to the cutout in the first region.
	first := collectTexts(output[0])
	tu.AssertEqual(t, len(first), 2)
	tu.AssertEqual(t, first[0].Width, geom.Abs(45))
	tu.AssertEqual(t, first[1].Width, geom.Abs(45))

	// The spilled lines resume exactly as broken: the third line keeps its
	// narrowed width and offset even though the second region has no
	// cutouts, and the later lines were full width all along.
	second := collectTexts(output[1])
	tu.AssertEqual(t, len(second), 4)
	tu.AssertEqual(t, second[0].Width, geom.Abs(45))
	tu.AssertEqual(t, second[1].Width, geom.Abs(95))
	tu.AssertEqual(t, second[2].Width, geom.Abs(95))
	tu.AssertEqual(t, second[3].Width, geom.Abs(20))
	tu.AssertEqual(t, textPositions(output[1])[0], geom.Point{X: 45, Y: 10})

	// The slicing commits every word exactly once.
	words := 0
	for _, f := range output {
		for _, txt := range collectTexts(f) {
			words += len(strings.Fields(txt.Content))
		}
	}
	tu.AssertEqual(t, words, 15)
}

func TestLayoutMastheadClips(t *testing.T) {
	text := strings.TrimRight(strings.Repeat("aaaa ", 15), " ")
	elements := []Element{
		MastheadElem{
			Body:      fixedBlock{size: geom.Size{W: 30, H: 80}},
			Side:      geom.Right,
			Width:     25,
			Clearance: 5,
		},
		ParElem{Text: text, Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 50}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)

	// The masthead content is taller than the region and gets clipped to
	// the available height minus its clearance.
	tu.AssertEqual(t, hasFrameSized(output[0], geom.Size{W: 30, H: 45}), true)

	// The reserved column is the explicit width plus clearance: 70pt remain
	// for text on the left, so lines hold three words.
	texts := collectTexts(output[0])
	tu.AssertEqual(t, len(texts), 5)
	tu.AssertEqual(t, texts[0].Width, geom.Abs(70))

	// Content overflowing the region is clipped to the region height.
	tu.AssertEqual(t, output[0].Height(), geom.Abs(50))
}

func TestLayoutFloat(t *testing.T) {
	elements := []Element{
		PlaceElem{Body: fixedBlock{size: geom.Size{W: 100, H: 20}}, Float: true},
		ParElem{Text: "hello world", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 200}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)

	// The float reserves space at the top; the text starts below it.
	tu.AssertEqual(t, output[0].Height(), geom.Abs(32))
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{{X: 0, Y: 30}})
}

func TestLayoutColumns(t *testing.T) {
	elements := []Element{
		ParElem{Text: "aa", Style: testStyle()},
		ColbreakElem{},
		ParElem{Text: "bb", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 110, H: 100}, region.Expand{})

	output, err := Layout(elements, regions, Options{Columns: 2, ColumnGap: 10})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)

	// Two 50pt columns separated by the gap.
	items := output[0].Items()
	tu.AssertEqual(t, len(items), 2)
	tu.AssertEqual(t, items[0].Pos.X, geom.Abs(0))
	tu.AssertEqual(t, items[1].Pos.X, geom.Abs(60))
}

func TestLayoutColumnsRTL(t *testing.T) {
	elements := []Element{
		ParElem{Text: "aa", Style: testStyle()},
		ColbreakElem{},
		ParElem{Text: "bb", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 110, H: 100}, region.Expand{})

	output, err := Layout(elements, regions, Options{
		Dir: geom.RTL, Columns: 2, ColumnGap: 10,
	})
	tu.AssertEqual(t, err, nil)

	// The first column is on the physical right.
	items := output[0].Items()
	tu.AssertEqual(t, len(items), 2)
	tu.AssertEqual(t, items[0].Pos.X, geom.Abs(60))
	tu.AssertEqual(t, items[1].Pos.X, geom.Abs(0))
}

func TestLayoutBreakableBlock(t *testing.T) {
	elements := []Element{
		BlockElem{Body: splitBlock{width: 80, total: 150}, Breakable: true},
	}
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 100},
		Full:    100,
		Backlog: []geom.Abs{100},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 2)
	tu.AssertEqual(t, output[0].Height(), geom.Abs(100))
	tu.AssertEqual(t, output[1].Height(), geom.Abs(50))
}

func TestLayoutFrSpacing(t *testing.T) {
	elements := []Element{
		ParElem{Text: "aa", Style: testStyle()},
		VElem{Amount: Fr(1)},
		ParElem{Text: "bb", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 100}, region.Expand{Y: true})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)

	// Fractional spacing pushes the second paragraph to the bottom of the
	// expanded region.
	tu.AssertEqual(t, output[0].Height(), geom.Abs(100))
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{
		{X: 0, Y: 10},
		{X: 0, Y: 98},
	})
}

func TestLayoutStickyBlock(t *testing.T) {
	elements := []Element{
		BlockElem{Body: fixedBlock{size: geom.Size{W: 50, H: 12}}, Sticky: true},
		ParElem{Text: "hello world", Style: testStyle()},
	}
	// The block alone fits the first region, but the text does not: the
	// sticky block migrates along with it.
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 20},
		Full:    20,
		Backlog: []geom.Abs{100},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 2)
	tu.AssertEqual(t, output[0].Height(), geom.Abs(0))
	tu.AssertEqual(t, output[1].Height(), geom.Abs(24))
}

func TestLayoutPlacedValidation(t *testing.T) {
	center := geom.AlignCenter
	_, err := Layout([]Element{
		PlaceElem{Body: fixedBlock{}, Float: true, AlignY: &center},
	}, region.One(geom.Size{W: 100, H: 100}, region.Expand{}), Options{})
	if err == nil {
		t.Fatal("expected an error for a center-aligned float")
	}

	_, err = Layout([]Element{
		PlaceElem{Body: fixedBlock{}},
	}, region.One(geom.Size{W: 100, H: 100}, region.Expand{}), Options{})
	if err == nil {
		t.Fatal("expected an error for auto positioning without float")
	}
}

func TestLayoutAbsolutePlacement(t *testing.T) {
	bottom := geom.AlignEnd
	elements := []Element{
		PlaceElem{
			Body:   fixedBlock{size: geom.Size{W: 20, H: 10}},
			AlignX: geom.AlignEnd,
			AlignY: &bottom,
			Delta:  geom.Point{X: -5, Y: -5},
		},
		ParElem{Text: "hello world", Style: testStyle()},
	}
	regions := region.One(geom.Size{W: 100, H: 100}, region.Expand{Y: true})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)

	// The placed frame sits at the bottom right, shifted by its delta, and
	// does not take up flow space.
	tu.AssertEqual(t, hasFrameSized(output[0], geom.Size{W: 20, H: 10}), true)
	tu.AssertEqual(t, textPositions(output[0]), []geom.Point{{X: 0, Y: 10}})
}

func TestLayoutFloatQueueOrder(t *testing.T) {
	// The first float does not fit region one and waits in the queue; the
	// second, though it would fit, must not overtake it.
	elements := []Element{
		BlockElem{Body: fixedBlock{size: geom.Size{W: 100, H: 12}}},
		PlaceElem{Body: fixedBlock{size: geom.Size{W: 80, H: 95}}, Float: true},
		PlaceElem{Body: fixedBlock{size: geom.Size{W: 60, H: 10}}, Float: true},
	}
	regions := region.Regions{
		Size:    geom.Size{W: 100, H: 100},
		Full:    100,
		Backlog: []geom.Abs{200},
	}

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 2)

	// Region one holds only the block; both floats land in region two.
	tu.AssertEqual(t, hasFrameSized(output[0], geom.Size{W: 80, H: 95}), false)
	tu.AssertEqual(t, hasFrameSized(output[0], geom.Size{W: 60, H: 10}), false)
	tu.AssertEqual(t, hasFrameSized(output[1], geom.Size{W: 80, H: 95}), true)
	tu.AssertEqual(t, hasFrameSized(output[1], geom.Size{W: 60, H: 10}), true)
}

func TestLayoutRelayoutCapTerminates(t *testing.T) {
	var warnings bytes.Buffer
	prev := logger.WarningLogger.Writer()
	logger.WarningLogger.SetOutput(&warnings)
	defer logger.WarningLogger.SetOutput(prev)

	// Every wrap triggers one relayout of the column; the sixth exceeds the
	// cap. The loop must stop signalling and still deliver a usable layout.
	var elements []Element
	for i := 0; i < 6; i++ {
		elements = append(elements, WrapElem{
			Body: fixedBlock{size: geom.Size{W: 10, H: 10}}, Clearance: 5,
		})
	}
	elements = append(elements, ParElem{Text: "hello world", Style: testStyle()})
	regions := region.One(geom.Size{W: 100, H: 300}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)
	tu.AssertEqual(t, len(collectTexts(output[0])), 1)
	if !strings.Contains(warnings.String(), "did not converge") {
		t.Fatalf("expected a relayout cap warning, got %q", warnings.String())
	}
}

func TestLayoutOverflowDrops(t *testing.T) {
	var warnings bytes.Buffer
	prev := logger.WarningLogger.Writer()
	logger.WarningLogger.SetOutput(&warnings)
	defer logger.WarningLogger.SetOutput(prev)

	// The first block overfills the only region; the breakable block behind
	// it cannot be committed anywhere. The layout must still terminate.
	elements := []Element{
		BlockElem{Body: fixedBlock{size: geom.Size{W: 80, H: 60}}},
		BlockElem{Body: splitBlock{width: 80, total: 40}, Breakable: true},
	}
	regions := region.One(geom.Size{W: 100, H: 50}, region.Expand{})

	output, err := Layout(elements, regions, Options{})
	tu.AssertEqual(t, err, nil)
	tu.AssertEqual(t, len(output), 1)
	tu.AssertEqual(t, output[0].Height(), geom.Abs(50))
	if !strings.Contains(warnings.String(), "dropped") {
		t.Fatalf("expected a leftover warning, got %q", warnings.String())
	}
}
