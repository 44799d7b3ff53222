package flow

import (
	"errors"

	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/inline"
	"github.com/typeflow/typeflow/region"
)

// Weakness levels of collapsible spacing. Weaker (higher) levels collapse
// into stronger ones; equal levels take the maximum.
const (
	weaknessNone       uint8 = 0
	weaknessExplicit   uint8 = 1
	weaknessFrSpacing  uint8 = 2
	weaknessBlock      uint8 = 3
	weaknessParSpacing uint8 = 4
	weaknessLeading    uint8 = 5
)

// collect pre-processes flow elements into prepared children, which are
// simpler to distribute. When wrap or masthead elements are present, all
// paragraphs switch to deferred layout so their lines can be broken against
// the cutouts known at distribution time; otherwise they are laid out
// immediately at the full column width.
func collect(elements []Element, base geom.Size, opts *Options) ([]child, error) {
	deferred := false
	for _, elem := range elements {
		switch elem.(type) {
		case WrapElem, MastheadElem:
			deferred = true
		}
	}

	c := collector{
		base:     base,
		opts:     opts,
		deferred: deferred,
		alone:    len(elements) == 1,
		output:   make([]child, 0, len(elements)),
	}

	for _, elem := range elements {
		if err := c.element(elem); err != nil {
			return nil, err
		}
	}
	return c.output, nil
}

type collector struct {
	base     geom.Size
	opts     *Options
	deferred bool
	alone    bool
	output   []child
}

func (c *collector) element(elem Element) error {
	switch elem := elem.(type) {
	case TagElem:
		c.output = append(c.output, tagChild{name: elem.Name})
	case VElem:
		c.v(elem)
	case ParElem:
		c.par(elem)
	case BlockElem:
		return c.block(elem)
	case PlaceElem:
		return c.place(elem)
	case WrapElem:
		c.output = append(c.output, &wrapChild{
			side:      region.ResolveSide(defaultSide(elem.Side, geom.End), c.opts.Dir),
			scope:     elem.Scope,
			clearance: c.defaultClearance(elem.Clearance, 0.5),
			body:      elem.Body,
		})
	case MastheadElem:
		c.output = append(c.output, &mastheadChild{
			side:      region.ResolveSide(defaultSide(elem.Side, geom.Start), c.opts.Dir),
			scope:     elem.Scope,
			clearance: c.defaultClearance(elem.Clearance, 1),
			width:     elem.Width,
			overflow:  elem.Overflow,
			body:      elem.Body,
		})
	case FlushElem:
		c.output = append(c.output, flushChild{})
	case ColbreakElem:
		c.output = append(c.output, breakChild{weak: elem.Weak})
	default:
		return errors.New("flow: unknown element kind")
	}
	return nil
}

// defaultSide resolves an unset side to the element's default.
func defaultSide(side, fallback geom.Side) geom.Side {
	if side == geom.SideAuto {
		return fallback
	}
	return side
}

// defaultClearance resolves an unset clearance to a font-relative default.
func (c *collector) defaultClearance(clearance geom.Abs, em geom.Em) geom.Abs {
	if clearance == 0 {
		return em.Resolve(c.opts.fontSize())
	}
	return clearance
}

// v collects explicit vertical spacing.
func (c *collector) v(elem VElem) {
	var weakness uint8
	if elem.Weak {
		weakness = weaknessExplicit
	}
	switch amount := elem.Amount.(type) {
	case Rel:
		c.output = append(c.output, relChild{amount: geom.Abs(amount), weakness: weakness})
	case Fr:
		c.output = append(c.output, frChild{fr: geom.Fr(amount), weakness: weakness})
	}
}

// par collects a paragraph, either deferring its layout to distribution
// time (when cutouts may affect it) or breaking it immediately.
func (c *collector) par(elem ParElem) {
	spacing := elem.Spacing
	if spacing == 0 {
		spacing = c.opts.ParSpacing
	}

	if c.deferred {
		c.output = append(c.output, &parChild{
			text:     elem.Text,
			style:    elem.Style,
			costs:    elem.Costs,
			strategy: elem.Strategy,
			base:     c.base,
			measurer: c.opts.measurer(),
			spacing:  spacing,
			leading:  elem.Style.Leading,
		})
		return
	}

	provider := region.NewConstantWidth(c.base.W)
	lines := inline.Layout(elem.Text, elem.Style, c.opts.measurer(), provider, elem.Strategy)
	frames := lineFrames(lines)

	c.output = append(c.output, relChild{amount: spacing, weakness: weaknessParSpacing})
	c.lines(frames, elem.Style.Leading, elem.Costs)
	c.output = append(c.output, relChild{amount: spacing, weakness: weaknessParSpacing})
}

// lineFrames bakes each line's physical left offset into a container frame,
// so that downstream placement can treat lines like any other frame.
func lineFrames(lines []inline.Line) []frame.Frame {
	frames := make([]frame.Frame, len(lines))
	for i, line := range lines {
		size := line.Frame.Size()
		f := frame.New(geom.Size{W: line.Offset + size.W, H: size.H})
		if !line.Frame.IsEmpty() {
			f.PushFrame(geom.Point{X: line.Offset}, line.Frame)
		}
		frames[i] = f
	}
	return frames
}

// lines collects already laid-out lines, attaching the space each one needs
// for widow and orphan prevention.
func (c *collector) lines(frames []frame.Frame, leading geom.Abs, costs Costs) {
	needs := lineNeeds(frames, leading, costs)
	for i, f := range frames {
		if i > 0 {
			c.output = append(c.output, relChild{amount: leading, weakness: weaknessLeading})
		}
		c.output = append(c.output, &lineChild{frame: f, need: needs[i]})
	}
}

// lineNeeds computes, per line, the vertical space that must be available
// for the line to be committed: orphan prevention requires the first two
// lines together, widow prevention the last two, and a three line paragraph
// with both rules all three.
func lineNeeds(frames []frame.Frame, leading geom.Abs, costs Costs) []geom.Abs {
	n := len(frames)
	heightAt := func(i int) geom.Abs {
		if i < 0 || i >= n {
			return 0
		}
		return frames[i].Height()
	}

	preventOrphans := costs.Orphan > 0 && n >= 2 && !frames[1].IsEmpty()
	preventWidows := costs.Widow > 0 && n >= 2 && !frames[n-2].IsEmpty()
	preventAll := n == 3 && preventOrphans && preventWidows

	front1 := heightAt(0)
	front2 := heightAt(1)
	back2 := heightAt(n - 2)
	back1 := heightAt(n - 1)

	needs := make([]geom.Abs, n)
	for i := range frames {
		switch {
		case preventAll && i == 0:
			needs[i] = front1 + leading + front2 + leading + back1
		case preventOrphans && i == 0:
			needs[i] = front1 + leading + front2
		case preventWidows && i >= 2 && i+2 == n:
			needs[i] = back2 + leading + back1
		default:
			needs[i] = frames[i].Height()
		}
	}
	return needs
}

// block collects an opaque block with its surrounding spacing.
func (c *collector) block(elem BlockElem) error {
	spacing := func(s Spacing) child {
		switch s := s.(type) {
		case Rel:
			return relChild{amount: geom.Abs(s), weakness: weaknessBlock}
		case Fr:
			return frChild{fr: geom.Fr(s), weakness: weaknessFrSpacing}
		default:
			return relChild{amount: c.opts.ParSpacing, weakness: weaknessParSpacing}
		}
	}

	c.output = append(c.output, spacing(elem.Above))

	if !elem.Breakable || elem.HeightFr != nil {
		c.output = append(c.output, &singleChild{
			align:  elem.Align,
			sticky: elem.Sticky,
			alone:  c.alone,
			fr:     elem.HeightFr,
			body:   elem.Body,
		})
	} else {
		multi, ok := elem.Body.(MultiLayouter)
		if !ok {
			return errors.New("flow: breakable block body must implement MultiLayouter")
		}
		c.output = append(c.output, &multiChild{
			align:  elem.Align,
			sticky: elem.Sticky,
			alone:  c.alone,
			body:   multi,
		})
	}

	c.output = append(c.output, spacing(elem.Below))
	return nil
}

// place collects an absolutely or floatingly placed element.
func (c *collector) place(elem PlaceElem) error {
	if elem.Float && elem.AlignY != nil && *elem.AlignY == geom.AlignCenter {
		return errors.New("flow: vertical floating placement must be auto, top, or bottom")
	}
	if !elem.Float && elem.AlignY == nil {
		return errors.New("flow: automatic positioning is only available for floating placement")
	}
	if !elem.Float && elem.Scope == ScopeParent {
		return errors.New("flow: parent-scoped positioning is only available for floating placement")
	}

	c.output = append(c.output, &placedChild{
		alignX:    elem.AlignX,
		alignY:    elem.AlignY,
		scope:     elem.Scope,
		float:     elem.Float,
		clearance: elem.Clearance,
		delta:     elem.Delta,
		body:      elem.Body,
	})
	return nil
}

// child is a prepared child of the flow.
type child interface{ isChild() }

type tagChild struct {
	name string
}

// relChild is absolute spacing with a weakness level.
type relChild struct {
	amount   geom.Abs
	weakness uint8
}

// frChild is fractional spacing with a weakness level.
type frChild struct {
	fr       geom.Fr
	weakness uint8
}

// lineChild is an already laid-out line of a paragraph.
type lineChild struct {
	frame frame.Frame
	need  geom.Abs
}

// parChild is a paragraph whose layout is deferred to distribution time,
// when the cutouts that affect it are known.
type parChild struct {
	text     string
	style    inline.Style
	costs    Costs
	strategy inline.Strategy
	base     geom.Size
	measurer inline.Measurer
	spacing  geom.Abs
	leading  geom.Abs
	cell     cachedCell[[]frame.Frame]
}

// layout breaks the paragraph against the given cutouts, with yOffset being
// the paragraph's starting position within the region. The result is cached
// against the inputs, so the repeated layouts of the relayout loop are free
// once the cutouts converge.
func (p *parChild) layout(cutouts []region.Cutout, yOffset geom.Abs) []frame.Frame {
	key := hashParInput(p.base.W, cutouts, yOffset)
	return p.cell.getOrInit(key, func() []frame.Frame {
		var provider region.WidthProvider
		if len(cutouts) == 0 {
			provider = region.NewConstantWidth(p.base.W)
		} else {
			provider = region.NewCutoutWidth(p.base.W, cutouts, yOffset, p.style.Dir)
		}
		lines := inline.Layout(p.text, p.style, p.measurer, provider, p.strategy)
		return lineFrames(lines)
	})
}

// singleChild is a prepared unbreakable block.
type singleChild struct {
	align  geom.Align
	sticky bool
	alone  bool
	fr     *geom.Fr
	body   Layouter
	cell   cachedCell[layoutResult]
}

// layout builds the block's frame for the given region.
func (s *singleChild) layout(r region.Region) (frame.Frame, error) {
	// Vertical expansion is only kept if this block is the only child.
	r.Expand.Y = r.Expand.Y && s.alone
	res := s.cell.getOrInit(hashRegion(r), func() layoutResult {
		f, err := s.body.Layout(r)
		return layoutResult{frames: []frame.Frame{f}, err: err}
	})
	if res.err != nil {
		return frame.Frame{}, res.err
	}
	return res.frames[0], nil
}

// multiChild is a prepared breakable block.
type multiChild struct {
	align  geom.Align
	sticky bool
	alone  bool
	body   MultiLayouter
	cell   cachedCell[layoutResult]
}

// layout builds the block's frames for the given regions, returning the
// first frame and, if the block broke, a spill for the rest.
func (m *multiChild) layout(regions region.Regions) (frame.Frame, *multiSpill, error) {
	frames, err := m.layoutFull(regions)
	if err != nil {
		return frame.Frame{}, nil, err
	}

	someNonEmpty := false
	for _, f := range frames {
		if !f.IsEmpty() {
			someNonEmpty = true
			break
		}
	}

	first := frames[0]
	var spill *multiSpill
	if len(frames) > 1 {
		spill = &multiSpill{
			someNonEmpty:  someNonEmpty,
			multi:         m,
			first:         regions.Size.H,
			full:          regions.Full,
			minBacklogLen: len(regions.Backlog),
		}
	}
	return first, spill, nil
}

func (m *multiChild) layoutFull(regions region.Regions) ([]frame.Frame, error) {
	regions.Expand.Y = regions.Expand.Y && m.alone
	res := m.cell.getOrInit(hashRegions(regions), func() layoutResult {
		frames, err := m.body.LayoutAcross(regions)
		if err == nil && len(frames) == 0 {
			frames = []frame.Frame{frame.New(geom.Size{})}
		}
		return layoutResult{frames: frames, err: err}
	})
	return res.frames, res.err
}

// multiSpill is the remainder of a breakable block that did not fit its
// first region. Each region it passes through is committed to its backlog,
// so re-layout always reproduces the already-placed frames exactly.
type multiSpill struct {
	someNonEmpty  bool
	multi         *multiChild
	first         geom.Abs
	full          geom.Abs
	backlog       []geom.Abs
	minBacklogLen int
}

// layout continues the block in the given regions, returning the next frame
// and the remaining spill, if any.
func (s *multiSpill) layout(regions region.Regions) (frame.Frame, *multiSpill, error) {
	// The first region becomes unchangeable and committed to the backlog.
	s.backlog = append(s.backlog, regions.Size.H)

	// The remaining regions are ephemeral and may be replaced.
	backlog := make([]geom.Abs, 0, len(s.backlog)+len(regions.Backlog))
	backlog = append(backlog, s.backlog...)
	backlog = append(backlog, regions.Backlog...)

	// Drop trailing entries equal to the repeating last height so the
	// backlog (and with it the cache key) does not grow without bound.
	for len(backlog) > s.minBacklogLen && regions.Last != nil &&
		backlog[len(backlog)-1] == *regions.Last {
		backlog = backlog[:len(backlog)-1]
	}
	if len(backlog) > s.minBacklogLen {
		s.minBacklogLen = len(backlog)
	}

	pod := region.Regions{
		Size:    geom.Size{W: regions.Size.W, H: s.first},
		Full:    s.full,
		Backlog: backlog,
		Last:    regions.Last,
		Expand:  regions.Expand,
	}

	frames, err := s.multi.layoutFull(pod)
	if err != nil {
		return frame.Frame{}, nil, err
	}

	// Skip the frames that previous regions already consumed.
	rest := frames[min(len(s.backlog), len(frames)-1):]
	next := rest[0]
	if len(rest) > 1 {
		return next, s, nil
	}
	return next, nil, nil
}

func (s *multiSpill) align() geom.Align { return s.multi.align }

// parSpill is the remainder of a deferred paragraph that broke across
// regions: the unplaced line frames plus everything needed to keep
// committing them with the same logic. The frames stay exactly as broken in
// the region the paragraph started in, so the slicing can never duplicate
// or drop a line.
type parSpill struct {
	frames  []frame.Frame
	leading geom.Abs
	costs   Costs
	spacing geom.Abs
}

// placedChild is a prepared placed element.
type placedChild struct {
	alignX    geom.FixedAlign
	alignY    *geom.FixedAlign
	scope     Scope
	float     bool
	clearance geom.Abs
	delta     geom.Point
	body      Layouter
	cell      cachedCell[layoutResult]
}

// layout builds the placed element's frame given the base size it is
// positioned in.
func (p *placedChild) layout(base geom.Size) (frame.Frame, error) {
	res := p.cell.getOrInit(hashSize(base), func() layoutResult {
		f, err := p.body.Layout(region.NewRegion(base, region.Expand{}))
		return layoutResult{frames: []frame.Frame{f}, err: err}
	})
	if res.err != nil {
		return frame.Frame{}, res.err
	}
	return res.frames[0], nil
}

// wrapChild is a prepared wrap element.
type wrapChild struct {
	side      region.CutoutSide
	scope     Scope
	clearance geom.Abs
	body      Layouter
	cell      cachedCell[layoutResult]
}

func (w *wrapChild) layout(base geom.Size) (frame.Frame, error) {
	res := w.cell.getOrInit(hashSize(base), func() layoutResult {
		f, err := w.body.Layout(region.NewRegion(base, region.Expand{}))
		return layoutResult{frames: []frame.Frame{f}, err: err}
	})
	if res.err != nil {
		return frame.Frame{}, res.err
	}
	return res.frames[0], nil
}

// mastheadChild is a prepared masthead element. Its body is constrained to
// the explicit width, and the cutout reserves that width regardless of how
// wide the content actually is.
type mastheadChild struct {
	side      region.CutoutSide
	scope     Scope
	clearance geom.Abs
	width     geom.Abs
	overflow  Overflow
	body      Layouter
	cell      cachedCell[layoutResult]
}

func (m *mastheadChild) layout(base geom.Size) (frame.Frame, error) {
	constrained := geom.Size{W: m.width, H: base.H}
	res := m.cell.getOrInit(hashSize(constrained), func() layoutResult {
		f, err := m.body.Layout(region.NewRegion(constrained, region.Expand{}))
		return layoutResult{frames: []frame.Frame{f}, err: err}
	})
	if res.err != nil {
		return frame.Frame{}, res.err
	}
	return res.frames[0], nil
}

type flushChild struct{}

type breakChild struct {
	weak bool
}

func (tagChild) isChild()       {}
func (relChild) isChild()       {}
func (frChild) isChild()        {}
func (*lineChild) isChild()     {}
func (*parChild) isChild()      {}
func (*singleChild) isChild()   {}
func (*multiChild) isChild()    {}
func (*placedChild) isChild()   {}
func (*wrapChild) isChild()     {}
func (*mastheadChild) isChild() {}
func (flushChild) isChild()     {}
func (breakChild) isChild()     {}

// layoutResult pairs frames with a layout error for caching.
type layoutResult struct {
	frames []frame.Frame
	err    error
}
