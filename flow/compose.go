package flow

import (
	"errors"

	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/logger"
	"github.com/typeflow/typeflow/region"
)

// relayoutCap bounds the relayout iterations per column and per region.
// Each iteration only ever adds cutouts and insertions, so convergence is
// the norm; the cap guards against a policy that could oscillate.
const relayoutCap = 5

// stopFinish signals that the current region is finished. Forced finishes
// come from explicit breaks and the natural end of the flow.
type stopFinish struct {
	forced bool
}

func (stopFinish) Error() string { return "flow: region finished" }

// stopRelayout signals that an insertion changed the area available to the
// given scope, which must be distributed again.
type stopRelayout struct {
	scope Scope
}

func (stopRelayout) Error() string { return "flow: relayout required" }

// workState is the shared work queue of a flow layout run: the children not
// yet fully processed, queued insertions waiting for the next region, and
// spills of broken children.
type workState struct {
	children []child
	tags     []string
	queued   []child
	spill    *multiSpill
	parSpill *parSpill
}

func newWork(children []child) *workState {
	return &workState{children: children}
}

func (w *workState) head() child {
	if len(w.children) == 0 {
		return nil
	}
	return w.children[0]
}

func (w *workState) advance() {
	w.children = w.children[1:]
}

func (w *workState) done() bool {
	return len(w.children) == 0 && len(w.queued) == 0 &&
		w.spill == nil && w.parSpill == nil
}

// takeQueued removes and returns the queued insertions.
func (w *workState) takeQueued() []child {
	q := w.queued
	w.queued = nil
	return q
}

// clone snapshots the work state so a relayout or sticky migration can
// restore it. Mutable innards are copied.
func (w *workState) clone() workState {
	out := *w
	out.tags = append([]string(nil), w.tags...)
	out.queued = append([]child(nil), w.queued...)
	if w.spill != nil {
		spill := *w.spill
		spill.backlog = append([]geom.Abs(nil), w.spill.backlog...)
		out.spill = &spill
	}
	if w.parSpill != nil {
		spill := *w.parSpill
		spill.frames = append([]frame.Frame(nil), w.parSpill.frames...)
		out.parSpill = &spill
	}
	return out
}

// insertion is a frame the composer committed outside the normal flow:
// a placed float or the content of a wrap or masthead.
type insertion struct {
	frame frame.Frame
	pos   geom.Point
	// atTop/atBottom mark float insertions whose final vertical position
	// is only known at assembly.
	atTop, atBottom bool
}

// composer owns the per-region state the distributor cannot: the active
// cutouts, the committed insertions, and the identity of the children it
// already handled. All of it belongs to the single pass laying out the
// region; nothing here is shared across regions except through workState.
type composer struct {
	work *workState
	opts *Options

	// regionBase is the full region size, columnBase one column's size.
	regionBase geom.Size
	columnBase geom.Size

	// columnX is the physical left edge of the column currently being
	// distributed, in region coordinates.
	columnX geom.Abs

	// parentCutouts live for the whole region; columnCutouts are cleared
	// at every column boundary. Both use distribution coordinates
	// (y zero at the top of the distributed content, below top floats).
	parentCutouts []region.Cutout
	columnCutouts []region.Cutout

	// Committed insertions. Parent insertions are positioned in region
	// coordinates, column insertions in the current column's coordinates.
	parentInsertions []insertion
	columnInsertions []insertion

	// Space reserved by floats in the current column and the region.
	floatTop, floatBottom             geom.Abs
	regionFloatTop, regionFloatBottom geom.Abs

	// handled tracks children already committed in this region (and the
	// scope they were committed to), so that relayout iterations do not
	// duplicate their cutouts or frames.
	handled map[child]Scope

	// relayoutDisabled suppresses further relayout signals once the cap
	// is reached; insertions still commit.
	relayoutDisabled bool
}

// cutouts returns the cutout set the current column's text must respect:
// its own cutouts plus the parent-scope ones translated into the column's
// horizontal coordinate space.
func (c *composer) cutouts() []region.Cutout {
	if len(c.parentCutouts) == 0 {
		return c.columnCutouts
	}
	out := make([]region.Cutout, 0, len(c.columnCutouts)+len(c.parentCutouts))
	out = append(out, c.columnCutouts...)
	for _, cut := range c.parentCutouts {
		if translated, ok := c.translateParentCutout(cut); ok {
			out = append(out, translated)
		}
	}
	return out
}

// translateParentCutout maps a region-wide cutout to the current column:
// only the part that horizontally reaches into the column reduces it.
func (c *composer) translateParentCutout(cut region.Cutout) (region.Cutout, bool) {
	extent := cut.TotalWidth()
	var distance geom.Abs
	if cut.Side.IsLeft(c.opts.Dir) {
		distance = c.columnX
	} else {
		distance = c.regionBase.W - (c.columnX + c.columnBase.W)
	}
	reach := (extent - distance).Max(0).Min(c.columnBase.W)
	if reach <= 0 {
		return region.Cutout{}, false
	}
	cut.Width = reach
	cut.Clearance = 0
	return cut, true
}

// insertionWidth is the widest committed insertion in the current column,
// considered for alignment when the region does not expand horizontally.
func (c *composer) insertionWidth() geom.Abs {
	var w geom.Abs
	for _, ins := range c.columnInsertions {
		w = w.Max(ins.frame.Width())
	}
	return w
}

// composeRegion lays out one region: its columns are distributed in order,
// with parent-scoped insertions triggering a relayout of the whole region.
func composeRegion(work *workState, regions region.Regions, opts *Options) (frame.Frame, error) {
	c := &composer{
		work:       work,
		opts:       opts,
		regionBase: regions.Base(),
		columnBase: columnSize(regions.Base(), opts),
		handled:    make(map[child]Scope),
	}

	snapshot := work.clone()
	for attempt := 0; ; attempt++ {
		f, err := c.columns(regions)
		var relayout stopRelayout
		if !errors.As(err, &relayout) {
			return f, err
		}
		// A parent-scoped insertion invalidates the whole region. The
		// insertion itself is kept: the cutout set only grows. Column
		// commitments were baked into the discarded column frames, so
		// their children must be handled again.
		*c.work = snapshot.clone()
		for ch, scope := range c.handled {
			if scope == ScopeColumn {
				delete(c.handled, ch)
			}
		}
		if attempt+1 >= relayoutCap {
			logger.WarningLogger.Printf(
				"region relayout did not converge after %d iterations; keeping current layout", relayoutCap)
			c.relayoutDisabled = true
		}
	}
}

// columns distributes the region's columns along the text direction and
// assembles the final region frame.
func (c *composer) columns(regions region.Regions) (frame.Frame, error) {
	n := c.opts.columns()
	colWidth := c.columnBase.W

	type laidColumn struct {
		frame frame.Frame
		x     geom.Abs
	}
	var laid []laidColumn

	innerHeight := regions.Size.H - c.regionFloatTop - c.regionFloatBottom
	var usedHeight geom.Abs
	for i := 0; i < n; i++ {
		x := geom.Abs(float64(i)) * (colWidth + c.opts.ColumnGap)
		if c.opts.Dir == geom.RTL {
			x = regions.Size.W - colWidth - x
		}
		c.columnX = x

		columnRegions := c.columnRegions(regions, innerHeight, i, n)
		f, err := c.composeColumn(columnRegions)
		if err != nil {
			return frame.Frame{}, err
		}
		usedHeight = usedHeight.Max(f.Height())
		laid = append(laid, laidColumn{frame: f, x: x})

		if c.work.done() {
			break
		}
	}

	height := usedHeight + c.regionFloatTop + c.regionFloatBottom
	if regions.Expand.Y && regions.Size.H.IsFinite() {
		height = regions.Size.H
	}
	output := frame.New(geom.Size{W: regions.Size.W, H: height})

	var top geom.Abs
	for _, ins := range c.parentInsertions {
		if ins.atTop {
			output.PushFrame(geom.Point{X: ins.pos.X, Y: top}, ins.frame)
			top += ins.frame.Height()
		}
	}
	for _, col := range laid {
		output.PushFrame(geom.Point{X: col.x, Y: c.regionFloatTop}, col.frame)
	}
	bottom := height - c.regionFloatBottom
	for _, ins := range c.parentInsertions {
		if ins.atBottom {
			output.PushFrame(geom.Point{X: ins.pos.X, Y: bottom}, ins.frame)
			bottom += ins.frame.Height()
		}
	}
	for _, ins := range c.parentInsertions {
		if !ins.atTop && !ins.atBottom {
			// Wrap and masthead frames use distribution coordinates.
			output.PushFrame(geom.Point{X: ins.pos.X, Y: ins.pos.Y + c.regionFloatTop}, ins.frame)
		}
	}

	return output, nil
}

// columnRegions builds the region sequence one column sees: the remaining
// columns of this region, then everything the surrounding regions offer.
func (c *composer) columnRegions(regions region.Regions, innerHeight geom.Abs, i, n int) region.Regions {
	backlog := make([]geom.Abs, 0, (n-1-i)+len(regions.Backlog))
	for k := i + 1; k < n; k++ {
		backlog = append(backlog, innerHeight)
	}
	backlog = append(backlog, regions.Backlog...)
	return region.Regions{
		Size:    geom.Size{W: c.columnBase.W, H: innerHeight},
		Full:    innerHeight,
		Backlog: backlog,
		Last:    regions.Last,
		Expand:  regions.Expand,
	}
}

// composeColumn distributes one column, looping on column-scoped relayout
// signals until the cutout set converges.
func (c *composer) composeColumn(regions region.Regions) (frame.Frame, error) {
	c.columnCutouts = nil
	c.columnInsertions = nil
	c.floatTop, c.floatBottom = 0, 0

	snapshot := c.work.clone()
	for attempt := 0; ; attempt++ {
		inner := regions
		inner.Size.H -= c.floatTop + c.floatBottom
		inner.Full = inner.Size.H

		f, err := distribute(c, inner)
		var relayout stopRelayout
		if errors.As(err, &relayout) {
			if relayout.scope == ScopeParent {
				return frame.Frame{}, err
			}
			*c.work = snapshot.clone()
			if attempt+1 >= relayoutCap {
				logger.WarningLogger.Printf(
					"column relayout did not converge after %d iterations; keeping current layout", relayoutCap)
				c.relayoutDisabled = true
			}
			continue
		}
		if err != nil {
			return frame.Frame{}, err
		}
		return c.assembleColumn(f, regions), nil
	}
}

// assembleColumn stacks the column's float insertions around the
// distributed content and overlays the wrap and masthead frames.
func (c *composer) assembleColumn(distributed frame.Frame, regions region.Regions) frame.Frame {
	height := distributed.Height() + c.floatTop + c.floatBottom
	if regions.Expand.Y && regions.Size.H.IsFinite() {
		height = regions.Size.H
	}
	out := frame.New(geom.Size{W: c.columnBase.W, H: height})

	var top geom.Abs
	for _, ins := range c.columnInsertions {
		if ins.atTop {
			out.PushFrame(geom.Point{X: ins.pos.X, Y: top}, ins.frame)
			top += ins.frame.Height()
		}
	}

	out.PushFrame(geom.Point{Y: c.floatTop}, distributed)

	bottom := height - c.floatBottom
	for _, ins := range c.columnInsertions {
		if ins.atBottom {
			out.PushFrame(geom.Point{X: ins.pos.X, Y: bottom}, ins.frame)
			bottom += ins.frame.Height()
		}
	}

	for _, ins := range c.columnInsertions {
		if !ins.atTop && !ins.atBottom {
			out.PushFrame(geom.Point{X: ins.pos.X, Y: ins.pos.Y + c.floatTop}, ins.frame)
		}
	}

	return out
}

// queueBlocked reports whether an earlier float targeting the same side and
// scope is still waiting in the queue. Placing ch now would reorder it past
// the queued one; it must join the queue instead.
func (c *composer) queueBlocked(ch child) bool {
	key, ok := floatKeyOf(ch)
	if !ok {
		return false
	}
	for _, q := range c.work.queued {
		if qKey, ok := floatKeyOf(q); ok && qKey == key {
			return true
		}
	}
	return false
}

// floatKey identifies the target a float competes for: placed floats contend
// per scope, wrap and masthead cutouts per side and scope.
type floatKey struct {
	scope   Scope
	side    region.CutoutSide
	hasSide bool
}

func floatKeyOf(ch child) (floatKey, bool) {
	switch ch := ch.(type) {
	case *placedChild:
		if !ch.float {
			return floatKey{}, false
		}
		return floatKey{scope: ch.scope}, true
	case *wrapChild:
		return floatKey{scope: ch.scope, side: ch.side, hasSide: true}, true
	case *mastheadChild:
		return floatKey{scope: ch.scope, side: ch.side, hasSide: true}, true
	}
	return floatKey{}, false
}

// float handles a floatingly placed child: it either commits it to the top
// or bottom of the target scope and signals relayout, or queues it for the
// next region when it cannot fit yet.
func (c *composer) float(placed *placedChild, regions *region.Regions, clearanceNeeded bool) error {
	if _, done := c.handled[placed]; done {
		return nil
	}
	if c.queueBlocked(placed) {
		c.work.queued = append(c.work.queued, placed)
		return nil
	}

	base := c.columnBase
	if placed.scope == ScopeParent {
		base = c.regionBase
	}

	f, err := placed.layout(base)
	if err != nil {
		return err
	}

	clearance := placed.clearance
	if !clearanceNeeded {
		clearance = 0
	}
	needed := f.Height() + clearance

	// Without room in this region, try again in the next one, preserving
	// document order among queued floats.
	if !regions.Size.H.Fits(needed) && regions.MayProgress() {
		c.work.queued = append(c.work.queued, placed)
		return nil
	}

	atTop := c.floatAtTop(placed)
	ins := insertion{
		frame:    f,
		pos:      geom.Point{X: placed.alignX.Position(base.W - f.Width())},
		atTop:    atTop,
		atBottom: !atTop,
	}
	if placed.scope == ScopeParent {
		c.parentInsertions = append(c.parentInsertions, ins)
		if atTop {
			c.regionFloatTop += needed
		} else {
			c.regionFloatBottom += needed
		}
	} else {
		c.columnInsertions = append(c.columnInsertions, ins)
		if atTop {
			c.floatTop += needed
		} else {
			c.floatBottom += needed
		}
	}

	c.handled[placed] = placed.scope
	if c.relayoutDisabled {
		return nil
	}
	return stopRelayout{scope: placed.scope}
}

// floatAtTop decides the vertical side of an automatically placed float.
func (c *composer) floatAtTop(placed *placedChild) bool {
	if placed.alignY != nil {
		return *placed.alignY == geom.AlignStart
	}
	// Auto placement fills the emptier side, top first.
	if placed.scope == ScopeParent {
		return c.regionFloatTop <= c.regionFloatBottom
	}
	return c.floatTop <= c.floatBottom
}

// wrap commits a wrap child: its frame becomes a cutout at the current
// vertical position, sized by the measured frame width.
func (c *composer) wrap(w *wrapChild, regions *region.Regions, currentY geom.Abs) error {
	if _, done := c.handled[w]; done {
		return nil
	}
	if c.queueBlocked(w) {
		c.work.queued = append(c.work.queued, w)
		return nil
	}

	base := c.columnBase
	if w.scope == ScopeParent {
		base = c.regionBase
	}

	f, err := w.layout(base)
	if err != nil {
		return err
	}

	return c.insertCutout(w, w.side, w.scope, w.clearance, f, f.Width(), regions, currentY)
}

// masthead commits a masthead child. It differs from wrap in exactly one
// respect: the cutout width is the explicit width, not the measured frame
// width, so narrow content still reserves the designed column. Content
// taller than the region is clipped or paginated per its overflow mode.
func (c *composer) masthead(m *mastheadChild, regions *region.Regions, currentY geom.Abs) error {
	if _, done := c.handled[m]; done {
		return nil
	}
	if c.queueBlocked(m) {
		c.work.queued = append(c.work.queued, m)
		return nil
	}

	base := c.columnBase
	if m.scope == ScopeParent {
		base = c.regionBase
	}

	f, err := m.layout(base)
	if err != nil {
		return err
	}

	// Size.H is the height still left in the region; the distributor has
	// already deducted everything committed above the masthead.
	avail := regions.Size.H
	if !avail.Fits(f.Height() + m.clearance) {
		if m.overflow == OverflowPaginate && regions.MayProgress() {
			c.work.queued = append(c.work.queued, m)
			return nil
		}
		clipped := (avail - m.clearance).Max(0)
		logger.WarningLogger.Printf(
			"masthead content (%.1fpt) exceeds the available height (%.1fpt) and was clipped; "+
				"consider the paginate overflow mode", f.Height().Pt(), clipped.Pt())
		f.SetHeight(clipped)
	}

	return c.insertCutout(m, m.side, m.scope, m.clearance, f, m.width, regions, currentY)
}

// insertCutout performs the shared wrap/masthead commit: fit check, cutout
// registration, physical placement of the frame, and the relayout signal.
func (c *composer) insertCutout(
	ch child,
	side region.CutoutSide,
	scope Scope,
	clearance geom.Abs,
	f frame.Frame,
	cutoutWidth geom.Abs,
	regions *region.Regions,
	currentY geom.Abs,
) error {
	base := c.columnBase
	if scope == ScopeParent {
		base = c.regionBase
	}

	// Without room in this region, try again in the next one. Size.H is
	// already the remaining height, so the committed content above must not
	// be deducted a second time.
	if !regions.Size.H.Fits(f.Height()+clearance) && regions.MayProgress() {
		c.work.queued = append(c.work.queued, ch)
		return nil
	}

	cutout := region.NewCutout(
		currentY,
		currentY+f.Height()+clearance,
		side,
		cutoutWidth,
		clearance,
	)

	// The reserved area starts at the physical edge the side resolves to.
	var x geom.Abs
	if !side.IsLeft(c.opts.Dir) {
		x = base.W - cutoutWidth
	}

	ins := insertion{frame: f, pos: geom.Point{X: x, Y: currentY}}
	if scope == ScopeParent {
		c.parentCutouts = append(c.parentCutouts, cutout)
		c.parentInsertions = append(c.parentInsertions, ins)
	} else {
		c.columnCutouts = append(c.columnCutouts, cutout)
		c.columnInsertions = append(c.columnInsertions, ins)
	}

	c.handled[ch] = scope
	if c.relayoutDisabled {
		return nil
	}
	return stopRelayout{scope: scope}
}
