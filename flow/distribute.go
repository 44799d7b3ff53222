package flow

import (
	"github.com/typeflow/typeflow/frame"
	"github.com/typeflow/typeflow/geom"
	"github.com/typeflow/typeflow/region"
)

// distribute places as many children as fit from the composer's work queue
// into the first region and returns the resulting frame.
func distribute(c *composer, regions region.Regions) (frame.Frame, error) {
	d := distributor{composer: c, regions: regions}
	init := d.snapshot()

	var forced bool
	switch err := d.run(); e := err.(type) {
	case nil:
		forced = c.work.done()
	case stopFinish:
		forced = e.forced
	default:
		return frame.Frame{}, err
	}

	reg := region.NewRegion(regions.Size, regions.Expand)
	return d.finalize(reg, init, forced)
}

// distributor carries the state of distributing children into one region.
type distributor struct {
	composer *composer
	// regions is continuously shrunk as new items are added.
	regions region.Regions
	// items are the laid out, not yet aligned children.
	items []item
	// sticky is a snapshot for migrating a trailing run of sticky blocks
	// to the next region together with the frame they are attached to.
	sticky *distributionSnapshot
	// stickable caches, for the current run of consecutive sticky blocks,
	// whether migrating them could make a difference. It is nil outside
	// such a run. Sticky blocks at the very top of a region must not
	// migrate: that would loop forever without gaining space.
	stickable *bool
}

// distributionSnapshot restores the distributor to an earlier point.
type distributionSnapshot struct {
	work  workState
	items int
}

// item is a laid out element of a distribution.
type item interface{ isItem() }

// tagItem is an invisible marker.
type tagItem struct {
	name string
}

// absItem is absolute spacing and its weakness.
type absItem struct {
	amount   geom.Abs
	weakness uint8
}

// frItem is fractional spacing or a fractionally sized block.
type frItem struct {
	fr       geom.Fr
	weakness uint8
	single   *singleChild
}

// frameItem is a frame of a laid out line or block.
type frameItem struct {
	frame frame.Frame
	align geom.Align
}

// placedItem is a frame of an absolutely (not floatingly) placed child.
type placedItem struct {
	frame  frame.Frame
	placed *placedChild
}

func (tagItem) isItem()    {}
func (absItem) isItem()    {}
func (frItem) isItem()     {}
func (frameItem) isItem()  {}
func (placedItem) isItem() {}

// migratable reports whether the item should move to the next region when a
// region ends up holding only such items.
func migratable(it item) bool {
	switch it := it.(type) {
	case tagItem:
		return true
	case frameItem:
		if !it.frame.Size().IsZero() {
			return false
		}
		for _, fi := range it.frame.Items() {
			if _, ok := fi.Content.(frame.Tag); !ok {
				return false
			}
		}
		return true
	case placedItem:
		return !it.placed.float
	default:
		return false
	}
}

// run distributes content into the region.
func (d *distributor) run() error {
	// Insertions that didn't fit their region come first: they reserve
	// space before regular content claims it.
	for _, queued := range d.composer.work.takeQueued() {
		if err := d.child(queued); err != nil {
			return err
		}
	}

	// Continue a breakable block that broke in an earlier region.
	if spill := d.composer.work.spill; spill != nil {
		d.composer.work.spill = nil
		if err := d.multiSpill(spill); err != nil {
			return err
		}
	}

	// Continue a paragraph that broke in an earlier region.
	if spill := d.composer.work.parSpill; spill != nil {
		d.composer.work.parSpill = nil
		if err := d.parSpill(spill); err != nil {
			return err
		}
	}

	for {
		ch := d.composer.work.head()
		if ch == nil {
			return nil
		}
		if err := d.child(ch); err != nil {
			return err
		}
		d.composer.work.advance()
	}
}

// child processes a single child. A stopFinish error triggers a region
// break, a stopRelayout error a redistribution with updated insertions.
func (d *distributor) child(ch child) error {
	switch ch := ch.(type) {
	case tagChild:
		d.tag(ch.name)
	case relChild:
		d.rel(ch.amount, ch.weakness)
	case frChild:
		d.fr(ch.fr, ch.weakness)
	case *lineChild:
		return d.line(ch)
	case *parChild:
		return d.par(ch)
	case *singleChild:
		return d.single(ch)
	case *multiChild:
		return d.multi(ch)
	case *placedChild:
		return d.placed(ch)
	case *wrapChild:
		return d.wrap(ch)
	case *mastheadChild:
		return d.masthead(ch)
	case flushChild:
		return d.flush()
	case breakChild:
		return d.colbreak(ch.weak)
	}
	return nil
}

func (d *distributor) tag(name string) {
	d.composer.work.tags = append(d.composer.work.tags, name)
}

// flushTags generates items for pending tags.
func (d *distributor) flushTags() {
	tags := d.composer.work.tags
	if len(tags) == 0 {
		return
	}
	for _, name := range tags {
		d.items = append(d.items, tagItem{name: name})
	}
	d.composer.work.tags = nil
}

// rel processes absolute spacing.
func (d *distributor) rel(amount geom.Abs, weakness uint8) {
	if weakness > 0 && !d.keepWeakRelSpacing(amount, weakness) {
		return
	}
	d.regions.Size.H -= amount
	d.items = append(d.items, absItem{amount: amount, weakness: weakness})
}

// fr processes fractional spacing.
func (d *distributor) fr(fr geom.Fr, weakness uint8) {
	if weakness > 0 && !d.keepWeakFrSpacing(fr, weakness) {
		return
	}
	// Kept fr spacing trumps any trailing weak spacing.
	d.trimSpacing()
	d.items = append(d.items, frItem{fr: fr, weakness: weakness})
}

// keepWeakRelSpacing decides whether to keep weak spacing based on previous
// items. A preceding weak spacing of equal or weaker strength is patched in
// place instead (weaker level loses, equal level takes the maximum).
func (d *distributor) keepWeakRelSpacing(amount geom.Abs, weakness uint8) bool {
	for i := len(d.items) - 1; i >= 0; i-- {
		switch it := d.items[i].(type) {
		case absItem:
			if it.weakness == 0 {
				continue
			}
			if weakness <= it.weakness && (weakness < it.weakness || amount > it.amount) {
				d.regions.Size.H -= amount - it.amount
				d.items[i] = absItem{amount: amount, weakness: weakness}
			}
			return false
		case tagItem, placedItem:
			// Peeked beyond for collapsing purposes.
		case frItem:
			if it.single != nil {
				return true
			}
			// Fractional spacing destroys weak relative spacing.
			return false
		case frameItem:
			return true
		}
	}
	return false
}

// keepWeakFrSpacing is the fractional counterpart of keepWeakRelSpacing.
func (d *distributor) keepWeakFrSpacing(fr geom.Fr, weakness uint8) bool {
	for i := len(d.items) - 1; i >= 0; i-- {
		switch it := d.items[i].(type) {
		case frItem:
			if it.single != nil {
				return true
			}
			if it.weakness == 0 {
				return true
			}
			if weakness <= it.weakness && (weakness < it.weakness || fr > it.fr) {
				d.items[i] = frItem{fr: fr, weakness: weakness}
			}
			return false
		case tagItem, absItem, placedItem:
			// Peeked beyond; weak absolute spacing is trimmed once the
			// fractional spacing is pushed.
		case frameItem:
			return true
		}
	}
	return false
}

// trimSpacing removes trailing weak spacing from the items.
func (d *distributor) trimSpacing() {
	for i := len(d.items) - 1; i >= 0; i-- {
		switch it := d.items[i].(type) {
		case absItem:
			if it.weakness == 0 {
				continue
			}
			d.regions.Size.H += it.amount
			d.items = append(d.items[:i], d.items[i+1:]...)
			return
		case frItem:
			if it.single == nil && it.weakness > 0 {
				d.items = append(d.items[:i], d.items[i+1:]...)
			}
			return
		case tagItem, placedItem:
		case frameItem:
			return
		}
	}
}

// weakSpacing returns the amount of trailing weak spacing.
func (d *distributor) weakSpacing() geom.Abs {
	for i := len(d.items) - 1; i >= 0; i-- {
		switch it := d.items[i].(type) {
		case absItem:
			if it.weakness > 0 {
				return it.amount
			}
		case tagItem, placedItem:
		default:
			return 0
		}
	}
	return 0
}

// nextHeight returns the height of the region after the current one.
func (d *distributor) nextHeight() (geom.Abs, bool) {
	if len(d.regions.Backlog) > 0 {
		return d.regions.Backlog[0], true
	}
	if d.regions.Last != nil {
		return *d.regions.Last, true
	}
	return 0, false
}

// line processes a pre-laid line of a paragraph.
func (d *distributor) line(line *lineChild) error {
	// If the line doesn't fit and a followup region may improve things,
	// finish the region.
	if !d.regions.Size.H.Fits(line.frame.Height()) && d.regions.MayProgress() {
		return stopFinish{}
	}

	// If the line's need, which includes the heights of lines grouped with
	// it by widow/orphan prevention, doesn't fit here but does fit into the
	// next region, finish the region.
	if !d.regions.Size.H.Fits(line.need) {
		if next, ok := d.nextHeight(); ok && next.Fits(line.need) {
			return stopFinish{}
		}
	}

	return d.frame(line.frame, geom.Align{}, false)
}

// par processes a deferred paragraph: its lines are broken right now,
// against the cutouts currently active at its vertical position.
func (d *distributor) par(par *parChild) error {
	frames := par.layout(d.composer.cutouts(), d.currentY())
	d.rel(par.spacing, weaknessParSpacing)
	return d.processParLines(frames, par.leading, par.costs, par.spacing, true)
}

// parSpill resumes a paragraph that broke in an earlier region, committing
// the lines it was already broken into. The lines are never re-broken: a
// line narrowed by the first region's cutouts keeps that width even when
// this region is unobstructed, so that no content is ever dropped or
// duplicated by the slicing.
func (d *distributor) parSpill(spill *parSpill) error {
	if d.regions.IsFull() {
		d.composer.work.parSpill = spill
		return stopFinish{}
	}
	return d.processParLines(spill.frames, spill.leading, spill.costs, spill.spacing, false)
}

// processParLines commits paragraph lines one by one, spilling the rest to
// the next region when a line or its widow/orphan group no longer fits.
func (d *distributor) processParLines(
	frames []frame.Frame,
	leading geom.Abs,
	costs Costs,
	spacing geom.Abs,
	advanceOnSpill bool,
) error {
	needs := lineNeeds(frames, leading, costs)

	spillRest := func(i int) error {
		d.composer.work.parSpill = &parSpill{
			frames:  append([]frame.Frame(nil), frames[i:]...),
			leading: leading,
			costs:   costs,
			spacing: spacing,
		}
		if advanceOnSpill {
			d.composer.work.advance()
		}
		return stopFinish{}
	}

	for i, f := range frames {
		if i > 0 {
			d.rel(leading, weaknessLeading)
		}

		if !d.regions.Size.H.Fits(f.Height()) && d.regions.MayProgress() {
			return spillRest(i)
		}

		if !d.regions.Size.H.Fits(needs[i]) {
			if next, ok := d.nextHeight(); ok && next.Fits(needs[i]) {
				return spillRest(i)
			}
		}

		if err := d.frame(f, geom.Align{}, false); err != nil {
			return err
		}
	}

	// The trailing spacing only applies once the whole paragraph is placed.
	d.rel(spacing, weaknessParSpacing)
	return nil
}

// single processes an unbreakable block.
func (d *distributor) single(single *singleChild) error {
	f, err := single.layout(region.NewRegion(d.regions.Base(), d.regions.Expand))
	if err != nil {
		return err
	}

	// Fractionally sized blocks are positioned at finalization, when the
	// free space is known.
	if single.fr != nil {
		d.flushTags()
		d.items = append(d.items, frItem{fr: *single.fr, single: single})
		return nil
	}

	if !d.regions.Size.H.Fits(f.Height()) && d.regions.MayProgress() {
		return stopFinish{}
	}

	return d.frame(f, single.align, single.sticky)
}

// multi processes a breakable block.
func (d *distributor) multi(multi *multiChild) error {
	// Skip directly if the region is already (over)full. Lines and single
	// blocks do this implicitly through their fit checks.
	if d.regions.IsFull() {
		return stopFinish{}
	}

	f, spill, err := multi.layout(d.regions)
	if err != nil {
		return err
	}
	if f.IsEmpty() && spill != nil && spill.someNonEmpty && d.regions.MayProgress() {
		// An empty first frame with content in the spill would leave an
		// invisible orphan at the end of this region; move it all along.
		return stopFinish{}
	}

	if err := d.frame(f, multi.align, multi.sticky); err != nil {
		return err
	}

	if spill != nil {
		d.composer.work.spill = spill
		d.composer.work.advance()
		return stopFinish{}
	}
	return nil
}

// multiSpill continues a breakable block from an earlier region.
func (d *distributor) multiSpill(spill *multiSpill) error {
	if d.regions.IsFull() {
		d.composer.work.spill = spill
		return stopFinish{}
	}

	align := spill.align()
	f, rest, err := spill.layout(d.regions)
	if err != nil {
		return err
	}
	if err := d.frame(f, align, false); err != nil {
		return err
	}

	if rest != nil {
		d.composer.work.spill = rest
		return stopFinish{}
	}
	return nil
}

// frame processes an in-flow frame generated from a line or block.
func (d *distributor) frame(f frame.Frame, align geom.Align, sticky bool) error {
	if sticky {
		// The first sticky block of a run decides whether the run may
		// migrate at all; migrating from the very top of the region would
		// only bring us back there.
		if d.stickable == nil {
			v := d.regions.MayProgress()
			d.stickable = &v
		}
		if d.sticky == nil && *d.stickable {
			snap := d.snapshot()
			d.sticky = &snap
		}
	} else if !f.IsEmpty() {
		// A non-sticky frame interrupts a run of sticky blocks.
		d.sticky = nil
		d.stickable = nil
	}

	d.regions.Size.H -= f.Height()
	d.flushTags()
	d.items = append(d.items, frameItem{frame: f, align: align})
	return nil
}

// placed processes an absolutely or floatingly placed child.
func (d *distributor) placed(placed *placedChild) error {
	if placed.float {
		// Floats may trigger a relayout because the area available for
		// distribution shrinks. Trailing weak spacing becomes temporarily
		// available again: it would collapse at a break caused by the
		// float.
		weak := d.weakSpacing()
		d.regions.Size.H += weak
		hasFrames := false
		for _, it := range d.items {
			if _, ok := it.(frameItem); ok {
				hasFrames = true
				break
			}
		}
		err := d.composer.float(placed, &d.regions, hasFrames)
		d.regions.Size.H -= weak
		return err
	}

	f, err := placed.layout(d.regions.Base())
	if err != nil {
		return err
	}
	d.flushTags()
	d.items = append(d.items, placedItem{frame: f, placed: placed})
	return nil
}

// wrap processes a wrap child via the composer, which owns the cutouts and
// triggers the relayout.
func (d *distributor) wrap(w *wrapChild) error {
	weak := d.weakSpacing()
	d.regions.Size.H += weak
	err := d.composer.wrap(w, &d.regions, d.currentY())
	d.regions.Size.H -= weak
	return err
}

// masthead processes a masthead child, like wrap.
func (d *distributor) masthead(m *mastheadChild) error {
	weak := d.weakSpacing()
	d.regions.Size.H += weak
	err := d.composer.masthead(m, &d.regions, d.currentY())
	d.regions.Size.H -= weak
	return err
}

// currentY is the vertical position the next in-flow child would start at:
// the sum of committed absolute spacing and frame heights. Fractional
// spacing is excluded; it has not committed a size yet.
func (d *distributor) currentY() geom.Abs {
	var y geom.Abs
	for _, it := range d.items {
		switch it := it.(type) {
		case absItem:
			y += it.amount
		case frameItem:
			y += it.frame.Height()
		}
	}
	return y
}

// flush finishes the region while insertions are still queued, forcing them
// to be placed before further content.
func (d *distributor) flush() error {
	if len(d.composer.work.queued) > 0 {
		return stopFinish{}
	}
	return nil
}

// colbreak processes an explicit column break.
func (d *distributor) colbreak(weak bool) error {
	if (!weak || len(d.items) > 0) && d.regions.MayBreak() {
		d.composer.work.advance()
		return stopFinish{forced: true}
	}
	return nil
}

// finalize arranges the produced items into the output frame, aligning them
// and resolving fractional spacing and blocks.
func (d *distributor) finalize(reg region.Region, init distributionSnapshot, forced bool) (frame.Frame, error) {
	if forced {
		// The very end of the flow flushes pending tags.
		d.flushTags()
	} else if len(d.items) > 0 && allMigratable(d.items) {
		// A region holding only tags and invisible frames contributes
		// nothing; its items migrate to the next region.
		d.restore(init)
	} else if d.sticky != nil {
		// Ending on a sticky block moves the whole sticky suffix to the
		// next region, where its attached frame will follow.
		snap := *d.sticky
		d.sticky = nil
		d.restore(snap)
	}

	d.trimSpacing()

	var frs geom.Fr
	var used geom.Size
	hasFrChild := false
	for _, it := range d.items {
		switch it := it.(type) {
		case absItem:
			used.H += it.amount
		case frItem:
			frs += it.fr
			hasFrChild = hasFrChild || it.single != nil
		case frameItem:
			used.H += it.frame.Height()
			used.W = used.W.Max(it.frame.Width())
		}
	}

	// Fractional spacing occupies all remaining space.
	var frSpace geom.Abs
	if frs > 0 && reg.Size.H.IsFinite() {
		frSpace = reg.Size.H - used.H
		used.H = reg.Size.H
	}

	// Lay out fractionally sized blocks against their resolved share.
	var frFrames []frame.Frame
	if hasFrChild {
		for _, it := range d.items {
			fr, ok := it.(frItem)
			if !ok || fr.single == nil {
				continue
			}
			length := fr.fr.Share(frs, frSpace)
			pod := region.NewRegion(geom.Size{W: reg.Size.W, H: length}, reg.Expand)
			f, err := fr.single.layout(pod)
			if err != nil {
				return frame.Frame{}, err
			}
			used.W = used.W.Max(f.Width())
			frFrames = append(frFrames, f)
		}
	}

	// Insertions count towards the width when the region hugs its content.
	if !reg.Expand.X {
		used.W = used.W.Max(d.composer.insertionWidth())
	}

	size := geom.Size{
		W: used.W.Min(reg.Size.W),
		H: used.H.Min(reg.Size.H),
	}
	if reg.Expand.X {
		size.W = reg.Size.W
	}
	if reg.Expand.Y {
		size.H = reg.Size.H
	}
	free := size.H - used.H

	output := frame.New(size)
	ruler := geom.AlignStart
	var offset geom.Abs
	frIndex := 0

	for _, it := range d.items {
		switch it := it.(type) {
		case tagItem:
			y := offset + ruler.Position(free)
			output.Push(geom.Point{Y: y}, frame.Tag{Name: it.name})
		case absItem:
			offset += it.amount
		case frItem:
			length := it.fr.Share(frs, frSpace)
			if it.single != nil {
				f := frFrames[frIndex]
				frIndex++
				x := it.single.align.X.Position(size.W - f.Width())
				output.PushFrame(geom.Point{X: x, Y: offset}, f)
			}
			offset += length
		case frameItem:
			ruler = ruler.Max(it.align.Y)
			x := it.align.X.Position(size.W - it.frame.Width())
			y := offset + ruler.Position(free)
			offset += it.frame.Height()
			output.PushFrame(geom.Point{X: x, Y: y}, it.frame)
		case placedItem:
			x := it.placed.alignX.Position(size.W - it.frame.Width())
			var y geom.Abs
			if it.placed.alignY != nil {
				y = (*it.placed.alignY).Position(size.H - it.frame.Height())
			} else {
				y = offset + ruler.Position(free)
			}
			pos := geom.Point{X: x + it.placed.delta.X, Y: y + it.placed.delta.Y}
			output.PushFrame(pos, it.frame)
		}
	}

	if debugMode && frIndex != len(frFrames) {
		panic("flow: fractional blocks out of sync")
	}

	return output, nil
}

func allMigratable(items []item) bool {
	for _, it := range items {
		if !migratable(it) {
			return false
		}
	}
	return true
}

// snapshot captures the work queue and the items placed so far.
func (d *distributor) snapshot() distributionSnapshot {
	return distributionSnapshot{
		work:  d.composer.work.clone(),
		items: len(d.items),
	}
}

// restore rewinds to a snapshot.
func (d *distributor) restore(snap distributionSnapshot) {
	*d.composer.work = snap.work
	d.items = d.items[:snap.items]
}
