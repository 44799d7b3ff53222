// Package frame defines the output of layout: sized containers of
// positioned items, ready to be consumed by a rendering backend.
package frame

import "github.com/typeflow/typeflow/geom"

// Frame is a rectangular area with positioned content items.
// The coordinate system has its origin in the top left corner,
// with y growing downwards.
type Frame struct {
	size  geom.Size
	items []Item
}

// Item is a positioned piece of content in a frame.
type Item struct {
	Pos     geom.Point
	Content Content
}

// Content is one kind of frame content.
type Content interface {
	isContent()
}

// Group nests a frame inside another one.
type Group struct {
	Frame *Frame
}

// Text is a run of text with a single style and direction. The position of
// the containing item is the run's baseline start.
type Text struct {
	Content string
	Width   geom.Abs
	Dir     geom.Dir
}

// Tag is an invisible marker used to locate elements in the final geometry.
type Tag struct {
	Name string
}

func (Group) isContent() {}
func (Text) isContent()  {}
func (Tag) isContent()   {}

// New creates an empty frame of the given size.
func New(size geom.Size) Frame {
	return Frame{size: size}
}

// Size returns the frame's size.
func (f *Frame) Size() geom.Size { return f.size }

// Width returns the frame's width.
func (f *Frame) Width() geom.Abs { return f.size.W }

// Height returns the frame's height.
func (f *Frame) Height() geom.Abs { return f.size.H }

// IsEmpty reports whether the frame contains no items.
func (f *Frame) IsEmpty() bool { return len(f.items) == 0 }

// Items returns the frame's content items.
func (f *Frame) Items() []Item { return f.items }

// Push adds a positioned content item to the frame.
func (f *Frame) Push(pos geom.Point, content Content) {
	f.items = append(f.items, Item{Pos: pos, Content: content})
}

// PushFrame nests another frame at the given position.
func (f *Frame) PushFrame(pos geom.Point, inner Frame) {
	f.Push(pos, Group{Frame: &inner})
}

// SetHeight changes the frame's height without touching its items.
// Items below the new height are clipped by the renderer.
func (f *Frame) SetHeight(h geom.Abs) { f.size.H = h }

// Translate moves all items of the frame by the given offset.
func (f *Frame) Translate(dx, dy geom.Abs) {
	for i := range f.items {
		f.items[i].Pos.X += dx
		f.items[i].Pos.Y += dy
	}
}
