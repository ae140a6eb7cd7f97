// Package window implements the composited window tree and the two-buffer
// screen diff renderer described in spec §4.5: each Window owns a cell
// canvas, children blit into their parent after a polymorphic Redraw, and
// the root Screen emits the minimum ANSI delta against the previously
// rendered frame.
package window

import (
	"github.com/duskline/duskline/internal/cell"
)

// Redrawer is implemented by whatever owns a Window's content (the output
// widget, the input line, ...). Composition-based widgets must be driven
// through this interface explicitly — spec §4.5/§9 "polymorphism without
// inheritance": the generic refresh cycle cannot discover an overridden
// Redraw on its own, so Window.Owner is a field the widget sets to itself.
type Redrawer interface {
	Redraw(w *Window)
}

// Window is one node in the composition tree (spec §3 "Window"). Parent is
// a non-owning back-reference: children destroy with their parent, but the
// parent doesn't own child data directly.
type Window struct {
	Width, Height int
	X, Y          int // position within the parent's canvas
	Canvas        []cell.Cell

	Parent   *Window
	Children []*Window

	CursorX, CursorY int
	Color            cell.Attribute
	Dirty            bool

	// Owner is the concrete widget whose Redraw paints this node's canvas.
	// Set by the widget itself at construction time (spec §9).
	Owner Redrawer

	// Focused marks this window as the one whose cursor position the
	// screen should park the terminal cursor at after compositing.
	Focused bool
}

// New allocates a window canvas and fills it blank.
func New(width, height int) *Window {
	w := &Window{Width: width, Height: height, Color: cell.DefaultAttr, Dirty: true}
	w.Canvas = make([]cell.Cell, width*height)
	w.clear()
	return w
}

func (w *Window) clear() {
	for i := range w.Canvas {
		w.Canvas[i] = cell.Blank
	}
}

// AddChild attaches child at the given position within w's canvas.
func (w *Window) AddChild(child *Window, x, y int) {
	child.Parent = w
	child.X = x
	child.Y = y
	w.Children = append(w.Children, child)
}

// Set writes one cell, bounds-checked.
func (w *Window) Set(x, y int, c cell.Cell) {
	if x < 0 || x >= w.Width || y < 0 || y >= w.Height {
		return
	}
	w.Canvas[y*w.Width+x] = c
}

// Get returns the cell at (x, y), or a blank cell out of bounds.
func (w *Window) Get(x, y int) cell.Cell {
	if x < 0 || x >= w.Width || y < 0 || y >= w.Height {
		return cell.Blank
	}
	return w.Canvas[y*w.Width+x]
}

// Refresh implements the recursive contract from spec §4.5: redraw self if
// dirty, refresh children, then blit each child onto this node's canvas.
func (w *Window) Refresh() {
	if w.Dirty {
		if w.Owner != nil {
			w.Owner.Redraw(w)
		}
		w.Dirty = false
	}
	for _, c := range w.Children {
		c.Refresh()
		c.drawOnParent()
	}
}

// drawOnParent blits w's canvas into its parent's canvas at (X, Y).
func (w *Window) drawOnParent() {
	if w.Parent == nil {
		return
	}
	for y := 0; y < w.Height; y++ {
		py := w.Y + y
		if py < 0 || py >= w.Parent.Height {
			continue
		}
		for x := 0; x < w.Width; x++ {
			px := w.X + x
			if px < 0 || px >= w.Parent.Width {
				continue
			}
			w.Parent.Set(px, py, w.Get(x, y))
		}
	}
}

// MarkDirty flags w (and not its ancestors — Refresh is called top-down by
// the event loop each tick, so a dirty leaf is picked up on the next pass
// through its own subtree).
func (w *Window) MarkDirty() { w.Dirty = true }
