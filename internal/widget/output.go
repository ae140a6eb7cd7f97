// Package widget implements the concrete screen widgets named in spec
// §4.6 — output window, input line, status line, selection list, modal
// input box — each owning a window.Window via the Owner/Redrawer contract
// (spec §4.5/§9: composition stands in for inheritance, so every widget
// sets itself as its Window's Owner rather than the tree discovering an
// override).
package widget

import (
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/keys"
	"github.com/duskline/duskline/internal/scrollback"
	"github.com/duskline/duskline/internal/window"
)

// Output hosts a scrollback ring and blits its current viewport into its
// own canvas every redraw (spec §4.6 "Output window").
type Output struct {
	Win       *window.Window
	Ring      *scrollback.Ring
	searching bool

	// OnStatus is invoked to surface transient messages ("searching") to
	// the status line; nil is a valid no-op.
	OnStatus func(text string)
}

// NewOutput builds an Output widget backed by a fresh scrollback ring and
// wires itself as the window's Redraw owner.
func NewOutput(width, lines, height int) *Output {
	o := &Output{
		Win:  window.New(width, height),
		Ring: scrollback.New(width, lines, height),
	}
	o.Win.Owner = o
	return o
}

// Redraw copies the ring's current viewport into the window canvas (spec
// §4.5 "the scrollback widget's redraw copies viewpoint_off..+width×height
// cells from the ring to its own canvas").
func (o *Output) Redraw(w *window.Window) {
	visible := o.Ring.Visible()
	for y := 0; y < w.Height; y++ {
		for x := 0; x < w.Width; x++ {
			w.Set(x, y, visible[y*w.Width+x])
		}
	}
}

// HandleKey processes the navigation subset this widget owns and reports
// whether it consumed the key; anything else bubbles to the input line
// (spec §4.6: "other keys bubble to the input line").
func (o *Output) HandleKey(k keys.Code) bool {
	switch k {
	case keys.CodePgUp:
		o.Ring.PageUp()
	case keys.CodePgDown:
		o.Ring.PageDown()
	case keys.CodeHome:
		o.Ring.Home()
	case keys.CodeEnd:
		o.Ring.End()
	default:
		return false
	}
	o.Win.MarkDirty()
	return true
}

// Search forwards a search invocation to the ring and reports a transient
// "searching" status via OnStatus regardless of outcome (spec §4.6).
func (o *Output) Search(term string, direction int) bool {
	if o.OnStatus != nil {
		o.OnStatus("searching")
	}
	found := o.Ring.Search(term, direction)
	o.Win.MarkDirty()
	return found
}

// WriteCell appends one output byte+color to the live scrollback and
// marks the widget dirty, matching the character-by-character printing
// contract spec §4.7 requires for partial lines (prompts without a
// trailing newline must still become visible immediately).
func (o *Output) WriteCell(b byte, attr cell.Attribute) {
	o.Ring.PrintChar(b, attr)
	o.Win.MarkDirty()
}

// Newline commits the current scrollback row and advances.
func (o *Output) Newline() {
	o.Ring.PrintNewline()
	o.Win.MarkDirty()
}
