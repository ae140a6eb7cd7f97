package widget

import (
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/window"
)

// Status is the single-row status line widget (spec §4.6).
type Status struct {
	Win  *window.Window
	text string
	attr cell.Attribute
}

// NewStatus builds a Status widget sized width x 1.
func NewStatus(width int) *Status {
	s := &Status{Win: window.New(width, 1), attr: cell.DefaultAttr}
	s.Win.Owner = s
	return s
}

// Set replaces the displayed text and color.
func (s *Status) Set(text string, attr cell.Attribute) {
	s.text = text
	s.attr = attr
	s.Win.MarkDirty()
}

// Redraw writes the text and clears to end-of-line.
func (s *Status) Redraw(w *window.Window) {
	x := 0
	for ; x < w.Width && x < len(s.text); x++ {
		w.Set(x, 0, cell.New(s.text[x], s.attr))
	}
	for ; x < w.Width; x++ {
		w.Set(x, 0, cell.Blank)
	}
}
