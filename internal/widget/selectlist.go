package widget

import (
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/keys"
	"github.com/duskline/duskline/internal/window"
)

// SelectList is the scrollable chooser used for MUD selection and listing
// aliases/triggers/macros (spec §4.6).
type SelectList struct {
	Win     *window.Window
	Items   []string
	Current int
	top     int // index of the first visible row

	// OnSelect fires on Enter with the chosen item and its index.
	OnSelect func(text string, index int)
	// OnCancel fires on Escape.
	OnCancel func()
}

// NewSelectList builds a SelectList widget sized width x height.
func NewSelectList(width, height int, items []string) *SelectList {
	l := &SelectList{Win: window.New(width, height), Items: items}
	l.Win.Owner = l
	return l
}

// HandleKey moves the current selection or fires OnSelect/OnCancel.
func (l *SelectList) HandleKey(k keys.Code) {
	switch k {
	case keys.CodeArrowUp:
		if l.Current > 0 {
			l.Current--
		}
	case keys.CodeArrowDown:
		if l.Current < len(l.Items)-1 {
			l.Current++
		}
	case keys.CodeEnter:
		if l.OnSelect != nil && l.Current < len(l.Items) {
			l.OnSelect(l.Items[l.Current], l.Current)
		}
	case keys.CodeEsc:
		if l.OnCancel != nil {
			l.OnCancel()
		}
	default:
		return
	}
	l.Win.MarkDirty()
}

// Redraw paints rows with the current row highlighted (inverted), keeping
// the current selection scrolled into view.
func (l *SelectList) Redraw(w *window.Window) {
	if l.Current < l.top {
		l.top = l.Current
	}
	if l.Current >= l.top+w.Height {
		l.top = l.Current - w.Height + 1
	}
	for row := 0; row < w.Height; row++ {
		idx := l.top + row
		attr := cell.DefaultAttr
		if idx == l.Current {
			attr = attr.Invert()
		}
		var text string
		if idx < len(l.Items) {
			text = l.Items[idx]
		}
		x := 0
		for ; x < w.Width && x < len(text); x++ {
			w.Set(x, row, cell.New(text[x], attr))
		}
		for ; x < w.Width; x++ {
			w.Set(x, row, cell.New(' ', attr))
		}
	}
}
