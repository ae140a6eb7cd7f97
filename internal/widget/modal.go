package widget

import (
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/keys"
	"github.com/duskline/duskline/internal/window"
)

// Modal is the centered, bordered prompt + single input line described in
// spec §4.6 ("Modal input box"). It owns a bordered frame window and a
// child Input window positioned inside it.
type Modal struct {
	Win   *window.Window
	Input *Input
	Label string

	// CancelEnabled gates whether Escape dismisses the modal (spec §4.6:
	// "Escape cancels unless disabled").
	CancelEnabled bool

	OnSubmit func(text []byte)
	OnCancel func()
}

// NewModal builds a bordered modal width x height with the given label,
// hosting a single input line one row below the label.
func NewModal(width, height int, label string) *Modal {
	m := &Modal{
		Win:           window.New(width, height),
		Label:         label,
		CancelEnabled: true,
	}
	m.Win.Owner = m

	inputWidth := width - 2
	if inputWidth < 1 {
		inputWidth = 1
	}
	m.Input = NewInput(inputWidth, nil, "")
	m.Win.AddChild(m.Input.Win, 1, 2)
	return m
}

// HandleKey routes Enter/Escape to the modal's own callbacks and
// everything else to the embedded input line.
func (m *Modal) HandleKey(k keys.Code) {
	switch k {
	case keys.CodeEnter:
		if m.OnSubmit != nil {
			m.OnSubmit(append([]byte(nil), m.Input.Buffer...))
		}
	case keys.CodeEsc:
		if m.CancelEnabled && m.OnCancel != nil {
			m.OnCancel()
			return
		}
		m.Input.HandleKey(k)
	default:
		m.Input.HandleKey(k)
	}
	m.Win.MarkDirty()
}

// Redraw paints the border and label; the embedded Input widget paints
// itself via its own Owner hook before draw_on_parent composites it.
func (m *Modal) Redraw(w *window.Window) {
	for i := range w.Canvas {
		w.Canvas[i] = cell.Blank
	}
	for x := 0; x < w.Width; x++ {
		w.Set(x, 0, cell.New('-', cell.DefaultAttr))
		w.Set(x, w.Height-1, cell.New('-', cell.DefaultAttr))
	}
	for y := 0; y < w.Height; y++ {
		w.Set(0, y, cell.New('|', cell.DefaultAttr))
		w.Set(w.Width-1, y, cell.New('|', cell.DefaultAttr))
	}
	w.Set(0, 0, cell.New('+', cell.DefaultAttr))
	w.Set(w.Width-1, 0, cell.New('+', cell.DefaultAttr))
	w.Set(0, w.Height-1, cell.New('+', cell.DefaultAttr))
	w.Set(w.Width-1, w.Height-1, cell.New('+', cell.DefaultAttr))

	x := 2
	for _, b := range []byte(m.Label) {
		if x >= w.Width-1 {
			break
		}
		w.Set(x, 1, cell.New(b, cell.DefaultAttr))
		x++
	}
}
