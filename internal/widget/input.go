package widget

import (
	"unicode"
	"unicode/utf8"

	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/keys"
	"github.com/duskline/duskline/internal/window"
)

// History is the minimal per-channel ring interface the input line needs
// (spec §4.10); internal/history provides the concrete implementation.
// Kept as an interface here so the widget package doesn't import history
// directly, avoiding a needless dependency for tests that don't need it.
type History interface {
	Prev(id string, saved []byte) ([]byte, bool)
	Next(id string) ([]byte, bool)
	Reset(id string)
	Push(id string, text []byte)
}

// Input is the single-row editor widget described in spec §4.6, grounded
// on h2's Client cursor/history editing methods (cursor.go, history.go) —
// ported from free functions on a monolithic Client to methods on a
// narrowly scoped Input value.
type Input struct {
	Win *window.Window

	Buffer  []byte
	Cursor  int // byte offset
	LeftPos int // horizontal scroll offset
	Prompt  []byte

	HistoryID string
	Hist      History
	histIdx   bool // true while browsing history (mirrors h2's HistIdx != -1)
	saved     []byte

	// HistMinWordLen gates whether Enter pushes to history (spec §4.6:
	// "if length >= hist_min_word").
	HistMinWordLen int

	// Execute is invoked with the committed line on Enter.
	Execute func(line []byte)
}

// NewInput builds an Input widget sized width x 1 and wires itself as the
// window's Redraw owner.
func NewInput(width int, hist History, historyID string) *Input {
	in := &Input{
		Win:            window.New(width, 1),
		Hist:           hist,
		HistoryID:      historyID,
		HistMinWordLen: 1,
	}
	in.Win.Owner = in
	in.Win.Focused = true
	return in
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// CursorLeft/CursorRight move by one rune.
func (in *Input) CursorLeft() {
	if in.Cursor > 0 {
		_, size := utf8.DecodeLastRune(in.Buffer[:in.Cursor])
		in.Cursor -= size
	}
}

func (in *Input) CursorRight() {
	if in.Cursor < len(in.Buffer) {
		_, size := utf8.DecodeRune(in.Buffer[in.Cursor:])
		in.Cursor += size
	}
}

func (in *Input) CursorToStart() { in.Cursor = 0 }
func (in *Input) CursorToEnd()   { in.Cursor = len(in.Buffer) }

// killToEnd / killToStart implement Ctrl-K/Ctrl-J and Ctrl-U.
func (in *Input) killToEnd() {
	in.Buffer = in.Buffer[:in.Cursor]
}

func (in *Input) killToStart() {
	in.Buffer = append(in.Buffer[:0], in.Buffer[in.Cursor:]...)
	in.Cursor = 0
}

// killWordLeft implements Ctrl-W: delete the whitespace-delimited word
// left of the cursor.
func (in *Input) killWordLeft() {
	i := in.Cursor
	for i > 0 {
		r, size := utf8.DecodeLastRune(in.Buffer[:i])
		if !unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	for i > 0 {
		r, size := utf8.DecodeLastRune(in.Buffer[:i])
		if unicode.IsSpace(r) {
			break
		}
		i -= size
	}
	in.Buffer = append(in.Buffer[:i], in.Buffer[in.Cursor:]...)
	in.Cursor = i
}

func (in *Input) deleteBackward() bool {
	if in.Cursor <= 0 {
		return false
	}
	_, size := utf8.DecodeLastRune(in.Buffer[:in.Cursor])
	copy(in.Buffer[in.Cursor-size:], in.Buffer[in.Cursor:])
	in.Buffer = in.Buffer[:len(in.Buffer)-size]
	in.Cursor -= size
	return true
}

func (in *Input) deleteForward() bool {
	if in.Cursor >= len(in.Buffer) {
		return false
	}
	_, size := utf8.DecodeRune(in.Buffer[in.Cursor:])
	copy(in.Buffer[in.Cursor:], in.Buffer[in.Cursor+size:])
	in.Buffer = in.Buffer[:len(in.Buffer)-size]
	return true
}

func (in *Input) insertByte(b byte) {
	in.Buffer = append(in.Buffer, 0)
	copy(in.Buffer[in.Cursor+1:], in.Buffer[in.Cursor:])
	in.Buffer[in.Cursor] = b
	in.Cursor++
}

func (in *Input) clear() {
	in.Buffer = in.Buffer[:0]
	in.Cursor = 0
	in.LeftPos = 0
}

func (in *Input) historyUp() {
	if in.Hist == nil {
		return
	}
	if !in.histIdx {
		in.saved = append([]byte(nil), in.Buffer...)
	}
	line, ok := in.Hist.Prev(in.HistoryID, in.saved)
	if !ok {
		return
	}
	in.histIdx = true
	in.Buffer = append(in.Buffer[:0], line...)
	in.Cursor = len(in.Buffer)
}

func (in *Input) historyDown() {
	if in.Hist == nil || !in.histIdx {
		return
	}
	line, ok := in.Hist.Next(in.HistoryID)
	if !ok {
		in.histIdx = false
		in.Buffer = append(in.Buffer[:0], in.saved...)
		in.saved = nil
	} else {
		in.Buffer = append(in.Buffer[:0], line...)
	}
	in.Cursor = len(in.Buffer)
}

// HandleKey implements the full key table from spec §4.6.
func (in *Input) HandleKey(k keys.Code) {
	switch k {
	case keys.CodeBackspace:
		in.deleteBackward()
	case keys.CodeDelete:
		in.deleteForward()
	case keys.CodeArrowLeft:
		in.CursorLeft()
	case keys.CodeArrowRight:
		in.CursorRight()
	case keys.CodeHome, keys.CodeCtrlA:
		in.CursorToStart()
	case keys.CodeEnd, keys.CodeCtrlE:
		in.CursorToEnd()
	case keys.CodeCtrlU:
		in.killToStart()
	case keys.CodeCtrlK, keys.CodeCtrlJ:
		in.killToEnd()
	case keys.CodeCtrlW:
		in.killWordLeft()
	case keys.CodeCtrlC:
		if in.Hist != nil && len(in.Buffer) > 0 {
			in.Hist.Push(in.HistoryID, in.Buffer)
		}
		in.clear()
	case keys.CodeEsc:
		in.clear()
	case keys.CodeArrowUp:
		in.historyUp()
	case keys.CodeArrowDown:
		in.historyDown()
	case keys.CodeEnter:
		in.submit()
	default:
		if k >= 0 && k < 256 {
			in.insertByte(byte(k))
		}
	}
	in.Win.MarkDirty()
}

func (in *Input) submit() {
	line := append([]byte(nil), in.Buffer...)
	if in.Hist != nil && len(line) >= in.HistMinWordLen {
		in.Hist.Push(in.HistoryID, line)
	}
	if in.Hist != nil {
		in.Hist.Reset(in.HistoryID)
	}
	in.histIdx = false
	in.saved = nil
	in.clear()
	if in.Execute != nil {
		in.Execute(line)
	}
}

// SetPrompt replaces the prompt bytes (spec §4.7: a flushed prompt line is
// written into the input line widget's prompt field).
func (in *Input) SetPrompt(p []byte) {
	in.Prompt = p
	in.Win.MarkDirty()
}

// Redraw paints prompt + visible-slice-of-buffer, scrolling LeftPos to
// keep the cursor visible and showing a "<" indicator when the buffer
// overflows the window width (spec §4.6, mandatory horizontal scroll).
func (in *Input) Redraw(w *window.Window) {
	for i := range w.Canvas {
		w.Canvas[i] = cell.Blank
	}
	col := 0
	for _, b := range in.Prompt {
		if col >= w.Width {
			break
		}
		w.Set(col, 0, cell.New(b, cell.DefaultAttr))
		col++
	}
	avail := w.Width - col
	if avail <= 0 {
		in.Win.CursorX, in.Win.CursorY = w.Width-1, 0
		return
	}

	if in.Cursor < in.LeftPos {
		in.LeftPos = in.Cursor
	}
	if in.Cursor-in.LeftPos >= avail {
		in.LeftPos = in.Cursor - avail + 1
	}
	if in.LeftPos < 0 {
		in.LeftPos = 0
	}

	indicator := in.LeftPos > 0
	start := col
	textStart := in.LeftPos
	if indicator {
		w.Set(start, 0, cell.New('<', cell.DefaultAttr))
		start++
	}
	visStart := textStart
	for x := start; x < w.Width && visStart < len(in.Buffer); x++ {
		w.Set(x, 0, cell.New(in.Buffer[visStart], cell.DefaultAttr))
		visStart++
	}

	// The cursor sits at the column holding buffer[in.Cursor]: col (prompt
	// width) + one more if an indicator is shown + offset from LeftPos.
	cursorCol := col + (in.Cursor - in.LeftPos)
	if indicator {
		cursorCol++
	}
	if cursorCol >= w.Width {
		cursorCol = w.Width - 1
	}
	if cursorCol < 0 {
		cursorCol = 0
	}
	w.CursorX, w.CursorY = cursorCol, 0
}
