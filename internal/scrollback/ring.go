// Package scrollback implements the fixed-size 2D cell ring described in
// spec §3/§4.4: a canvas write head, a separately moveable viewpoint, and
// bulk-shift wraparound.
package scrollback

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/duskline/duskline/internal/cell"
)

// defaultCopyLines is the number of rows shifted during a bulk compaction
// (spec §3), capped by the buffer's own height.
const defaultCopyLines = 250

// Ring is the scrollback buffer: a contiguous array of width x lines cells
// with canvas_off (write head) and viewpoint_off (read head) offsets into
// it, per spec §3.
type Ring struct {
	Width  int
	Lines  int // scrollback_lines
	Height int // viewport height

	cells []cell.Cell

	canvasOff    int
	viewpointOff int
	cursorX      int
	cursorY      int

	frozen   bool
	topLine  int // lifetime count of evicted rows
	copyLines int

	highlight *Highlight
}

// Highlight is the transient search-match overlay (spec §4.4). It never
// mutates backing cells; the renderer applies it only while the
// highlighted row is visible (spec §4.5).
type Highlight struct {
	RowOffset int // cell offset of the row's first column
	Col       int
	Len       int
}

// New allocates a ring sized width x lines, with a height-row viewport
// starting at the top of the backing array.
func New(width, lines, height int) *Ring {
	r := &Ring{
		Width:     width,
		Lines:     lines,
		Height:    height,
		cells:     make([]cell.Cell, width*lines),
		copyLines: defaultCopyLines,
	}
	r.clearAll()
	return r
}

func (r *Ring) clearAll() {
	for i := range r.cells {
		r.cells[i] = cell.Blank
	}
}

// upperBound is the highest legal value for canvas_off: scrollback_lines -
// height rows from the start (spec §3 invariant).
func (r *Ring) upperBound() int {
	maxRow := r.Lines - r.Height
	if maxRow < 0 {
		maxRow = 0
	}
	return maxRow * r.Width
}

// CanvasOff, ViewpointOff, TopLine, Frozen expose read-only ring state for
// widgets and the control server.
func (r *Ring) CanvasOff() int    { return r.canvasOff }
func (r *Ring) ViewpointOff() int { return r.viewpointOff }
func (r *Ring) TopLine() int      { return r.topLine }
func (r *Ring) Frozen() bool      { return r.frozen }
func (r *Ring) CursorX() int      { return r.cursorX }
func (r *Ring) CursorY() int      { return r.cursorY }

// PrintChar writes one cell at the write cursor, advancing it and scrolling
// as needed (spec §4.4).
func (r *Ring) PrintChar(b byte, attr cell.Attribute) {
	off := r.canvasOff + r.cursorY*r.Width + r.cursorX
	r.cells[off] = cell.New(b, attr)
	r.cursorX++
	if r.cursorX == r.Width {
		r.cursorX = 0
		r.cursorY++
	}
	if r.cursorY >= r.Height {
		r.scrollOne()
	}
}

// PrintNewline moves to the start of the next row, scrolling if needed.
func (r *Ring) PrintNewline() {
	r.cursorX = 0
	r.cursorY++
	if r.cursorY >= r.Height {
		r.scrollOne()
	}
}

// scrollOne advances canvas_off by one row, or bulk-compacts the backing
// array when the upper bound is reached (spec §4.4).
func (r *Ring) scrollOne() {
	r.cursorY = r.Height - 1
	if r.canvasOff < r.upperBound() {
		r.canvasOff += r.Width
		r.clearRow(r.canvasOff + (r.Height-1)*r.Width)
		if !r.frozen {
			r.viewpointOff += r.Width
		}
		return
	}
	r.compact()
}

func (r *Ring) compact() {
	shift := r.copyLines
	maxShiftRows := r.Lines - r.Height
	if shift > maxShiftRows {
		shift = maxShiftRows
	}
	if shift <= 0 {
		// Nothing to do: the buffer is too small for a compaction; just
		// clear the bottom row in place and keep writing over it.
		r.clearRow(r.canvasOff + (r.Height-1)*r.Width)
		return
	}
	shiftCells := shift * r.Width
	copy(r.cells, r.cells[shiftCells:])
	for i := len(r.cells) - shiftCells; i < len(r.cells); i++ {
		r.cells[i] = cell.Blank
	}
	r.canvasOff -= shiftCells
	r.viewpointOff -= shiftCells
	if r.viewpointOff < 0 {
		r.viewpointOff = 0
	}
	r.topLine += shift
	// The compaction freed room above the upper bound: advance one row as
	// the non-compacting path does, so the row just written stays intact.
	r.canvasOff += r.Width
	if !r.frozen {
		r.viewpointOff += r.Width
	}
	r.clearRow(r.canvasOff + (r.Height-1)*r.Width)
}

func (r *Ring) clearRow(off int) {
	for i := off; i < off+r.Width && i < len(r.cells); i++ {
		r.cells[i] = cell.Blank
	}
}

// clampViewpoint clamps viewpoint_off to [0, canvas_off] (spec §4.4,
// tested as spec §8 item 5).
func (r *Ring) clampViewpoint() {
	if r.viewpointOff < 0 {
		r.viewpointOff = 0
	}
	if r.viewpointOff > r.canvasOff {
		r.viewpointOff = r.canvasOff
	}
}

// MoveViewpoint shifts viewpoint_off by deltaLines rows, clamped, and
// updates the frozen flag (spec §4.4).
func (r *Ring) MoveViewpoint(deltaLines int) {
	r.viewpointOff += deltaLines * r.Width
	r.clampViewpoint()
	r.updateFrozen()
}

// PageUp moves the viewpoint up by one half-page.
func (r *Ring) PageUp() { r.MoveViewpoint(-(r.Height / 2)) }

// PageDown moves the viewpoint down by one half-page.
func (r *Ring) PageDown() { r.MoveViewpoint(r.Height / 2) }

// Home moves the viewpoint to the oldest retained row.
func (r *Ring) Home() {
	r.viewpointOff = 0
	r.updateFrozen()
}

// End returns the viewpoint to the write head and clears frozen.
func (r *Ring) End() {
	r.viewpointOff = r.canvasOff
	r.frozen = false
}

func (r *Ring) updateFrozen() {
	if r.viewpointOff < r.canvasOff {
		r.frozen = true
	} else {
		r.frozen = false
	}
}

// Visible returns a copy of the height x width cells currently in view,
// starting at viewpoint_off — the slice a widget blits into its own canvas
// (spec §9 "pointer-into-ring offsets").
func (r *Ring) Visible() []cell.Cell {
	n := r.Width * r.Height
	out := make([]cell.Cell, n)
	copy(out, r.cells[r.viewpointOff:r.viewpointOff+n])
	if r.highlight != nil {
		r.applyHighlight(out)
	}
	return out
}

func (r *Ring) applyHighlight(out []cell.Cell) {
	h := r.highlight
	if h.RowOffset < r.viewpointOff || h.RowOffset >= r.viewpointOff+r.Width*r.Height {
		return // highlighted row not currently visible
	}
	localRowStart := h.RowOffset - r.viewpointOff
	for i := 0; i < h.Len; i++ {
		idx := localRowStart + h.Col + i
		if idx < 0 || idx >= len(out) {
			continue
		}
		c := out[idx]
		out[idx] = c.WithAttr(c.Attr().Invert())
	}
}

// rowText returns the plain (color-stripped) text of the row starting at
// rowOff, trimmed of trailing blanks.
func (r *Ring) rowText(rowOff int) string {
	var b strings.Builder
	for i := 0; i < r.Width; i++ {
		b.WriteByte(r.cells[rowOff+i].Byte())
	}
	return strings.TrimRight(b.String(), " \x00")
}

// Search scans rows around the viewpoint for a case-insensitive substring
// match and records a Highlight on success (spec §4.4). direction is +1
// (search forward/down) or -1 (search backward/up).
func (r *Ring) Search(term string, direction int) bool {
	if term == "" {
		return false
	}
	needle := strings.ToLower(term)
	lastRow := r.canvasOff/r.Width + r.Height - 1
	start := r.viewpointOff / r.Width
	if direction < 0 && !r.frozen {
		// While following live output, a backward search starts below the
		// visible window so the rows on screen are searched too.
		start += r.Height
	}
	for n := 1; n <= lastRow+1; n++ {
		row := start + direction*n
		if row < 0 || row > lastRow {
			continue
		}
		rowOff := row * r.Width
		text := r.rowText(rowOff)
		idx := strings.Index(strings.ToLower(text), needle)
		if idx >= 0 {
			r.highlight = &Highlight{RowOffset: rowOff, Col: idx, Len: len(term)}
			r.viewpointOff = rowOff
			r.clampViewpoint()
			r.frozen = true
			return true
		}
	}
	return false
}

// ClearHighlight removes any active search highlight.
func (r *Ring) ClearHighlight() { r.highlight = nil }

// VisibleLines renders the current viewport as plain trimmed strings, one
// per row — the control server's `get_buffer` response (spec §4.11:
// "return ... the visible viewport rendered as plain strings").
func (r *Ring) VisibleLines() []string {
	lines := make([]string, r.Height)
	for row := 0; row < r.Height; row++ {
		lines[row] = r.rowText(r.viewpointOff + row*r.Width)
	}
	return lines
}

// lastWrittenRow is the row holding the most recent output: the write
// cursor's row, or the row above it when the cursor sits at the start of
// an empty row after a newline.
func (r *Ring) lastWrittenRow() int {
	row := r.canvasOff/r.Width + r.cursorY
	if r.cursorX == 0 && row > 0 {
		row--
	}
	return row
}

// PeekLines returns the last n rows ending at the most recently written
// row without moving the viewpoint (spec §4.11 "peek": "as above but last
// N lines without advancing any cursor").
func (r *Ring) PeekLines(n int) []string {
	lastRow := r.lastWrittenRow()
	if n <= 0 {
		return nil
	}
	firstRow := lastRow - n + 1
	if firstRow < 0 {
		firstRow = 0
	}
	lines := make([]string, 0, lastRow-firstRow+1)
	for row := firstRow; row <= lastRow; row++ {
		off := row * r.Width
		if off+r.Width > len(r.cells) {
			break
		}
		lines = append(lines, r.rowText(off))
	}
	return lines
}

// HexLine is one row of a control-server `hex` debug dump (spec §4.11:
// "per line {hex, text, colors}").
type HexLine struct {
	Hex    string
	Text   string
	Colors []uint8
}

// HexDump returns the last n rows as HexLines, in the same row range as
// PeekLines.
func (r *Ring) HexDump(n int) []HexLine {
	lastRow := r.lastWrittenRow()
	if n <= 0 {
		return nil
	}
	firstRow := lastRow - n + 1
	if firstRow < 0 {
		firstRow = 0
	}
	out := make([]HexLine, 0, lastRow-firstRow+1)
	var hexBuf bytes.Buffer
	for row := firstRow; row <= lastRow; row++ {
		off := row * r.Width
		if off+r.Width > len(r.cells) {
			break
		}
		hexBuf.Reset()
		colors := make([]uint8, r.Width)
		for i := 0; i < r.Width; i++ {
			c := r.cells[off+i]
			fmt.Fprintf(&hexBuf, "%02x", c.Byte())
			colors[i] = uint8(c.Attr())
		}
		out = append(out, HexLine{Hex: hexBuf.String(), Text: r.rowText(off), Colors: colors})
	}
	return out
}

// Export writes every retained row, oldest first, to w. When includeColor
// is set, each run of same-attribute cells is prefixed with a reconstructed
// SGR escape (spec §4.4).
func (r *Ring) Export(w *bytes.Buffer, includeColor bool) error {
	rows := r.canvasOff/r.Width + r.Height
	for row := 0; row < rows; row++ {
		off := row * r.Width
		if off+r.Width > len(r.cells) {
			break
		}
		if includeColor {
			writeRowWithColor(w, r.cells[off:off+r.Width])
		} else {
			w.WriteString(r.rowText(off))
		}
		w.WriteByte('\n')
	}
	return nil
}

func writeRowWithColor(w *bytes.Buffer, row []cell.Cell) {
	var last cell.Attribute = cell.DefaultAttr
	active := false
	for _, c := range row {
		if !active || c.Attr() != last {
			if active {
				w.WriteString("\x1b[0m")
			}
			fmt.Fprintf(w, "\x1b[%sm", sgrParamsForAttr(c.Attr()))
			last = c.Attr()
			active = true
		}
		w.WriteByte(c.Byte())
	}
	if active {
		w.WriteString("\x1b[0m")
	}
}

func sgrParamsForAttr(a cell.Attribute) string {
	fg := 30 + int(a.Fg()&0x7)
	bg := 40 + int(a.Bg())
	bold := "0"
	if a.Bold() {
		bold = "1"
	}
	return fmt.Sprintf("%s;%d;%d", bold, fg, bg)
}
