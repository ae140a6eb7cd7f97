package window

import (
	"bytes"
	"fmt"

	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/termcap"
)

// minScrollRun is the smallest contiguous row range worth a DECSTBM round
// trip (spec §4.5 item 1); shorter shifts cost more in escape bytes than
// they save over a plain per-cell rewrite.
const minScrollRun = 3

// Screen is the root of the window tree and owns the two-buffer diff
// renderer (spec §4.5), generalized from a flat single-canvas compare
// (basementui's Screen.renderUnlocked) to compositing an arbitrary window
// tree into one flat buffer before diffing.
type Screen struct {
	Root *Window

	width, height int
	front         []cell.Cell // last rendered frame
	back          []cell.Cell // scratch, filled each Render from Root

	frontValid bool

	// cursorX/cursorY track where the real terminal cursor physically sits,
	// so Render only emits a cursor-move escape when the next write target
	// differs from the last one (style/cursor coalescing, spec §4.5 item 2).
	cursorX, cursorY int
	curAttr          cell.Attribute
	attrValid        bool

	// acsActive tracks whether the alternate character set is currently
	// toggled on mid-row (spec §4.5 item 3 / §6 smacs/rmacs).
	acsActive bool
}

// NewScreen builds a Screen sized to the root window.
func NewScreen(root *Window) *Screen {
	n := root.Width * root.Height
	return &Screen{
		Root:   root,
		width:  root.Width,
		height: root.Height,
		front:  make([]cell.Cell, n),
		back:   make([]cell.Cell, n),
	}
}

// flattenInto copies Root's canvas (already fully composited by Refresh) into
// dst at the screen's absolute coordinates.
func (s *Screen) flattenInto(dst []cell.Cell) {
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			dst[y*s.width+x] = s.Root.Get(x, y)
		}
	}
}

// Render refreshes the window tree, diffs the result against the last
// rendered frame, and returns the minimal ANSI byte sequence to bring the
// real terminal up to date. Cursor position is left at the focused window's
// cursor, or at (0,0) of Root if nothing is focused.
func (s *Screen) Render() []byte {
	s.Root.Refresh()
	s.flattenInto(s.back)

	var buf bytes.Buffer
	s.attrValid = false

	if s.frontValid {
		if top, bottom, shift := s.detectScroll(); shift != 0 {
			s.emitScroll(&buf, top, bottom, shift)
		}
	}

	for y := 0; y < s.height; y++ {
		rowDirty := !s.frontValid
		if !rowDirty {
			for x := 0; x < s.width; x++ {
				if s.back[y*s.width+x] != s.front[y*s.width+x] {
					rowDirty = true
					break
				}
			}
		}
		if !rowDirty {
			continue
		}
		s.renderRow(&buf, y)
	}

	s.front, s.back = s.back, s.front
	s.frontValid = true

	s.positionCursor(&buf)
	return buf.Bytes()
}

// renderRow emits the minimal run-coalesced escapes for one changed row.
func (s *Screen) renderRow(buf *bytes.Buffer, y int) {
	x := 0
	for x < s.width {
		idx := y*s.width + x
		if s.frontValid && s.back[idx] == s.front[idx] {
			x++
			continue
		}
		// Start of a dirty run: move cursor, then stream same-attribute
		// cells without repositioning until the row ends or a gap appears.
		s.moveCursor(buf, x, y)
		for x < s.width {
			idx = y*s.width + x
			if s.frontValid && s.back[idx] == s.front[idx] {
				break
			}
			c := s.back[idx]
			s.setAttr(buf, c.Attr())
			s.writeGlyph(buf, c.Byte())
			s.cursorX++
			x++
		}
	}
	// Never leave ACS toggled on across a row boundary: the next dirty row
	// moves the cursor anyway, so there is no coalescing benefit to keeping
	// it on, and every frame must end with ACS off (spec §4.5 item 3).
	s.endACS(buf)
}

// writeGlyph writes one cell's byte, switching into the alternate character
// set around runs of box-drawing bytes (spec §4.5 item 3 / §6 smacs/rmacs)
// and back to normal text for everything else.
func (s *Screen) writeGlyph(buf *bytes.Buffer, b byte) {
	if glyph, ok := termcap.ACSBox[b]; ok {
		if !s.acsActive {
			buf.WriteString(termcap.ACSOn)
			s.acsActive = true
		}
		buf.WriteByte(glyph)
		return
	}
	s.endACS(buf)
	buf.WriteByte(b)
}

func (s *Screen) endACS(buf *bytes.Buffer) {
	if s.acsActive {
		buf.WriteString(termcap.ACSOff)
		s.acsActive = false
	}
}

// detectScroll looks for the largest contiguous row range that shifted
// uniformly between the last rendered frame and the new one (spec §4.5
// item 1 "plan scroll-region shifts"): shift > 0 means content moved up
// (back[y] now holds what front[y+shift] held), shift < 0 means it moved
// down. It returns shift == 0 when no run reaches minScrollRun.
func (s *Screen) detectScroll() (top, bottom, shift int) {
	bestLen := minScrollRun - 1
	for sh := 1; sh < s.height; sh++ {
		if t, b := s.longestRun(sh, true); b-t+1 > bestLen {
			top, bottom, shift, bestLen = t, b, sh, b-t+1
		}
		if t, b := s.longestRun(sh, false); b-t+1 > bestLen {
			top, bottom, shift, bestLen = t, b, -sh, b-t+1
		}
	}
	return
}

// longestRun finds the longest contiguous row range satisfying the shift
// equality in one direction (up: back[y] == front[y+sh]; down: back[y] ==
// front[y-sh]).
func (s *Screen) longestRun(sh int, up bool) (bestTop, bestBot int) {
	curTop := -1
	for y := 0; y < s.height; y++ {
		var match bool
		if up {
			match = y+sh < s.height && s.rowEqual(s.back, y, s.front, y+sh)
		} else {
			match = y-sh >= 0 && s.rowEqual(s.back, y, s.front, y-sh)
		}
		if match {
			if curTop == -1 {
				curTop = y
			}
			if y-curTop > bestBot-bestTop {
				bestTop, bestBot = curTop, y
			}
		} else {
			curTop = -1
		}
	}
	return
}

func (s *Screen) rowEqual(a []cell.Cell, ay int, b []cell.Cell, by int) bool {
	ra := a[ay*s.width : ay*s.width+s.width]
	rb := b[by*s.width : by*s.width+s.width]
	for i := range ra {
		if ra[i] != rb[i] {
			return false
		}
	}
	return true
}

// emitScroll writes the DECSTBM-bracketed scroll for a detected shift and
// patches front to match what the real terminal now shows, so the ensuing
// per-cell diff only has to account for the rows the scroll actually
// exposed (spec §8 item 7 "scroll-region soundness").
func (s *Screen) emitScroll(buf *bytes.Buffer, top, bottom, shift int) {
	n := shift
	down := shift < 0
	if down {
		n = -n
	}
	// The margin spans the shifted rows' old and new positions: rows
	// [top,bottom] received content from n rows below (up) or above (down).
	rTop, rBot := top, bottom+n
	if down {
		rTop, rBot = top-n, bottom
	}
	buf.WriteString(termcap.ScrollRegion(rTop+1, rBot+1))
	if down {
		fmt.Fprintf(buf, "\x1b[%d;%dH", rTop+1, 1)
		for i := 0; i < n; i++ {
			buf.WriteString("\x1bM") // RI: reverse index, scrolls down at the top margin
		}
	} else {
		fmt.Fprintf(buf, "\x1b[%d;%dH", rBot+1, 1)
		for i := 0; i < n; i++ {
			buf.WriteByte('\n') // LF at the bottom margin scrolls the region up
		}
	}
	buf.WriteString(termcap.ResetScrollRegion)
	// DECSTBM homes the cursor on xterm, both setting and resetting the
	// margin; the next write must reposition absolutely.
	s.cursorX, s.cursorY = -1, -1
	s.patchFrontScroll(rTop, rBot, shift)
}

// patchFrontScroll mirrors a just-emitted scroll onto front: rows within
// [top,bottom] shift by shift, and the rows the scroll newly exposed become
// blank, exactly as the real terminal's margin-bound scroll just left them.
func (s *Screen) patchFrontScroll(top, bottom, shift int) {
	rows := bottom - top + 1
	n := shift
	up := n > 0
	if !up {
		n = -n
	}
	saved := append([]cell.Cell(nil), s.front[top*s.width:(bottom+1)*s.width]...)
	for y := 0; y < rows; y++ {
		var srcY int
		if up {
			srcY = y + n
		} else {
			srcY = y - n
		}
		dstOff := (top + y) * s.width
		if srcY >= 0 && srcY < rows {
			copy(s.front[dstOff:dstOff+s.width], saved[srcY*s.width:srcY*s.width+s.width])
		} else {
			for x := 0; x < s.width; x++ {
				s.front[dstOff+x] = cell.Blank
			}
		}
	}
}

// moveCursor emits a cursor-position escape only if the real cursor isn't
// already sitting at (x, y) (spec §4.5 item 2: cursor-move coalescing),
// preferring a relative move when it's shorter than the absolute one.
func (s *Screen) moveCursor(buf *bytes.Buffer, x, y int) {
	if s.cursorX == x && s.cursorY == y {
		return
	}
	abs := fmt.Sprintf("\x1b[%d;%dH", y+1, x+1)
	if rel := s.relativeMove(x, y); rel != "" && len(rel) < len(abs) {
		buf.WriteString(rel)
	} else {
		buf.WriteString(abs)
	}
	s.cursorX, s.cursorY = x, y
}

// relativeMove returns a CUU/CUD/CUF/CUB escape for a same-row or
// same-column move, or "" when the current position is unknown (e.g. right
// after a DECSTBM round trip) or the move isn't axis-aligned.
func (s *Screen) relativeMove(x, y int) string {
	if s.cursorX < 0 || s.cursorY < 0 {
		return ""
	}
	dx, dy := x-s.cursorX, y-s.cursorY
	switch {
	case dy == 0 && dx > 0:
		return fmt.Sprintf("\x1b[%dC", dx)
	case dy == 0 && dx < 0:
		return fmt.Sprintf("\x1b[%dD", -dx)
	case dx == 0 && dy > 0:
		return fmt.Sprintf("\x1b[%dB", dy)
	case dx == 0 && dy < 0:
		return fmt.Sprintf("\x1b[%dA", -dy)
	default:
		return ""
	}
}

// setAttr emits an SGR escape only when attr differs from the last one
// written (spec §4.5 item 2: style-change coalescing), with the
// fg=white,bg=black,bold=0 default collapsing to the bare reset sequence.
func (s *Screen) setAttr(buf *bytes.Buffer, attr cell.Attribute) {
	if s.attrValid && attr == s.curAttr {
		return
	}
	if attr == cell.DefaultAttr {
		buf.WriteString("\x1b[0m")
	} else {
		bold := 0
		if attr.Bold() {
			bold = 1
		}
		fmt.Fprintf(buf, "\x1b[%d;%d;%dm", bold, 30+int(attr.Fg()&0x7), 40+int(attr.Bg()))
	}
	s.curAttr = attr
	s.attrValid = true
}

// positionCursor parks the real cursor at the focused window's logical
// cursor position, found by walking the tree for the Focused flag.
func (s *Screen) positionCursor(buf *bytes.Buffer) {
	fw := s.findFocused(s.Root, 0, 0)
	if fw == nil {
		s.moveCursor(buf, 0, 0)
		return
	}
	x := fw.absX + fw.w.CursorX
	y := fw.absY + fw.w.CursorY
	s.moveCursor(buf, x, y)
}

type focusedHit struct {
	w          *Window
	absX, absY int
}

func (s *Screen) findFocused(w *Window, offX, offY int) *focusedHit {
	x, y := offX+w.X, offY+w.Y
	if w.Focused {
		return &focusedHit{w: w, absX: x, absY: y}
	}
	for _, c := range w.Children {
		if hit := s.findFocused(c, x, y); hit != nil {
			return hit
		}
	}
	return nil
}

// Invalidate forces the next Render to redraw every cell, used after a
// terminal resize or reattach when the remote screen contents are unknown
// (spec §4.5).
func (s *Screen) Invalidate() {
	s.frontValid = false
}
