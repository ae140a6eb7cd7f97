// Package termcap is the terminal capability collaborator named in spec
// §4.5 item 3: it tells the renderer whether color is available and
// supplies the color-independent escape sequences (alternate character
// set, scroll region). ACS availability is not detected; the xterm
// sequences are always used.
package termcap

import (
	"io"

	"github.com/muesli/termenv"
)

// Profile describes what a terminal can do, detected once at startup
// (spec §4.5 item 3; grounded on h2's virtualterminal/util.go use of
// termenv for OSC/color capability queries).
type Profile struct {
	ColorProfile termenv.Profile
	HasColor     bool
}

// Detect reads the color profile termenv derives from the environment
// (TERM, COLORTERM and the like). out is not queried.
func Detect(out io.Writer) Profile {
	p := termenv.EnvColorProfile()
	return Profile{
		ColorProfile: p,
		HasColor:     p != termenv.Ascii,
	}
}

// xterm-style alternate character set bracketing. duskline targets xterm
// and xterm-compatible terminals exclusively (spec §1 non-goals exclude a
// general terminfo database), so these are fixed rather than looked up.
const (
	acsStart = "\x1b(0" // smacs: switch to the line-drawing character set
	acsEnd   = "\x1b(B" // rmacs: switch back to US-ASCII

	// ACSOn and ACSOff are acsStart/acsEnd exported for callers (the screen
	// renderer) that toggle the alternate character set around a run of
	// cells rather than a whole pre-built string, so WrapACS doesn't fit.
	ACSOn  = acsStart
	ACSOff = acsEnd
)

// ACSBox maps the subset of box-drawing bytes duskline's borders use to
// their VT100 alternate-charset code points.
var ACSBox = map[byte]byte{
	'-': 'q', // horizontal line
	'|': 'x', // vertical line
	'+': 'n', // cross
	'c': 'j', // bottom-right corner
}

// WrapACS brackets s in smacs/rmacs so its bytes are drawn from the line
// character set instead of literally.
func WrapACS(s string) string {
	return acsStart + s + acsEnd
}

// ScrollRegion returns the DECSTBM escape restricting scrolling to rows
// top..bottom inclusive (1-indexed); ResetScrollRegion returns it to the
// full screen. The screen renderer uses this to scroll a shifted row range
// instead of re-rendering every cell of it (spec §4.5 item 3).
func ScrollRegion(top, bottom int) string {
	return "\x1b[" + itoa(top) + ";" + itoa(bottom) + "r"
}

// ResetScrollRegion restores full-screen scrolling.
const ResetScrollRegion = "\x1b[r"

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
