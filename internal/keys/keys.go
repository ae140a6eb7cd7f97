// Package keys decodes a raw input byte stream into the normalized key
// codes spec §4.9 requires for macro lookup: ASCII values for printable
// keys, and negative codes for special keys (arrows, function keys,
// navigation) produced by ESC-prefixed sequences.
//
// Grounded on AhnafCodes-basementui/go/tui/input.go's CSI/SS3 state
// machine, adapted from its channel-push, goroutine-timer design to a
// Feed-style decoder: duskline's event loop already owns the one goroutine
// that reads stdin (spec §5), so disambiguating a bare ESC from the start
// of a sequence is the caller's job (Timeout, driven by the loop's own
// idle tick) rather than a per-key timer goroutine.
package keys

// Code identifies a decoded key. Non-negative values are raw bytes
// (printable characters and control characters alike); negative values
// name a special key with no single-byte representation.
type Code int

const (
	CodeArrowUp Code = -(iota + 1)
	CodeArrowDown
	CodeArrowLeft
	CodeArrowRight
	CodeHome
	CodeEnd
	CodePgUp
	CodePgDown
	CodeDelete
	CodeInsert
	CodeF1
	CodeF2
	CodeF3
	CodeF4
	CodeF5
	CodeF6
	CodeF7
	CodeF8
	CodeF9
	CodeF10
	CodeF11
	CodeF12
)

// ASCII control codes duskline's widgets dispatch on directly (spec §4.6's
// key table), named for readability at call sites.
const (
	CodeCtrlA     Code = 1
	CodeCtrlC     Code = 3
	CodeCtrlE     Code = 5
	CodeTab       Code = 9
	CodeCtrlJ     Code = 10
	CodeEnter     Code = 13
	CodeCtrlK     Code = 11
	CodeCtrlU     Code = 21
	CodeCtrlW     Code = 23
	CodeEsc       Code = 27
	CodeBackspace Code = 127
)

type state int

const (
	stNone state = iota
	stEsc
	stCSI
	stSS3
)

// Decoder turns a raw byte stream into Codes. It is not safe for
// concurrent use; the event loop's Run goroutine owns it and feeds it the
// bytes its stdin-reader goroutine forwards.
type Decoder struct {
	state  state
	params []byte
}

// Feed consumes one raw input byte. It returns a decoded code and ok=true
// once a complete key has been recognized, or ok=false while a multi-byte
// escape sequence is still being assembled.
func (d *Decoder) Feed(b byte) (Code, bool) {
	switch d.state {
	case stNone:
		if b == 0x1b {
			d.state = stEsc
			return 0, false
		}
		return Code(b), true

	case stEsc:
		switch b {
		case '[':
			d.state = stCSI
			d.params = d.params[:0]
			return 0, false
		case 'O':
			d.state = stSS3
			return 0, false
		default:
			// Neither CSI nor SS3: duskline has no Alt-key binding (spec
			// §4.9 macros key on ASCII/negative codes only), so the
			// pending ESC is flushed alone and b is dropped.
			d.state = stNone
			return CodeEsc, true
		}

	case stCSI:
		if b >= 0x40 && b <= 0x7e {
			code, ok := dispatchCSI(d.params, b)
			d.state = stNone
			return code, ok
		}
		d.params = append(d.params, b)
		return 0, false

	case stSS3:
		d.state = stNone
		return dispatchSS3(b)
	}
	return 0, false
}

// Pending reports whether Feed is in the middle of assembling an escape
// sequence. The event loop calls this each idle tick; if Pending and no
// byte has arrived within the timeout window, call Timeout to flush a
// bare ESC (spec §4.6: "Escape" clears the input line).
func (d *Decoder) Pending() bool { return d.state != stNone }

// Timeout flushes a pending bare ESC after the caller's own timeout
// elapses with no follow-up byte.
func (d *Decoder) Timeout() (Code, bool) {
	if d.state == stNone {
		return 0, false
	}
	d.state = stNone
	return CodeEsc, true
}

func dispatchCSI(params []byte, final byte) (Code, bool) {
	switch final {
	case 'A':
		return CodeArrowUp, true
	case 'B':
		return CodeArrowDown, true
	case 'C':
		return CodeArrowRight, true
	case 'D':
		return CodeArrowLeft, true
	case 'H':
		return CodeHome, true
	case 'F':
		return CodeEnd, true
	case '~':
		return dispatchTilde(params)
	}
	return 0, false
}

func dispatchTilde(params []byte) (Code, bool) {
	key := params
	for i, b := range params {
		if b == ';' {
			key = params[:i]
			break
		}
	}
	switch string(key) {
	case "1":
		return CodeHome, true
	case "2":
		return CodeInsert, true
	case "3":
		return CodeDelete, true
	case "4":
		return CodeEnd, true
	case "5":
		return CodePgUp, true
	case "6":
		return CodePgDown, true
	case "15":
		return CodeF5, true
	case "17":
		return CodeF6, true
	case "18":
		return CodeF7, true
	case "19":
		return CodeF8, true
	case "20":
		return CodeF9, true
	case "21":
		return CodeF10, true
	case "23":
		return CodeF11, true
	case "24":
		return CodeF12, true
	}
	return 0, false
}

func dispatchSS3(b byte) (Code, bool) {
	switch b {
	case 'A':
		return CodeArrowUp, true
	case 'B':
		return CodeArrowDown, true
	case 'C':
		return CodeArrowRight, true
	case 'D':
		return CodeArrowLeft, true
	case 'P':
		return CodeF1, true
	case 'Q':
		return CodeF2, true
	case 'R':
		return CodeF3, true
	case 'S':
		return CodeF4, true
	case 'H':
		return CodeHome, true
	case 'F':
		return CodeEnd, true
	}
	return 0, false
}
