package proto

import "github.com/duskline/duskline/internal/cell"

// EventKind distinguishes the two ANSI event types the parser emits.
type EventKind int

const (
	EventSetColor EventKind = iota
	EventText
)

// Event is one decoded unit from the ANSI parser: either a color change or
// a literal output byte (spec §4.3).
type Event struct {
	Kind EventKind
	Attr cell.Attribute // valid when Kind == EventSetColor
	Byte byte           // valid when Kind == EventText
}

type ansiState int

const (
	ansiText ansiState = iota
	ansiEsc
	ansiCSI
)

// ANSI consumes the telnet-stripped application stream and produces
// SetColor/Text events. Only SGR CSI sequences (ESC [ params m) are
// interpreted; any other "ESC [ ... letter" sequence is consumed and
// discarded (spec §4.3).
type ANSI struct {
	state   ansiState
	params  []byte
	current cell.Attribute
	maxCSI  int
}

// NewANSI returns a parser with the default starting color (spec §3).
func NewANSI() *ANSI {
	return &ANSI{current: cell.DefaultAttr, maxCSI: 256}
}

// Feed appends events for in to dst and returns the extended slice. An
// incomplete CSI sequence at the end of in is buffered internally and
// completed by a later Feed call (spec §4.3 fragmentation invariance,
// tested in spec §8 item 3).
func (p *ANSI) Feed(in []byte, dst []Event) []Event {
	for _, b := range in {
		switch p.state {
		case ansiText:
			if b == 0x1b {
				p.state = ansiEsc
				continue
			}
			if b == '\r' {
				// Never emit Text('\r') — matches reference behavior
				// (spec §4.3).
				continue
			}
			dst = append(dst, Event{Kind: EventText, Byte: b})

		case ansiEsc:
			if b == '[' {
				p.params = p.params[:0]
				p.state = ansiCSI
			} else {
				// Not a CSI introducer; drop silently and resume text mode.
				p.state = ansiText
			}

		case ansiCSI:
			if b >= '0' && b <= '9' || b == ';' {
				if len(p.params) < p.maxCSI {
					p.params = append(p.params, b)
				}
				continue
			}
			if b >= 0x20 && b <= 0x3f {
				// Other parameter bytes (e.g. '?') and intermediates are
				// consumed without being recorded.
				continue
			}
			// Any byte in 0x40-0x7e ends the CSI sequence.
			if b == 'm' {
				p.applySGR(p.params)
				dst = append(dst, Event{Kind: EventSetColor, Attr: p.current})
			}
			// All other CSI finals (cursor moves, erase, ...) are consumed
			// and discarded per spec §4.3.
			p.state = ansiText
		}
	}
	return dst
}

// applySGR interprets a semicolon-separated SGR parameter list (spec §4.3).
func (p *ANSI) applySGR(params []byte) {
	if len(params) == 0 {
		// Bare ESC[m carries no digits at all; conventional terminals treat
		// it the same as ESC[0m rather than a no-op.
		p.applyParam(0)
		return
	}
	start := 0
	flush := func(end int) {
		if end <= start {
			if start == end {
				p.applyParam(0)
			}
			return
		}
		n := 0
		for _, c := range params[start:end] {
			n = n*10 + int(c-'0')
		}
		p.applyParam(n)
	}
	for i, c := range params {
		if c == ';' {
			flush(i)
			start = i + 1
		}
	}
	flush(len(params))
}

func (p *ANSI) applyParam(n int) {
	switch {
	case n == 0:
		p.current = cell.DefaultAttr
	case n == 1:
		p.current = p.current.WithBold(true)
	case n >= 30 && n <= 37:
		p.current = p.current.WithFg(cell.Color(n - 30))
	case n >= 40 && n <= 47:
		p.current = p.current.WithBg(cell.Color(n - 40))
	case n >= 90 && n <= 97:
		p.current = p.current.WithFg(cell.Color(n - 90 + 8)).WithBold(true)
	case n >= 100 && n <= 107:
		// The background field is only 3 bits (spec §3), so a "bright"
		// background collapses onto the same 0-7 index as its normal
		// counterpart; there is no bright-background bit to set.
		p.current = p.current.WithBg(cell.Color((n - 100 + 8) & 0x7))
	}
}

// Current returns the parser's current color, for callers that need to
// seed a fresh widget cursor or check state after a reset.
func (p *ANSI) Current() cell.Attribute { return p.current }
