package proto

const (
	iac  = 255
	will = 251
	wont = 252
	do   = 253
	dont = 254
	sb   = 250
	se   = 240
	ga   = 249
	eor  = 239

	optEndOfRecord = 25
	// OptCompressV1 and OptCompressV2 are exported for the session layer,
	// which owns compression-handshake recognition per spec §4.1 ("the
	// handshake is performed in the session layer on the pre-decompressed
	// stream prior to activation"). The telnet parser itself only strips
	// subnegotiation content and hands the raw body upward as a Subneg
	// event (spec §4.2: "SB...IAC SE content is discarded entirely except
	// that compression-start sequences are recognized one layer up").
	OptCompressV1 = 85
	OptCompressV2 = 86
)

type telnetState int

const (
	stData telnetState = iota
	stIAC
	stNeg // WILL/WONT/DO/DONT, next byte is option code
	stSB
	stSBIAC
)

// Prompt is emitted for a telnet GA/EOR marker, signaling the session to
// flush its prompt buffer (spec §4.2).
type Prompt struct{}

// Subneg carries a completed subnegotiation body (the bytes between SB and
// the terminating IAC SE, with internal IAC-escaping undone) up to the
// session layer, which is the one place compression-start sequences are
// recognized (spec §4.1).
type Subneg struct {
	Body []byte
}

// Telnet is the byte-driven IAC state machine described in spec §4.2. It
// owns only its own small parse state; byte counters belong to the caller.
type Telnet struct {
	state telnetState
	verb  byte
	sbBuf []byte

	// maxSubneg bounds subnegotiation gather length so a pathological or
	// malicious stream can't grow sbBuf unboundedly (spec §7: "protocol ...
	// oversized telnet sequence" is dropped, not fatal).
	maxSubneg int
}

// NewTelnet returns a Telnet parser ready to consume bytes starting in the
// data state.
func NewTelnet() *Telnet {
	return &Telnet{maxSubneg: 64 * 1024}
}

// Feed consumes in (already decompressed) and returns the stripped
// application byte stream, any prompt events, any completed subnegotiation
// bodies, and any reply bytes that must be written back to the MUD socket
// (option negotiation acks).
func (t *Telnet) Feed(in []byte) (app []byte, prompts []Prompt, subnegs []Subneg, replies []byte) {
	app = make([]byte, 0, len(in))
	for _, b := range in {
		switch t.state {
		case stData:
			if b == iac {
				t.state = stIAC
				continue
			}
			app = append(app, b)

		case stIAC:
			switch b {
			case iac:
				app = append(app, 255)
				t.state = stData
			case ga, eor:
				prompts = append(prompts, Prompt{})
				t.state = stData
			case will, wont, do, dont:
				t.verb = b
				t.state = stNeg
			case sb:
				t.sbBuf = t.sbBuf[:0]
				t.state = stSB
			default:
				t.state = stData
			}

		case stNeg:
			if t.verb == will && b == optEndOfRecord {
				replies = append(replies, iac, do, optEndOfRecord)
			}
			// All other WILL/WONT/DO/DONT options are silently consumed.
			t.state = stData

		case stSB:
			if b == iac {
				t.state = stSBIAC
				continue
			}
			if len(t.sbBuf) < t.maxSubneg {
				t.sbBuf = append(t.sbBuf, b)
			}

		case stSBIAC:
			switch b {
			case se:
				subnegs = append(subnegs, Subneg{Body: append([]byte(nil), t.sbBuf...)})
				t.state = stData
			case iac:
				if len(t.sbBuf) < t.maxSubneg {
					t.sbBuf = append(t.sbBuf, iac)
				}
				t.state = stSB
			default:
				// Malformed SB...IAC<not SE/IAC>; drop the byte and keep
				// gathering (spec §7: protocol errors are dropped, not fatal).
				t.state = stSB
			}
		}
	}
	return app, prompts, subnegs, replies
}

// ReplyDo replies IAC DO <opt>, used by the session layer to ack a
// compression offer recognized from a Subneg body.
func ReplyDo(opt byte) []byte { return []byte{iac, do, opt} }

// ReplyDont replies IAC DONT <opt>, used to reject a v1 offer after v2 is
// already active (spec §4.1).
func ReplyDont(opt byte) []byte { return []byte{iac, dont, opt} }
