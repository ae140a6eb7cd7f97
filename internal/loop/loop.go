// Package loop implements the single-threaded, cooperative event loop
// described in spec §4.12: one select-equivalent wait per iteration over
// stdin, the MUD socket, the control-server listener, and the attached
// control client, plus a 250ms idle tick.
//
// Grounded on dcosson-h2/internal/daemon.go's acceptLoop shape (a blocking
// Accept spun onto its own goroutine feeding a channel the owning loop
// selects on) generalized from h2's single PTY-attach listener to
// duskline's four concurrent readers (stdin, MUD socket, control listener,
// control client) — each gets its own goroutine whose only job is turning
// a blocking read into a channel send, so Run's one select stays the sole
// place process state is mutated (spec §5 "no locks").
package loop

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/control"
	"github.com/duskline/duskline/internal/keys"
	"github.com/duskline/duskline/internal/session"
	"github.com/duskline/duskline/internal/widget"
	"github.com/duskline/duskline/internal/window"
)

// tickInterval is the poll ceiling named in spec §4.12 ("one poll-like
// call per iteration with a 250ms timeout") and also the window the key
// decoder's ESC-disambiguation timeout is measured against (spec §4.6 via
// internal/keys' package doc comment: "driven by the loop's own idle tick").
const tickInterval = 250 * time.Millisecond

type sockEvent struct {
	conn net.Conn
	data []byte
	err  error
}

type clientLine struct {
	conn net.Conn
	line []byte
	err  error
}

// Loop owns every long-lived goroutine and is the only code that mutates
// Sess, Out, In, Status, or Control after construction (spec §5 "the
// entire process state is owned by the event loop").
type Loop struct {
	Sess    *session.Session
	Out     *widget.Output
	In      *widget.Input
	Status  *widget.Status
	Screen  *window.Screen
	Control *control.Server // nil when no headless/control socket is published

	// Stdin is the raw (already-raw-mode, if a real tty) byte source for
	// keyboard input; nil when running headless with no local terminal
	// (spec §4.12: "stdin/tty file descriptor (when attached)").
	Stdin io.Reader
	// TermOut receives the diff-rendered terminal bytes; nil when headless
	// (spec §4.12: "call Screen::refresh() ... only if attached").
	TermOut io.Writer

	keyDec     keys.Decoder
	lastByteAt time.Time

	stdinCh  chan byte
	sockCh   chan sockEvent
	acceptCh chan net.Conn
	clientCh chan clientLine
}

// New wires a Loop around the given widgets and session, and installs the
// input line's Enter callback so typed lines reach the command queue.
func New(sess *session.Session, out *widget.Output, in *widget.Input, status *widget.Status, screen *window.Screen, ctrl *control.Server) *Loop {
	l := &Loop{
		Sess:     sess,
		Out:      out,
		In:       in,
		Status:   status,
		Screen:   screen,
		Control:  ctrl,
		stdinCh:  make(chan byte, 256),
		sockCh:   make(chan sockEvent, 8),
		acceptCh: make(chan net.Conn, 1),
		clientCh: make(chan clientLine, 8),
	}
	in.Execute = func(line []byte) {
		sess.Commands.Add(string(line), command.DefaultFlags)
	}
	sess.OnStatus = func(text string) {
		if status != nil {
			status.Set(text, cell.DefaultAttr)
		}
	}
	return l
}

// AttachConn marks the session connected to conn and starts reading it, for
// callers that establish the connection themselves rather than going
// through Session.Open/DialChan (duskline's --offline stand-in world has no
// socket to dial).
func (l *Loop) AttachConn(conn net.Conn) {
	l.Sess.Conn = conn
	l.Sess.State = session.StateConnected
	l.startSockReader(conn)
}

// Run is the single serialization point (spec §4.12/§5): it returns once
// Session.Quitting is set, which only #quit or the control server's quit
// command can do.
func (l *Loop) Run() error {
	if l.Stdin != nil {
		l.startStdin(l.Stdin)
	}
	if l.Control != nil {
		l.startControlAccept()
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for !l.Sess.Quitting {
		select {
		case b, ok := <-l.stdinCh:
			if !ok {
				l.Stdin = nil
				continue
			}
			l.handleStdinByte(b)

		case res := <-l.Sess.DialChan():
			l.Sess.FinishOpen(res)
			if res.Err == nil {
				l.startSockReader(l.Sess.Conn)
			}

		case ev := <-l.sockCh:
			l.handleSockEvent(ev)

		case conn := <-l.acceptChOrNil():
			l.handleAccept(conn)

		case cl := <-l.clientCh:
			l.handleClientLine(cl)

		case now := <-ticker.C:
			l.tick(now)
		}

		l.Sess.Commands.Execute()
	}
	return nil
}

// acceptChOrNil returns a nil channel (never selected) once no control
// server is configured, so Run's select degrades cleanly without it.
func (l *Loop) acceptChOrNil() <-chan net.Conn {
	if l.Control == nil {
		return nil
	}
	return l.acceptCh
}

func (l *Loop) startStdin(r io.Reader) {
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := r.Read(buf)
			for i := 0; i < n; i++ {
				l.stdinCh <- buf[i]
			}
			if err != nil {
				close(l.stdinCh)
				return
			}
		}
	}()
}

func (l *Loop) startSockReader(conn net.Conn) {
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				l.sockCh <- sockEvent{conn: conn, data: chunk}
			}
			if err != nil {
				l.sockCh <- sockEvent{conn: conn, err: err}
				return
			}
		}
	}()
}

func (l *Loop) startControlAccept() {
	go func() {
		for {
			conn, err := l.Control.Listener().Accept()
			if err != nil {
				return
			}
			l.acceptCh <- conn
		}
	}()
}

func (l *Loop) startClientReader(conn net.Conn) {
	go func() {
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadBytes('\n')
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				l.clientCh <- clientLine{conn: conn, line: line}
			}
			if err != nil {
				l.clientCh <- clientLine{conn: conn, err: err}
				return
			}
		}
	}()
}

// handleStdinByte decodes one raw byte and, once a full key is recognized,
// routes it to macro lookup then the focused widget (spec §4.12 "stdin
// ready" bullet).
func (l *Loop) handleStdinByte(b byte) {
	l.lastByteAt = time.Now()
	code, ok := l.keyDec.Feed(b)
	if !ok {
		return
	}
	l.dispatchKey(code)
}

func (l *Loop) dispatchKey(code keys.Code) {
	if prof := l.Sess.Profile(); prof != nil {
		if m := prof.LookupMacro(int(code)); m != nil {
			l.Sess.Commands.Add(m.Commands, command.DefaultFlags)
			return
		}
	}
	if !l.Out.HandleKey(code) {
		l.In.HandleKey(code)
	}
}

// handleSockEvent feeds one readable chunk through the session's pipeline,
// ignoring events from a connection the session has since moved past
// (spec §5 ordering: "inbound bytes are processed in arrival order through
// the full pipeline before any outbound writes or rendering").
func (l *Loop) handleSockEvent(ev sockEvent) {
	if ev.conn != l.Sess.Conn {
		return
	}
	if ev.err != nil {
		l.Sess.Close()
		l.Sess.SetStatus(fmt.Sprintf("connection lost: %v", ev.err))
		return
	}
	if err := l.Sess.FeedInbound(ev.data); err != nil {
		l.Sess.Close()
		l.Sess.SetStatus(fmt.Sprintf("pipeline error: %v", err))
	}
}

func (l *Loop) handleAccept(conn net.Conn) {
	if err := l.Control.Accept(conn); err != nil {
		return // Accept already wrote the rejection and closed conn.
	}
	l.startClientReader(conn)
}

func (l *Loop) handleClientLine(cl clientLine) {
	if cl.conn != l.Control.Client() {
		return // stale reader from an already-detached client
	}
	if cl.err != nil {
		l.Control.Disconnect(cl.conn)
		return
	}
	l.Control.HandleLine(cl.line)
}

// tick runs the unconditional per-iteration work spec §4.12 names: the
// session's own timeout check, a flush of any escape sequence the decoder
// has been waiting on past this tick, widget/screen repaint, and the
// sys/idle hook.
func (l *Loop) tick(now time.Time) {
	l.Sess.Idle(now)

	if l.keyDec.Pending() && now.Sub(l.lastByteAt) >= tickInterval {
		if code, ok := l.keyDec.Timeout(); ok {
			l.dispatchKey(code)
		}
	}

	for _, sc := range l.Sess.Scripts {
		sc.Run("sys/idle", "")
	}

	if l.Control != nil {
		l.Control.Tick(now)
	}

	l.redraw()
}

// redraw repaints dirty widgets, diffs, and writes the real terminal only
// when a local tty is attached (spec §4.12: "call Screen::refresh() ...
// only if attached"); with no TermOut it does nothing. A headless instance still
// wants its scrollback ring current for get_buffer/peek/stream, which
// FeedInbound already guarantees independent of any Window's Dirty flag.
func (l *Loop) redraw() {
	if l.TermOut == nil {
		return
	}
	out := l.Screen.Render()
	if len(out) > 0 {
		l.TermOut.Write(out)
	}
}
