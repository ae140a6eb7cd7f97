// Package session implements the connection lifecycle and pipeline glue
// described in spec §4.7: decompress -> telnet -> ANSI -> cells, prompt
// buffering, and trigger/substitution/gag dispatch into the command queue.
//
// Grounded on dcosson-h2/internal/daemon's child-process lifecycle
// (Run/acceptLoop/callback-wiring shape) generalized from a PTY-wrapped
// child process to a TCP connection to a remote MUD: where h2 waits on a
// child's exit, duskline waits on a socket's connect/read/close; where h2's
// Overlay fires OnChildExit/OnChildRelaunch callbacks, Session fires the
// sys/connect, sys/output, sys/prompt, sys/loselink scripting hooks named
// in spec §4.7.
package session

import (
	"bytes"
	"fmt"
	"net"
	"time"

	"github.com/duskline/duskline/internal/applog"
	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/cell"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/proto"
	"github.com/duskline/duskline/internal/widget"
)

// State is one of the three session lifecycle states (spec §3 "Session").
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// connectTimeout bounds the connecting phase (spec §4.7 "idle()": "If
// connecting and 30s elapsed, fail with timeout").
const connectTimeout = 30 * time.Second

// Stats tracks the counters named in spec §3 "Session".
type Stats struct {
	BytesIn, BytesOut int64
	ConnectTime       time.Time
	DialTime          time.Time
}

// coloredByte is one entry of the line/prompt buffers (spec §3 "Line
// buffer" / "Prompt buffer").
type coloredByte struct {
	b    byte
	attr cell.Attribute
}

// DialResult is delivered on the channel returned by DialChan once the
// background connect attempt finishes — the channel-fan-in realization of
// spec §5's single-threaded-cooperative model (see SPEC_FULL.md "Concurrency
// idiom"): the blocking syscall runs on its own goroutine, but the result is
// only ever consumed inside the event loop's one select.
type DialResult struct {
	Conn net.Conn
	Err  error
}

// Session is the state machine that owns one MUD connection (spec §3).
type Session struct {
	State State
	Mud   *automation.Profile
	Conn  net.Conn
	Stats Stats

	lineBuffer []coloredByte

	Output *widget.Output
	Input  *widget.Input

	Decompressor proto.Decompressor
	Telnet       *proto.Telnet
	ANSI         *proto.ANSI

	compressV2 bool // true once MCCP v2 is active; rejects a later v1 offer

	// Commands is the shared command processor; trigger actions are
	// Add()ed here but never Executed from inside FeedInbound (spec §5:
	// "the command queue is drained after the pipeline, not inside it").
	Commands *command.Processor

	Scripts []Scripting

	Log *applog.Logger

	// OnStatus surfaces a short status-line message (spec §7).
	OnStatus func(text string)

	dialCh      chan DialResult
	dialing     bool
	dialStarted time.Time

	// MaxPromptLen bounds the prompt field written into the input widget
	// (spec §4.7 "truncated to a maximum").
	MaxPromptLen int

	// ProfilesPath is where #save writes the profile file (spec §6 "#save").
	ProfilesPath string
	// VersionString answers #version.
	VersionString string

	features map[string]bool

	// Quitting is set once #quit or the control server's quit command has
	// fired; the event loop checks it after each tick (spec §4.12
	// "Cancellation").
	Quitting bool
	// OnQuit is invoked synchronously by Quit before Quitting is set, so
	// callers can flush history/config before the loop exits.
	OnQuit func()
}

// New builds a disconnected Session wired to out/in widgets and a shared
// command processor.
func New(out *widget.Output, in *widget.Input, cmds *command.Processor) *Session {
	return &Session{
		Output:       out,
		Input:        in,
		Decompressor: proto.NewInflate(),
		Telnet:       proto.NewTelnet(),
		ANSI:         proto.NewANSI(),
		Commands:     cmds,
		MaxPromptLen: 200,
	}
}

// Open begins connecting to host:port in the background and returns
// immediately; the caller selects on DialChan and calls FinishOpen with
// the result (spec §4.7 "open(host, port)").
func (s *Session) Open(host string, port int) error {
	if s.State != StateDisconnected {
		return fmt.Errorf("session already %s", s.State)
	}
	s.State = StateConnecting
	s.dialStarted = time.Now()
	s.Stats.DialTime = s.dialStarted
	s.dialing = true
	ch := make(chan DialResult, 1)
	s.dialCh = ch
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	go func() {
		conn, err := net.DialTimeout("tcp", addr, connectTimeout)
		ch <- DialResult{Conn: conn, Err: err}
	}()
	return nil
}

// DialChan returns the channel the event loop should select on while
// StateConnecting; it is nil otherwise.
func (s *Session) DialChan() <-chan DialResult {
	if !s.dialing {
		return nil
	}
	return s.dialCh
}

// FinishOpen completes a connection attempt delivered over DialChan (spec
// §4.7: "when the socket becomes writable without error, transition to
// connected ... invoke sys/connect ... write connect_commands").
func (s *Session) FinishOpen(res DialResult) {
	s.dialing = false
	if res.Err != nil {
		s.State = StateDisconnected
		s.surfaceStatus(fmt.Sprintf("connect failed: %v", res.Err))
		s.logWarn("network", res.Err)
		s.invokeHook("sys/loselink", "")
		return
	}
	s.Conn = res.Conn
	s.State = StateConnected
	s.Stats.ConnectTime = time.Now()
	s.invokeHook("sys/connect", "")
	if s.Mud != nil {
		for _, c := range s.Mud.ConnectCommands {
			s.Commands.Add(c, command.DefaultFlags)
		}
	}
}

// Idle is called once per event-loop tick (spec §4.7 "idle()").
func (s *Session) Idle(now time.Time) {
	if s.State == StateConnecting && now.Sub(s.dialStarted) > connectTimeout {
		s.dialing = false
		s.State = StateDisconnected
		s.surfaceStatus("connect timed out")
		s.logWarn("network", fmt.Errorf("connect timeout after %s", connectTimeout))
		s.invokeHook("sys/loselink", "")
	}
}

// Close ends the session (spec §4.7 "close()").
func (s *Session) Close() error {
	if s.State == StateDisconnected {
		return nil
	}
	s.invokeHook("sys/loselink", "")
	s.setVar("sys/mud", "")
	var err error
	if s.Conn != nil {
		err = s.Conn.Close()
		s.Conn = nil
	}
	s.State = StateDisconnected
	s.lineBuffer = s.lineBuffer[:0]
	return err
}

// WriteRaw writes bytes directly to the MUD socket (spec §4.11
// "sock_send"; also used internally for telnet option replies).
func (s *Session) WriteRaw(b []byte) error {
	if s.Conn == nil {
		return fmt.Errorf("not connected")
	}
	n, err := s.Conn.Write(b)
	s.Stats.BytesOut += int64(n)
	return err
}

// Send is the command.Host outbound path: write line+"\n" to the socket
// (spec §4.8 "Dispatch": "write the entry followed by \n to the MUD
// socket").
func (s *Session) Send(line string) error {
	return s.WriteRaw(append([]byte(line), '\n'))
}

func (s *Session) surfaceStatus(text string) {
	if s.OnStatus != nil {
		s.OnStatus(text)
	}
}

func (s *Session) logWarn(kind string, err error) {
	if s.Log != nil {
		s.Log.Warn(kind, err)
	}
}

func (s *Session) setVar(name, value string) {
	for _, sc := range s.Scripts {
		sc.Set(name, value)
	}
}

// invokeHook threads text through every stacked scripting backend in
// order, each receiving the previous backend's (possibly transformed)
// output (spec §4.7 "Scripting capability": "invocation iterates each and
// threads the ... text through successive engines, preserving order").
func (s *Session) invokeHook(name, text string) string {
	for _, sc := range s.Scripts {
		out, err := sc.Run(name, text)
		if err != nil {
			s.logWarn("scripting", err)
			continue
		}
		text = out
	}
	return text
}

// lineBufferText returns the plain (color-stripped) text of the current
// line buffer, used for trigger matching (spec §3 "Line buffer").
func (s *Session) lineBufferText() string {
	var b bytes.Buffer
	for _, cb := range s.lineBuffer {
		b.WriteByte(cb.b)
	}
	return b.String()
}
