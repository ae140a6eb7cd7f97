// Package control implements the headless control server described in
// spec §4.11: a Unix domain socket accepting line-delimited JSON requests,
// one attached client at a time, with detached operation continuing to
// buffer the MUD stream into scrollback regardless.
//
// Grounded on dcosson-h2/internal/daemon.go's socket lifecycle (SocketDir,
// SocketPath, the stale-socket dial-probe in Run) and
// dcosson-h2/internal/session/attach.go's one-client-at-a-time
// AttachSession/readClientInput shape — generalized from h2's binary
// frame protocol (its own wire format is fixed by its own PTY-attach use
// case) to the line-delimited JSON protocol spec §4.11 fixes for this
// system. Socket-directory bind safety additionally uses
// github.com/gofrs/flock (pack dependency via h2, already used the same
// way by internal/history) rather than h2's bare dial-probe, since a
// flock-guarded lock file survives a case the probe alone does not: two
// duskline processes racing to bind the same instance name at the same
// instant.
package control

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/session"
	"github.com/duskline/duskline/internal/widget"
)

// Request is one line-delimited JSON request (spec §4.11 table).
type Request struct {
	Cmd        string `json:"cmd"`
	Data       string `json:"data,omitempty"`
	Lines      int    `json:"lines,omitempty"`
	IntervalMs int    `json:"interval_ms,omitempty"`
}

// Response is one line-delimited JSON response (spec §4.11: "Each response
// is one JSON object followed by \n"). Every request except `stream` gets
// exactly one of these in reply; an armed `stream` gets no immediate reply
// and instead receives one Buffer response per interval from Tick.
type Response struct {
	Event          string      `json:"event"`
	Message        string      `json:"message,omitempty"`
	Lines          interface{} `json:"lines,omitempty"`
	Attached       bool        `json:"attached,omitempty"`
	Location       string      `json:"location,omitempty"`
	InventoryCount *int        `json:"inventory_count,omitempty"`
}

func ok() Response { return Response{Event: "Ok"} }

func errResp(format string, a ...interface{}) Response {
	return Response{Event: "Error", Message: fmt.Sprintf(format, a...)}
}

// SocketDir returns the conventional runtime directory for app's control
// sockets (spec §4.11: "${runtime_dir}/<app>/<instance>.sock").
func SocketDir(runtimeDir, app string) string {
	if runtimeDir == "" {
		runtimeDir = os.TempDir()
	}
	return filepath.Join(runtimeDir, app)
}

// SocketPath returns the socket path for one instance name.
func SocketPath(runtimeDir, app, instance string) string {
	return filepath.Join(SocketDir(runtimeDir, app), instance+".sock")
}

// Server owns the listening socket and the single attached client, if any.
type Server struct {
	Sess   *session.Session
	Output *widget.Output

	socketPath string
	ln         net.Listener
	lock       *flock.Flock

	client net.Conn
	stream streamState
}

// streamState is the armed-but-not-yet-running state of a `stream` request
// (spec §4.11). The actual Buffer emission happens in Tick, called from the
// event loop's own select so the ring read lands on the same thread that
// mutates it (spec §5 "no locks") instead of a free-running goroutine racing
// FeedInbound.
type streamState struct {
	active   bool
	interval time.Duration
	last     time.Time
}

// Listen binds a new control server at path, removing a stale socket left
// behind by a crashed instance (grounded on dcosson-h2 daemon.go's Run:
// dial-probe, then remove-and-rebind on failure).
func Listen(path string, sess *session.Session, out *widget.Output) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock control socket: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another instance already owns %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		conn, dialErr := net.DialTimeout("unix", path, 500*time.Millisecond)
		if dialErr == nil {
			conn.Close()
			lock.Unlock()
			return nil, fmt.Errorf("control socket %s already has a live listener", path)
		}
		os.Remove(path)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("listen on control socket: %w", err)
	}
	return &Server{Sess: sess, Output: out, socketPath: path, ln: ln, lock: lock}, nil
}

// Listener exposes the raw listener for the event loop's accept-goroutine
// (spec §5's ambient fan-in: a blocking Accept runs on its own goroutine,
// feeding the loop's one select over a channel).
func (s *Server) Listener() net.Listener { return s.ln }

// Close releases the socket, its lock, and the socket file.
func (s *Server) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	err := s.ln.Close()
	os.Remove(s.socketPath)
	s.lock.Unlock()
	return err
}

// Attached reports whether a client currently holds the connection (spec
// §4.11: "the server accepts one client at a time").
func (s *Server) Attached() bool { return s.client != nil }

// Accept finalizes a newly accepted connection as the attached client,
// rejecting it if one is already attached (spec §4.11 "one client at a
// time"; dcosson-h2/session/attach.go's handleAttach does the same
// single-client check before swapping I/O).
func (s *Server) Accept(conn net.Conn) error {
	if s.client != nil {
		go func() {
			resp, _ := json.Marshal(errResp("another client is already attached"))
			conn.Write(append(resp, '\n'))
			conn.Close()
		}()
		return fmt.Errorf("another client is already attached")
	}
	s.client = conn
	// Each attached client gets a throwaway id for log correlation: two
	// clients attaching in quick succession (one detaches, another attaches)
	// are otherwise indistinguishable in the log (grounded on h2/cmd/run.go's
	// per-agent uuid.New().String() session tagging).
	if s.Sess.Log != nil {
		s.Sess.Log.Log("control", "client attached", uuid.New().String())
	}
	return nil
}

// Client returns the attached connection, or nil.
func (s *Server) Client() net.Conn { return s.client }

// Disconnect clears the attached client after the event loop observes its
// read side fail, without closing an fd the caller may already consider
// gone (the loop's own reader goroutine owns that).
func (s *Server) Disconnect(conn net.Conn) {
	if s.client == conn {
		s.client = nil
		s.stream = streamState{}
	}
}

// HandleLine reads and dispatches exactly one JSON request line from the
// attached client (spec §4.12 "Control socket readable: parse one JSON
// line; dispatch; write one JSON response line"), except for `stream`,
// which per spec §4.11 is explicitly a blocking, repeat-until-disconnect
// interaction. HandleLine only arms it; Tick does the actual emitting on
// the loop's own thread (see DESIGN.md).
func (s *Server) HandleLine(line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.respond(errResp("bad request: %v", err))
		return
	}
	switch req.Cmd {
	case "status":
		s.respond(s.statusResponse())
	case "attach":
		s.respond(ok())
	case "detach":
		s.respond(ok())
		if s.client != nil {
			s.client.Close()
			s.client = nil
			s.stream = streamState{}
		}
	case "connect":
		s.respond(s.handleConnect(req.Data))
	case "send":
		s.Sess.Commands.Add(req.Data, command.DefaultFlags)
		s.Sess.Commands.Execute()
		s.respond(ok())
	case "sock_send":
		if err := s.Sess.WriteRaw([]byte(req.Data)); err != nil {
			s.respond(errResp("%v", err))
			return
		}
		s.respond(ok())
	case "get_buffer":
		s.respond(Response{Event: "Buffer", Lines: s.Output.Ring.VisibleLines()})
	case "peek":
		s.respond(Response{Event: "Buffer", Lines: s.Output.Ring.PeekLines(req.Lines)})
	case "hex":
		s.respond(Response{Event: "Hex", Lines: s.Output.Ring.HexDump(req.Lines)})
	case "stream":
		s.armStream(req.IntervalMs)
	case "quit":
		s.Sess.Quit()
		s.respond(ok())
	default:
		s.respond(errResp("unknown command: %s", req.Cmd))
	}
}

func (s *Server) handleConnect(data string) Response {
	host, portStr, err := net.SplitHostPort(data)
	if err != nil {
		return errResp("connect: expected host:port, got %q", data)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errResp("connect: bad port %q", portStr)
	}
	if err := s.Sess.Open(host, port); err != nil {
		return errResp("connect: %v", err)
	}
	return ok()
}

func (s *Server) statusResponse() Response {
	r := Response{Event: "Status", Attached: s.Attached()}
	if v, ok := s.sessionVar("sys/location"); ok {
		r.Location = v
	}
	if v, ok := s.sessionVar("sys/inventory_count"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			r.InventoryCount = &n
		}
	}
	return r
}

func (s *Server) sessionVar(name string) (string, bool) {
	for _, sc := range s.Sess.Scripts {
		if v, ok := sc.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// armStream records that the attached client wants a Buffer response every
// intervalMs; Tick does the actual emitting. Spec §4.11's own description of
// `stream` as blocking describes the client's experience, not a license to
// read the ring from anywhere but the event loop's single thread.
func (s *Server) armStream(intervalMs int) {
	if intervalMs <= 0 {
		intervalMs = 1000
	}
	s.stream = streamState{active: true, interval: time.Duration(intervalMs) * time.Millisecond}
}

// Tick emits one streamed Buffer response if a stream is armed and its
// interval has elapsed, called from the event loop's own tick so the ring
// read happens on the thread that owns it (spec §5).
func (s *Server) Tick(now time.Time) {
	if !s.stream.active || s.client == nil {
		return
	}
	if s.stream.last.IsZero() {
		s.stream.last = now
	}
	if now.Sub(s.stream.last) < s.stream.interval {
		return
	}
	s.stream.last = now
	resp := Response{Event: "Buffer", Lines: s.Output.Ring.VisibleLines()}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if _, err := s.client.Write(append(b, '\n')); err != nil {
		s.stream.active = false
	}
}

func (s *Server) respond(r Response) {
	if s.client == nil {
		return
	}
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	s.client.Write(append(b, '\n'))
}
