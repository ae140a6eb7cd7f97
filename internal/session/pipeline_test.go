package session

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/duskline/duskline/internal/automation"
	"github.com/duskline/duskline/internal/command"
	"github.com/duskline/duskline/internal/widget"
)

// fakeScripting is the narrowest Scripting implementation that can drive
// the trigger pass in tests: it wraps the real regex matcher (so
// AddTrigger/Exec behave exactly as they would with a live backend) and
// treats every hook/variable call as a no-op pass-through.
type fakeScripting struct {
	*automation.DefaultMatcher
	vars map[string]string
}

func newFakeScripting() *fakeScripting {
	return &fakeScripting{DefaultMatcher: automation.NewDefaultMatcher(), vars: map[string]string{}}
}

func (f *fakeScripting) Eval(string) error                { return nil }
func (f *fakeScripting) LoadFile(string, bool) error       { return nil }
func (f *fakeScripting) Run(_ string, text string) (string, error) { return text, nil }
func (f *fakeScripting) Set(name, value string) error      { f.vars[name] = value; return nil }
func (f *fakeScripting) Get(name string) (string, bool)    { v, ok := f.vars[name]; return v, ok }

func newTestSession(t *testing.T) *Session {
	t.Helper()
	out := widget.NewOutput(40, 50, 10)
	in := widget.NewInput(40, nil, "main")
	s := New(out, in, nil)
	return s
}

func lastLine(s *Session) string {
	lines := s.Output.Ring.PeekLines(1)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func TestFeedInbound_PlainLineReachesScrollback(t *testing.T) {
	s := newTestSession(t)
	if err := s.FeedInbound([]byte("hello world\r\n")); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}
	if got := lastLine(s); got != "hello world" {
		t.Fatalf("lastLine = %q, want %q", got, "hello world")
	}
}

func TestFeedInbound_GagSuppressesLine(t *testing.T) {
	s := newTestSession(t)
	sc := newFakeScripting()
	s.Scripts = []Scripting{sc}
	s.Mud = &automation.Profile{Name: "test"}
	if err := s.Mud.AddTrigger(sc, "spam", "", automation.TriggerGag); err != nil {
		t.Fatalf("AddTrigger: %v", err)
	}

	if err := s.FeedInbound([]byte("this is spam\n")); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}
	if got := lastLine(s); strings.Contains(got, "spam") {
		t.Fatalf("gagged line reached scrollback: %q", got)
	}
}

func TestFeedInbound_ActionTriggerEnqueuesCommand(t *testing.T) {
	s := newTestSession(t)
	sc := newFakeScripting()
	s.Scripts = []Scripting{sc}
	s.Commands = command.NewProcessor(s)
	s.Mud = &automation.Profile{Name: "test"}
	if err := s.Mud.AddTrigger(sc, "you are attacked", "flee", automation.TriggerAction); err != nil {
		t.Fatalf("AddTrigger: %v", err)
	}

	if err := s.FeedInbound([]byte("you are attacked by a rat\n")); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}
	if s.Commands.Pending() != 1 {
		t.Fatalf("expected one queued command, got %d", s.Commands.Pending())
	}
}

func TestFeedInbound_SubstitutionRewritesLine(t *testing.T) {
	s := newTestSession(t)
	sc := newFakeScripting()
	s.Scripts = []Scripting{sc}
	s.Mud = &automation.Profile{Name: "test"}
	if err := s.Mud.AddTrigger(sc, "foo", "bar", automation.TriggerSubstitution); err != nil {
		t.Fatalf("AddTrigger: %v", err)
	}

	if err := s.FeedInbound([]byte("foo baz\n")); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}
	if got := lastLine(s); got != "bar baz" {
		t.Fatalf("lastLine = %q, want %q", got, "bar baz")
	}
}

func TestFlushPrompt_SetsInputPrompt(t *testing.T) {
	s := newTestSession(t)
	// IAC GA terminates a line without a newline, flushing it as a prompt.
	if err := s.FeedInbound([]byte("HP: 10\xff\xf9")); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}
	if string(s.Input.Prompt) != "HP: 10" {
		t.Fatalf("Input.Prompt = %q, want %q", s.Input.Prompt, "HP: 10")
	}
}

func TestFeedInbound_CompressV2Offer_RepliesDoV2(t *testing.T) {
	s := newTestSession(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s.Conn = client

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		got <- buf[:n]
	}()

	// IAC SB <COMPRESS2> IAC SE
	if err := s.FeedInbound([]byte{0xff, 0xfa, 86, 0xff, 0xf0}); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}

	select {
	case reply := <-got:
		if want := []byte{0xff, 0xfd, 0x56}; !bytes.Equal(reply, want) {
			t.Fatalf("reply = % x, want % x", reply, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for compression-handshake reply")
	}
	if !s.Decompressor.Active() {
		t.Fatalf("expected decompressor active after v2 handshake")
	}
}

func TestFeedInbound_CompressV1Offer_RepliesDoV1(t *testing.T) {
	s := newTestSession(t)
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	s.Conn = client

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		got <- buf[:n]
	}()

	// IAC SB <COMPRESS> IAC SE
	if err := s.FeedInbound([]byte{0xff, 0xfa, 85, 0xff, 0xf0}); err != nil {
		t.Fatalf("FeedInbound: %v", err)
	}

	select {
	case reply := <-got:
		if want := []byte{0xff, 0xfd, 0x55}; !bytes.Equal(reply, want) {
			t.Fatalf("reply = % x, want % x", reply, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for compression-handshake reply")
	}
}

func TestClose_WhenDisconnected_IsNoOp(t *testing.T) {
	s := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close on a disconnected session returned %v", err)
	}
	if s.State != StateDisconnected {
		t.Fatalf("expected State to stay disconnected, got %v", s.State)
	}
}

func TestOpen_RejectsSecondCallWhileConnecting(t *testing.T) {
	s := newTestSession(t)
	if err := s.Open("localhost", 4000); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s.Open("localhost", 4000); err == nil {
		t.Fatalf("expected second Open to fail while already connecting")
	}
	<-s.DialChan() // drain the background dial so the test doesn't leak it
}
