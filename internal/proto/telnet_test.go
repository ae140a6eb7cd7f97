package proto

import "testing"

func TestTelnetIACEscape(t *testing.T) {
	tn := NewTelnet()
	app, _, _, _ := tn.Feed([]byte{255, 255})
	if len(app) != 1 || app[0] != 255 {
		t.Fatalf("IAC IAC should emit one 255 byte, got %v", app)
	}
}

func TestTelnetGAEmitsPrompt(t *testing.T) {
	tn := NewTelnet()
	app, prompts, _, _ := tn.Feed([]byte("hello"))
	app2, prompts2, _, _ := tn.Feed([]byte{255, 249})
	if string(app)+string(app2) != "hello" {
		t.Fatalf("app stream corrupted: %q %q", app, app2)
	}
	if len(prompts) != 0 || len(prompts2) != 1 {
		t.Fatalf("expected exactly one prompt after IAC GA, got %d/%d", len(prompts), len(prompts2))
	}
}

func TestTelnetWillEORReplies(t *testing.T) {
	tn := NewTelnet()
	_, _, _, replies := tn.Feed([]byte{255, 251, 25})
	want := []byte{255, 253, 25}
	if string(replies) != string(want) {
		t.Fatalf("got replies %v want %v", replies, want)
	}
}

func TestTelnetOtherOptionsNoReply(t *testing.T) {
	tn := NewTelnet()
	_, _, _, replies := tn.Feed([]byte{255, 251, 1}) // WILL ECHO
	if len(replies) != 0 {
		t.Fatalf("expected no reply for WILL ECHO, got %v", replies)
	}
}

func TestTelnetSubnegDiscardedButReported(t *testing.T) {
	tn := NewTelnet()
	app, _, subnegs, _ := tn.Feed([]byte{'a', 255, 250, 86, 255, 240, 'b'})
	if string(app) != "ab" {
		t.Fatalf("app stream should exclude subneg body, got %q", app)
	}
	if len(subnegs) != 1 || len(subnegs[0].Body) != 1 || subnegs[0].Body[0] != 86 {
		t.Fatalf("expected one subneg with body [86], got %+v", subnegs)
	}
}

func TestTelnetFragmentationInvariance(t *testing.T) {
	whole := []byte{'x', 255, 255, 'y', 255, 249, 'z', 255, 251, 25}
	tnWhole := NewTelnet()
	wantApp, wantPrompts, _, wantReplies := tnWhole.Feed(whole)

	// Split into every possible single-byte chunking.
	tnSplit := NewTelnet()
	var gotApp []byte
	var gotPrompts []Prompt
	var gotReplies []byte
	for _, b := range whole {
		a, p, _, r := tnSplit.Feed([]byte{b})
		gotApp = append(gotApp, a...)
		gotPrompts = append(gotPrompts, p...)
		gotReplies = append(gotReplies, r...)
	}
	if string(gotApp) != string(wantApp) {
		t.Fatalf("app mismatch: got %q want %q", gotApp, wantApp)
	}
	if len(gotPrompts) != len(wantPrompts) {
		t.Fatalf("prompt count mismatch: got %d want %d", len(gotPrompts), len(wantPrompts))
	}
	if string(gotReplies) != string(wantReplies) {
		t.Fatalf("replies mismatch: got %v want %v", gotReplies, wantReplies)
	}
}

func TestTelnetByteConservation(t *testing.T) {
	for b := 0; b < 256; b++ {
		if b == 255 {
			continue
		}
		tn := NewTelnet()
		app, _, _, _ := tn.Feed([]byte{byte(b)})
		if b == '\r' {
			continue // CR handling belongs to the ANSI layer, not telnet
		}
		if len(app) != 1 || app[0] != byte(b) {
			t.Fatalf("byte %d: expected single passthrough byte, got %v", b, app)
		}
	}
}
