package widget

import (
	"testing"

	"github.com/duskline/duskline/internal/keys"
)

type fakeHistory struct {
	entries []string
	idx     int
	active  bool
}

func (h *fakeHistory) Prev(id string, saved []byte) ([]byte, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	if !h.active {
		h.active = true
		h.idx = len(h.entries) - 1
	} else if h.idx > 0 {
		h.idx--
	} else {
		return nil, false
	}
	return []byte(h.entries[h.idx]), true
}

func (h *fakeHistory) Next(id string) ([]byte, bool) {
	if !h.active {
		return nil, false
	}
	if h.idx < len(h.entries)-1 {
		h.idx++
		return []byte(h.entries[h.idx]), true
	}
	h.active = false
	return nil, false
}

func (h *fakeHistory) Reset(id string) { h.active = false }
func (h *fakeHistory) Push(id string, text []byte) {
	h.entries = append(h.entries, string(text))
}

func feedString(in *Input, s string) {
	for i := 0; i < len(s); i++ {
		in.HandleKey(keys.Code(s[i]))
	}
}

func TestInputInsertAndBackspace(t *testing.T) {
	in := NewInput(20, nil, "main")
	feedString(in, "hello")
	if string(in.Buffer) != "hello" {
		t.Fatalf("got %q", in.Buffer)
	}
	in.HandleKey(keys.CodeBackspace)
	if string(in.Buffer) != "hell" {
		t.Fatalf("got %q after backspace", in.Buffer)
	}
}

func TestInputCursorMovement(t *testing.T) {
	in := NewInput(20, nil, "main")
	feedString(in, "abc")
	in.HandleKey(keys.CodeHome)
	if in.Cursor != 0 {
		t.Fatalf("expected cursor 0, got %d", in.Cursor)
	}
	in.HandleKey(keys.CodeArrowRight)
	if in.Cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", in.Cursor)
	}
	in.HandleKey(keys.CodeEnd)
	if in.Cursor != 3 {
		t.Fatalf("expected cursor 3, got %d", in.Cursor)
	}
}

func TestInputCtrlUCtrlK(t *testing.T) {
	in := NewInput(20, nil, "main")
	feedString(in, "hello world")
	in.Cursor = 5
	in.HandleKey(keys.CodeCtrlK)
	if string(in.Buffer) != "hello" {
		t.Fatalf("Ctrl-K: got %q", in.Buffer)
	}
	in.HandleKey(keys.CodeCtrlU)
	if string(in.Buffer) != "" || in.Cursor != 0 {
		t.Fatalf("Ctrl-U: got %q cursor %d", in.Buffer, in.Cursor)
	}
}

func TestInputCtrlW(t *testing.T) {
	in := NewInput(20, nil, "main")
	feedString(in, "hello world")
	in.HandleKey(keys.CodeCtrlW)
	if string(in.Buffer) != "hello " {
		t.Fatalf("Ctrl-W: got %q", in.Buffer)
	}
}

func TestInputEscapeClears(t *testing.T) {
	in := NewInput(20, nil, "main")
	feedString(in, "abc")
	in.HandleKey(keys.CodeEsc)
	if len(in.Buffer) != 0 {
		t.Fatalf("expected empty buffer after Escape, got %q", in.Buffer)
	}
}

func TestInputEnterPushesHistoryAndExecutes(t *testing.T) {
	h := &fakeHistory{}
	in := NewInput(20, h, "main")
	var executed string
	in.Execute = func(line []byte) { executed = string(line) }
	feedString(in, "look")
	in.HandleKey(keys.CodeEnter)
	if executed != "look" {
		t.Fatalf("expected execute callback with 'look', got %q", executed)
	}
	if len(in.Buffer) != 0 {
		t.Fatalf("expected buffer cleared after Enter")
	}
	if len(h.entries) != 1 || h.entries[0] != "look" {
		t.Fatalf("expected history to record 'look', got %v", h.entries)
	}
}

func TestInputHistoryUpDown(t *testing.T) {
	h := &fakeHistory{entries: []string{"north", "south"}}
	in := NewInput(20, h, "main")
	in.HandleKey(keys.CodeArrowUp)
	if string(in.Buffer) != "south" {
		t.Fatalf("expected most recent history entry, got %q", in.Buffer)
	}
	in.HandleKey(keys.CodeArrowUp)
	if string(in.Buffer) != "north" {
		t.Fatalf("expected older history entry, got %q", in.Buffer)
	}
	in.HandleKey(keys.CodeArrowDown)
	if string(in.Buffer) != "south" {
		t.Fatalf("expected to move back down, got %q", in.Buffer)
	}
}

func TestInputCtrlCSavesWithoutExecuting(t *testing.T) {
	h := &fakeHistory{}
	in := NewInput(20, h, "main")
	var executed bool
	in.Execute = func(line []byte) { executed = true }
	feedString(in, "draft")
	in.HandleKey(keys.CodeCtrlC)
	if executed {
		t.Fatalf("Ctrl-C should not execute")
	}
	if len(in.Buffer) != 0 {
		t.Fatalf("expected buffer cleared after Ctrl-C")
	}
	if len(h.entries) != 1 || h.entries[0] != "draft" {
		t.Fatalf("expected draft saved to history, got %v", h.entries)
	}
}

func TestInputRedrawShowsOverflowIndicator(t *testing.T) {
	in := NewInput(6, nil, "main")
	feedString(in, "abcdefghij")
	in.Redraw(in.Win)
	if in.Win.Get(0, 0).Byte() != '<' {
		t.Fatalf("expected overflow indicator at column 0, got %q", in.Win.Get(0, 0).Byte())
	}
}
