package scrollback

import (
	"bytes"
	"strings"
	"testing"

	"github.com/duskline/duskline/internal/cell"
)

func writeLine(r *Ring, s string) {
	for i := 0; i < len(s); i++ {
		r.PrintChar(s[i], cell.DefaultAttr)
	}
	r.PrintNewline()
}

func TestScrollbackCapacity(t *testing.T) {
	r := New(80, 50, 20)
	for i := 0; i < 200; i++ {
		writeLine(r, "line")
	}
	if r.TopLine() < 200-50 {
		t.Fatalf("top_line = %d, want >= %d", r.TopLine(), 200-50)
	}
}

func TestViewportClamping(t *testing.T) {
	r := New(10, 30, 5)
	for i := 0; i < 40; i++ {
		writeLine(r, "x")
	}
	r.Home()
	if r.ViewpointOff() < 0 {
		t.Fatalf("viewpoint went negative: %d", r.ViewpointOff())
	}
	r.End()
	if r.ViewpointOff() != r.CanvasOff() {
		t.Fatalf("End() should match canvas_off")
	}
	for i := 0; i < 100; i++ {
		r.PageUp()
	}
	if r.ViewpointOff() < 0 {
		t.Fatalf("PageUp overshoot below zero: %d", r.ViewpointOff())
	}
	for i := 0; i < 100; i++ {
		r.PageDown()
	}
	if r.ViewpointOff() > r.CanvasOff() {
		t.Fatalf("PageDown overshoot above canvas_off")
	}
}

func TestSearchFindsSubstring(t *testing.T) {
	r := New(20, 30, 10)
	for i := 0; i < 15; i++ {
		writeLine(r, "filler text here")
	}
	writeLine(r, "the needle is here")
	for i := 0; i < 5; i++ {
		writeLine(r, "more filler")
	}
	found := r.Search("needle", -1)
	if !found {
		t.Fatalf("expected search to find 'needle'")
	}
}

func TestExportPlainText(t *testing.T) {
	r := New(10, 10, 5)
	writeLine(r, "hello")
	var buf bytes.Buffer
	if err := r.Export(&buf, false); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("export missing content: %q", buf.String())
	}
}
