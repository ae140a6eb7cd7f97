package proto

import (
	"testing"

	"github.com/duskline/duskline/internal/cell"
)

func TestANSIColorParse(t *testing.T) {
	p := NewANSI()
	events := p.Feed([]byte("\x1b[1;31mHi\x1b[0m\n"), nil)

	var texts []byte
	var colors []cell.Attribute
	for _, e := range events {
		switch e.Kind {
		case EventText:
			texts = append(texts, e.Byte)
		case EventSetColor:
			colors = append(colors, e.Attr)
		}
	}
	if string(texts) != "Hi\n" {
		t.Fatalf("text events: got %q want %q", texts, "Hi\n")
	}
	if len(colors) != 2 {
		t.Fatalf("expected 2 color events, got %d", len(colors))
	}
	if colors[0].Fg() != cell.Red || !colors[0].Bold() {
		t.Fatalf("first color should be bold red, got %v", colors[0])
	}
	if colors[1] != cell.DefaultAttr {
		t.Fatalf("second color should be default, got %v", colors[1])
	}
}

func TestANSINoCarriageReturn(t *testing.T) {
	p := NewANSI()
	events := p.Feed([]byte("a\rb"), nil)
	var texts []byte
	for _, e := range events {
		if e.Kind == EventText {
			texts = append(texts, e.Byte)
		}
	}
	if string(texts) != "ab" {
		t.Fatalf("expected CR dropped, got %q", texts)
	}
}

func TestANSIFragmentedCSI(t *testing.T) {
	whole := NewANSI().Feed([]byte("\x1b[31mred"), nil)

	split := NewANSI()
	var got []Event
	got = split.Feed([]byte("\x1b["), got)
	got = split.Feed([]byte("3"), got)
	got = split.Feed([]byte("1mred"), got)

	if len(got) != len(whole) {
		t.Fatalf("fragmented feed produced %d events, want %d", len(got), len(whole))
	}
	for i := range got {
		if got[i] != whole[i] {
			t.Fatalf("event %d mismatch: %+v vs %+v", i, got[i], whole[i])
		}
	}
}

func TestANSIBareResetAppliesDefault(t *testing.T) {
	p := NewANSI()
	events := p.Feed([]byte("\x1b[31mred\x1b[mplain"), nil)

	var colors []cell.Attribute
	for _, e := range events {
		if e.Kind == EventSetColor {
			colors = append(colors, e.Attr)
		}
	}
	if len(colors) != 2 {
		t.Fatalf("expected 2 color events, got %d", len(colors))
	}
	if colors[1] != cell.DefaultAttr {
		t.Fatalf("bare ESC[m should reset to default, got %v", colors[1])
	}
}

func TestANSINonSGRDiscarded(t *testing.T) {
	p := NewANSI()
	events := p.Feed([]byte("\x1b[2Jhello"), nil)
	var texts []byte
	for _, e := range events {
		if e.Kind == EventText {
			texts = append(texts, e.Byte)
		}
	}
	if string(texts) != "hello" {
		t.Fatalf("erase sequence should be discarded, got %q", texts)
	}
}
