package cell

import "testing"

func TestAttributeRoundTrip(t *testing.T) {
	cases := []struct {
		fg, bg Color
		bold   bool
	}{
		{Black, Black, false},
		{White, Black, false},
		{Red, Blue, true},
		{7, 7, true},
	}
	for _, tc := range cases {
		a := NewAttribute(tc.fg, tc.bg, tc.bold)
		if a.Fg() != tc.fg {
			t.Errorf("Fg: got %d want %d", a.Fg(), tc.fg)
		}
		if a.Bg() != tc.bg {
			t.Errorf("Bg: got %d want %d", a.Bg(), tc.bg)
		}
		if a.Bold() != tc.bold {
			t.Errorf("Bold: got %v want %v", a.Bold(), tc.bold)
		}
	}
}

func TestCellPacksAttributeAndByte(t *testing.T) {
	a := NewAttribute(Red, Black, true)
	c := New('H', a)
	if c.Byte() != 'H' {
		t.Errorf("Byte: got %q want %q", c.Byte(), 'H')
	}
	if c.Attr() != a {
		t.Errorf("Attr: got %v want %v", c.Attr(), a)
	}
}

func TestInvertMasksBold(t *testing.T) {
	a := NewAttribute(White, Black, true)
	inv := a.Invert()
	if inv.Bold() {
		t.Errorf("Invert should clear bold")
	}
	if inv.Fg() != Black {
		t.Errorf("Invert fg: got %d want %d", inv.Fg(), Black)
	}
}

func TestDefaultAttrIsWhiteOnBlack(t *testing.T) {
	if DefaultAttr.Fg() != White || DefaultAttr.Bg() != Black || DefaultAttr.Bold() {
		t.Errorf("DefaultAttr = %v, want fg_white|bg_black unbolded", DefaultAttr)
	}
}
