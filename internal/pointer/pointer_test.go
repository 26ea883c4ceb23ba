package pointer

import "testing"

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindMouse, KindTouch, KindStylus} {
		if got := ParseKind(k.String()); got != k {
			t.Errorf("ParseKind(%q) = %v", k.String(), got)
		}
	}
	if ParseKind("pen") != KindStylus {
		t.Error("pen should parse as stylus")
	}
	if ParseKind("trackball") != KindUnknown {
		t.Error("unknown names should map to KindUnknown")
	}
}

func TestSourcePriority(t *testing.T) {
	if !(SourcePointer.Priority() > SourceTouch.Priority() && SourceTouch.Priority() > SourceMouse.Priority()) {
		t.Error("expected pointer > touch > mouse")
	}
	for _, s := range []Source{SourceMouse, SourceTouch, SourcePointer} {
		if got := ParseSource(s.String()); got != s {
			t.Errorf("ParseSource(%q) = %v", s.String(), got)
		}
	}
	if ParseSource("gamepad").Priority() != 0 {
		t.Error("unknown source should have no priority")
	}
}

func TestContactSize(t *testing.T) {
	s := Sample{Width: 12, Height: 30}
	if s.ContactSize() != 30 {
		t.Errorf("ContactSize = %v", s.ContactSize())
	}
	if (Point{X: 0, Y: 0}).Dist(Point{X: 3, Y: 4}) != 5 {
		t.Error("Dist mismatch")
	}
}
