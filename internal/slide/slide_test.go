package slide

import (
	"math"
	"testing"

	"github.com/hpungsan/lamina/internal/canvas"
)

func TestElement_Place_Clamps(t *testing.T) {
	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{name: "inside", x: 25, y: 75, wantX: 25, wantY: 75},
		{name: "negative", x: -10, y: -0.5, wantX: 0, wantY: 0},
		{name: "past edge", x: 130, y: 100.1, wantX: 100, wantY: 100},
		{name: "NaN", x: math.NaN(), y: 50, wantX: 0, wantY: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Element{ID: "e1", Kind: KindText}
			e.Place(tt.x, tt.y)
			if e.X != tt.wantX || e.Y != tt.wantY {
				t.Errorf("Place(%v,%v) = (%v,%v), want (%v,%v)", tt.x, tt.y, e.X, e.Y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestElement_Resize(t *testing.T) {
	res := canvas.Wide

	text := NewElement("t", KindText, res)
	if !text.Resize(res, 200, 100) {
		t.Fatal("text element should resize")
	}
	if *text.Width != 400 || *text.Height != 200 {
		t.Errorf("size = %vx%v, want 400x200", *text.Width, *text.Height)
	}

	// Shrinking below the floor stops at the minimum usable size.
	text.Resize(res, -40, 1)
	wantW := 50.0 / LegacyReferenceWidth * res.Width
	wantH := 30.0 / LegacyReferenceHeight * res.Height
	if math.Abs(*text.Width-wantW) > 1e-9 || math.Abs(*text.Height-wantH) > 1e-9 {
		t.Errorf("floored size = %vx%v, want %vx%v", *text.Width, *text.Height, wantW, wantH)
	}

	stamp := NewElement("s", KindStamp, res)
	if !stamp.Resize(res, 300, 120) {
		t.Fatal("stamp element should resize")
	}
	if *stamp.Width != 600 || *stamp.Height != 240 {
		t.Errorf("stamp size = %vx%v, want 600x240", *stamp.Width, *stamp.Height)
	}

	drag := NewElement("d", KindDrag, res)
	if drag.Resize(res, 300, 300) {
		t.Error("drag element must not expose manual resize")
	}
	if drag.Width != nil || drag.Height != nil {
		t.Error("drag element size changed by Resize")
	}
}

func TestElement_SetImageScale(t *testing.T) {
	drag := NewElement("d", KindDrag, canvas.Wide)

	for _, tc := range []struct{ in, want float64 }{
		{in: 150, want: 150},
		{in: 5, want: MinImageScale},
		{in: 900, want: MaxImageScale},
	} {
		drag.SetImageScale(tc.in)
		if drag.ImageScale != tc.want {
			t.Errorf("SetImageScale(%v) = %v, want %v", tc.in, drag.ImageScale, tc.want)
		}
	}

	text := NewElement("t", KindText, canvas.Wide)
	if text.SetImageScale(200) {
		t.Error("SetImageScale should not apply to text elements")
	}
}

func TestElement_FootprintScalesDragUniformly(t *testing.T) {
	res := canvas.Wide
	drag := NewElement("d", KindDrag, res)

	base := drag.Footprint(res, 960, 540)
	if base.Width != base.Height {
		t.Errorf("drag footprint not square: %+v", base)
	}

	drag.SetImageScale(200)
	doubled := drag.Footprint(res, 960, 540)
	if math.Abs(doubled.Width-2*base.Width) > 1e-9 || math.Abs(doubled.Height-2*base.Height) > 1e-9 {
		t.Errorf("200%% footprint = %+v, want twice %+v", doubled, base)
	}
	if !doubled.Contains(960, 540) {
		t.Error("footprint should contain its center")
	}
}

func TestNormalize_LiftsFormatMetadata(t *testing.T) {
	s := &Slide{
		ID: "s1",
		Elements: []Element{
			{ID: "a", Kind: KindDraw, X: 50, Y: 50},
			{ID: "fmt-meta", Kind: kindFormatMetadata, Value: "1/1"},
		},
	}
	Normalize(s, DefaultLegacyReference())

	if s.Format != canvas.FormatSquare {
		t.Errorf("Format = %q, want %q", s.Format, canvas.FormatSquare)
	}
	if len(s.Elements) != 1 || s.Elements[0].ID != "a" {
		t.Errorf("Elements = %+v, want only the draw element", s.Elements)
	}
	if s.Canvas() != canvas.Square {
		t.Errorf("Canvas() = %+v, want Square", s.Canvas())
	}
}

func TestNormalize_ExplicitFormatWins(t *testing.T) {
	s := &Slide{
		ID:     "s1",
		Format: "16/9",
		Elements: []Element{
			{ID: "fmt-meta", Kind: kindFormatMetadata, Value: "1/1"},
		},
	}
	Normalize(s, DefaultLegacyReference())
	if s.Format != canvas.FormatWide {
		t.Errorf("Format = %q, want %q", s.Format, canvas.FormatWide)
	}
}

func TestNormalize_UnknownFormatDefaultsToWide(t *testing.T) {
	s := &Slide{ID: "s1", Format: "cinema"}
	Normalize(s, DefaultLegacyReference())
	if s.Format != canvas.FormatWide {
		t.Errorf("Format = %q, want %q", s.Format, canvas.FormatWide)
	}
}

func TestNormalize_MigratesLegacySizes(t *testing.T) {
	w, h := 300.0, 150.0
	s := &Slide{
		ID:     "s1",
		Format: canvas.FormatWide,
		Elements: []Element{
			{ID: "t", Kind: KindText, X: 120, Y: 50, Width: &w, Height: &h},
			{ID: "d", Kind: KindDrag, X: 50, Y: 50},
			{ID: "x", Kind: "hotspot", X: 50, Y: 50},
		},
	}
	Normalize(s, DefaultLegacyReference())

	if len(s.Elements) != 2 {
		t.Fatalf("len(Elements) = %d, want 2 (unknown kind dropped)", len(s.Elements))
	}
	text := s.Elements[0]
	if text.X != 100 {
		t.Errorf("anchor X = %v, want clamped 100", text.X)
	}
	if text.SizeUnit != SizeUnitCanvas {
		t.Errorf("SizeUnit = %q, want %q", text.SizeUnit, SizeUnitCanvas)
	}
	if math.Abs(*text.Width-300.0/900.0*1920.0) > 1e-9 {
		t.Errorf("Width = %v, want %v", *text.Width, 300.0/900.0*1920.0)
	}
	if math.Abs(*text.Height-150.0/506.0*1080.0) > 1e-9 {
		t.Errorf("Height = %v, want %v", *text.Height, 150.0/506.0*1080.0)
	}
	if s.Elements[1].ImageScale != DefaultImageScale {
		t.Errorf("drag ImageScale = %v, want %v", s.Elements[1].ImageScale, DefaultImageScale)
	}

	// Idempotent: a second pass leaves canvas-unit sizes alone.
	before := *s.Elements[0].Width
	Normalize(s, DefaultLegacyReference())
	if *s.Elements[0].Width != before {
		t.Errorf("second Normalize changed width: %v -> %v", before, *s.Elements[0].Width)
	}
}

func TestSlide_Kinds(t *testing.T) {
	s := &Slide{Elements: []Element{
		{ID: "1", Kind: KindText},
		{ID: "2", Kind: KindDrag},
		{ID: "3", Kind: KindText},
	}}
	kinds := s.Kinds()
	if len(kinds) != 2 || kinds[0] != KindText || kinds[1] != KindDrag {
		t.Errorf("Kinds() = %v, want [text drag]", kinds)
	}
	if _, ok := s.Element("2"); !ok {
		t.Error("Element(2) not found")
	}
	if _, ok := s.Element("nope"); ok {
		t.Error("Element(nope) should not be found")
	}
	if got := len(s.ElementsOf(KindText)); got != 2 {
		t.Errorf("ElementsOf(text) = %d, want 2", got)
	}
}
