package region

import (
	"image"
	"testing"
)

func TestUnionCoalesces(t *testing.T) {
	r := FromRects(
		image.Rect(0, 0, 10, 5),
		image.Rect(0, 5, 10, 10),
	)
	want := Rect(image.Rect(0, 0, 10, 10))
	if !r.Equal(want) {
		t.Errorf("union = %v, want %v", r, want)
	}

	r = FromRects(
		image.Rect(0, 0, 5, 10),
		image.Rect(5, 0, 10, 10),
	)
	if !r.Equal(want) {
		t.Errorf("side-by-side union = %v, want %v", r, want)
	}
}

func TestOperations(t *testing.T) {
	a := Rect(image.Rect(0, 0, 10, 10))
	b := Rect(image.Rect(5, 5, 15, 15))

	tests := []struct {
		name string
		got  Region
		want []image.Rectangle
	}{
		{
			name: "Intersect",
			got:  a.Intersect(b),
			want: []image.Rectangle{image.Rect(5, 5, 10, 10)},
		},
		{
			name: "Union",
			got:  a.Union(b),
			want: []image.Rectangle{
				image.Rect(0, 0, 10, 5),
				image.Rect(0, 5, 15, 10),
				image.Rect(5, 10, 15, 15),
			},
		},
		{
			name: "Subtract",
			got:  a.Subtract(b),
			want: []image.Rectangle{
				image.Rect(0, 0, 10, 5),
				image.Rect(0, 5, 5, 10),
			},
		},
		{
			name: "SubtractAll",
			got:  a.Subtract(a),
			want: nil,
		},
		{
			name: "Disjoint",
			got:  a.Intersect(Rect(image.Rect(20, 20, 30, 30))),
			want: nil,
		},
		{
			name: "Translate",
			got:  a.Translate(image.Pt(3, -2)),
			want: []image.Rectangle{image.Rect(3, -2, 13, 8)},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if !test.got.Equal(Region{rects: test.want}) {
				t.Errorf("got %v, want %v", test.got, Region{rects: test.want})
			}
		})
	}
}

func TestHole(t *testing.T) {
	outer := Rect(image.Rect(0, 0, 30, 30))
	hole := outer.Subtract(Rect(image.Rect(10, 10, 20, 20)))

	if hole.Contains(image.Pt(15, 15)) {
		t.Error("hole contains its center")
	}
	if !hole.Contains(image.Pt(5, 15)) {
		t.Error("hole does not contain its left side")
	}
	if got := len(hole.Rects()); got != 4 {
		t.Errorf("hole has %v rectangles, want 4", got)
	}
	if b := hole.Bounds(); b != outer.Bounds() {
		t.Errorf("bounds = %v, want %v", b, outer.Bounds())
	}

	filled := hole.Union(Rect(image.Rect(10, 10, 20, 20)))
	if !filled.Equal(outer) {
		t.Errorf("refilled hole = %v, want %v", filled, outer)
	}
}

func TestEmpty(t *testing.T) {
	var r Region
	if !r.Empty() {
		t.Error("zero region is not empty")
	}
	if !Rect(image.Rect(5, 5, 5, 10)).Empty() {
		t.Error("zero-width rectangle is not empty")
	}
	if !r.Equal(Region{}) {
		t.Error("zero region does not equal itself")
	}
	if got := r.Union(Rect(image.Rect(0, 0, 1, 1))); got.Empty() {
		t.Error("union with empty region lost pixels")
	}
}
