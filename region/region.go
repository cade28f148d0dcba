// Package region implements sets of pixels described by rectangles.
//
// A Region is always kept in a canonical banded form: its rectangles
// are sorted top to bottom and then left to right, rectangles in the
// same band share their vertical extent, no two rectangles in a band
// touch, and no two vertically adjacent bands have the same horizontal
// spans. Two regions cover the same pixels exactly when their
// rectangle lists are equal.
package region

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/exp/slices"
)

// Region is an immutable set of pixels. The zero value is empty.
type Region struct {
	rects []image.Rectangle
}

// Rect returns a region covering r.
func Rect(r image.Rectangle) Region {
	r = r.Canon()
	if r.Empty() {
		return Region{}
	}
	return Region{rects: []image.Rectangle{r}}
}

// FromRects returns the union of rects.
func FromRects(rects ...image.Rectangle) Region {
	var r Region
	for _, rect := range rects {
		r = r.Union(Rect(rect))
	}
	return r
}

func (r Region) Empty() bool {
	return len(r.rects) == 0
}

// Rects returns the rectangles of r in canonical order.
func (r Region) Rects() []image.Rectangle {
	return slices.Clone(r.rects)
}

func (r Region) Bounds() image.Rectangle {
	var b image.Rectangle
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

func (r Region) Contains(p image.Point) bool {
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

func (r Region) Translate(p image.Point) Region {
	if r.Empty() || (p == image.Point{}) {
		return r
	}

	rects := make([]image.Rectangle, 0, len(r.rects))
	for _, rect := range r.rects {
		rects = append(rects, rect.Add(p))
	}
	return Region{rects: rects}
}

func (r Region) Equal(other Region) bool {
	return slices.Equal(r.rects, other.rects)
}

func (r Region) Union(other Region) Region {
	switch {
	case r.Empty():
		return other
	case other.Empty():
		return r
	}
	return combine(r, other, func(a, b bool) bool { return a || b })
}

func (r Region) Intersect(other Region) Region {
	if r.Empty() || other.Empty() || !r.Bounds().Overlaps(other.Bounds()) {
		return Region{}
	}
	return combine(r, other, func(a, b bool) bool { return a && b })
}

func (r Region) IntersectRect(rect image.Rectangle) Region {
	return r.Intersect(Rect(rect))
}

// Subtract returns the pixels of r that are not in other.
func (r Region) Subtract(other Region) Region {
	if r.Empty() || other.Empty() || !r.Bounds().Overlaps(other.Bounds()) {
		return r
	}
	return combine(r, other, func(a, b bool) bool { return a && !b })
}

func (r Region) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, rect := range r.rects {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, rect)
	}
	sb.WriteByte('}')
	return sb.String()
}

// combine splits the plane into the grid formed by every edge of a and
// b and keeps each cell for which op reports true.
func combine(a, b Region, op func(inA, inB bool) bool) Region {
	xs := edges(a, b, func(r image.Rectangle) (int, int) { return r.Min.X, r.Max.X })
	ys := edges(a, b, func(r image.Rectangle) (int, int) { return r.Min.Y, r.Max.Y })

	var out []image.Rectangle
	var prev []image.Rectangle
	for i := 0; i < len(ys)-1; i++ {
		y0, y1 := ys[i], ys[i+1]

		var band []image.Rectangle
		for j := 0; j < len(xs)-1; j++ {
			p := image.Pt(xs[j], y0)
			if !op(a.Contains(p), b.Contains(p)) {
				continue
			}

			if n := len(band); (n > 0) && (band[n-1].Max.X == xs[j]) {
				band[n-1].Max.X = xs[j+1]
				continue
			}
			band = append(band, image.Rect(xs[j], y0, xs[j+1], y1))
		}

		if sameSpans(prev, band) && (prev[0].Max.Y == y0) {
			for k := len(out) - len(prev); k < len(out); k++ {
				out[k].Max.Y = y1
			}
			prev = out[len(out)-len(prev):]
			continue
		}

		out = append(out, band...)
		prev = band
	}

	return Region{rects: out}
}

func edges(a, b Region, get func(image.Rectangle) (int, int)) []int {
	e := make([]int, 0, 2*(len(a.rects)+len(b.rects)))
	for _, rs := range [][]image.Rectangle{a.rects, b.rects} {
		for _, r := range rs {
			v0, v1 := get(r)
			e = append(e, v0, v1)
		}
	}
	slices.Sort(e)
	return slices.Compact(e)
}

func sameSpans(prev, band []image.Rectangle) bool {
	if (len(prev) == 0) || (len(prev) != len(band)) {
		return false
	}
	for i := range prev {
		if (prev[i].Min.X != band[i].Min.X) || (prev[i].Max.X != band[i].Max.X) {
			return false
		}
	}
	return true
}
