// Copyright (c) 2026 dogelands
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geom

// Point is a position in display pixel coordinates.
type Point struct {
	X, Y int
}

// Rect is an axis-aligned rectangle. From is the top-left corner, To the
// bottom-right. A rectangle with zero width or height is considered empty.
type Rect struct {
	From, To Point
}

func MakeRect(x1, y1, x2, y2 int) Rect {
	return Rect{From: Point{X: x1, Y: y1}, To: Point{X: x2, Y: y2}}
}

func (r Rect) Width() int {
	return r.To.X - r.From.X
}

func (r Rect) Height() int {
	return r.To.Y - r.From.Y
}

func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Contains reports whether the point lies inside the rectangle. Both edges
// are inclusive, matching the input hit-test contract.
func (r Rect) Contains(x, y int) bool {
	return x >= r.From.X && x <= r.To.X && y >= r.From.Y && y <= r.To.Y
}

// Union grows r to also cover o, coordinate-wise. Unioning with an empty
// rectangle yields the other operand unchanged.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	if o.From.X < r.From.X {
		r.From.X = o.From.X
	}
	if o.From.Y < r.From.Y {
		r.From.Y = o.From.Y
	}
	if o.To.X > r.To.X {
		r.To.X = o.To.X
	}
	if o.To.Y > r.To.Y {
		r.To.Y = o.To.Y
	}
	return r
}
