package canvas

import "math"

// Text has no measured extent; this box approximates it.
const (
	textHitWidth      = 100
	textHitHalfHeight = 20
)

// Hit reports whether p selects s. Lines and freehand paths are never selectable.
func Hit(s Shape, p Point) bool {
	switch v := s.(type) {
	case Rectangle:
		x0, x1 := span(v.X, v.Width)
		y0, y1 := span(v.Y, v.Height)
		return p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1
	case Circle:
		return math.Hypot(p.X-v.X, p.Y-v.Y) <= v.Radius
	case Text:
		return p.X >= v.X && p.X <= v.X+textHitWidth &&
			p.Y >= v.Y-textHitHalfHeight && p.Y <= v.Y+textHitHalfHeight
	}
	return false
}

// HitTest returns the first shape in list order that p selects.
func HitTest(shapes []Shape, p Point) (Shape, int, bool) {
	for i, s := range shapes {
		if Hit(s, p) {
			return s, i, true
		}
	}
	return nil, -1, false
}

// span orders an origin and a possibly negative extent (rectangles dragged
// up or left).
func span(origin, extent float64) (float64, float64) {
	if extent < 0 {
		return origin + extent, origin
	}
	return origin, origin + extent
}
