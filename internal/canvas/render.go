package canvas

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const circleSegments = 64

var namedColors = map[string]color.RGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"orange": {255, 165, 0, 255},
	"purple": {128, 0, 128, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
}

// ParseColor understands #rgb, #rrggbb, #rrggbbaa and a few names.
// "transparent" and "" report ok=false.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "transparent" || s == "none" {
		return color.RGBA{}, false
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, false
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, true
}

// Render draws shapes in list order on a white surface and encodes a PNG.
// Output depends only on the shapes.
func Render(shapes []Shape, width, height int) ([]byte, error) {
	if width <= 0 {
		width = Width
	}
	if height <= 0 {
		height = Height
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, s := range shapes {
		st := s.ShapeStyle()
		stroke, hasStroke := ParseColor(st.StrokeColor)
		if !hasStroke && st.StrokeColor == "" {
			stroke, hasStroke = color.RGBA{A: 255}, true
		}
		fill, hasFill := ParseColor(st.FillColor)
		sw := st.StrokeWidth
		if sw <= 0 {
			sw = 1
		}
		switch v := s.(type) {
		case Rectangle:
			x0, x1 := span(v.X, v.Width)
			y0, y1 := span(v.Y, v.Height)
			corners := []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
			if hasFill {
				fillPolygon(img, corners, fill)
			}
			if hasStroke {
				strokePolyline(img, append(corners, corners[0]), sw, stroke)
			}
		case Circle:
			if hasFill {
				fillPolygon(img, circlePoints(v.X, v.Y, v.Radius), fill)
			}
			if hasStroke && v.Radius > 0 {
				strokeRing(img, v.X, v.Y, v.Radius, sw, stroke)
			}
		case Line:
			if hasStroke {
				strokePolyline(img, []Point{{v.X, v.Y}, {v.EndX, v.EndY}}, sw, stroke)
			}
		case Freehand:
			if hasStroke {
				strokePolyline(img, v.Path, sw, stroke)
			}
		case Text:
			if hasStroke {
				drawText(img, v, stroke)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newRasterizer(dst *image.RGBA) *vector.Rasterizer {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	z.DrawOp = draw.Over
	return z
}

func fillPolygon(dst *image.RGBA, pts []Point, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	z := newRasterizer(dst)
	addPath(z, pts)
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

// addPath keeps vertices inside the rasterizer's bounds.
func addPath(z *vector.Rasterizer, pts []Point) {
	size := z.Size()
	w, h := float64(size.X), float64(size.Y)
	clampX := func(v float64) float32 { return float32(math.Min(math.Max(v, 0), w)) }
	clampY := func(v float64) float32 { return float32(math.Min(math.Max(v, 0), h)) }
	z.MoveTo(clampX(pts[0].X), clampY(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(clampX(p.X), clampY(p.Y))
	}
	z.ClosePath()
}

func circlePoints(cx, cy, r float64) []Point {
	pts := make([]Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = Point{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	return pts
}

// strokeRing draws the outer edge forward and the inner edge backward so the
// opposite windings cancel inside.
func strokeRing(dst *image.RGBA, cx, cy, r, width float64, c color.RGBA) {
	outer := circlePoints(cx, cy, r+width/2)
	inner := circlePoints(cx, cy, math.Max(r-width/2, 0))
	for i, j := 0, len(inner)-1; i < j; i, j = i+1, j-1 {
		inner[i], inner[j] = inner[j], inner[i]
	}
	z := newRasterizer(dst)
	addPath(z, outer)
	addPath(z, inner)
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

// strokePolyline draws each segment as a quad and rounds the joints.
func strokePolyline(dst *image.RGBA, pts []Point, width float64, c color.RGBA) {
	if len(pts) == 0 {
		return
	}
	z := newRasterizer(dst)
	half := width / 2
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*half, dx/l*half
		addPath(z, []Point{{a.X + nx, a.Y + ny}, {b.X + nx, b.Y + ny}, {b.X - nx, b.Y - ny}, {a.X - nx, a.Y - ny}})
	}
	if half >= 1 {
		for _, p := range pts {
			addPath(z, circlePoints(p.X, p.Y, half))
		}
	}
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

// drawText uses the fixed 7x13 face; FontSize is not honored beyond the
// baseline position.
func drawText(dst *image.RGBA, t Text, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(math.Round(t.X)), int(math.Round(t.Y))),
	}
	d.DrawString(t.Text)
}
