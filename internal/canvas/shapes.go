// Package canvas models vector drawings attached to tasks: a closed set of
// shapes, selection by hit testing, snapshot history and PNG previews.
package canvas

const (
	KindRectangle = "rectangle"
	KindCircle    = "circle"
	KindLine      = "line"
	KindText      = "text"
	KindFreehand  = "freehand"
)

// Width and Height are the drawing surface size in pixels.
const (
	Width  = 800
	Height = 600
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Style struct {
	StrokeColor string
	FillColor   string
	StrokeWidth float64
}

// Shape is implemented only by the variants in this package.
type Shape interface {
	ShapeID() string
	Kind() string
	ShapeStyle() Style
	isShape()
}

type Rectangle struct {
	ID            string
	X, Y          float64
	Width, Height float64
	Style
}

type Circle struct {
	ID     string
	X, Y   float64
	Radius float64
	Style
}

type Line struct {
	ID         string
	X, Y       float64
	EndX, EndY float64
	Style
}

type Text struct {
	ID       string
	X, Y     float64
	Text     string
	FontSize float64
	Style
}

type Freehand struct {
	ID   string
	Path []Point
	Style
}

func (s Rectangle) ShapeID() string { return s.ID }
func (s Circle) ShapeID() string    { return s.ID }
func (s Line) ShapeID() string      { return s.ID }
func (s Text) ShapeID() string      { return s.ID }
func (s Freehand) ShapeID() string  { return s.ID }

func (Rectangle) Kind() string { return KindRectangle }
func (Circle) Kind() string    { return KindCircle }
func (Line) Kind() string      { return KindLine }
func (Text) Kind() string      { return KindText }
func (Freehand) Kind() string  { return KindFreehand }

func (s Rectangle) ShapeStyle() Style { return s.Style }
func (s Circle) ShapeStyle() Style    { return s.Style }
func (s Line) ShapeStyle() Style      { return s.Style }
func (s Text) ShapeStyle() Style      { return s.Style }
func (s Freehand) ShapeStyle() Style  { return s.Style }

func (Rectangle) isShape() {}
func (Circle) isShape()    {}
func (Line) isShape()      {}
func (Text) isShape()      {}
func (Freehand) isShape()  {}

// withID returns s carrying id.
func withID(s Shape, id string) Shape {
	switch v := s.(type) {
	case Rectangle:
		v.ID = id
		return v
	case Circle:
		v.ID = id
		return v
	case Line:
		v.ID = id
		return v
	case Text:
		v.ID = id
		return v
	case Freehand:
		v.ID = id
		return v
	}
	return s
}
