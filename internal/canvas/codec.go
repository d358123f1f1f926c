package canvas

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskboard/internal/domain"
)

type document struct {
	Elements []element `json:"elements"`
}

type element struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	EndX        float64 `json:"endX,omitempty"`
	EndY        float64 `json:"endY,omitempty"`
	Text        string  `json:"text,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	Path        []Point `json:"path,omitempty"`
	StrokeColor string  `json:"strokeColor"`
	FillColor   string  `json:"fillColor"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Encode serializes shapes in list order.
func Encode(shapes []Shape) (string, error) {
	doc := document{Elements: make([]element, 0, len(shapes))}
	for _, s := range shapes {
		el, err := toElement(s)
		if err != nil {
			return "", err
		}
		doc.Elements = append(doc.Elements, el)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// EncodeShape returns the wire form of a single shape.
func EncodeShape(s Shape) (map[string]any, error) {
	el, err := toElement(s)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(el)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	return out, json.Unmarshal(data, &out)
}

func toElement(s Shape) (element, error) {
	st := s.ShapeStyle()
	el := element{ID: s.ShapeID(), Type: s.Kind(), StrokeColor: st.StrokeColor, FillColor: st.FillColor, StrokeWidth: st.StrokeWidth}
	switch v := s.(type) {
	case Rectangle:
		el.X, el.Y, el.Width, el.Height = v.X, v.Y, v.Width, v.Height
	case Circle:
		el.X, el.Y, el.Radius = v.X, v.Y, v.Radius
	case Line:
		el.X, el.Y, el.EndX, el.EndY = v.X, v.Y, v.EndX, v.EndY
	case Text:
		el.X, el.Y, el.Text, el.FontSize = v.X, v.Y, v.Text, v.FontSize
	case Freehand:
		el.Path = v.Path
		if len(v.Path) > 0 {
			el.X, el.Y = v.Path[0].X, v.Path[0].Y
		}
	default:
		return el, fmt.Errorf("unsupported shape %T", s)
	}
	return el, nil
}

// Decode parses serialized shapes. An empty string is an empty drawing;
// elements without an id get a fresh one. Ids must be unique.
func Decode(data string) ([]Shape, error) {
	if strings.TrimSpace(data) == "" {
		return []Shape{}, nil
	}
	var doc document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, domain.NewValidationError("data", "must be a drawing document: "+err.Error())
	}
	shapes := make([]Shape, 0, len(doc.Elements))
	seen := make(map[string]bool, len(doc.Elements))
	for i, el := range doc.Elements {
		if el.ID == "" {
			el.ID = uuid.NewString()
		}
		if seen[el.ID] {
			return nil, domain.NewValidationError("data", fmt.Sprintf("element %d reuses id %q", i, el.ID))
		}
		seen[el.ID] = true
		st := Style{StrokeColor: el.StrokeColor, FillColor: el.FillColor, StrokeWidth: el.StrokeWidth}
		switch el.Type {
		case KindRectangle:
			shapes = append(shapes, Rectangle{ID: el.ID, X: el.X, Y: el.Y, Width: el.Width, Height: el.Height, Style: st})
		case KindCircle:
			shapes = append(shapes, Circle{ID: el.ID, X: el.X, Y: el.Y, Radius: el.Radius, Style: st})
		case KindLine:
			shapes = append(shapes, Line{ID: el.ID, X: el.X, Y: el.Y, EndX: el.EndX, EndY: el.EndY, Style: st})
		case KindText:
			shapes = append(shapes, Text{ID: el.ID, X: el.X, Y: el.Y, Text: el.Text, FontSize: el.FontSize, Style: st})
		case KindFreehand:
			path := make([]Point, len(el.Path))
			copy(path, el.Path)
			shapes = append(shapes, Freehand{ID: el.ID, Path: path, Style: st})
		default:
			return nil, domain.NewValidationError("data", fmt.Sprintf("element %d has unknown type %q", i, el.Type))
		}
	}
	return shapes, nil
}
