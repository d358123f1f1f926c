package canvas

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

var ink = Style{StrokeColor: "#000000", FillColor: "transparent", StrokeWidth: 2}

func sample() []Shape {
	return []Shape{
		Rectangle{ID: "r1", X: 10, Y: 20, Width: 100, Height: 50, Style: Style{StrokeColor: "#ff0000", FillColor: "#00ff00", StrokeWidth: 3}},
		Circle{ID: "c1", X: 300, Y: 300, Radius: 40, Style: ink},
		Freehand{ID: "f1", Path: []Point{{1, 1}, {2, 3}, {5, 8}}, Style: ink},
	}
}

func TestRoundTrip(t *testing.T) {
	shapes := append(sample(),
		Line{ID: "l1", X: 0, Y: 0, EndX: 50, EndY: 60, Style: ink},
		Text{ID: "t1", X: 400, Y: 100, Text: "hello", FontSize: 16, Style: ink},
	)
	data, err := Encode(shapes)
	require.NoError(t, err)
	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, shapes, got)
}

func TestWireFormat(t *testing.T) {
	data, err := Encode([]Shape{Circle{ID: "c1", X: 1, Y: 2, Radius: 3, Style: ink}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"elements":[{"id":"c1","type":"circle","x":1,"y":2,"radius":3,"strokeColor":"#000000","fillColor":"transparent","strokeWidth":2}]}`, data)
}

func TestDecode(t *testing.T) {
	shapes, err := Decode("")
	require.NoError(t, err)
	assert.Empty(t, shapes)

	shapes, err = Decode(`{"elements":[{"type":"rectangle","x":1,"y":1,"width":2,"height":2}]}`)
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.NotEmpty(t, shapes[0].ShapeID())

	_, err = Decode(`{"elements":[{"id":"x","type":"hexagon"}]}`)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = Decode(`not json`)
	assert.ErrorAs(t, err, &verr)
}

func TestHitTest(t *testing.T) {
	shapes := []Shape{
		Line{ID: "l", X: 0, Y: 0, EndX: 200, EndY: 200, Style: ink},
		Freehand{ID: "f", Path: []Point{{50, 50}, {60, 60}}, Style: ink},
		Rectangle{ID: "r", X: 40, Y: 40, Width: 40, Height: 40, Style: ink},
		Circle{ID: "c", X: 60, Y: 60, Radius: 30, Style: ink},
		Text{ID: "t", X: 300, Y: 300, Text: "note", Style: ink},
		Rectangle{ID: "neg", X: 500, Y: 500, Width: -50, Height: -50, Style: ink},
	}
	cases := []struct {
		p    Point
		want string
	}{
		{Point{50, 50}, "r"},
		{Point{85, 60}, "c"},
		{Point{120, 120}, ""},
		{Point{399, 319}, "t"},
		{Point{401, 300}, ""},
		{Point{300, 279}, ""},
		{Point{460, 460}, "neg"},
	}
	for _, tc := range cases {
		s, _, ok := HitTest(shapes, tc.p)
		if tc.want == "" {
			assert.False(t, ok, "point %v", tc.p)
			continue
		}
		require.True(t, ok, "point %v", tc.p)
		assert.Equal(t, tc.want, s.ShapeID())
	}
}

func TestUndoRedo(t *testing.T) {
	e := NewEditor(nil)
	assert.Equal(t, 1, e.History().Len())
	assert.False(t, e.Undo())

	for _, s := range sample() {
		e.Add(s)
	}
	require.Len(t, e.Shapes(), 3)

	require.True(t, e.Undo())
	assert.Equal(t, sample()[:2], e.Shapes())
	require.True(t, e.Redo())
	assert.Equal(t, sample(), e.Shapes())

	require.True(t, e.Undo())
	e.Add(Text{ID: "t", X: 1, Y: 1, Text: "x", Style: ink})
	assert.False(t, e.History().CanRedo())
	assert.False(t, e.Redo())
	shapes := e.Shapes()
	require.Len(t, shapes, 3)
	assert.Equal(t, "t", shapes[2].ShapeID())
}

func TestEditorSelection(t *testing.T) {
	e := NewEditor(sample())
	_, ok := e.Select(Point{2, 3})
	assert.False(t, ok, "freehand is not selectable")
	assert.False(t, e.DeleteSelected())

	s, ok := e.Select(Point{300, 300})
	require.True(t, ok)
	assert.Equal(t, "c1", s.ShapeID())
	require.True(t, e.DeleteSelected())
	assert.Len(t, e.Shapes(), 2)

	e.Undo()
	assert.Len(t, e.Shapes(), 3)
	e.Clear()
	assert.Empty(t, e.Shapes())
	e.Undo()
	assert.Len(t, e.Shapes(), 3)
}

func TestAddAssignsID(t *testing.T) {
	e := NewEditor(nil)
	s := e.Add(Circle{X: 1, Y: 1, Radius: 1})
	assert.NotEmpty(t, s.ShapeID())
	assert.Equal(t, s.ShapeID(), e.Shapes()[0].ShapeID())
}

func TestShapeIDsStayUnique(t *testing.T) {
	_, err := Decode(`{"elements":[{"id":"a","type":"rectangle","x":0,"y":0,"width":10,"height":10},{"id":"a","type":"circle","x":200,"y":200,"radius":5}]}`)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "data")

	e := NewEditor([]Shape{Rectangle{ID: "a", Width: 10, Height: 10}})
	added := e.Add(Circle{ID: "a", X: 200, Y: 200, Radius: 5})
	assert.NotEqual(t, "a", added.ShapeID())

	_, ok := e.Select(Point{5, 5})
	require.True(t, ok)
	require.True(t, e.DeleteSelected())
	shapes := e.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, KindCircle, shapes[0].Kind())
}

func TestRenderDeterministic(t *testing.T) {
	a, err := Render(sample(), Width, Height)
	require.NoError(t, err)
	b, err := Render(sample(), Width, Height)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	img, err := png.Decode(bytes.NewReader(a))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
	r, g, bl, _ := img.At(700, 500).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, bl})
	r, g, bl, _ = img.At(60, 45).RGBA()
	assert.Equal(t, [3]uint32{0, 0xffff, 0}, [3]uint32{r, g, bl}, "rectangle fill")
}

func TestParseColor(t *testing.T) {
	c, ok := ParseColor("#f00")
	require.True(t, ok)
	assert.Equal(t, uint8(255), c.R)
	_, ok = ParseColor("transparent")
	assert.False(t, ok)
	c, ok = ParseColor("Blue")
	require.True(t, ok)
	assert.Equal(t, uint8(255), c.B)
}
