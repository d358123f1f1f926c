package canvas

import "github.com/google/uuid"

// History is a linear list of full shape snapshots with a cursor.
type History struct {
	snapshots [][]Shape
	cursor    int
}

// NewHistory starts from initial, or from an empty drawing when nil.
func NewHistory(initial []Shape) *History {
	return &History{snapshots: [][]Shape{clone(initial)}}
}

func clone(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}

// Commit drops any redo future and appends shapes as the current snapshot.
func (h *History) Commit(shapes []Shape) {
	h.snapshots = append(h.snapshots[:h.cursor+1], clone(shapes))
	h.cursor = len(h.snapshots) - 1
}

func (h *History) Current() []Shape { return clone(h.snapshots[h.cursor]) }
func (h *History) CanUndo() bool    { return h.cursor > 0 }
func (h *History) CanRedo() bool    { return h.cursor < len(h.snapshots)-1 }
func (h *History) Len() int         { return len(h.snapshots) }

func (h *History) Undo() ([]Shape, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.cursor--
	return h.Current(), true
}

func (h *History) Redo() ([]Shape, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.cursor++
	return h.Current(), true
}

// Editor couples a history with the current selection.
type Editor struct {
	history  *History
	selected string
}

func NewEditor(initial []Shape) *Editor {
	return &Editor{history: NewHistory(initial)}
}

func (e *Editor) Shapes() []Shape   { return e.history.Current() }
func (e *Editor) History() *History { return e.history }

// Add appends s and returns the stored shape. A missing or already used id
// is replaced with a fresh one.
func (e *Editor) Add(s Shape) Shape {
	cur := e.history.Current()
	if s.ShapeID() == "" || indexOf(cur, s.ShapeID()) >= 0 {
		s = withID(s, uuid.NewString())
	}
	e.history.Commit(append(cur, s))
	return s
}

func indexOf(shapes []Shape, id string) int {
	for i, s := range shapes {
		if s.ShapeID() == id {
			return i
		}
	}
	return -1
}

// Select hit-tests p and remembers the match. A miss clears the selection.
func (e *Editor) Select(p Point) (Shape, bool) {
	s, _, ok := HitTest(e.history.Current(), p)
	if !ok {
		e.selected = ""
		return nil, false
	}
	e.selected = s.ShapeID()
	return s, true
}

func (e *Editor) Selected() (Shape, bool) {
	if e.selected == "" {
		return nil, false
	}
	for _, s := range e.history.Current() {
		if s.ShapeID() == e.selected {
			return s, true
		}
	}
	return nil, false
}

// DeleteSelected removes the selected shape; it reports false when nothing is selected.
func (e *Editor) DeleteSelected() bool {
	if e.selected == "" {
		return false
	}
	cur := e.history.Current()
	i := indexOf(cur, e.selected)
	e.selected = ""
	if i < 0 {
		return false
	}
	e.history.Commit(append(cur[:i:i], cur[i+1:]...))
	return true
}

func (e *Editor) Clear() {
	e.selected = ""
	e.history.Commit(nil)
}

func (e *Editor) Undo() bool {
	_, ok := e.history.Undo()
	e.dropStaleSelection()
	return ok
}

func (e *Editor) Redo() bool {
	_, ok := e.history.Redo()
	e.dropStaleSelection()
	return ok
}

func (e *Editor) dropStaleSelection() {
	if _, ok := e.Selected(); !ok {
		e.selected = ""
	}
}
