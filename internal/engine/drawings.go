package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/canvas"
	"taskboard/internal/domain"
	"taskboard/internal/events"
)

const previewContentType = "image/png"

func previewKey(drawingID string) string {
	return "drawings/" + drawingID + ".png"
}

type DrawingCreateOptions struct {
	OwnerID string
	Name    string
	TaskID  string
	Data    string
}

// DrawingUpdateOptions carries a partial update. A TaskID pointing at ""
// detaches the drawing from its task.
type DrawingUpdateOptions struct {
	OwnerID string
	ID      string
	Name    *string
	Data    *string
	TaskID  *string
}

// canonicalData decodes and re-encodes shape data so stored documents are
// always well formed.
func canonicalData(raw string) (string, []canvas.Shape, error) {
	shapes, err := canvas.Decode(raw)
	if err != nil {
		return "", nil, err
	}
	data, err := canvas.Encode(shapes)
	if err != nil {
		return "", nil, err
	}
	return data, shapes, nil
}

func (e Engine) checkTaskLink(ctx context.Context, s *txScope, ownerID, taskID string) error {
	if _, err := e.Repo.GetTaskTx(ctx, s.tx, ownerID, taskID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError("task_id", "must reference an existing task")
		}
		return err
	}
	return nil
}

func (e Engine) CreateDrawing(ctx context.Context, opts DrawingCreateOptions) (domain.Drawing, error) {
	if opts.OwnerID == "" {
		return domain.Drawing{}, domain.ErrUnauthorized
	}
	data, shapes, err := canonicalData(opts.Data)
	if err != nil {
		return domain.Drawing{}, err
	}
	now := e.stamp()
	d := domain.Drawing{
		ID:        uuid.NewString(),
		OwnerID:   opts.OwnerID,
		Name:      strings.TrimSpace(opts.Name),
		Data:      data,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.PreviewKey = previewKey(d.ID)
	if taskID := strings.TrimSpace(opts.TaskID); taskID != "" {
		d.TaskID = &taskID
	}
	if err := domain.ValidateDrawing(d); err != nil {
		return domain.Drawing{}, err
	}
	err = e.withTx(ctx, func(s *txScope) error {
		if d.TaskID != nil {
			if err := e.checkTaskLink(ctx, s, d.OwnerID, *d.TaskID); err != nil {
				return err
			}
		}
		if err := e.Repo.InsertDrawing(ctx, s.tx, d); err != nil {
			return err
		}
		return s.emit(ctx, "drawing.created", d.OwnerID, "drawing", d.ID, events.EventPayload{"name": d.Name, "task_id": d.TaskID, "shapes": len(shapes)})
	})
	if err != nil {
		return domain.Drawing{}, err
	}
	e.storePreview(ctx, d, shapes)
	return d, nil
}

func (e Engine) GetDrawing(ctx context.Context, ownerID, id string) (domain.Drawing, error) {
	return e.Repo.GetDrawing(ctx, ownerID, id)
}

func (e Engine) ListDrawings(ctx context.Context, ownerID, taskID string) ([]domain.Drawing, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return e.Repo.ListDrawings(ctx, ownerID, taskID)
}

func (e Engine) UpdateDrawing(ctx context.Context, opts DrawingUpdateOptions) (domain.Drawing, error) {
	if opts.OwnerID == "" {
		return domain.Drawing{}, domain.ErrUnauthorized
	}
	var (
		d       domain.Drawing
		shapes  []canvas.Shape
		changed []string
	)
	if opts.Data != nil {
		var err error
		var data string
		data, shapes, err = canonicalData(*opts.Data)
		if err != nil {
			return domain.Drawing{}, err
		}
		opts.Data = &data
	}
	err := e.withTx(ctx, func(s *txScope) error {
		var err error
		d, err = e.Repo.GetDrawingTx(ctx, s.tx, opts.OwnerID, opts.ID)
		if err != nil {
			return err
		}
		if opts.Name != nil {
			d.Name = strings.TrimSpace(*opts.Name)
			changed = append(changed, "name")
		}
		if opts.Data != nil {
			d.Data = *opts.Data
			changed = append(changed, "data")
		}
		if opts.TaskID != nil {
			changed = append(changed, "task_id")
			if taskID := strings.TrimSpace(*opts.TaskID); taskID == "" {
				d.TaskID = nil
			} else {
				if err := e.checkTaskLink(ctx, s, d.OwnerID, taskID); err != nil {
					return err
				}
				d.TaskID = &taskID
			}
		}
		if err := domain.ValidateDrawing(d); err != nil {
			return err
		}
		d.PreviewKey = previewKey(d.ID)
		d.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateDrawing(ctx, s.tx, d); err != nil {
			return err
		}
		return s.emit(ctx, "drawing.updated", d.OwnerID, "drawing", d.ID, events.EventPayload{"fields": changed})
	})
	if err != nil {
		return domain.Drawing{}, err
	}
	if opts.Data != nil {
		e.storePreview(ctx, d, shapes)
	}
	return d, nil
}

func (e Engine) DeleteDrawing(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}
	var d domain.Drawing
	err := e.withTx(ctx, func(s *txScope) error {
		var err error
		d, err = e.Repo.GetDrawingTx(ctx, s.tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteDrawing(ctx, s.tx, ownerID, id); err != nil {
			return err
		}
		return s.emit(ctx, "drawing.deleted", ownerID, "drawing", id, events.EventPayload{"task_id": d.TaskID})
	})
	if err != nil {
		return err
	}
	e.dropPreview(ctx, d)
	return nil
}

// DrawingPreview returns the cached PNG, rendering and caching it when absent.
func (e Engine) DrawingPreview(ctx context.Context, ownerID, id string) ([]byte, error) {
	d, err := e.Repo.GetDrawing(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	key := d.PreviewKey
	if key == "" {
		key = previewKey(d.ID)
	}
	if e.Blobs != nil {
		data, _, err := e.Blobs.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			e.log().Warn("preview cache read failed", zap.String("drawing", d.ID), zap.Error(err))
		}
	}
	return e.RenderDrawing(ctx, ownerID, id)
}

// RenderDrawing regenerates the preview from the stored shapes.
func (e Engine) RenderDrawing(ctx context.Context, ownerID, id string) ([]byte, error) {
	d, err := e.Repo.GetDrawing(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	shapes, err := canvas.Decode(d.Data)
	if err != nil {
		return nil, err
	}
	return e.storePreview(ctx, d, shapes), nil
}

// storePreview renders and caches the preview; failures are logged since
// the preview can always be rebuilt.
func (e Engine) storePreview(ctx context.Context, d domain.Drawing, shapes []canvas.Shape) []byte {
	png, err := canvas.Render(shapes, canvas.Width, canvas.Height)
	if err != nil {
		e.log().Warn("preview render failed", zap.String("drawing", d.ID), zap.Error(err))
		return nil
	}
	if e.Blobs != nil {
		if err := e.Blobs.Put(ctx, previewKey(d.ID), png, previewContentType); err != nil {
			e.log().Warn("preview store failed", zap.String("drawing", d.ID), zap.Error(err))
		}
	}
	return png
}

func (e Engine) dropPreview(ctx context.Context, d domain.Drawing) {
	if e.Blobs == nil {
		return
	}
	key := d.PreviewKey
	if key == "" {
		key = previewKey(d.ID)
	}
	if err := e.Blobs.Delete(ctx, key); err != nil {
		e.log().Warn("preview delete failed", zap.String("drawing", d.ID), zap.Error(err))
	}
}

// SelectShape hit-tests a point against the stored drawing.
func (e Engine) SelectShape(ctx context.Context, ownerID, id string, p canvas.Point) (canvas.Shape, bool, error) {
	d, err := e.Repo.GetDrawing(ctx, ownerID, id)
	if err != nil {
		return nil, false, err
	}
	shapes, err := canvas.Decode(d.Data)
	if err != nil {
		return nil, false, err
	}
	s, ok := canvas.NewEditor(shapes).Select(p)
	return s, ok, nil
}

// EraseAt deletes the first selectable shape under p and saves the drawing.
// It reports false when nothing was hit.
func (e Engine) EraseAt(ctx context.Context, ownerID, id string, p canvas.Point) (domain.Drawing, bool, error) {
	d, err := e.Repo.GetDrawing(ctx, ownerID, id)
	if err != nil {
		return d, false, err
	}
	shapes, err := canvas.Decode(d.Data)
	if err != nil {
		return d, false, err
	}
	ed := canvas.NewEditor(shapes)
	if _, ok := ed.Select(p); !ok || !ed.DeleteSelected() {
		return d, false, nil
	}
	data, err := canvas.Encode(ed.Shapes())
	if err != nil {
		return d, false, err
	}
	d, err = e.UpdateDrawing(ctx, DrawingUpdateOptions{OwnerID: ownerID, ID: id, Data: &data})
	return d, err == nil, err
}
