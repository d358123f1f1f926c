package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/events"
	"taskboard/internal/repo"
)

// TaskCreateOptions are parameters for creating a task. When NaturalLanguage
// is set, the derived draft fills every field left empty and the task is
// marked AI generated.
type TaskCreateOptions struct {
	OwnerID         string
	Title           string
	Description     string
	Status          string
	Priority        string
	DueDate         string
	Tags            []string
	NaturalLanguage *string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.OwnerID == "" {
		return domain.Task{}, domain.ErrUnauthorized
	}
	aiGenerated := false
	if opts.NaturalLanguage != nil {
		draft, err := e.deriver().Derive(ctx, *opts.NaturalLanguage)
		if err != nil {
			return domain.Task{}, err
		}
		aiGenerated = true
		if strings.TrimSpace(opts.Title) == "" {
			opts.Title = draft.Title
		}
		if opts.Description == "" {
			opts.Description = draft.Description
		}
		if opts.DueDate == "" && draft.DueDate != nil {
			opts.DueDate = *draft.DueDate
		}
		if opts.Priority == "" {
			opts.Priority = draft.Priority
		}
		tags := make([]string, 0, len(opts.Tags)+len(draft.Tags))
		opts.Tags = append(append(tags, opts.Tags...), draft.Tags...)
	}
	if opts.Status == "" {
		opts.Status = domain.StatusBacklog
	}
	inferPriority := opts.Priority == "" || opts.Priority == domain.PriorityMedium
	if inferPriority {
		opts.Priority = domain.PriorityMedium
	}

	now := e.stamp()
	t := domain.Task{
		ID:          uuid.NewString(),
		OwnerID:     opts.OwnerID,
		Title:       strings.TrimSpace(opts.Title),
		Description: strings.TrimSpace(opts.Description),
		Status:      opts.Status,
		Priority:    opts.Priority,
		Tags:        domain.NormalizeTags(opts.Tags),
		AIGenerated: aiGenerated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if strings.TrimSpace(opts.DueDate) != "" {
		due, err := domain.ParseDueDate(opts.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = &due
	}
	if err := domain.ValidateTask(t); err != nil {
		return domain.Task{}, err
	}
	if inferPriority {
		t.Priority = e.priority().Infer(ctx, t.Title, t.Description)
	}

	err := e.withTx(ctx, func(s *txScope) error {
		if err := e.Repo.InsertTask(ctx, s.tx, t); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return s.emit(ctx, "task.created", t.OwnerID, "task", t.ID, events.EventPayload{
			"title": t.Title, "status": t.Status, "priority": t.Priority, "ai_generated": t.AIGenerated,
		})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DerivePreview is the deriver's draft as returned, plus the priority
// CreateTask would store after inference.
type DerivePreview struct {
	Draft    domain.TaskDraft `json:"draft"`
	Priority string           `json:"priority"`
}

// DeriveDraft previews what CreateTask would derive from free text, without
// persisting anything.
func (e Engine) DeriveDraft(ctx context.Context, input string) (DerivePreview, error) {
	draft, err := e.deriver().Derive(ctx, input)
	if err != nil {
		return DerivePreview{}, err
	}
	out := DerivePreview{Draft: draft, Priority: draft.Priority}
	if draft.Priority == "" || draft.Priority == domain.PriorityMedium {
		out.Priority = e.priority().Infer(ctx, draft.Title, draft.Description)
	}
	return out, nil
}

func (e Engine) GetTask(ctx context.Context, ownerID, id string) (domain.Task, error) {
	return e.Repo.GetTask(ctx, ownerID, id)
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	if f.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if f.Status != "" && !domain.ValidStatus(f.Status) {
		return nil, domain.NewValidationError("status", "must be one of: "+strings.Join(domain.Statuses, ", "))
	}
	if f.Priority != "" && !domain.ValidPriority(f.Priority) {
		return nil, domain.NewValidationError("priority", "must be one of: "+strings.Join(domain.Priorities, ", "))
	}
	f.Tags = domain.NormalizeTags(f.Tags)
	return e.Repo.ListTasks(ctx, f)
}

// Board returns the owner's tasks grouped by column plus the overdue list.
func (e Engine) Board(ctx context.Context, ownerID string) (domain.Board, error) {
	tasks, err := e.ListTasks(ctx, repo.TaskFilters{OwnerID: ownerID})
	if err != nil {
		return domain.Board{}, err
	}
	return domain.BuildBoard(tasks, e.now()), nil
}

// TaskUpdateOptions carries a partial update: nil fields are left untouched.
// A DueDate pointing at "" clears the due date.
type TaskUpdateOptions struct {
	OwnerID     string
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	Tags        *[]string
}

// TaskUpdateResult reports the stored task and, separately, a calendar sync
// failure that did not prevent the update.
type TaskUpdateResult struct {
	Task          domain.Task `json:"task"`
	CalendarError string      `json:"calendar_error,omitempty"`
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (TaskUpdateResult, error) {
	if opts.OwnerID == "" {
		return TaskUpdateResult{}, domain.ErrUnauthorized
	}
	var (
		t             domain.Task
		before        domain.Task
		changed       []string
		removeEventID string
	)
	err := e.withTx(ctx, func(s *txScope) error {
		var err error
		t, err = e.Repo.GetTaskTx(ctx, s.tx, opts.OwnerID, opts.ID)
		if err != nil {
			return err
		}
		before = t
		if opts.Title != nil {
			t.Title = strings.TrimSpace(*opts.Title)
			changed = append(changed, "title")
		}
		if opts.Description != nil {
			t.Description = strings.TrimSpace(*opts.Description)
			changed = append(changed, "description")
		}
		if opts.Status != nil {
			t.Status = *opts.Status
			changed = append(changed, "status")
		}
		if opts.Priority != nil {
			t.Priority = *opts.Priority
			changed = append(changed, "priority")
		}
		if opts.Tags != nil {
			t.Tags = domain.NormalizeTags(*opts.Tags)
			changed = append(changed, "tags")
		}
		if opts.DueDate != nil {
			changed = append(changed, "due_date")
			if strings.TrimSpace(*opts.DueDate) == "" {
				t.DueDate = nil
			} else {
				due, err := domain.ParseDueDate(*opts.DueDate)
				if err != nil {
					return err
				}
				t.DueDate = &due
			}
		}
		if err := domain.ValidateTask(t); err != nil {
			return err
		}
		if t.DueDate == nil && t.CalendarEventID != nil {
			removeEventID = *t.CalendarEventID
			t.CalendarEventID = nil
		}
		t.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, s.tx, t); err != nil {
			return err
		}
		if err := s.emit(ctx, "task.updated", t.OwnerID, "task", t.ID, events.EventPayload{"fields": changed}); err != nil {
			return err
		}
		if before.Status != t.Status {
			return s.emit(ctx, "task.status_changed", t.OwnerID, "task", t.ID, events.EventPayload{"from": before.Status, "to": t.Status})
		}
		return nil
	})
	if err != nil {
		return TaskUpdateResult{}, err
	}

	res := TaskUpdateResult{Task: t}
	switch {
	case removeEventID != "":
		if err := e.removeCalendarEvent(ctx, t.OwnerID, removeEventID); err != nil {
			res.CalendarError = err.Error()
			e.log().Warn("calendar event removal failed", zap.String("task", t.ID), zap.Error(err))
		}
	case t.CalendarEventID != nil && calendarFieldsChanged(before, t):
		synced, err := e.pushCalendar(ctx, t)
		if err != nil {
			res.CalendarError = err.Error()
			e.log().Warn("calendar sync failed", zap.String("task", t.ID), zap.Error(err))
		} else {
			res.Task = synced
		}
	}
	return res, nil
}

func calendarFieldsChanged(a, b domain.Task) bool {
	return a.Title != b.Title || a.Description != b.Description || derefString(a.DueDate) != derefString(b.DueDate)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MoveTask sets the kanban column. Moving to the current column changes nothing.
func (e Engine) MoveTask(ctx context.Context, ownerID, id, status string) (domain.Task, error) {
	if !domain.ValidStatus(status) {
		return domain.Task{}, domain.NewValidationError("status", "must be one of: "+strings.Join(domain.Statuses, ", "))
	}
	return e.transition(ctx, ownerID, id, func(string) string { return status })
}

// ToggleComplete flips completed tasks back to the backlog and completes anything else.
func (e Engine) ToggleComplete(ctx context.Context, ownerID, id string) (domain.Task, error) {
	return e.transition(ctx, ownerID, id, domain.ToggleStatus)
}

func (e Engine) transition(ctx context.Context, ownerID, id string, next func(string) string) (domain.Task, error) {
	if ownerID == "" {
		return domain.Task{}, domain.ErrUnauthorized
	}
	var t domain.Task
	err := e.withTx(ctx, func(s *txScope) error {
		var err error
		t, err = e.Repo.GetTaskTx(ctx, s.tx, ownerID, id)
		if err != nil {
			return err
		}
		from := t.Status
		to := next(from)
		if to == from {
			return nil
		}
		t.Status = to
		t.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, s.tx, t); err != nil {
			return err
		}
		return s.emit(ctx, "task.status_changed", ownerID, "task", t.ID, events.EventPayload{"from": from, "to": to})
	})
	return t, err
}

// DeleteTask removes the task and every drawing linked to it in one
// transaction. Preview blobs and the calendar event are cleaned up after
// commit; failures there are only logged.
func (e Engine) DeleteTask(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return domain.ErrUnauthorized
	}
	var (
		t       domain.Task
		removed []domain.Drawing
	)
	err := e.withTx(ctx, func(s *txScope) error {
		var err error
		t, err = e.Repo.GetTaskTx(ctx, s.tx, ownerID, id)
		if err != nil {
			return err
		}
		removed, err = e.Repo.DeleteDrawingsForTask(ctx, s.tx, ownerID, id)
		if err != nil {
			return fmt.Errorf("delete drawings: %w", err)
		}
		if err := e.Repo.DeleteTask(ctx, s.tx, ownerID, id); err != nil {
			return err
		}
		for _, d := range removed {
			if err := s.emit(ctx, "drawing.deleted", ownerID, "drawing", d.ID, events.EventPayload{"task_id": id}); err != nil {
				return err
			}
		}
		return s.emit(ctx, "task.deleted", ownerID, "task", id, events.EventPayload{"title": t.Title, "drawings_removed": len(removed)})
	})
	if err != nil {
		return err
	}
	for _, d := range removed {
		e.dropPreview(ctx, d)
	}
	if t.CalendarEventID != nil {
		if err := e.removeCalendarEvent(ctx, ownerID, *t.CalendarEventID); err != nil && !errors.Is(err, domain.ErrCalendarNotConnected) {
			e.log().Warn("calendar event removal failed", zap.String("task", id), zap.Error(err))
		}
	}
	return nil
}
