package engine

import (
	"context"
	"fmt"

	"taskboard/internal/calendar"
	"taskboard/internal/domain"
	"taskboard/internal/events"
)

func (e Engine) calendarService() (*calendar.Service, error) {
	if e.Calendar == nil {
		return nil, fmt.Errorf("calendar integration disabled: %w", domain.ErrCalendarNotConnected)
	}
	return e.Calendar, nil
}

func (e Engine) removeCalendarEvent(ctx context.Context, ownerID, eventID string) error {
	svc, err := e.calendarService()
	if err != nil {
		return err
	}
	return svc.RemoveEvent(ctx, ownerID, eventID)
}

// pushCalendar upserts the event for t and stores the id when it changed.
func (e Engine) pushCalendar(ctx context.Context, t domain.Task) (domain.Task, error) {
	svc, err := e.calendarService()
	if err != nil {
		return t, err
	}
	eventID, err := svc.PushTask(ctx, t)
	if err != nil {
		return t, err
	}
	if t.CalendarEventID != nil && *t.CalendarEventID == eventID {
		return t, nil
	}
	var stored domain.Task
	err = e.withTx(ctx, func(s *txScope) error {
		cur, err := e.Repo.GetTaskTx(ctx, s.tx, t.OwnerID, t.ID)
		if err != nil {
			return err
		}
		cur.CalendarEventID = &eventID
		cur.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, s.tx, cur); err != nil {
			return err
		}
		stored = cur
		return s.emit(ctx, "calendar.linked", t.OwnerID, "task", t.ID, events.EventPayload{"event_id": eventID})
	})
	if err != nil {
		return t, err
	}
	return stored, nil
}

// LinkCalendar pushes the task to the owner's calendar. The task must have a due date.
func (e Engine) LinkCalendar(ctx context.Context, ownerID, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, ownerID, id)
	if err != nil {
		return t, err
	}
	if t.DueDate == nil {
		return t, domain.NewValidationError("due_date", "is required to link a calendar event")
	}
	return e.pushCalendar(ctx, t)
}

// UnlinkCalendar deletes the linked event and clears the link. The link is
// kept when the provider refuses the delete.
func (e Engine) UnlinkCalendar(ctx context.Context, ownerID, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, ownerID, id)
	if err != nil {
		return t, err
	}
	if t.CalendarEventID == nil {
		return t, nil
	}
	eventID := *t.CalendarEventID
	if err := e.removeCalendarEvent(ctx, ownerID, eventID); err != nil {
		return t, err
	}
	err = e.withTx(ctx, func(s *txScope) error {
		t, err = e.Repo.GetTaskTx(ctx, s.tx, ownerID, id)
		if err != nil {
			return err
		}
		t.CalendarEventID = nil
		t.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateTask(ctx, s.tx, t); err != nil {
			return err
		}
		return s.emit(ctx, "calendar.unlinked", ownerID, "task", id, events.EventPayload{"event_id": eventID})
	})
	return t, err
}

func (e Engine) CalendarAuthURL(ctx context.Context, ownerID string) (string, error) {
	svc, err := e.calendarService()
	if err != nil {
		return "", err
	}
	return svc.AuthURL(ctx, ownerID)
}

// CalendarCallback completes the OAuth flow and returns the connected owner.
func (e Engine) CalendarCallback(ctx context.Context, state, code string) (string, error) {
	svc, err := e.calendarService()
	if err != nil {
		return "", err
	}
	ownerID, err := svc.Callback(ctx, state, code)
	if err != nil {
		return ownerID, err
	}
	err = e.withTx(ctx, func(s *txScope) error {
		return s.emit(ctx, "calendar.connected", ownerID, "calendar", "", nil)
	})
	return ownerID, err
}

func (e Engine) CalendarDisconnect(ctx context.Context, ownerID string) error {
	svc, err := e.calendarService()
	if err != nil {
		return err
	}
	if err := svc.Disconnect(ctx, ownerID); err != nil {
		return err
	}
	return e.withTx(ctx, func(s *txScope) error {
		return s.emit(ctx, "calendar.disconnected", ownerID, "calendar", "", nil)
	})
}

func (e Engine) CalendarConnected(ctx context.Context, ownerID string) (bool, error) {
	if e.Calendar == nil {
		return false, nil
	}
	return e.Calendar.Connected(ctx, ownerID)
}

func (e Engine) CalendarEvents(ctx context.Context, ownerID string) ([]calendar.Event, error) {
	svc, err := e.calendarService()
	if err != nil {
		return nil, err
	}
	return svc.Events(ctx, ownerID)
}
