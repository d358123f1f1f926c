package server

import (
	"strings"

	"taskboard/internal/calendar"
	"taskboard/internal/canvas"
	"taskboard/internal/domain"
)

// Request payloads

type CreateTaskRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty" enum:"backlog,in-progress,completed"`
	Priority    string   `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     string   `json:"due_date,omitempty" example:"2024-05-03T09:00:00Z"`
	Tags        []string `json:"tags,omitempty"`
	// NaturalLanguage derives the missing fields from free text.
	NaturalLanguage *string `json:"natural_language,omitempty" example:"Call the dentist tomorrow at 9, urgent"`
}

// UpdateTaskRequest is a partial update; due_date "" clears the due date.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty" enum:"backlog,in-progress,completed"`
	Priority    *string   `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     *string   `json:"due_date,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

type MoveTaskRequest struct {
	Status string `json:"status" enum:"backlog,in-progress,completed"`
}

type DeriveRequest struct {
	Input string `json:"input" example:"Buy groceries tomorrow, urgent"`
}

type SummaryRequest struct {
	Period string `json:"period,omitempty" enum:"daily,weekly" default:"daily"`
}

type CreateDrawingRequest struct {
	Name   string `json:"name"`
	TaskID string `json:"task_id,omitempty"`
	Data   string `json:"data,omitempty" example:"{\"elements\":[]}"`
}

// UpdateDrawingRequest is a partial update; task_id "" detaches the drawing.
type UpdateDrawingRequest struct {
	Name   *string `json:"name,omitempty"`
	TaskID *string `json:"task_id,omitempty"`
	Data   *string `json:"data,omitempty"`
}

type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DevLoginRequest struct {
	OwnerID string `json:"owner_id"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	OwnerID string `json:"owner_id"`
	Source  string `json:"source" enum:"jwt,api_key"`
}

type TaskListResponse struct {
	Items []domain.Task `json:"items"`
}

type UpdateTaskResponse struct {
	Task domain.Task `json:"task"`
	// CalendarError reports a failed calendar sync; the task update itself succeeded.
	CalendarError string `json:"calendar_error,omitempty"`
}

type DrawingListResponse struct {
	Items []domain.Drawing `json:"items"`
}

type SuggestionsResponse struct {
	Items []domain.AISuggestion `json:"items"`
}

type SelectResponse struct {
	Hit   bool           `json:"hit"`
	Shape map[string]any `json:"shape,omitempty"`
}

type EraseResponse struct {
	Erased  bool           `json:"erased"`
	Drawing domain.Drawing `json:"drawing"`
}

type CalendarAuthResponse struct {
	URL string `json:"url"`
}

type CalendarStatusResponse struct {
	Connected bool `json:"connected"`
}

// CalendarEventItem is one provider event as listed by GET /calendar/events.
type CalendarEventItem struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	HTMLLink    string `json:"html_link,omitempty"`
}

type CalendarEventsResponse struct {
	Items []CalendarEventItem `json:"items"`
}

func calendarEventItems(evs []calendar.Event) []CalendarEventItem {
	out := make([]CalendarEventItem, 0, len(evs))
	for _, ev := range evs {
		out = append(out, CalendarEventItem(ev))
	}
	return out
}

type EventListResponse struct {
	Items []domain.Event `json:"items"`
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return domain.NormalizeTags(strings.Split(raw, ","))
}

// shapeBody renders one shape in its wire form.
func shapeBody(s canvas.Shape) (map[string]any, error) {
	return canvas.EncodeShape(s)
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
