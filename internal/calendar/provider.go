// Package calendar pushes task due dates to the owner's Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"taskboard/internal/domain"
)

// Event is the provider-neutral view of a calendar entry. Times are RFC 3339.
type Event struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	HTMLLink    string `json:"html_link,omitempty"`
}

// Provider performs event CRUD on behalf of one token. A missing event is
// reported as domain.ErrNotFound.
type Provider interface {
	Insert(ctx context.Context, ts oauth2.TokenSource, ev Event) (Event, error)
	Update(ctx context.Context, ts oauth2.TokenSource, ev Event) (Event, error)
	Delete(ctx context.Context, ts oauth2.TokenSource, eventID string) error
	List(ctx context.Context, ts oauth2.TokenSource, from, to time.Time, max int) ([]Event, error)
}

// GoogleProvider talks to the Calendar v3 API.
type GoogleProvider struct {
	CalendarID string
}

func (p GoogleProvider) calendarID() string {
	if p.CalendarID == "" {
		return "primary"
	}
	return p.CalendarID
}

func (p GoogleProvider) service(ctx context.Context, ts oauth2.TokenSource) (*gcal.Service, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}
	return svc, nil
}

func (p GoogleProvider) Insert(ctx context.Context, ts oauth2.TokenSource, ev Event) (Event, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return Event{}, err
	}
	out, err := svc.Events.Insert(p.calendarID(), toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, mapGoogleErr(err)
	}
	return fromGoogle(out), nil
}

func (p GoogleProvider) Update(ctx context.Context, ts oauth2.TokenSource, ev Event) (Event, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return Event{}, err
	}
	out, err := svc.Events.Patch(p.calendarID(), ev.ID, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return Event{}, mapGoogleErr(err)
	}
	return fromGoogle(out), nil
}

func (p GoogleProvider) Delete(ctx context.Context, ts oauth2.TokenSource, eventID string) error {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return err
	}
	return mapGoogleErr(svc.Events.Delete(p.calendarID(), eventID).Context(ctx).Do())
}

func (p GoogleProvider) List(ctx context.Context, ts oauth2.TokenSource, from, to time.Time, max int) ([]Event, error) {
	svc, err := p.service(ctx, ts)
	if err != nil {
		return nil, err
	}
	res, err := svc.Events.List(p.calendarID()).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(int64(max)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleErr(err)
	}
	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, fromGoogle(item))
	}
	return events, nil
}

func toGoogle(ev Event) *gcal.Event {
	return &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start},
		End:         &gcal.EventDateTime{DateTime: ev.End},
	}
}

func fromGoogle(ev *gcal.Event) Event {
	out := Event{ID: ev.Id, Summary: ev.Summary, Description: ev.Description, HTMLLink: ev.HtmlLink}
	out.Start = eventTime(ev.Start)
	out.End = eventTime(ev.End)
	return out
}

// eventTime prefers the timed value; all-day events only carry a date.
func eventTime(t *gcal.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}

func mapGoogleErr(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return fmt.Errorf("calendar event: %w", domain.ErrNotFound)
	}
	return err
}
