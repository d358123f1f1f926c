package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskboard/internal/domain"
)

func registerCalendar(api huma.API, router chi.Router, cfg Config) {
	e := cfg.Engine
	huma.Register(api, huma.Operation{
		OperationID: "calendar-auth",
		Method:      http.MethodGet,
		Path:        "/calendar/auth",
		Summary:     "Start the calendar OAuth flow",
		Description: "Returns the consent URL. The browser is sent back to /calendar/callback.",
		Errors:      []int{http.StatusConflict, http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CalendarAuthResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.CalendarAuthURL(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CalendarAuthResponse `json:"body"`
		}{Body: CalendarAuthResponse{URL: u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "calendar-status",
		Method:      http.MethodGet,
		Path:        "/calendar/status",
		Summary:     "Whether the owner's calendar is connected",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CalendarStatusResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ok, err := e.CalendarConnected(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CalendarStatusResponse `json:"body"`
		}{Body: CalendarStatusResponse{Connected: ok}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "calendar-disconnect",
		Method:        http.MethodPost,
		Path:          "/calendar/disconnect",
		Summary:       "Forget the stored calendar grant",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusConflict, http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.CalendarDisconnect(ctx, owner); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "calendar-events",
		Method:      http.MethodGet,
		Path:        "/calendar/events",
		Summary:     "Upcoming calendar events",
		Description: "Events from seven days ago to one month ahead, at most 50.",
		Errors:      []int{http.StatusConflict, http.StatusBadGateway, http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body CalendarEventsResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.CalendarEvents(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CalendarEventsResponse `json:"body"`
		}{Body: CalendarEventsResponse{Items: calendarEventItems(items)}}, nil
	})

	// The provider redirects the browser here, so the handler answers with
	// redirects rather than JSON whenever redirect targets are configured.
	router.Get(path.Join(cfg.BasePath, "calendar/callback"), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			callbackFailed(w, r, cfg, newAPIError(http.StatusBadRequest, "invalid_input", "authorization denied: "+providerErr, nil))
			return
		}
		owner, err := e.CalendarCallback(r.Context(), q.Get("state"), q.Get("code"))
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidInput) {
				cfg.log().Warn("calendar callback failed", zap.String("owner", owner), zap.Error(err))
			}
			callbackFailed(w, r, cfg, handleError(err))
			return
		}
		if cfg.Calendar.SuccessURL != "" {
			http.Redirect(w, r, withQuery(cfg.Calendar.SuccessURL, "calendar", "connected"), http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"connected":true}`))
	})
}

func callbackFailed(w http.ResponseWriter, r *http.Request, cfg Config, se huma.StatusError) {
	if cfg.Calendar.ErrorURL != "" {
		http.Redirect(w, r, withQuery(cfg.Calendar.ErrorURL, "error", se.Error()), http.StatusFound)
		return
	}
	respondStatusError(w, se)
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
