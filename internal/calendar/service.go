package calendar

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"taskboard/internal/config"
	"taskboard/internal/domain"
)

const (
	ScopeEvents   = "https://www.googleapis.com/auth/calendar.events"
	ScopeReadOnly = "https://www.googleapis.com/auth/calendar.readonly"

	serviceName     = "google-calendar"
	defaultStateTTL = 10 * time.Minute
	eventDuration   = time.Hour
	maxListedEvents = 50
)

// TokenStore persists one OAuth grant per owner.
type TokenStore interface {
	SaveCalendarToken(ctx context.Context, tok domain.CalendarToken) error
	GetCalendarToken(ctx context.Context, ownerID string) (domain.CalendarToken, error)
	DeleteCalendarToken(ctx context.Context, ownerID string) error
}

func NewOAuthConfig(cfg config.CalendarConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{ScopeEvents, ScopeReadOnly},
		Endpoint:     google.Endpoint,
	}
}

type Service struct {
	OAuth    *oauth2.Config
	Provider Provider
	States   StateStore
	Tokens   TokenStore
	Timeout  time.Duration
	StateTTL time.Duration
	Now      func() time.Time
	Log      *zap.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return context.WithCancel(ctx)
}

func external(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return &domain.ExternalServiceError{Service: serviceName, Err: err}
}

// AuthURL starts the consent flow for ownerID.
func (s *Service) AuthURL(ctx context.Context, ownerID string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("oauth state: %w", err)
	}
	state := hex.EncodeToString(buf)
	ttl := s.StateTTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	if err := s.States.Put(ctx, state, ownerID, ttl); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Callback finishes the flow and returns the owner the grant belongs to.
func (s *Service) Callback(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", fmt.Errorf("missing state or code: %w", domain.ErrInvalidInput)
	}
	ownerID, err := s.States.Take(ctx, state)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("unknown oauth state: %w", domain.ErrInvalidInput)
	}
	if err != nil {
		return "", fmt.Errorf("read oauth state: %w", err)
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return ownerID, external(fmt.Errorf("exchange code: %w", err))
	}
	if err := s.saveToken(ctx, ownerID, tok); err != nil {
		return ownerID, err
	}
	s.log().Info("calendar connected", zap.String("owner", ownerID))
	return ownerID, nil
}

func (s *Service) saveToken(ctx context.Context, ownerID string, tok *oauth2.Token) error {
	rec := domain.CalendarToken{
		OwnerID:      ownerID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		UpdatedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if !tok.Expiry.IsZero() {
		rec.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	if err := s.Tokens.SaveCalendarToken(ctx, rec); err != nil {
		return fmt.Errorf("save calendar token: %w", err)
	}
	return nil
}

func (s *Service) Connected(ctx context.Context, ownerID string) (bool, error) {
	_, err := s.Tokens.GetCalendarToken(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Disconnect(ctx context.Context, ownerID string) error {
	return s.Tokens.DeleteCalendarToken(ctx, ownerID)
}

// tokenSource refreshes through the OAuth config and stores any new token.
func (s *Service) tokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	rec, err := s.Tokens.GetCalendarToken(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrCalendarNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load calendar token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: rec.AccessToken, RefreshToken: rec.RefreshToken, TokenType: rec.TokenType}
	if rec.Expiry != "" {
		tok.Expiry, _ = time.Parse(time.RFC3339, rec.Expiry)
	}
	return &persistingSource{
		base: s.OAuth.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) {
			if err := s.saveToken(context.WithoutCancel(ctx), ownerID, t); err != nil {
				s.log().Warn("persist refreshed calendar token", zap.String("owner", ownerID), zap.Error(err))
			}
		},
	}, nil
}

type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	changed := tok.AccessToken != p.last
	p.last = tok.AccessToken
	p.mu.Unlock()
	if changed {
		p.save(tok)
	}
	return tok, nil
}

// PushTask creates or updates the one-hour event for a task with a due
// date and returns the event id.
func (s *Service) PushTask(ctx context.Context, task domain.Task) (string, error) {
	if task.DueDate == nil || *task.DueDate == "" {
		return "", domain.NewValidationError("due_date", "is required to link a calendar event")
	}
	start, err := time.Parse(time.RFC3339, *task.DueDate)
	if err != nil {
		return "", domain.NewValidationError("due_date", "must be an RFC 3339 timestamp")
	}
	ts, err := s.tokenSource(ctx, task.OwnerID)
	if err != nil {
		return "", err
	}
	ev := Event{
		Summary:     task.Title,
		Description: task.Description,
		Start:       start.UTC().Format(time.RFC3339),
		End:         start.Add(eventDuration).UTC().Format(time.RFC3339),
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if task.CalendarEventID != nil && *task.CalendarEventID != "" {
		ev.ID = *task.CalendarEventID
		out, err := s.Provider.Update(ctx, ts, ev)
		if err == nil {
			return out.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", external(err)
		}
		s.log().Info("linked calendar event vanished, recreating", zap.String("task", task.ID), zap.String("event", ev.ID))
		ev.ID = ""
	}
	out, err := s.Provider.Insert(ctx, ts, ev)
	if err != nil {
		return "", external(err)
	}
	return out.ID, nil
}

// RemoveEvent deletes an event; an already missing event is not an error.
func (s *Service) RemoveEvent(ctx context.Context, ownerID, eventID string) error {
	ts, err := s.tokenSource(ctx, ownerID)
	if err != nil {
		return err
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.Provider.Delete(ctx, ts, eventID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return external(err)
	}
	return nil
}

// Events lists the owner's primary calendar from a week ago to a month ahead.
func (s *Service) Events(ctx context.Context, ownerID string) ([]Event, error) {
	ts, err := s.tokenSource(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	events, err := s.Provider.List(ctx, ts, now.AddDate(0, 0, -7), now.AddDate(0, 1, 0), maxListedEvents)
	if err != nil {
		return nil, external(err)
	}
	return events, nil
}
