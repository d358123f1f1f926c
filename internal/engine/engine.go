package engine

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/ai"
	"taskboard/internal/blob"
	"taskboard/internal/calendar"
	"taskboard/internal/domain"
	"taskboard/internal/events"
	"taskboard/internal/repo"
)

// Engine holds the application operations. Collaborators left nil degrade:
// no generator means deterministic fallbacks, no calendar means
// ErrCalendarNotConnected, no transcriber means ErrTranscriptionFailed.
type Engine struct {
	DB          *sql.DB
	Repo        repo.Repo
	Events      events.Writer
	Publisher   events.Publisher
	Blobs       blob.Store
	Generator   ai.Generator
	Transcriber ai.Transcriber
	AITimeout   time.Duration
	Calendar    *calendar.Service
	Log         *zap.Logger
	Now         func() time.Time
}

func New(db *sql.DB, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Publisher: events.NopPublisher{},
		Blobs:     blob.SQLStore{DB: db},
		Log:       log,
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e Engine) deriver() ai.Deriver {
	return ai.Deriver{Gen: e.Generator, Timeout: e.AITimeout, Now: e.now, Log: e.log()}
}

func (e Engine) priority() ai.PriorityInferrer {
	return ai.PriorityInferrer{Gen: e.Generator, Timeout: e.AITimeout, Log: e.log()}
}

// txScope collects the events appended during one transaction.
type txScope struct {
	tx     *sql.Tx
	writer events.Writer
	events []domain.Event
}

func (s *txScope) emit(ctx context.Context, evtType, ownerID, kind, id string, payload events.EventPayload) error {
	evt, err := s.writer.Append(ctx, s.tx, evtType, ownerID, kind, id, payload)
	if err != nil {
		return err
	}
	s.events = append(s.events, evt)
	return nil
}

// withTx runs fn in a transaction and publishes its events after commit.
func (e Engine) withTx(ctx context.Context, fn func(*txScope) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	writer := e.Events
	if writer.Now == nil {
		writer.Now = e.now
	}
	scope := &txScope{tx: tx, writer: writer}
	if err := fn(scope); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.publish(ctx, scope.events)
	return nil
}

func (e Engine) publish(ctx context.Context, evts []domain.Event) {
	if e.Publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := e.Publisher.Publish(ctx, evt); err != nil {
			e.log().Warn("event publish failed", zap.String("type", evt.Type), zap.Int64("id", evt.ID), zap.Error(err))
		}
	}
}

// ListEvents returns the owner's recent events, newest first.
func (e Engine) ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	if f.OwnerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	return e.Repo.LatestEvents(ctx, f)
}
