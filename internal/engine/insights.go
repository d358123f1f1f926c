package engine

import (
	"context"
	"time"

	"taskboard/internal/ai"
	"taskboard/internal/domain"
	"taskboard/internal/repo"
)

// Suggestions proposes follow-up tasks from the owner's most recent tasks.
func (e Engine) Suggestions(ctx context.Context, ownerID string) ([]domain.AISuggestion, error) {
	recent, err := e.ListTasks(ctx, repo.TaskFilters{OwnerID: ownerID, Limit: ai.MaxSuggestionContext})
	if err != nil {
		return nil, err
	}
	s := ai.Suggester{Gen: e.Generator, Timeout: e.AITimeout, Log: e.log()}
	return s.Suggest(ctx, recent), nil
}

type Summary struct {
	Period    string `json:"period"`
	Since     string `json:"since" format:"date-time"`
	TaskCount int    `json:"task_count"`
	Summary   string `json:"summary"`
}

// Summary recaps the tasks created within the period.
func (e Engine) Summary(ctx context.Context, ownerID, period string) (Summary, error) {
	if period == "" {
		period = ai.PeriodDaily
	}
	since, err := ai.PeriodStart(period, e.now())
	if err != nil {
		return Summary{}, err
	}
	sinceStamp := since.UTC().Format(time.RFC3339)
	tasks, err := e.ListTasks(ctx, repo.TaskFilters{OwnerID: ownerID, CreatedSince: sinceStamp})
	if err != nil {
		return Summary{}, err
	}
	s := ai.Summarizer{Gen: e.Generator, Timeout: e.AITimeout, Log: e.log()}
	return Summary{
		Period:    period,
		Since:     sinceStamp,
		TaskCount: len(tasks),
		Summary:   s.Summarize(ctx, tasks, period),
	}, nil
}

func (e Engine) AIHealth(ctx context.Context) ai.Health {
	return ai.CheckHealth(ctx, e.Generator, e.AITimeout)
}
