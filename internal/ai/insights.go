package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/domain"
)

const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"

	// MaxSuggestionContext is how many recent tasks feed a suggestion prompt.
	MaxSuggestionContext = 20

	summaryUnavailable = "Unable to generate summary at this time. Please check your Gemini API key configuration."
)

// Suggester proposes follow-up tasks from recent activity.
type Suggester struct {
	Gen     Generator
	Timeout time.Duration
	Log     *zap.Logger
}

type suggestionReply struct {
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Metadata    struct {
		SuggestedPriority string   `json:"suggestedPriority"`
		SuggestedTags     []string `json:"suggestedTags"`
	} `json:"metadata"`
}

// Suggest returns an empty list on any failure.
func (s Suggester) Suggest(ctx context.Context, recent []domain.Task) []domain.AISuggestion {
	out := []domain.AISuggestion{}
	if len(recent) == 0 || s.Gen == nil {
		return out
	}
	if len(recent) > MaxSuggestionContext {
		recent = recent[:MaxSuggestionContext]
	}
	log := logOrNop(s.Log)
	reply, err := generateWithTimeout(ctx, s.Gen, s.Timeout, suggestionPrompt(recent))
	if err != nil {
		log.Warn("suggestions unavailable", zap.Error(err))
		return out
	}
	arr, ok := ExtractArray(reply)
	if !ok {
		log.Warn("suggestions unavailable", zap.String("reason", "no json array"))
		return out
	}
	var parsed []suggestionReply
	if err := json.Unmarshal([]byte(arr), &parsed); err != nil {
		log.Warn("suggestions unavailable", zap.Error(err))
		return out
	}
	for _, p := range parsed {
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		sg := domain.AISuggestion{
			Type:        p.Type,
			Title:       title,
			Description: strings.TrimSpace(p.Description),
			Confidence:  clamp01(p.Confidence),
		}
		if sg.Type == "" {
			sg.Type = "task"
		}
		if pr := strings.ToLower(p.Metadata.SuggestedPriority); domain.ValidPriority(pr) {
			sg.Metadata.SuggestedPriority = pr
		}
		if tags := domain.NormalizeTags(p.Metadata.SuggestedTags); len(tags) > 0 {
			sg.Metadata.SuggestedTags = tags
		}
		out = append(out, sg)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func suggestionPrompt(recent []domain.Task) string {
	lines := make([]string, 0, len(recent))
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("%s - %s - Priority: %s", t.Title, t.Status, t.Priority))
	}
	return `Based on the user's recent todo items, suggest 3-5 new tasks that would be helpful.
Consider patterns, incomplete items, and logical follow-ups.

Recent todos:
` + strings.Join(lines, "\n") + `

Return ONLY a valid JSON array with this exact format:
[{"type": "task", "title": "Suggested task title", "description": "Why this task is suggested", "confidence": 0.8, "metadata": {"suggestedPriority": "medium", "suggestedTags": ["work"]}}]

Return only the JSON array, no other text.`
}

// Summarizer writes a short productivity recap.
type Summarizer struct {
	Gen     Generator
	Timeout time.Duration
	Log     *zap.Logger
}

// PeriodStart returns the beginning of the window a summary period covers.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case PeriodDaily:
		return now.AddDate(0, 0, -1), nil
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), nil
	}
	return time.Time{}, domain.NewValidationError("period", "must be one of: daily, weekly")
}

func (s Summarizer) Summarize(ctx context.Context, tasks []domain.Task, period string) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks found for your %s summary. Start by creating some tasks to track your productivity!", period)
	}
	if s.Gen == nil {
		return summaryUnavailable
	}
	reply, err := generateWithTimeout(ctx, s.Gen, s.Timeout, summaryPrompt(tasks, period))
	if err != nil {
		logOrNop(s.Log).Warn("summary unavailable", zap.Error(err))
		return summaryUnavailable
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return "No summary available."
	}
	return reply
}

func summaryPrompt(tasks []domain.Task, period string) string {
	var completed, pending []string
	for _, t := range tasks {
		if t.Status == domain.StatusCompleted {
			completed = append(completed, "- "+t.Title)
		} else {
			pending = append(pending, fmt.Sprintf("- %s (%s priority)", t.Title, t.Priority))
		}
	}
	return fmt.Sprintf(`Generate a %s summary of productivity based on these tasks:

Completed (%d):
%s

Pending (%d):
%s

Create a motivational summary highlighting achievements and suggesting focus areas.
Keep it concise and encouraging (2-3 paragraphs max).
Do not use markdown formatting.`, period, len(completed), strings.Join(completed, "\n"), len(pending), strings.Join(pending, "\n"))
}

// Health is the result of a connectivity check.
type Health struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// Pinger is implemented by generators that can report which backend answered.
type Pinger interface {
	Ping(ctx context.Context) (reply, model string, err error)
}

// CheckHealth pings gen when it supports it, otherwise issues a plain prompt.
func CheckHealth(ctx context.Context, gen Generator, timeout time.Duration) Health {
	if gen == nil {
		return Health{Message: "text generation is not configured"}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var (
		reply, model string
		err          error
	)
	if p, ok := gen.(Pinger); ok {
		reply, model, err = p.Ping(ctx)
	} else {
		reply, err = gen.Generate(ctx, `Say "Hello, Gemini API is working!"`)
	}
	if err != nil {
		return Health{Message: err.Error()}
	}
	return Health{Success: true, Message: strings.TrimSpace(reply), Model: model}
}
