package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"taskboard/internal/domain"
)

const fallbackTitleRunes = 50

// Deriver turns a free-text phrase into a task draft. It never fails on
// upstream trouble; it degrades to FallbackDraft instead.
type Deriver struct {
	Gen     Generator
	Timeout time.Duration
	Now     func() time.Time
	Log     *zap.Logger
}

type derivedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"dueDate"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

func (d Deriver) Derive(ctx context.Context, input string) (domain.TaskDraft, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return domain.TaskDraft{}, fmt.Errorf("natural-language input is empty: %w", domain.ErrInvalidInput)
	}
	log := logOrNop(d.Log)
	if d.Gen == nil {
		return FallbackDraft(input), nil
	}

	reply, err := generateWithTimeout(ctx, d.Gen, d.Timeout, derivePrompt(input, d.now()))
	if err != nil {
		log.Warn("derive fell back", zap.String("reason", "generator"), zap.Error(err))
		return FallbackDraft(input), nil
	}
	obj, ok := ExtractObject(reply)
	if !ok {
		log.Warn("derive fell back", zap.String("reason", "no json object"))
		return FallbackDraft(input), nil
	}
	var parsed derivedTask
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		log.Warn("derive fell back", zap.String("reason", "invalid json"), zap.Error(err))
		return FallbackDraft(input), nil
	}
	if strings.TrimSpace(parsed.Title) == "" {
		log.Warn("derive fell back", zap.String("reason", "missing title"))
		return FallbackDraft(input), nil
	}

	draft := domain.TaskDraft{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Priority:    strings.ToLower(strings.TrimSpace(parsed.Priority)),
		Tags:        domain.NormalizeTags(parsed.Tags),
	}
	if !domain.ValidPriority(draft.Priority) {
		draft.Priority = domain.PriorityMedium
	}
	if parsed.DueDate != "" {
		if due, err := domain.ParseDueDate(parsed.DueDate); err == nil {
			draft.DueDate = &due
		} else {
			log.Debug("dropping unparseable due date", zap.String("due_date", parsed.DueDate))
		}
	}
	return draft, nil
}

// FallbackDraft is the deterministic derivation used when the generator
// cannot help.
func FallbackDraft(input string) domain.TaskDraft {
	return domain.TaskDraft{
		Title:       truncateRunes(input, fallbackTitleRunes),
		Description: input,
		Priority:    domain.PriorityMedium,
		Tags:        []string{},
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func (d Deriver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func derivePrompt(input string, now time.Time) string {
	return fmt.Sprintf(`Parse the following natural language input into a structured todo item.
Return ONLY a valid JSON object with title, description, dueDate (ISO 8601 string), priority (low/medium/high), and tags (array of strings).

Today is %s.
Input: %q

Rules:
- ALWAYS include a title
- Extract a clear, concise title from the input
- Identify due dates from text like "by Friday", "tomorrow", "next week"
- Determine priority from urgency words (urgent, ASAP, important)
- Extract relevant tags from context
- If no due date is mentioned, omit the dueDate field
- If the input is unclear, use the input text as the title

Example output:
{"title": "Buy groceries", "description": "Buy groceries for the week", "priority": "medium", "tags": ["shopping"]}

Return only the JSON object, no other text.`, now.UTC().Format("Monday, 2006-01-02"), input)
}

func generateWithTimeout(ctx context.Context, gen Generator, timeout time.Duration, prompt string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return gen.Generate(ctx, prompt)
}

func logOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
