package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/domain"
)

var (
	highPriorityKeywords = []string{"urgent", "asap", "critical", "important", "deadline", "emergency"}
	lowPriorityKeywords  = []string{"someday", "maybe", "nice to have", "optional", "when possible"}
)

// KeywordPriority returns high or low when the text carries an urgency
// keyword, "" otherwise. High keywords win.
func KeywordPriority(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, kw := range highPriorityKeywords {
		if strings.Contains(text, kw) {
			return domain.PriorityHigh
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(text, kw) {
			return domain.PriorityLow
		}
	}
	return ""
}

// PriorityInferrer picks a priority for tasks created without one.
type PriorityInferrer struct {
	Gen     Generator
	Timeout time.Duration
	Log     *zap.Logger
}

func (p PriorityInferrer) Infer(ctx context.Context, title, description string) string {
	if kw := KeywordPriority(title, description); kw != "" {
		return kw
	}
	if p.Gen == nil {
		return domain.PriorityMedium
	}
	reply, err := generateWithTimeout(ctx, p.Gen, p.Timeout, priorityPrompt(title, description))
	if err != nil {
		logOrNop(p.Log).Warn("priority inference fell back", zap.Error(err))
		return domain.PriorityMedium
	}
	answer := strings.ToLower(strings.TrimSpace(reply))
	if domain.ValidPriority(answer) {
		return answer
	}
	return domain.PriorityMedium
}

func priorityPrompt(title, description string) string {
	if strings.TrimSpace(description) == "" {
		description = "No description"
	}
	return fmt.Sprintf(`Analyze this task and determine its priority level (low, medium, high):
Title: %s
Description: %s

Consider urgency, importance, deadlines and impact.
Respond with only one word: low, medium, or high`, title, description)
}
