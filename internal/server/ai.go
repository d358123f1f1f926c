package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskboard/internal/ai"
	"taskboard/internal/engine"
)

func registerAI(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "ai-suggestions",
		Method:      http.MethodPost,
		Path:        "/ai/suggestions",
		Summary:     "Suggest follow-up tasks from recent activity",
		Description: "Returns an empty list when text generation is unavailable.",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SuggestionsResponse `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Suggestions(ctx, owner)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SuggestionsResponse `json:"body"`
		}{Body: SuggestionsResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ai-summary",
		Method:      http.MethodPost,
		Path:        "/ai/summary",
		Summary:     "Productivity summary",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body *SummaryRequest `json:"body,omitempty" required:"false"`
	}) (*struct {
		Body engine.Summary `json:"body"`
	}, error) {
		owner, authErr := ownerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		period := ai.PeriodDaily
		if input.Body != nil && input.Body.Period != "" {
			period = input.Body.Period
		}
		s, err := e.Summary(ctx, owner, period)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Summary `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ai-health",
		Method:      http.MethodGet,
		Path:        "/ai/health",
		Summary:     "Check text generation connectivity",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ai.Health `json:"body"`
	}, error) {
		return &struct {
			Body ai.Health `json:"body"`
		}{Body: e.AIHealth(ctx)}, nil
	})
}
