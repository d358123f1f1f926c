// Package ai wraps the hosted text-generation and speech-to-text backends
// and holds the task heuristics built on top of them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"taskboard/internal/domain"
)

// DefaultModels is the probe list, in order of preference.
var DefaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"models/gemini-1.5-flash",
	"models/gemini-1.5-pro",
	"gemini-pro",
	"models/gemini-pro",
}

// Generator turns a prompt into free-form text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Gemini calls the Gemini API, probing the configured models in order.
type Gemini struct {
	client *genai.Client
	models []string
	log    *zap.Logger
}

func NewGemini(ctx context.Context, apiKey string, models []string, log *zap.Logger) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key required")
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	if log == nil {
		log = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, models: append([]string(nil), models...), log: log.Named("gemini")}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	text, _, err := g.generate(ctx, genai.Text(prompt))
	return text, err
}

func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	text, _, err := g.generate(ctx,
		genai.Blob{MIMEType: mimeType, Data: audio},
		genai.Text("Transcribe this English audio recording verbatim. Return only the transcript text."))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Ping sends a canned prompt and reports which model answered.
func (g *Gemini) Ping(ctx context.Context) (string, string, error) {
	return g.generate(ctx, genai.Text(`Say "Hello, Gemini API is working!"`))
}

// generate returns the first successful reply and the model that produced it.
func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, string, error) {
	var lastErr error
	for _, name := range g.models {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		resp, err := g.client.GenerativeModel(name).GenerateContent(ctx, parts...)
		if err == nil {
			var text string
			text, err = responseText(resp)
			if err == nil {
				return text, name, nil
			}
		}
		g.log.Warn("model unavailable, trying next", zap.String("model", name), zap.Error(err))
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no models configured")
	}
	return "", "", &domain.ExternalServiceError{Service: "gemini", Err: lastErr}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("response has no text")
	}
	return b.String(), nil
}
