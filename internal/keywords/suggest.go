package keywords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const suggestPrompt = "An image search for %q returned no results. " +
	"Suggest one short, concrete English search term (one to three words) that is likely to find a photo illustrating it. " +
	"Respond with only the search term, nothing else."

// Suggester proposes an alternative search term for text that found no images.
type Suggester interface {
	Suggest(ctx context.Context, text string) (string, error)
}

// HeuristicSuggester suggests the next extracted keyword. It never calls out.
type HeuristicSuggester struct{}

// Suggest returns the second keyword of text, the first when there is only one,
// or the normalized text when nothing can be extracted.
func (HeuristicSuggester) Suggest(_ context.Context, text string) (string, error) {
	terms := Extract(text)
	switch len(terms) {
	case 0:
		return Normalize(text), nil
	case 1:
		return terms[0], nil
	default:
		return terms[1], nil
	}
}

// OpenAISuggester asks a chat completion model for a better term.
type OpenAISuggester struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAISuggester creates a suggester backed by the OpenAI chat API.
// An empty model selects gpt-4o-mini.
func NewOpenAISuggester(apiKey, model string) *OpenAISuggester {
	return newOpenAISuggester(apiKey, model, openai.DefaultConfig(apiKey))
}

func newOpenAISuggester(apiKey, model string, cfg openai.ClientConfig) *OpenAISuggester {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAISuggester{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Suggest implements Suggester.
func (s *OpenAISuggester) Suggest(ctx context.Context, text string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not found")
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(suggestPrompt, text),
			},
		},
		MaxTokens:   20,
		Temperature: 0.3,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no suggestion returned")
	}

	return cleanSuggestion(resp.Choices[0].Message.Content)
}

// GeminiSuggester asks a Gemini model for a better term.
type GeminiSuggester struct {
	apiKey string
	model  string
}

// NewGeminiSuggester creates a suggester backed by the Gemini API.
// An empty model selects gemini-2.0-flash.
func NewGeminiSuggester(apiKey, model string) *GeminiSuggester {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiSuggester{apiKey: apiKey, model: model}
}

// Suggest implements Suggester.
func (s *GeminiSuggester) Suggest(ctx context.Context, text string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("Gemini API key not found")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(fmt.Sprintf(suggestPrompt, text)), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return cleanSuggestion(resp.Text())
}

// Fallback tries primary and falls back to the heuristic when it fails.
type Fallback struct {
	Primary Suggester
}

// Suggest implements Suggester.
func (f Fallback) Suggest(ctx context.Context, text string) (string, error) {
	if f.Primary != nil {
		term, err := f.Primary.Suggest(ctx, text)
		if err == nil {
			return term, nil
		}
		slog.Warn("term suggestion failed, using heuristic", "error", err)
	}
	return HeuristicSuggester{}.Suggest(ctx, text)
}

// NewSuggester picks the suggester for provider ("openai", "gemini" or
// anything else for the heuristic). Remote suggesters fall back to the
// heuristic on error.
func NewSuggester(provider, model, openAIKey, geminiKey string) Suggester {
	switch provider {
	case "openai":
		return Fallback{Primary: NewOpenAISuggester(openAIKey, model)}
	case "gemini":
		return Fallback{Primary: NewGeminiSuggester(geminiKey, model)}
	default:
		return HeuristicSuggester{}
	}
}

var errEmptySuggestion = errors.New("empty suggestion")

func cleanSuggestion(raw string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
	term := strings.Trim(strings.TrimSpace(line), `"'.`)
	if term == "" {
		return "", errEmptySuggestion
	}
	return term, nil
}
