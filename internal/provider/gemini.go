package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/emojicache/internal/config"
	"google.golang.org/genai"
)

// emojiPrompt asks the model for an emoji-only answer. The raw response is
// still sanitized downstream; models do not always comply.
const emojiPrompt = "Return only emojis. No words: %s"

// Gemini implements Embedder and Generator against the Gemini API.
type Gemini struct {
	apiKey        string
	embedModel    string
	generateModel string
	timeout       time.Duration
}

// NewGemini creates a Gemini provider from config.
func NewGemini(cfg *config.ProviderConfig) *Gemini {
	return &Gemini{
		apiKey:        strings.TrimSpace(cfg.APIKey),
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
		timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

func (g *Gemini) client(ctx context.Context) (*genai.Client, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return client, nil
}

// Embed returns the embedding for text. Failures and timeouts wrap ErrUnavailable.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		g.embedModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %v", ErrUnavailable, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: embed returned no values", ErrUnavailable)
	}
	return resp.Embeddings[0].Values, nil
}

// Generate returns the model's raw answer for text. Failures and timeouts wrap ErrUnavailable.
func (g *Gemini) Generate(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.generateModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: fmt.Sprintf(emojiPrompt, text)}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: generate: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
