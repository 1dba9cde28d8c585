package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-3-flash-preview"

// GeminiProvider generates insights with the Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiProvider creates a Gemini-backed provider
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingAPIKey)
	}
	if model == "" {
		model = geminiDefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.7),
			TopP:        genai.Ptr[float32](0.8),
			TopK:        genai.Ptr[float32](40),
		},
	}, nil
}

// Generate runs a single content generation for the prompt
func (g *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		if geminiKeyRejected(err) {
			return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

func geminiKeyRejected(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiKeyStatus(apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiKeyStatus(apiErrPtr.Code, apiErrPtr.Message)
	}
	return false
}

func apiKeyStatus(code int, message string) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(message, "API_KEY_INVALID") || strings.Contains(message, "API key not valid")
}

// NewProvider builds the provider named in configuration
func NewProvider(ctx context.Context, name, apiKey, model string) (Provider, error) {
	switch name {
	case "", "gemini":
		p, err := NewGeminiProvider(ctx, apiKey, model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "claude":
		p, err := NewClaudeProvider(apiKey, model)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown insight provider %q", name)
	}
}
