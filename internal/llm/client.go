// Package llm wraps the LLM collaborator behind a narrow interface and
// classifies its failures into transient (retry at the next natural tick)
// versus fatal (stop the agent).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"murmur/internal/logging"
)

// Generator is the minimal interface the scheduler uses to produce content.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FatalError marks a collaborator failure that must terminate the agent:
// authentication and billing failures cannot heal on retry.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal LLM provider error: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err (anywhere in its chain) is fatal.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// fatalMarkers: provider error text that indicates a non-recoverable
// account-level problem rather than a transient hiccup.
var fatalMarkers = []string{
	"api key not valid",
	"api_key_invalid",
	"permission_denied",
	"unauthenticated",
	"billing",
	"payment required",
	"account suspended",
}

// Classify wraps err as fatal when it matches an account-level failure;
// otherwise it passes the error through as transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range fatalMarkers {
		if strings.Contains(msg, marker) {
			return &FatalError{Err: err}
		}
	}
	return err
}

// GeminiClient implements Generator over the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// Generate produces text for the prompt. Errors come back classified.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		logging.APIError("generate failed: %v", err)
		return "", Classify(fmt.Errorf("generate failed: %w", err))
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	logging.API("generate ok: %d chars", len(text))
	return text, nil
}
