package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"bad api key", errors.New("400: API key not valid. Please pass a valid key"), true},
		{"permission denied", errors.New("rpc error: code = PERMISSION_DENIED"), true},
		{"unauthenticated", errors.New("UNAUTHENTICATED: request had invalid credentials"), true},
		{"billing", errors.New("billing account is disabled"), true},
		{"suspended", errors.New("account suspended pending review"), true},
		{"rate limit is transient", errors.New("429: resource exhausted, retry later"), false},
		{"server error is transient", errors.New("500: internal error"), false},
		{"network is transient", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("Classify(nil) = %v", got)
				}
				return
			}
			if IsFatal(got) != tt.fatal {
				t.Errorf("IsFatal(Classify(%v)) = %v, want %v", tt.err, IsFatal(got), tt.fatal)
			}
			if !errors.Is(got, tt.err) {
				t.Error("original error must stay in the chain")
			}
		})
	}
}

func TestIsFatalThroughWrapping(t *testing.T) {
	base := errors.New("API key not valid")
	wrapped := fmt.Errorf("respond cycle: %w", Classify(base))
	if !IsFatal(wrapped) {
		t.Error("fatal classification must survive further wrapping")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), "", "gemini-2.0-flash"); err == nil {
		t.Error("empty API key must be rejected")
	}
}
