package ai

import (
	"context"
	"fmt"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assistant is the external reasoning collaborator: an ordered message list
// in, one free-text completion out.
type Assistant interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// RateLimitError is returned when the collaborator rejects the call with a
// rate-limit class failure. Callers surface it as a "try again shortly"
// condition rather than a generic error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

// QuotaError is the payment/quota-exhausted class of collaborator failure.
type QuotaError struct{}

func (QuotaError) Error() string { return "quota exceeded" }

// LanguageName maps supported language codes to the names used in prompts.
func LanguageName(code string) string {
	switch code {
	case "hi":
		return "Hindi"
	case "te":
		return "Telugu"
	case "ta":
		return "Tamil"
	default:
		return "English"
	}
}
