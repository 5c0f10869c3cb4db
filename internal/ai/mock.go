package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/Rescueaii/rescue-ai-web/internal/utils"
)

// MockAssistant produces a deterministic, well-formed completion keyed by a
// hash of the last user message. Used when no AI gateway is configured.
type MockAssistant struct{}

func (MockAssistant) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	var last string
	for _, m := range messages {
		if m.Role == "user" {
			last = m.Content
		}
	}
	h := utils.HashStringToUint64(last)

	priorities := []string{"P1", "P2", "P3", "P4"}
	categories := []string{"medical", "fire", "trapped", "shelter", "food", "water", "mental", "other"}

	// Reduce in uint64 space; converting the hash to int first goes
	// negative for high hashes and panics the index.
	priority := priorities[h%uint64(len(priorities))]
	category := categories[(h/7)%uint64(len(categories))]
	urgency := 20 + int(h%71)
	escalation := priority == "P1"

	return fmt.Sprintf(`{
  "priority": %q,
  "urgencyScore": %d,
  "category": %q,
  "actions": ["Stay where you are", "Keep your phone reachable"],
  "questions": ["Is anyone injured?"],
  "escalationNeeded": %t
}
REPLY: We have received your report. Help is being coordinated. Is anyone injured?`, priority, urgency, category, escalation), nil
}

// MockTranscriber returns a canned transcript without reading the audio.
type MockTranscriber struct{}

func (MockTranscriber) Transcribe(_ context.Context, _ io.Reader, _, _ string) (string, error) {
	return "There is an emergency near my location, please send help.", nil
}
