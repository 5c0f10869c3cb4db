package ai

import (
	"context"
	"testing"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

func TestMockAssistantHighHashInput(t *testing.T) {
	// This message hashes above 1<<63; a signed reduction of the hash
	// would index negatively.
	messages := []ChatMessage{
		{Role: "user", Content: "fire at house number 0 please help"},
	}
	raw, err := MockAssistant{}.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := ParseTriageOutput(raw)
	if out.Outcome != Parsed {
		t.Fatalf("expected well-formed completion, defaulted: %v", out.Defaulted)
	}
	if !models.ValidPriority(out.Verdict.Priority) {
		t.Fatalf("unexpected priority: %s", out.Verdict.Priority)
	}
	if !models.ValidCategory(out.Verdict.Category) {
		t.Fatalf("unexpected category: %s", out.Verdict.Category)
	}
	if out.Verdict.UrgencyScore < 20 || out.Verdict.UrgencyScore > 90 {
		t.Fatalf("urgency out of range: %d", out.Verdict.UrgencyScore)
	}
}

func TestMockAssistantDeterministic(t *testing.T) {
	messages := []ChatMessage{{Role: "user", Content: "we need shelter"}}
	first, err := MockAssistant{}.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := MockAssistant{}.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical completions for identical input")
	}
}

func TestMockAssistantEscalatesOnlyP1(t *testing.T) {
	messages := []ChatMessage{{Role: "user", Content: "fire at house number 0 please help"}}
	raw, err := MockAssistant{}.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := ParseTriageOutput(raw)
	if out.Verdict.EscalationNeeded != (out.Verdict.Priority == models.PriorityP1) {
		t.Fatalf("escalation %v does not match priority %s", out.Verdict.EscalationNeeded, out.Verdict.Priority)
	}
}
