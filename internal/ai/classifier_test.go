package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

func modelsVerdict(priority string, urgency int, category string) models.TriageVerdict {
	return models.TriageVerdict{Priority: priority, UrgencyScore: urgency, Category: category}
}

type scriptedAssistant struct {
	response string
	err      error
	captured []ChatMessage
}

func (s *scriptedAssistant) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	s.captured = messages
	return s.response, s.err
}

func TestClassifyAppendsNewMessage(t *testing.T) {
	fake := &scriptedAssistant{response: `{"priority":"P3","urgencyScore":30,"category":"water","actions":[],"questions":[],"escalationNeeded":false}`}
	c := &Classifier{Assistant: fake, Logger: zerolog.Nop()}

	history := []ChatMessage{
		{Role: "user", Content: "We need water"},
		{Role: "assistant", Content: "How many people are with you?"},
	}
	if _, err := c.Classify(context.Background(), "Five of us", history, "en", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.captured) != 4 {
		t.Fatalf("expected system + history + new message, got %d", len(fake.captured))
	}
	if fake.captured[0].Role != "system" {
		t.Fatalf("expected system prompt first")
	}
	last := fake.captured[len(fake.captured)-1]
	if last.Role != "user" || last.Content != "Five of us" {
		t.Fatalf("expected the new message last, got %+v", last)
	}
}

func TestClassifySkipsDuplicateTail(t *testing.T) {
	fake := &scriptedAssistant{response: `{"priority":"P3","urgencyScore":30,"category":"water","actions":[],"questions":[],"escalationNeeded":false}`}
	c := &Classifier{Assistant: fake, Logger: zerolog.Nop()}

	history := []ChatMessage{
		{Role: "user", Content: "Five of us"},
	}
	if _, err := c.Classify(context.Background(), "Five of us", history, "en", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.captured) != 2 {
		t.Fatalf("expected the tail not to be duplicated, got %d messages", len(fake.captured))
	}
}

func TestClassifyPromptCarriesLanguageAndLocation(t *testing.T) {
	fake := &scriptedAssistant{response: "{}"}
	c := &Classifier{Assistant: fake, Logger: zerolog.Nop()}

	if _, err := c.Classify(context.Background(), "help", nil, "hi", "Sitabuldi, Nagpur"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := fake.captured[0].Content
	if !strings.Contains(prompt, "Hindi") {
		t.Fatalf("expected language name in prompt")
	}
	if !strings.Contains(prompt, "Reported location: Sitabuldi, Nagpur") {
		t.Fatalf("expected location line in prompt")
	}
}

func TestClassifyPropagatesAssistantError(t *testing.T) {
	wantErr := RateLimitError{}
	fake := &scriptedAssistant{err: wantErr}
	c := &Classifier{Assistant: fake, Logger: zerolog.Nop()}

	_, err := c.Classify(context.Background(), "help", nil, "en", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	var rateLimited RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestNormalizeVerdictP1Escalates(t *testing.T) {
	raw := `{"priority":"p1","urgencyScore":95,"category":"FIRE","actions":["Evacuate"],"questions":[],"escalationNeeded":false}
REPLY: Evacuate now.`
	fake := &scriptedAssistant{response: raw}
	c := &Classifier{Assistant: fake, Logger: zerolog.Nop()}

	verdict, err := c.Classify(context.Background(), "the building is burning", nil, "en", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.Priority != "P1" {
		t.Fatalf("expected priority folded to P1, got %s", verdict.Priority)
	}
	if verdict.Category != "fire" {
		t.Fatalf("expected category folded to fire, got %s", verdict.Category)
	}
	if !verdict.EscalationNeeded {
		t.Fatalf("expected P1 to force escalation")
	}
}

func TestNormalizeVerdictClampsAndFolds(t *testing.T) {
	v := normalizeVerdict(modelsVerdict("P9", 150, "arson"))
	if v.Priority != "P4" {
		t.Fatalf("expected unknown priority folded to P4, got %s", v.Priority)
	}
	if v.UrgencyScore != 100 {
		t.Fatalf("expected urgency clamped to 100, got %d", v.UrgencyScore)
	}
	if v.Category != "other" {
		t.Fatalf("expected unknown category folded to other, got %s", v.Category)
	}

	v = normalizeVerdict(modelsVerdict("P2", -5, "medical"))
	if v.UrgencyScore != 0 {
		t.Fatalf("expected urgency clamped to 0, got %d", v.UrgencyScore)
	}
}
