package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

// Classifier turns one citizen message plus conversation history into a
// structured TriageVerdict and a localized reply, via the reasoning
// collaborator. Its parsing is defensive and never errors; only collaborator
// transport failure propagates to the caller.
type Classifier struct {
	Assistant Assistant
	Logger    zerolog.Logger
}

const systemPromptTemplate = `You are RescueAI, an emergency triage assistant deployed in disaster zones. Your role is to:
1. Assess emergency situations quickly and accurately
2. Provide structured triage information
3. Give clear, actionable safety advice
4. Ask follow-up questions when critical information is missing

CRITICAL RULES:
- NEVER hallucinate or make up information you don't have
- If information is missing, ask specific questions to gather it
- For life-threatening situations, ALWAYS set escalationNeeded to true
- Prioritize life safety above all else

TRIAGE CATEGORIES:
- P1 (Critical): Immediate life threat - unconscious, not breathing, severe bleeding, chest pain
- P2 (Urgent): Serious but stable - broken bones, burns, moderate bleeding
- P3 (Delayed): Minor injuries - cuts, bruises, mild pain
- P4 (Minor): Non-urgent - general inquiries, minor discomfort

You must ALWAYS respond with valid JSON in this exact format:
{
  "priority": "P1" | "P2" | "P3" | "P4",
  "urgencyScore": 0-100,
  "category": "medical" | "fire" | "trapped" | "shelter" | "food" | "water" | "mental" | "other",
  "actions": ["action1", "action2", "action3"],
  "questions": ["question1", "question2"],
  "escalationNeeded": true | false
}

After the JSON, on a new line starting with "REPLY:", provide a compassionate response in %s that:
- Acknowledges their situation
- Includes the most critical safety action
- Asks any necessary follow-up questions
- Reassures them help is being coordinated

%s`

func buildSystemPrompt(language, location string) string {
	locationLine := "Location not provided - consider asking for it if relevant."
	if strings.TrimSpace(location) != "" {
		locationLine = "Reported location: " + location
	}
	return fmt.Sprintf(systemPromptTemplate, LanguageName(language), locationLine)
}

// Classify sends the ordered history plus the new message to the reasoning
// collaborator and parses whatever comes back. The new message is guaranteed
// to be the final entry exactly once even when the caller's history already
// ends with it.
func (c *Classifier) Classify(ctx context.Context, message string, history []ChatMessage, language, location string) (models.TriageVerdict, error) {
	messages := make([]ChatMessage, 0, len(history)+2)
	messages = append(messages, ChatMessage{Role: "system", Content: buildSystemPrompt(language, location)})
	messages = append(messages, history...)

	tail := messages[len(messages)-1]
	if tail.Role != "user" || tail.Content != message {
		messages = append(messages, ChatMessage{Role: "user", Content: message})
	}

	raw, err := c.Assistant.Complete(ctx, messages)
	if err != nil {
		return models.TriageVerdict{}, err
	}

	parsed := ParseTriageOutput(raw)
	if parsed.Outcome != Parsed {
		c.Logger.Debug().
			Int("outcome", int(parsed.Outcome)).
			Strs("defaulted", parsed.Defaulted).
			Msg("triage output partially parsed")
	}
	verdict := normalizeVerdict(parsed.Verdict)
	verdict.Reply = parsed.Reply
	return verdict, nil
}

// normalizeVerdict folds free-form classifier output onto the closed
// enumerations. P1 always escalates.
func normalizeVerdict(v models.TriageVerdict) models.TriageVerdict {
	v.Priority = strings.ToUpper(strings.TrimSpace(v.Priority))
	if !models.ValidPriority(v.Priority) {
		v.Priority = models.PriorityP4
	}
	v.Category = strings.ToLower(strings.TrimSpace(v.Category))
	if !models.ValidCategory(v.Category) {
		v.Category = "other"
	}
	if v.UrgencyScore < 0 {
		v.UrgencyScore = 0
	}
	if v.UrgencyScore > 100 {
		v.UrgencyScore = 100
	}
	if v.Priority == models.PriorityP1 {
		v.EscalationNeeded = true
	}
	return v
}
