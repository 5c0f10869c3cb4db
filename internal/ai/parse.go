package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

type ParseOutcome int

const (
	// Parsed: a JSON object supplied every verdict field.
	Parsed ParseOutcome = iota
	// PartiallyParsed: a JSON object was found but some fields fell back
	// to defaults.
	PartiallyParsed
	// Unparsed: no JSON object anywhere in the response.
	Unparsed
)

// ParsedTriage is the result of defensively parsing one raw completion.
// Parsing never fails: at worst everything is defaulted and the raw text
// becomes the reply.
type ParsedTriage struct {
	Verdict   models.TriageVerdict
	Reply     string
	Outcome   ParseOutcome
	Defaulted []string
}

// DefaultReply is shown when the completion carried structure but no
// marked reply section.
const DefaultReply = "I'm here to help. Could you please tell me more about your situation?"

var replyMarker = regexp.MustCompile(`(?is)REPLY:\s*(.*)`)

func defaultVerdict() models.TriageVerdict {
	return models.TriageVerdict{
		Priority:     models.PriorityP4,
		UrgencyScore: 25,
		Category:     "other",
		Actions:      []string{},
		Questions:    []string{},
	}
}

// ParseTriageOutput extracts the verdict JSON island and the marked reply
// from an untrusted completion. Field-by-field fallback: a partial verdict
// is valid, each missing or mistyped field takes its documented default.
func ParseTriageOutput(raw string) ParsedTriage {
	out := ParsedTriage{Verdict: defaultVerdict()}

	island, found := extractJSONObject(raw)
	if found {
		var obj map[string]any
		// extractJSONObject only returns well-formed objects.
		_ = json.Unmarshal([]byte(island), &obj)
		out.Verdict, out.Defaulted = verdictFromObject(obj)
		if len(out.Defaulted) == 0 {
			out.Outcome = Parsed
		} else {
			out.Outcome = PartiallyParsed
		}
	} else {
		out.Outcome = Unparsed
		out.Defaulted = []string{"priority", "urgencyScore", "category", "actions", "questions", "escalationNeeded"}
	}

	if m := replyMarker.FindStringSubmatch(raw); m != nil {
		out.Reply = strings.TrimSpace(m[1])
	} else if found {
		out.Reply = DefaultReply
	} else {
		out.Reply = strings.TrimSpace(raw)
	}
	return out
}

// extractJSONObject returns the first well-formed JSON object found in the
// text: a non-greedy brace match from each opening brace, widened to later
// closing braces until something unmarshals.
func extractJSONObject(raw string) (string, bool) {
	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}
		for end := start + 1; end < len(raw); end++ {
			if raw[end] != '}' {
				continue
			}
			candidate := raw[start : end+1]
			var obj map[string]any
			if json.Unmarshal([]byte(candidate), &obj) == nil {
				return candidate, true
			}
		}
	}
	return "", false
}

func verdictFromObject(obj map[string]any) (models.TriageVerdict, []string) {
	v := defaultVerdict()
	var defaulted []string

	if s, ok := stringField(obj, "priority"); ok {
		v.Priority = s
	} else {
		defaulted = append(defaulted, "priority")
	}
	if n, ok := intField(obj, "urgencyScore"); ok {
		v.UrgencyScore = n
	} else {
		defaulted = append(defaulted, "urgencyScore")
	}
	if s, ok := stringField(obj, "category"); ok {
		v.Category = s
	} else {
		defaulted = append(defaulted, "category")
	}
	if list, ok := stringListField(obj, "actions"); ok {
		v.Actions = list
	} else {
		defaulted = append(defaulted, "actions")
	}
	if list, ok := stringListField(obj, "questions"); ok {
		v.Questions = list
	} else {
		defaulted = append(defaulted, "questions")
	}
	if b, ok := obj["escalationNeeded"].(bool); ok {
		v.EscalationNeeded = b
	} else {
		defaulted = append(defaulted, "escalationNeeded")
	}
	return v, defaulted
}

func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func intField(obj map[string]any, key string) (int, bool) {
	switch n := obj[key].(type) {
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func stringListField(obj map[string]any, key string) ([]string, bool) {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
