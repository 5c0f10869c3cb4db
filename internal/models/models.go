package models

import (
	"encoding/json"
	"time"
)

// Case priorities, most severe first.
const (
	PriorityP1 = "P1"
	PriorityP2 = "P2"
	PriorityP3 = "P3"
	PriorityP4 = "P4"
)

const (
	StatusActive   = "active"
	StatusAssigned = "assigned"
	StatusResolved = "resolved"
)

// How the case coordinates were obtained.
const (
	SourceGPS      = "gps"
	SourceManual   = "manual"
	SourceFallback = "fallback"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Categories is the closed set of incident categories; anything else is
// folded to "other".
var Categories = []string{"medical", "fire", "trapped", "shelter", "food", "water", "mental", "other"}

type Case struct {
	ID               string          `json:"id"`
	Language         string          `json:"language"`
	LocationText     string          `json:"location_text"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	LocationSource   string          `json:"location_source"`
	Priority         string          `json:"priority"`
	UrgencyScore     int             `json:"urgency_score"`
	Category         string          `json:"category"`
	EscalationNeeded bool            `json:"escalation_needed"`
	Status           string          `json:"status"`
	AssignedTo       *string         `json:"assigned_to"`
	LastMessage      string          `json:"last_message"`
	TriageData       json.RawMessage `json:"triage_data,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Message struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TriageVerdict is the structured output of one classifier call. It is not
// persisted standalone: it is merged into the owning Case and spawns one
// assistant Message carrying Reply.
type TriageVerdict struct {
	Priority         string   `json:"priority"`
	UrgencyScore     int      `json:"urgencyScore"`
	Category         string   `json:"category"`
	Actions          []string `json:"actions"`
	Questions        []string `json:"questions"`
	EscalationNeeded bool     `json:"escalationNeeded"`
	Reply            string   `json:"-"`
}

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}
