package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
	"github.com/Rescueaii/rescue-ai-web/internal/realtime"
	"github.com/Rescueaii/rescue-ai-web/internal/utils"
)

var (
	ErrNotFound          = errors.New("case not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ListFilter narrows ListCases. Status empty means all statuses; Near
// restricts to cases within RadiusKm of a center point.
type ListFilter struct {
	Status string
	Near   *NearFilter
}

type NearFilter struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// Store is the transactional record store behind the state machine. The pgx
// implementation lives in internal/db; tests use an in-memory fake.
type Store interface {
	CreateCase(ctx context.Context, c models.Case) (models.Case, error)
	GetCase(ctx context.Context, id string) (models.Case, error)
	ListCases(ctx context.Context, status string) ([]models.Case, error)
	SetLocation(ctx context.Context, id, text string, lat, lng float64, source string) (models.Case, error)
	SetStatus(ctx context.Context, id, status string, assignee *string) (models.Case, error)
	ApplyTriage(ctx context.Context, id string, v models.TriageVerdict, lastMessage string, raw []byte) (models.Case, models.Message, error)
	InsertMessage(ctx context.Context, m models.Message) (models.Message, error)
	ListMessages(ctx context.Context, caseID string) ([]models.Message, error)
}

// Service owns the case lifecycle. It is the single mutation point for case
// records: every successful mutation is published to the hub after commit.
type Service struct {
	Store  Store
	Hub    *realtime.Hub
	Logger zerolog.Logger
}

// CreateCase opens a new incident with safe defaults pending triage.
func (s *Service) CreateCase(ctx context.Context, language, locationText string, lat, lng float64, source string) (models.Case, error) {
	if language == "" {
		language = "en"
	}
	if locationText == "" {
		locationText = "Location not specified"
	}
	c := models.Case{
		Language:       language,
		LocationText:   locationText,
		Latitude:       &lat,
		Longitude:      &lng,
		LocationSource: source,
		Priority:       models.PriorityP4,
		UrgencyScore:   25,
		Category:       "other",
		Status:         models.StatusActive,
	}
	created, err := s.Store.CreateCase(ctx, c)
	if err != nil {
		return models.Case{}, err
	}
	s.publishCase(realtime.EventCaseCreated, created)
	return created, nil
}

// UpdateLocation overwrites the case's resolved coordinates, e.g. after the
// citizen corrected the location text mid-conversation.
func (s *Service) UpdateLocation(ctx context.Context, caseID, text string, lat, lng float64, source string) (models.Case, error) {
	if caseID == "" {
		return models.Case{}, errValidation("case id is required")
	}
	updated, err := s.Store.SetLocation(ctx, caseID, text, lat, lng, source)
	if err != nil {
		return models.Case{}, err
	}
	s.publishCase(realtime.EventCaseUpdated, updated)
	return updated, nil
}

// AppendUserMessage records one citizen turn. Appends are never
// deduplicated: the same content twice yields two messages.
func (s *Service) AppendUserMessage(ctx context.Context, caseID, content string) (models.Message, error) {
	if caseID == "" {
		return models.Message{}, errValidation("case id is required")
	}
	if strings.TrimSpace(content) == "" {
		return models.Message{}, errValidation("message content is required")
	}
	msg, err := s.Store.InsertMessage(ctx, models.Message{
		CaseID:  caseID,
		Sender:  models.SenderUser,
		Content: content,
	})
	if err != nil {
		return models.Message{}, err
	}
	s.publishMessage(msg)
	return msg, nil
}

// AppendAssistantMessage records one assistant turn outside the verdict
// path, e.g. the degraded-mode reassurance reply.
func (s *Service) AppendAssistantMessage(ctx context.Context, caseID, content string) (models.Message, error) {
	if caseID == "" {
		return models.Message{}, errValidation("case id is required")
	}
	msg, err := s.Store.InsertMessage(ctx, models.Message{
		CaseID:  caseID,
		Sender:  models.SenderAssistant,
		Content: content,
	})
	if err != nil {
		return models.Message{}, err
	}
	s.publishMessage(msg)
	return msg, nil
}

// ApplyTriageVerdict merges classifier output into the case and appends the
// assistant reply as one message. This is the only path by which AI output
// reaches persisted state; status and assignee are never touched here.
func (s *Service) ApplyTriageVerdict(ctx context.Context, caseID string, v models.TriageVerdict, rawExcerpt string) (models.Case, models.Message, error) {
	if caseID == "" {
		return models.Case{}, models.Message{}, errValidation("case id is required")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return models.Case{}, models.Message{}, err
	}
	updated, msg, err := s.Store.ApplyTriage(ctx, caseID, v, truncate(rawExcerpt, 500), raw)
	if err != nil {
		return models.Case{}, models.Message{}, err
	}
	s.publishCase(realtime.EventCaseUpdated, updated)
	s.publishMessage(msg)
	return updated, msg, nil
}

// Assign sets the responder and moves the case to assigned. Allowed from
// any non-resolved status, so reassignment overwrites the assignee.
func (s *Service) Assign(ctx context.Context, caseID, assignee string) (models.Case, error) {
	assignee = strings.TrimSpace(assignee)
	if assignee == "" {
		return models.Case{}, errValidation("assignee is required")
	}
	c, err := s.Store.GetCase(ctx, caseID)
	if err != nil {
		return models.Case{}, err
	}
	if c.Status == models.StatusResolved {
		return models.Case{}, errTransition(c.Status, models.StatusAssigned)
	}
	updated, err := s.Store.SetStatus(ctx, caseID, models.StatusAssigned, &assignee)
	if err != nil {
		return models.Case{}, err
	}
	s.publishCase(realtime.EventCaseUpdated, updated)
	return updated, nil
}

// Resolve closes the case. Only the status changes.
func (s *Service) Resolve(ctx context.Context, caseID string) (models.Case, error) {
	c, err := s.Store.GetCase(ctx, caseID)
	if err != nil {
		return models.Case{}, err
	}
	if c.Status == models.StatusResolved {
		return models.Case{}, errTransition(c.Status, models.StatusResolved)
	}
	updated, err := s.Store.SetStatus(ctx, caseID, models.StatusResolved, nil)
	if err != nil {
		return models.Case{}, err
	}
	s.publishCase(realtime.EventCaseUpdated, updated)
	return updated, nil
}

// Reopen is the only backward transition: resolved back to active. Triage
// fields are left as they were.
func (s *Service) Reopen(ctx context.Context, caseID string) (models.Case, error) {
	c, err := s.Store.GetCase(ctx, caseID)
	if err != nil {
		return models.Case{}, err
	}
	if c.Status != models.StatusResolved {
		return models.Case{}, errTransition(c.Status, models.StatusActive)
	}
	updated, err := s.Store.SetStatus(ctx, caseID, models.StatusActive, nil)
	if err != nil {
		return models.Case{}, err
	}
	s.publishCase(realtime.EventCaseUpdated, updated)
	return updated, nil
}

func (s *Service) GetCase(ctx context.Context, caseID string) (models.Case, error) {
	if caseID == "" {
		return models.Case{}, errValidation("case id is required")
	}
	return s.Store.GetCase(ctx, caseID)
}

func (s *Service) ListMessages(ctx context.Context, caseID string) ([]models.Message, error) {
	if caseID == "" {
		return nil, errValidation("case id is required")
	}
	return s.Store.ListMessages(ctx, caseID)
}

// ListCases returns cases by urgency then recency, optionally restricted to
// a status and a radius around a point.
func (s *Service) ListCases(ctx context.Context, filter ListFilter) ([]models.Case, error) {
	out, err := s.Store.ListCases(ctx, filter.Status)
	if err != nil {
		return nil, err
	}
	if filter.Near == nil {
		return out, nil
	}
	near := make([]models.Case, 0, len(out))
	for _, c := range out {
		if c.Latitude == nil || c.Longitude == nil {
			continue
		}
		d := utils.HaversineKm(filter.Near.Lat, filter.Near.Lng, *c.Latitude, *c.Longitude)
		if d <= filter.Near.RadiusKm {
			near = append(near, c)
		}
	}
	return near, nil
}

func (s *Service) publishCase(eventType string, c models.Case) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(realtime.Event{Type: eventType, CaseID: c.ID, Case: &c})
}

func (s *Service) publishMessage(m models.Message) {
	if s.Hub == nil {
		return
	}
	s.Hub.Publish(realtime.Event{Type: realtime.EventMessageCreated, CaseID: m.CaseID, Message: &m})
}

func errValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func errTransition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
