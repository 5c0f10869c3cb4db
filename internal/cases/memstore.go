package cases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

// MemStore is an in-memory Store. It backs the server when no database is
// configured and stands in for postgres in tests.
type MemStore struct {
	mu       sync.Mutex
	cases    map[string]models.Case
	messages map[string][]models.Message
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		cases:    map[string]models.Case{},
		messages: map[string][]models.Message{},
	}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) CreateCase(_ context.Context, c models.Case) (models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.cases[c.ID] = c
	return c, nil
}

func (m *MemStore) GetCase(_ context.Context, id string) (models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return models.Case{}, ErrNotFound
	}
	return c, nil
}

func (m *MemStore) ListCases(_ context.Context, status string) ([]models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Case, 0, len(m.cases))
	for _, c := range m.cases {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UrgencyScore != out[j].UrgencyScore {
			return out[i].UrgencyScore > out[j].UrgencyScore
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) SetLocation(_ context.Context, id, text string, lat, lng float64, source string) (models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return models.Case{}, ErrNotFound
	}
	if text != "" {
		c.LocationText = text
	}
	c.Latitude = &lat
	c.Longitude = &lng
	c.LocationSource = source
	c.UpdatedAt = time.Now().UTC()
	m.cases[id] = c
	return c, nil
}

func (m *MemStore) SetStatus(_ context.Context, id, status string, assignee *string) (models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return models.Case{}, ErrNotFound
	}
	c.Status = status
	if assignee != nil {
		c.AssignedTo = assignee
	}
	c.UpdatedAt = time.Now().UTC()
	m.cases[id] = c
	return c, nil
}

func (m *MemStore) ApplyTriage(_ context.Context, id string, v models.TriageVerdict, lastMessage string, raw []byte) (models.Case, models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[id]
	if !ok {
		return models.Case{}, models.Message{}, ErrNotFound
	}
	c.Priority = v.Priority
	c.UrgencyScore = v.UrgencyScore
	c.Category = v.Category
	c.EscalationNeeded = v.EscalationNeeded
	c.LastMessage = lastMessage
	c.TriageData = raw
	c.UpdatedAt = time.Now().UTC()
	m.cases[id] = c

	msg := models.Message{
		ID:        uuid.NewString(),
		CaseID:    id,
		Sender:    models.SenderAssistant,
		Content:   v.Reply,
		CreatedAt: time.Now().UTC(),
	}
	m.messages[id] = append(m.messages[id], msg)
	return c, msg, nil
}

func (m *MemStore) InsertMessage(_ context.Context, msg models.Message) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[msg.CaseID]
	if !ok {
		return models.Message{}, ErrNotFound
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	m.messages[msg.CaseID] = append(m.messages[msg.CaseID], msg)
	c.UpdatedAt = msg.CreatedAt
	m.cases[msg.CaseID] = c
	return msg, nil
}

func (m *MemStore) ListMessages(_ context.Context, caseID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[caseID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.Message, len(m.messages[caseID]))
	copy(out, m.messages[caseID])
	return out, nil
}
