package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

const (
	EventCaseCreated    = "case.created"
	EventCaseUpdated    = "case.updated"
	EventMessageCreated = "message.created"
)

// Event is one committed mutation, carrying the full new record state
// rather than a diff. Exactly one of Case or Message is set.
type Event struct {
	Type    string          `json:"type"`
	CaseID  string          `json:"case_id"`
	Case    *models.Case    `json:"case,omitempty"`
	Message *models.Message `json:"message,omitempty"`
}

// Subscription receives events on Events until Close is called. A slow
// consumer may miss events once its buffer fills; consumers deduplicate by
// record id and refetch on reconnect.
type Subscription struct {
	ID     uuid.UUID
	CaseID string // empty for global subscriptions
	Events chan Event

	hub  *Hub
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.Events)
	})
}

// Hub fans committed mutations out to case-scoped and global observers.
// Publishers do not know how many observers exist; events for the same case
// are delivered in publish order.
type Hub struct {
	mu      sync.RWMutex
	byCase  map[string]map[uuid.UUID]*Subscription
	global  map[uuid.UUID]*Subscription
	logger  zerolog.Logger
	bufSize int
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		byCase:  make(map[string]map[uuid.UUID]*Subscription),
		global:  make(map[uuid.UUID]*Subscription),
		logger:  logger,
		bufSize: 64,
	}
}

// Subscribe observes every event touching one case. An empty case id means
// a global subscription; CaseID doubles as the global marker in remove, so
// it must not land in the per-case sets.
func (h *Hub) Subscribe(caseID string) *Subscription {
	if caseID == "" {
		return h.SubscribeGlobal()
	}
	sub := &Subscription{ID: uuid.New(), CaseID: caseID, Events: make(chan Event, h.bufSize), hub: h}
	h.mu.Lock()
	if h.byCase[caseID] == nil {
		h.byCase[caseID] = make(map[uuid.UUID]*Subscription)
	}
	h.byCase[caseID][sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// SubscribeGlobal observes case-level events across all cases.
func (h *Hub) SubscribeGlobal() *Subscription {
	sub := &Subscription{ID: uuid.New(), Events: make(chan Event, h.bufSize), hub: h}
	h.mu.Lock()
	h.global[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Publish fans one event out to the case's observers and, for case-level
// events, to global observers. Called after the mutation committed.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.byCase[ev.CaseID] {
		h.deliver(sub, ev)
	}
	if ev.Type != EventMessageCreated {
		for _, sub := range h.global {
			h.deliver(sub, ev)
		}
	}
}

func (h *Hub) deliver(sub *Subscription, ev Event) {
	select {
	case sub.Events <- ev:
	default:
		h.logger.Warn().
			Str("subscription", sub.ID.String()).
			Str("event", ev.Type).
			Msg("dropping event for slow subscriber")
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.CaseID != "" {
		if subs := h.byCase[sub.CaseID]; subs != nil {
			delete(subs, sub.ID)
			if len(subs) == 0 {
				delete(h.byCase, sub.CaseID)
			}
		}
		return
	}
	delete(h.global, sub.ID)
}
