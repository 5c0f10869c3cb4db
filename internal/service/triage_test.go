package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/ai"
	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/geocode"
	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

type stubGeocoder struct{}

func (stubGeocoder) Geocode(context.Context, string) (float64, float64, string, error) {
	return 0, 0, "", geocode.ErrNotFound
}

func (stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return "", geocode.ErrNotFound
}

type stubAssistant struct {
	response string
	err      error
	calls    int
}

func (s *stubAssistant) Complete(context.Context, []ai.ChatMessage) (string, error) {
	s.calls++
	return s.response, s.err
}

func newPipeline(assistant ai.Assistant) (*Triage, *cases.Service) {
	svc := &cases.Service{Store: cases.NewMemStore(), Logger: zerolog.Nop()}
	return &Triage{
		Cases:      svc,
		Resolver:   geocode.NewResolver(stubGeocoder{}, "Nagpur, India", geocode.Coordinates{Lat: 21.1458, Lng: 79.0882}, zerolog.Nop()),
		Classifier: &ai.Classifier{Assistant: assistant, Logger: zerolog.Nop()},
		Logger:     zerolog.Nop(),
	}, svc
}

func TestHandleReportFireEmergency(t *testing.T) {
	assistant := &stubAssistant{response: `{
  "priority": "P1",
  "urgencyScore": 95,
  "category": "fire",
  "actions": ["Evacuate immediately"],
  "questions": ["Is anyone trapped inside?"],
  "escalationNeeded": false
}
REPLY: Evacuate now and stay away from the building.`}
	pipeline, svc := newPipeline(assistant)

	result, err := pipeline.HandleReport(context.Background(), ReportRequest{
		Message:      "A fire broke out in our building",
		Language:     "en",
		LocationText: "somewhere unknown",
	})
	if err != nil {
		t.Fatalf("handle report: %v", err)
	}
	if result.Degraded {
		t.Fatalf("expected normal result, got degraded: %v", result.Cause)
	}
	if result.Case.Category != "fire" || result.Case.Priority != models.PriorityP1 {
		t.Fatalf("unexpected case after triage: %+v", result.Case)
	}
	if !result.Case.EscalationNeeded {
		t.Fatalf("expected P1 verdict to force escalation")
	}
	// Location text never resolved, so the regional centroid applies.
	if result.Case.LocationSource != models.SourceFallback {
		t.Fatalf("expected fallback location source, got %s", result.Case.LocationSource)
	}
	if result.Case.Latitude == nil || *result.Case.Latitude != 21.1458 {
		t.Fatalf("expected fallback latitude, got %+v", result.Case.Latitude)
	}

	messages, err := svc.ListMessages(context.Background(), result.Case.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user message plus one assistant reply, got %d", len(messages))
	}
	if messages[1].Sender != models.SenderAssistant {
		t.Fatalf("expected assistant reply second, got %+v", messages[1])
	}
}

func TestHandleReportClassifierDownDegrades(t *testing.T) {
	assistant := &stubAssistant{err: errors.New("connection refused")}
	pipeline, svc := newPipeline(assistant)

	result, err := pipeline.HandleReport(context.Background(), ReportRequest{
		Message: "We are trapped under debris",
	})
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded result")
	}
	if result.Reply != FallbackReply {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}

	// The case still exists with safe defaults and is visible to responders.
	c, err := svc.GetCase(context.Background(), result.Case.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if c.Status != models.StatusActive || c.Priority != models.PriorityP4 {
		t.Fatalf("expected active P4 case, got %+v", c)
	}

	messages, _ := svc.ListMessages(context.Background(), c.ID)
	if len(messages) != 2 || messages[1].Content != FallbackReply {
		t.Fatalf("expected fallback reply persisted, got %+v", messages)
	}
}

type hangingAssistant struct{}

func (hangingAssistant) Complete(ctx context.Context, _ []ai.ChatMessage) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestHandleReportClassifierTimeout(t *testing.T) {
	pipeline, svc := newPipeline(hangingAssistant{})
	pipeline.Timeout = 10 * time.Millisecond

	start := time.Now()
	result, err := pipeline.HandleReport(context.Background(), ReportRequest{
		Message: "there is a fire",
	})
	if err != nil {
		t.Fatalf("expected degraded result, not error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout did not bound the classifier call")
	}
	if !result.Degraded || !errors.Is(result.Cause, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %+v", result)
	}
	if result.Reply != FallbackReply {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}

	c, err := svc.GetCase(context.Background(), result.Case.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if c.Status != models.StatusActive || c.Priority != models.PriorityP4 {
		t.Fatalf("expected active P4 case after timeout, got %+v", c)
	}
	messages, _ := svc.ListMessages(context.Background(), c.ID)
	if len(messages) != 2 || messages[1].Content != FallbackReply {
		t.Fatalf("expected fallback reply persisted, got %+v", messages)
	}
}

func TestHandleReportRateLimitCauseSurfaces(t *testing.T) {
	assistant := &stubAssistant{err: ai.RateLimitError{}}
	pipeline, _ := newPipeline(assistant)

	result, err := pipeline.HandleReport(context.Background(), ReportRequest{Message: "help"})
	if err != nil {
		t.Fatalf("handle report: %v", err)
	}
	var rateLimited ai.RateLimitError
	if !result.Degraded || !errors.As(result.Cause, &rateLimited) {
		t.Fatalf("expected rate limit cause, got %+v", result)
	}
}

func TestHandleReportReopensResolvedCase(t *testing.T) {
	ok := `{"priority":"P3","urgencyScore":40,"category":"shelter","actions":[],"questions":[],"escalationNeeded":false}
REPLY: Noted.`
	assistant := &stubAssistant{response: ok}
	pipeline, svc := newPipeline(assistant)

	first, err := pipeline.HandleReport(context.Background(), ReportRequest{Message: "we need shelter"})
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), first.Case.ID); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// Collaborator goes down; a follow-up on the resolved case must reopen it.
	assistant.err = errors.New("unreachable")
	second, err := pipeline.HandleReport(context.Background(), ReportRequest{
		CaseID:  first.Case.ID,
		Message: "it is getting worse",
	})
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if !second.Degraded {
		t.Fatalf("expected degraded result")
	}
	if second.Case.Status != models.StatusActive {
		t.Fatalf("expected case reopened, got %s", second.Case.Status)
	}
}

func TestHandleReportRejectsEmptyMessage(t *testing.T) {
	pipeline, _ := newPipeline(&stubAssistant{})
	if _, err := pipeline.HandleReport(context.Background(), ReportRequest{}); !errors.Is(err, cases.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleReportFollowUpKeepsCase(t *testing.T) {
	ok := `{"priority":"P2","urgencyScore":60,"category":"medical","actions":["Apply pressure"],"questions":[],"escalationNeeded":false}
REPLY: Keep pressure on the wound.`
	assistant := &stubAssistant{response: ok}
	pipeline, svc := newPipeline(assistant)

	first, err := pipeline.HandleReport(context.Background(), ReportRequest{Message: "my friend is bleeding"})
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	second, err := pipeline.HandleReport(context.Background(), ReportRequest{
		CaseID:  first.Case.ID,
		Message: "the bleeding slowed down",
	})
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if second.Case.ID != first.Case.ID {
		t.Fatalf("expected same case, got %s and %s", first.Case.ID, second.Case.ID)
	}

	messages, err := svc.ListMessages(context.Background(), first.Case.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	// Two citizen turns, two assistant replies.
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if assistant.calls != 2 {
		t.Fatalf("expected 2 classifier calls, got %d", assistant.calls)
	}
}

func TestHandleReportDeviceCoordinatesWin(t *testing.T) {
	ok := `{"priority":"P3","urgencyScore":40,"category":"water","actions":[],"questions":[],"escalationNeeded":false}
REPLY: Noted.`
	pipeline, _ := newPipeline(&stubAssistant{response: ok})

	result, err := pipeline.HandleReport(context.Background(), ReportRequest{
		Message:     "we need water",
		Coordinates: &geocode.Coordinates{Lat: 21.16, Lng: 79.05},
	})
	if err != nil {
		t.Fatalf("handle report: %v", err)
	}
	if result.Case.LocationSource != models.SourceGPS {
		t.Fatalf("expected gps source, got %s", result.Case.LocationSource)
	}
	if result.Case.Latitude == nil || *result.Case.Latitude != 21.16 {
		t.Fatalf("expected device latitude, got %+v", result.Case.Latitude)
	}
}
