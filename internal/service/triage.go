package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/ai"
	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/geocode"
	"github.com/Rescueaii/rescue-ai-web/internal/models"
)

// FallbackReply is persisted when the reasoning collaborator is unavailable
// so the citizen is never left hanging.
const FallbackReply = "Your report has been received and recorded. A responder has been notified and will be with you shortly. Please stay calm and safe."

// ReportRequest is one citizen turn entering the pipeline. CaseID empty
// means a new case; History is the caller's ordered conversation, loaded
// from the store when omitted.
type ReportRequest struct {
	CaseID       string
	Message      string
	Language     string
	LocationText string
	Coordinates  *geocode.Coordinates
	History      []ai.ChatMessage
}

// ReportResult carries the verdict and reply, or the degraded fallback.
// Degraded is set when the classifier could not be reached; Cause then
// holds the typed collaborator error.
type ReportResult struct {
	Case     models.Case
	Verdict  models.TriageVerdict
	Reply    string
	Degraded bool
	Cause    error
}

// Triage is the intake-to-triage pipeline: resolve location, create or load
// the case, append the citizen message, classify, apply the verdict. Each
// step commits independently; a failure partway never rolls back what
// already happened.
type Triage struct {
	Cases      *cases.Service
	Resolver   *geocode.Resolver
	Classifier *ai.Classifier
	Timeout    time.Duration
	Logger     zerolog.Logger
}

func (t *Triage) HandleReport(ctx context.Context, req ReportRequest) (ReportResult, error) {
	if req.Message == "" {
		return ReportResult{}, cases.ErrValidation
	}

	c, err := t.loadOrCreateCase(ctx, &req)
	if err != nil {
		return ReportResult{}, err
	}

	if _, err := t.Cases.AppendUserMessage(ctx, c.ID, req.Message); err != nil {
		return ReportResult{}, err
	}

	history := req.History
	if len(history) == 0 {
		history = t.historyFromStore(ctx, c.ID)
	}

	classifyCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	verdict, err := t.Classifier.Classify(classifyCtx, req.Message, history, c.Language, c.LocationText)
	if err != nil {
		return t.degrade(ctx, c, err)
	}

	updated, _, err := t.Cases.ApplyTriageVerdict(ctx, c.ID, verdict, req.Message)
	if err != nil {
		return ReportResult{}, err
	}
	return ReportResult{Case: updated, Verdict: verdict, Reply: verdict.Reply}, nil
}

func (t *Triage) loadOrCreateCase(ctx context.Context, req *ReportRequest) (models.Case, error) {
	if req.CaseID == "" {
		res := t.Resolver.Resolve(ctx, "", req.LocationText, req.Coordinates, false)
		text := req.LocationText
		if text == "" && res.DisplayName != "" {
			text = res.DisplayName
		}
		return t.Cases.CreateCase(ctx, req.Language, text, res.Lat, res.Lng, res.Source)
	}

	c, err := t.Cases.GetCase(ctx, req.CaseID)
	if err != nil {
		return models.Case{}, err
	}

	// Re-resolve only when the citizen changed the location text or the
	// device supplied fresh coordinates; the resolver memoizes unchanged
	// text so no redundant lookup leaves the process.
	locationChanged := req.LocationText != "" && req.LocationText != c.LocationText
	if locationChanged || req.Coordinates != nil || c.Latitude == nil {
		res := t.Resolver.Resolve(ctx, c.ID, req.LocationText, req.Coordinates, c.Latitude != nil)
		if res.Resolved {
			text := req.LocationText
			if text == "" {
				text = c.LocationText
			}
			if updated, err := t.Cases.UpdateLocation(ctx, c.ID, text, res.Lat, res.Lng, res.Source); err == nil {
				c = updated
			} else {
				t.Logger.Warn().Err(err).Str("case_id", c.ID).Msg("location update failed")
			}
		}
	}
	return c, nil
}

// degrade persists the generic reassurance reply and makes sure the case is
// visible to responders. The typed collaborator error travels in the result
// so the transport layer can answer rate-limit and quota classes distinctly.
func (t *Triage) degrade(ctx context.Context, c models.Case, cause error) (ReportResult, error) {
	t.Logger.Error().Err(cause).Str("case_id", c.ID).Msg("classifier unavailable, degrading")

	if _, err := t.Cases.AppendAssistantMessage(ctx, c.ID, FallbackReply); err != nil {
		t.Logger.Error().Err(err).Str("case_id", c.ID).Msg("fallback message write failed")
	}
	if c.Status == models.StatusResolved {
		if reopened, err := t.Cases.Reopen(ctx, c.ID); err == nil {
			c = reopened
		}
	}
	return ReportResult{Case: c, Reply: FallbackReply, Degraded: true, Cause: cause}, nil
}

func (t *Triage) historyFromStore(ctx context.Context, caseID string) []ai.ChatMessage {
	msgs, err := t.Cases.ListMessages(ctx, caseID)
	if err != nil {
		t.Logger.Warn().Err(err).Str("case_id", caseID).Msg("history load failed")
		return nil
	}
	out := make([]ai.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := "assistant"
		if m.Sender == models.SenderUser {
			role = "user"
		}
		out = append(out, ai.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}
