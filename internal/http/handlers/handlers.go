package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Rescueaii/rescue-ai-web/internal/ai"
	"github.com/Rescueaii/rescue-ai-web/internal/cases"
	"github.com/Rescueaii/rescue-ai-web/internal/geocode"
	"github.com/Rescueaii/rescue-ai-web/internal/realtime"
	"github.com/Rescueaii/rescue-ai-web/internal/service"
)

const maxAudioBytes = 5 << 20 // a few seconds of compressed audio

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Cases       *cases.Service
	Pipeline    *service.Triage
	Transcriber ai.Transcriber
	Hub         *realtime.Hub
	DB          Pinger
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ReportRequest struct {
	CaseID    string     `json:"case_id"`
	Message   string     `json:"message" validate:"required"`
	Language  string     `json:"language"`
	Location  string     `json:"location"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	History   []ChatTurn `json:"history"`
}

// @Summary Submit an emergency report message
// @Description Runs the intake pipeline: location resolution, case creation, triage classification
// @Tags report
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /api/report [post]
func (h *Handler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	var coords *geocode.Coordinates
	if req.Latitude != nil && req.Longitude != nil {
		coords = &geocode.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude}
	}
	history := make([]ai.ChatMessage, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}

	result, err := h.Pipeline.HandleReport(c.Request.Context(), service.ReportRequest{
		CaseID:       req.CaseID,
		Message:      req.Message,
		Language:     req.Language,
		LocationText: req.Location,
		Coordinates:  coords,
		History:      history,
	})
	if err != nil {
		switch {
		case errors.Is(err, cases.ErrValidation):
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		case errors.Is(err, cases.ErrNotFound):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
		default:
			h.Logger.Error().Err(err).Msg("report pipeline failed")
			writeError(c, http.StatusInternalServerError, "PIPELINE_ERROR", "Failed to process report", nil)
		}
		return
	}

	if result.Degraded {
		var rateLimited ai.RateLimitError
		if errors.As(result.Cause, &rateLimited) {
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Please try again shortly", nil)
			return
		}
		if errors.As(result.Cause, &ai.QuotaError{}) {
			writeError(c, http.StatusPaymentRequired, "QUOTA_EXCEEDED", "Service quota exceeded", nil)
			return
		}
		// Collaborator down: the fallback reply was persisted, the citizen
		// sees a normal acknowledgment rather than an error.
		c.JSON(http.StatusOK, gin.H{
			"case":     result.Case,
			"reply":    result.Reply,
			"degraded": true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"case":   result.Case,
		"triage": result.Verdict,
		"reply":  result.Reply,
	})
}

// @Summary Transcribe a short audio clip
// @Tags transcribe
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/transcribe [post]
func (h *Handler) Transcribe(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "audio file required", nil)
		return
	}
	if file.Size > maxAudioBytes {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "audio clip too large", nil)
		return
	}
	language := c.PostForm("language")

	f, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "audio file unreadable", nil)
		return
	}
	defer f.Close()

	text, err := h.Transcriber.Transcribe(c.Request.Context(), f, file.Filename, language)
	if err != nil {
		var rateLimited ai.RateLimitError
		if errors.As(err, &rateLimited) {
			writeError(c, http.StatusTooManyRequests, "RATE_LIMITED", "Please try again shortly", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("transcription failed")
		writeError(c, http.StatusBadGateway, "TRANSCRIBE_ERROR", "Transcription failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
