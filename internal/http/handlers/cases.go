package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Rescueaii/rescue-ai-web/internal/cases"
)

// @Summary List cases for the responder dashboard
// @Tags cases
// @Produce json
// @Param status query string false "Filter by status (active, assigned, resolved)"
// @Success 200 {object} map[string]any
// @Router /api/cases [get]
func (h *Handler) ListCases(c *gin.Context) {
	filter := cases.ListFilter{Status: c.Query("status")}

	if latStr := c.Query("near_lat"); latStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(c.Query("near_lng"), 64)
		if latErr != nil || lngErr != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "near_lat and near_lng must be numbers", nil)
			return
		}
		radius := 10.0
		if radiusStr := c.Query("radius_km"); radiusStr != "" {
			r, err := strconv.ParseFloat(radiusStr, 64)
			if err != nil || r <= 0 {
				writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "radius_km must be a positive number", nil)
				return
			}
			radius = r
		}
		filter.Near = &cases.NearFilter{Lat: lat, Lng: lng, RadiusKm: radius}
	}

	list, err := h.Cases.ListCases(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, cases.ErrValidation) {
			writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
			return
		}
		h.Logger.Error().Err(err).Msg("listing cases failed")
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Failed to list cases", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": list, "count": len(list)})
}

func (h *Handler) GetCase(c *gin.Context) {
	found, err := h.Cases.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeCaseError(c, err, "loading case failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": found})
}

func (h *Handler) ListCaseMessages(c *gin.Context) {
	messages, err := h.Cases.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeCaseError(c, err, "loading messages failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

type AssignRequest struct {
	Assignee string `json:"assignee" validate:"required"`
}

// @Summary Assign a case to a responder
// @Tags cases
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/cases/{id}/assign [post]
func (h *Handler) AssignCase(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	updated, err := h.Cases.Assign(c.Request.Context(), c.Param("id"), req.Assignee)
	if err != nil {
		h.writeCaseError(c, err, "assigning case failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": updated})
}

func (h *Handler) ResolveCase(c *gin.Context) {
	updated, err := h.Cases.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeCaseError(c, err, "resolving case failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": updated})
}

func (h *Handler) ReopenCase(c *gin.Context) {
	updated, err := h.Cases.Reopen(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeCaseError(c, err, "reopening case failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"case": updated})
}

func (h *Handler) writeCaseError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, cases.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Case not found", nil)
	case errors.Is(err, cases.ErrValidation):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
	case errors.Is(err, cases.ErrInvalidTransition):
		writeError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg(logMsg)
		writeError(c, http.StatusInternalServerError, "STORE_ERROR", "Operation failed", nil)
	}
}
