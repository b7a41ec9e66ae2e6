package assessment

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/sentinel/internal/pagination"
	"github.com/agrilink/sentinel/internal/validation"
)

// Handler provides HTTP endpoints over stored assessments for reporting
// collaborators (dashboards, calibration jobs).
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates an assessment reporting handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes sets up assessment endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/assessments", h.ListRecent)
	r.GET("/assessments/stats", h.GetStats)
	r.POST("/risk/outcomes/:subjectId", validation.SubjectParamMiddleware(), h.RecordOutcome)
}

// ListRecent returns recent assessments, newest first, with cursor-based
// pagination. GET /v1/assessments?kind=&level=&subject=&limit=&cursor=
func (h *Handler) ListRecent(c *gin.Context) {
	f := Filter{
		Kind:      Kind(c.Query("kind")),
		Level:     Level(c.Query("level")),
		SubjectID: c.Query("subject"),
	}
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is not a valid pagination token",
		})
		return
	}
	if cursor != nil {
		f.Before = cursor.CreatedAt
		f.BeforeID = cursor.ID
	}
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
			if limit > 500 {
				limit = 500
			}
		}
	}

	assessments, err := h.store.ListRecent(c.Request.Context(), f, limit+1)
	if err != nil {
		h.logger.Error("failed to list assessments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list assessments",
		})
		return
	}
	page, next, hasMore := pagination.ComputePage(assessments, limit, func(a *Assessment) (time.Time, string) {
		return a.CreatedAt, a.ID
	})
	c.JSON(http.StatusOK, gin.H{
		"assessments": page,
		"count":       len(page),
		"nextCursor":  next,
		"hasMore":     hasMore,
	})
}

// GetStats returns per-level aggregates over a window.
// GET /v1/assessments/stats?window=24h
func (h *Handler) GetStats(c *gin.Context) {
	window := 24 * time.Hour
	if w := c.Query("window"); w != "" {
		parsed, err := time.ParseDuration(w)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_window",
				"message": "window must be a positive duration like 24h or 7h30m",
			})
			return
		}
		window = parsed
	}

	stats, err := h.store.Stats(c.Request.Context(), window)
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to compute assessment statistics",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window": window.String(),
		"stats":  stats,
	})
}

type outcomeRequest struct {
	Outcome Outcome `json:"outcome" binding:"required"`
	Reason  string  `json:"reason"`
}

// RecordOutcome attaches a ground-truth label to a subject's latest
// assessment. POST /v1/risk/outcomes/:subjectId
func (h *Handler) RecordOutcome(c *gin.Context) {
	subjectID := c.Param("subjectId")

	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain an 'outcome' field",
		})
		return
	}
	if !req.Outcome.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_outcome",
			"message": "outcome must be 'success' or 'failure'",
		})
		return
	}

	err := h.store.RecordOutcome(c.Request.Context(), subjectID, req.Outcome, req.Reason)
	if err == ErrNoAssessment {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No assessment exists for this subject",
		})
		return
	}
	if err != nil {
		// Outcome recording is best-effort for callers: log, report accepted.
		h.logger.Warn("failed to record outcome",
			"subject_id", subjectID, "outcome", req.Outcome, "error", err)
	}
	c.JSON(http.StatusAccepted, gin.H{
		"subjectId": subjectID,
		"outcome":   req.Outcome,
	})
}
