package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JonnyWalker81/trendy/engagement/internal/apierror"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/models"
	"github.com/JonnyWalker81/trendy/engagement/internal/service"
)

type EngagementHandler struct {
	engagementService service.EngagementService
	defaultLocation   *time.Location
	maxBatchSize      int
}

// NewEngagementHandler creates a new engagement handler.
// defaultLoc is used when a request names no timezone.
func NewEngagementHandler(engagementService service.EngagementService, defaultLoc *time.Location, maxBatchSize int) *EngagementHandler {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &EngagementHandler{
		engagementService: engagementService,
		defaultLocation:   defaultLoc,
		maxBatchSize:      maxBatchSize,
	}
}

// IngestEvents handles POST /api/v1/events
func (h *EngagementHandler) IngestEvents(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}

	if req.Events == nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewValidationError(requestID, []apierror.FieldError{
			{Field: "events", Message: "is required", Code: "required"},
		}))
		return
	}
	if h.maxBatchSize > 0 && len(req.Events) > h.maxBatchSize {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewPayloadTooLargeError(requestID, len(req.Events), h.maxBatchSize))
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = c.Query("tz")
	}
	loc, ok := h.location(c, tz)
	if !ok {
		return
	}

	result, err := h.engagementService.IngestEvents(c.Request.Context(), userID, req.Events, loc)
	if err != nil {
		h.writeServiceError(c, err, "failed to ingest events")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMetrics handles GET /api/v1/metrics
func (h *EngagementHandler) GetMetrics(c *gin.Context) {
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetStreaks handles GET /api/v1/metrics/streaks
func (h *EngagementHandler) GetStreaks(c *gin.Context) {
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"computed_at":   snapshot.ComputedAt,
		"timezone":      snapshot.Timezone,
		"streaks":       snapshot.Streaks,
		"habit_streaks": snapshot.HabitStreaks,
	})
}

// GetCorrelations handles GET /api/v1/metrics/correlations
func (h *EngagementHandler) GetCorrelations(c *gin.Context) {
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"computed_at":  snapshot.ComputedAt,
		"correlations": snapshot.Correlations,
	})
}

// GetTrend handles GET /api/v1/metrics/trend
func (h *EngagementHandler) GetTrend(c *gin.Context) {
	snapshot, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"computed_at": snapshot.ComputedAt,
		"trend":       snapshot.Mood.Trend,
	})
}

// GetAchievements handles GET /api/v1/achievements
func (h *EngagementHandler) GetAchievements(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.engagementService.GetAchievements(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to load achievements")
		return
	}

	c.JSON(http.StatusOK, view)
}

// ReconcileAchievements handles POST /api/v1/achievements/reconcile.
// With a now parameter the result is a preview and nothing is stored.
func (h *EngagementHandler) ReconcileAchievements(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	loc, ok := h.location(c, c.Query("tz"))
	if !ok {
		return
	}
	now, ok := parseNow(c, c.Query("now"))
	if !ok {
		return
	}

	view, err := h.engagementService.ReconcileAchievements(c.Request.Context(), userID, loc, now)
	if err != nil {
		h.writeServiceError(c, err, "failed to reconcile achievements")
		return
	}

	c.JSON(http.StatusOK, view)
}

// Compute handles POST /api/v1/compute. Nothing is read from or written
// to storage, so no user is required.
func (h *EngagementHandler) Compute(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewBadRequestError(requestID, err.Error(), "Invalid JSON format"))
		return
	}
	if h.maxBatchSize > 0 && len(req.Events) > h.maxBatchSize {
		requestID := apierror.GetRequestID(c)
		apierror.WriteProblem(c, apierror.NewPayloadTooLargeError(requestID, len(req.Events), h.maxBatchSize))
		return
	}

	loc, ok := h.location(c, req.Timezone)
	if !ok {
		return
	}
	now, ok := parseNow(c, req.Now)
	if !ok {
		return
	}

	snapshot, err := h.engagementService.ComputeSnapshot(c.Request.Context(), req.Events, req.Progress, loc, now)
	if err != nil {
		h.writeServiceError(c, err, "failed to compute snapshot")
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// snapshot runs GetSnapshot for the tz and now query parameters; an explicit
// now leaves stored progress untouched.
// On failure the problem response has already been written.
func (h *EngagementHandler) snapshot(c *gin.Context) (*models.Snapshot, bool) {
	userID, ok := requireUserID(c)
	if !ok {
		return nil, false
	}
	loc, ok := h.location(c, c.Query("tz"))
	if !ok {
		return nil, false
	}
	now, ok := parseNow(c, c.Query("now"))
	if !ok {
		return nil, false
	}

	snapshot, err := h.engagementService.GetSnapshot(c.Request.Context(), userID, loc, now)
	if err != nil {
		h.writeServiceError(c, err, "failed to compute metrics")
		return nil, false
	}
	return snapshot, true
}

func (h *EngagementHandler) location(c *gin.Context, name string) (*time.Location, bool) {
	if name == "" {
		return h.defaultLocation, true
	}
	loc, err := models.LoadLocation(name)
	if err != nil {
		apierror.WriteProblem(c, apierror.NewInvalidTimezoneError(apierror.GetRequestID(c), "tz", name))
		return nil, false
	}
	return loc, true
}

// parseNow returns the zero time for an empty value so the service clock applies
func parseNow(c *gin.Context, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	now, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		apierror.WriteProblem(c, apierror.NewInvalidTimestampError(apierror.GetRequestID(c), "now", value))
		return time.Time{}, false
	}
	return now, true
}

func requireUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
		return "", false
	}
	return userID, true
}

func (h *EngagementHandler) writeServiceError(c *gin.Context, err error, msg string) {
	requestID := apierror.GetRequestID(c)
	if errors.Is(err, service.ErrMissingUser) {
		apierror.WriteProblem(c, apierror.NewUnauthorizedError(requestID))
		return
	}

	logger.Ctx(c.Request.Context()).Error(msg, logger.Err(err))
	apierror.WriteProblem(c, apierror.NewInternalError(requestID))
}
