package snapshots

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/middleware"
	"github.com/lectureship/backend/pkg/queue"
	"github.com/lectureship/backend/pkg/response"
)

// Enqueuer schedules snapshot jobs (satisfied by queue.Queue).
type Enqueuer interface {
	EnqueueSnapshot(ctx context.Context, payload queue.SnapshotPayload) (string, error)
}

// SnapshotRequest is the optional body of POST /admin/snapshots.
type SnapshotRequest struct {
	Day string `json:"day"`
}

// Handler handles snapshot admin endpoints.
type Handler struct {
	jobs   Enqueuer
	logger *zap.Logger
}

// NewHandler creates a snapshot handler.
func NewHandler(jobs Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jobs: jobs, logger: logger}
}

// Create handles POST /admin/snapshots. The day defaults to today (UTC).
func (h *Handler) Create(c *gin.Context) {
	var req SnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	if req.Day != "" {
		if _, err := time.Parse("2006-01-02", req.Day); err != nil {
			response.BadRequest(c, "day must be YYYY-MM-DD")
			return
		}
	}
	requestedBy, _ := c.Get(middleware.ContextUserEmail)
	by, _ := requestedBy.(string)
	jobID, err := h.jobs.EnqueueSnapshot(c.Request.Context(), queue.SnapshotPayload{Day: req.Day, RequestedBy: by})
	if err != nil {
		h.logger.Error("enqueue snapshot failed", zap.Error(err))
		response.ServiceUnavailable(c, "snapshot queue unavailable")
		return
	}
	c.JSON(http.StatusAccepted, response.Body{Success: true, Data: gin.H{"jobId": jobID, "day": req.Day}})
}
