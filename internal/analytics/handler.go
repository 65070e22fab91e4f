package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/export"
	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/pkg/response"
)

// Lister returns the reconciled registration list.
type Lister interface {
	List(ctx context.Context, q registrations.Query) ([]models.Registration, error)
}

// QueueDepth reports background queue lengths (satisfied by queue.Queue).
type QueueDepth interface {
	Depth(ctx context.Context) (map[string]int64, error)
}

// Handler handles GET /admin/stats.
type Handler struct {
	lister Lister
	queue  QueueDepth
	logger *zap.Logger
}

// NewHandler creates a stats handler. queue may be nil.
func NewHandler(lister Lister, queue QueueDepth, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lister: lister, queue: queue, logger: logger}
}

// StatsResponse is the JSON shape of the admin dashboard header cards.
type StatsResponse struct {
	Total          int              `json:"total"`
	Paid           int              `json:"paid"`
	Pending        int              `json:"pending"`
	Partial        int              `json:"partial"`
	Refunded       int              `json:"refunded"`
	TotalRevenue   int              `json:"totalRevenue"`
	PendingRevenue int              `json:"pendingRevenue"`
	Attendees      int              `json:"attendees"`
	Summary        export.Summary   `json:"summary"`
	Queues         map[string]int64 `json:"queues,omitempty"`
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	regs, err := h.lister.List(ctx, registrations.Query{})
	if err != nil {
		h.logger.Error("stats: list registrations", zap.Error(err))
		response.Internal(c, "failed to load registrations")
		return
	}
	s := export.Summarize(regs)
	out := StatsResponse{
		Total:          s.TotalRegistrations,
		Paid:           s.ByStatus[string(models.PaymentStatusPaid)],
		Pending:        s.ByStatus[string(models.PaymentStatusPending)],
		Partial:        s.ByStatus[string(models.PaymentStatusPartial)],
		Refunded:       s.ByStatus[string(models.PaymentStatusRefunded)],
		TotalRevenue:   s.PaidRevenue,
		PendingRevenue: s.PendingRevenue,
		Attendees:      s.TotalAttendees,
		Summary:        s,
	}
	if h.queue != nil {
		depth, err := h.queue.Depth(ctx)
		if err != nil {
			h.logger.Warn("stats: queue depth unavailable", zap.Error(err))
		} else {
			out.Queues = depth
		}
	}
	response.OK(c, out)
}
