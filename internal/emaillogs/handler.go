package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/pkg/response"
)

// Lister reads email logs.
type Lister interface {
	List(ctx context.Context, f Filter) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/emails?registration_id=&status=&email_type=&limit=.
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	switch f.Status {
	case "", models.EmailLogStatusSent, models.EmailLogStatusFailed:
	default:
		response.BadRequest(c, "status must be sent or failed")
		return
	}
	logs, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
