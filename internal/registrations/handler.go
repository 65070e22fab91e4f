package registrations

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/pricing"
	"github.com/lectureship/backend/pkg/response"
)

// MaxImportRecords bounds one import request.
const MaxImportRecords = 10000

// PaymentStatusRequest is the body for PATCH /admin/registrations/:id/payment-status.
type PaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc     *Service
	catalog pricing.Catalog
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, catalog: pricing.NewCatalog(), now: time.Now, logger: logger}
}

// Pricing handles GET /pricing.
func (h *Handler) Pricing(c *gin.Context) {
	response.OK(c, h.catalog)
}

// Quote handles POST /registrations/quote. Prices a selection without saving it.
func (h *Handler) Quote(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	breakdown, items, err := h.svc.Quote(in)
	if err != nil {
		h.writeError(c, err, "failed to price selection")
		return
	}
	response.OK(c, gin.H{"breakdown": breakdown, "lineItems": items})
}

// Submit handles POST /registrations.
func (h *Handler) Submit(c *gin.Context) {
	h.create(c, models.SourceWeb)
}

// Create handles POST /admin/registrations (manual entry by an admin).
func (h *Handler) Create(c *gin.Context) {
	h.create(c, models.SourceAdmin)
}

func (h *Handler) create(c *gin.Context, source string) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.svc.Submit(c.Request.Context(), in, source)
	if err != nil {
		h.writeError(c, err, "failed to save registration")
		return
	}
	response.Created(c, gin.H{
		"registration": reg,
		"lineItems":    pricing.LineItems(pricing.SelectionOf(reg)),
	})
}

// List handles GET /admin/registrations?status=&q=&sort=&dir=.
func (h *Handler) List(c *gin.Context) {
	var q Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	list, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err, "failed to list registrations")
		return
	}
	response.OK(c, gin.H{"registrations": list, "count": len(list)})
}

// Get handles GET /admin/registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	reg, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load registration")
		return
	}
	response.OK(c, reg)
}

// UpdatePaymentStatus handles PATCH /admin/registrations/:id/payment-status.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	reg, err := h.svc.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
	if err != nil {
		h.writeError(c, err, "failed to update payment status")
		return
	}
	response.OK(c, reg)
}

// Delete handles DELETE /admin/registrations/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "failed to delete registration")
		return
	}
	response.NoContent(c)
}

// Clear handles DELETE /admin/registrations?confirm=true.
func (h *Handler) Clear(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "confirm=true is required to delete all registrations")
		return
	}
	n, err := h.svc.RemoveAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "failed to clear registrations")
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

// Backup handles GET /admin/registrations/backup. The body is a bare JSON
// array so the file can be posted back to the import endpoint unchanged.
func (h *Handler) Backup(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), Query{})
	if err != nil {
		h.writeError(c, err, "failed to build backup")
		return
	}
	name := "lectureship_backup_" + h.now().UTC().Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.JSON(http.StatusOK, list)
}

// Import handles POST /admin/registrations/import with a JSON array of registrations.
func (h *Handler) Import(c *gin.Context) {
	var regs []models.Registration
	if err := c.ShouldBindJSON(&regs); err != nil {
		response.BadRequest(c, "invalid backup file: "+err.Error())
		return
	}
	if len(regs) == 0 {
		response.BadRequest(c, "backup contains no registrations")
		return
	}
	if len(regs) > MaxImportRecords {
		response.BadRequest(c, "too many registrations in one import")
		return
	}
	res, err := h.svc.Import(c.Request.Context(), regs)
	if err != nil {
		h.writeError(c, err, "failed to import registrations")
		return
	}
	response.OK(c, res)
}

// ResendConfirmation handles POST /admin/registrations/:id/resend.
func (h *Handler) ResendConfirmation(c *gin.Context) {
	reg, err := h.svc.ResendConfirmation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to queue confirmation email")
		return
	}
	c.JSON(http.StatusAccepted, response.Body{Success: true, Data: gin.H{"id": reg.ID, "email": reg.Email}})
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		response.Unprocessable(c, ve.Code, ve.Field, ve.Message)
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "registration not found")
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, msg)
	}
}
