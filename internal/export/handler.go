package export

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lectureship/backend/internal/models"
	"github.com/lectureship/backend/internal/registrations"
	"github.com/lectureship/backend/pkg/response"
	"github.com/lectureship/backend/pkg/storage"
)

// Lister returns the reconciled registrations matching a query.
type Lister interface {
	List(ctx context.Context, q registrations.Query) ([]models.Registration, error)
}

// Uploader stores export files and signs download links (satisfied by storage.S3).
type Uploader interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
}

// Handler serves CSV and summary exports.
type Handler struct {
	lister  Lister
	uploads Uploader
	title   string
	now     func() time.Time
	logger  *zap.Logger
}

// NewHandler creates an export handler. uploads may be nil when no backups bucket is configured.
func NewHandler(lister Lister, uploads Uploader, title string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lister: lister, uploads: uploads, title: title, now: time.Now, logger: logger}
}

// UploadedFile is one export written to the backups bucket.
type UploadedFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// CSV handles GET /admin/exports/registrations.csv. Accepts the admin list filters.
func (h *Handler) CSV(c *gin.Context) {
	var q registrations.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query: "+err.Error())
		return
	}
	regs, ok := h.list(c, q)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, regs); err != nil {
		h.writeError(c, err, "failed to write csv")
		return
	}
	h.attachment(c, h.csvName(), "text/csv; charset=utf-8", buf.Bytes())
}

// Summary handles GET /admin/exports/summary.txt.
func (h *Handler) Summary(c *gin.Context) {
	regs, ok := h.list(c, registrations.Query{})
	if !ok {
		return
	}
	if len(regs) == 0 {
		h.writeError(c, ErrNothingToExport, "failed to write summary")
		return
	}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, h.title, h.now(), Summarize(regs)); err != nil {
		h.writeError(c, err, "failed to write summary")
		return
	}
	h.attachment(c, h.summaryName(), "text/plain; charset=utf-8", buf.Bytes())
}

// Upload handles POST /admin/exports: writes the CSV and the summary to the
// backups bucket and returns presigned download links.
func (h *Handler) Upload(c *gin.Context) {
	if h.uploads == nil {
		response.ServiceUnavailable(c, "export storage not configured")
		return
	}
	regs, ok := h.list(c, registrations.Query{})
	if !ok {
		return
	}
	now := h.now()
	var csvBuf, sumBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, regs); err != nil {
		h.writeError(c, err, "failed to write csv")
		return
	}
	if err := WriteSummary(&sumBuf, h.title, now, Summarize(regs)); err != nil {
		h.writeError(c, err, "failed to write summary")
		return
	}

	ctx := c.Request.Context()
	out := make(map[string]UploadedFile, 2)
	for name, file := range map[string]struct {
		filename    string
		contentType string
		body        []byte
	}{
		"csv":     {h.csvName(), "text/csv; charset=utf-8", csvBuf.Bytes()},
		"summary": {h.summaryName(), "text/plain; charset=utf-8", sumBuf.Bytes()},
	} {
		key := storage.ExportKey(now, file.filename)
		if err := h.uploads.Put(ctx, key, file.contentType, file.body); err != nil {
			h.writeError(c, err, "failed to upload export")
			return
		}
		url, err := h.uploads.GeneratePresignedDownloadURL(ctx, key, h.uploads.PresignExpire())
		if err != nil {
			h.writeError(c, err, "failed to sign export link")
			return
		}
		out[name] = UploadedFile{Key: key, URL: url}
	}
	h.logger.Info("exports uploaded", zap.Int("registrations", len(regs)), zap.String("csv_key", out["csv"].Key))
	response.Created(c, gin.H{"count": len(regs), "files": out})
}

func (h *Handler) list(c *gin.Context, q registrations.Query) ([]models.Registration, bool) {
	regs, err := h.lister.List(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err, "failed to load registrations")
		return nil, false
	}
	return regs, true
}

func (h *Handler) csvName() string {
	return "lectureship_registrations_" + h.now().UTC().Format("2006-01-02") + ".csv"
}

func (h *Handler) summaryName() string {
	return "lectureship_summary_" + h.now().UTC().Format("2006-01-02") + ".txt"
}

func (h *Handler) attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, body)
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	var ve *registrations.ValidationError
	switch {
	case errors.Is(err, ErrNothingToExport):
		response.NotFound(c, err.Error())
	case errors.As(err, &ve):
		response.Unprocessable(c, ve.Code, ve.Field, ve.Message)
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}
