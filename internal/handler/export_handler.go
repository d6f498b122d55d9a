package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/altius-academy/academy-api/internal/dto"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
	"github.com/altius-academy/academy-api/pkg/response"
)

type exportService interface {
	RequestExport(ctx context.Context, taskID, teacherID int64, format string) (*dto.ExportTicket, error)
	ResolveDownload(token string) (string, error)
}

// ExportHandler exposes grade-sheet export endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Queue a grade-sheet export for a task
// @Tags Submissions
// @Produce json
// @Param id path int true "Task ID"
// @Param format query string false "csv or pdf (defaults to csv)"
// @Success 202 {object} response.Envelope
// @Router /tasks/{id}/submissions/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid task id"))
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	ticket, err := h.service.RequestExport(c.Request.Context(), id, claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, ticket, nil)
}

// Download godoc
// @Summary Download a rendered export via its signed token
// @Tags Submissions
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	path, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
