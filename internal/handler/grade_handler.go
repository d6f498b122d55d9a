package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altius-academy/academy-api/pkg/response"
)

type gradeService interface {
	ListAvailable(ctx context.Context) ([]string, error)
}

// GradeHandler serves school grade reference data.
type GradeHandler struct {
	service gradeService
}

// NewGradeHandler builds a new handler.
func NewGradeHandler(service gradeService) *GradeHandler {
	return &GradeHandler{service: service}
}

// Available godoc
// @Summary List active school grade names
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grades/available [get]
func (h *GradeHandler) Available(c *gin.Context) {
	grades, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}
