package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altius-academy/academy-api/internal/dto"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
	"github.com/altius-academy/academy-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, taskID, studentID int64, req dto.SubmitRequest) (*dto.TaskView, error)
	UpdateSubmission(ctx context.Context, taskID, studentID int64, req dto.UpdateSubmissionRequest) (*dto.TaskView, error)
	Grade(ctx context.Context, taskID, teacherID int64, req dto.GradeRequest) (*dto.TaskView, error)
	ListForTask(ctx context.Context, taskID, teacherID int64) ([]dto.SubmissionView, error)
}

// SubmissionHandler exposes the submission lifecycle endpoints under /tasks/:id.
type SubmissionHandler struct {
	service submissionService
}

// NewSubmissionHandler builds a new handler.
func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Submit godoc
// @Summary Submit a task
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param payload body dto.SubmitRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Router /tasks/{id}/submit [put]
func (h *SubmissionHandler) Submit(c *gin.Context) {
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
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	view, err := h.service.Submit(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Update godoc
// @Summary Update a submission that has not been graded yet
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param payload body dto.UpdateSubmissionRequest true "Updated submission payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/submission [put]
func (h *SubmissionHandler) Update(c *gin.Context) {
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
	var req dto.UpdateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	view, err := h.service.UpdateSubmission(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Grade godoc
// @Summary Grade a submission manually
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param payload body dto.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/grade [put]
func (h *SubmissionHandler) Grade(c *gin.Context) {
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
	var req dto.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	view, err := h.service.Grade(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// List godoc
// @Summary List submissions for a task
// @Tags Submissions
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
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
	views, err := h.service.ListForTask(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}
