package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
	"github.com/altius-academy/academy-api/pkg/response"
)

type taskFanoutService interface {
	Fanout(ctx context.Context, teacherID int64, req dto.CreateTaskRequest) (*dto.FanoutResponse, error)
	UpdateTemplate(ctx context.Context, teacherID, templateID int64, req dto.UpdateTaskRequest) (*models.TaskTemplate, error)
	DeleteTemplate(ctx context.Context, teacherID, templateID int64) error
}

type taskQueryService interface {
	ListForStudent(ctx context.Context, studentID int64) ([]dto.TaskView, error)
	ListForTeacher(ctx context.Context, teacherID int64) ([]dto.TaskView, error)
	Get(ctx context.Context, taskID int64, caller *models.JWTClaims) (*dto.TaskView, error)
}

// TaskHandler exposes task creation and read endpoints.
type TaskHandler struct {
	fanout taskFanoutService
	tasks  taskQueryService
}

// NewTaskHandler builds a new handler.
func NewTaskHandler(fanout taskFanoutService, tasks taskQueryService) *TaskHandler {
	return &TaskHandler{fanout: fanout, tasks: tasks}
}

// Create godoc
// @Summary Create a task template and fan it out to its targets
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body dto.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}
	result, err := h.fanout.Fanout(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List tasks for the calling user
// @Tags Tasks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var (
		views []dto.TaskView
		err   error
	)
	switch claims.Role {
	case models.RoleStudent:
		views, err = h.tasks.ListForStudent(c.Request.Context(), claims.UserID)
	case models.RoleTeacher:
		views, err = h.tasks.ListForTeacher(c.Request.Context(), claims.UserID)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role has no task listing"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Get godoc
// @Summary Get one task with the caller's submission folded in
// @Tags Tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
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
	view, err := h.tasks.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Update a task template
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param payload body dto.UpdateTaskRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template id"))
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}
	template, err := h.fanout.UpdateTemplate(c.Request.Context(), claims.UserID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Delete godoc
// @Summary Delete a task template and all its tasks and submissions
// @Tags Tasks
// @Produce json
// @Param id path int true "Template ID"
// @Success 204
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template id"))
		return
	}
	if err := h.fanout.DeleteTemplate(c.Request.Context(), claims.UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
