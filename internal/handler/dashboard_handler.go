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

type dashboardService interface {
	Teacher(ctx context.Context, teacherID int64) (*dto.TeacherDashboardResponse, error)
	Student(ctx context.Context, studentID int64) (*dto.StudentDashboardResponse, error)
	Parent(ctx context.Context, parentID int64) (*dto.ParentDashboardResponse, error)
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, error)
}

// DashboardHandler serves the role-dispatched stats endpoint.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Dashboard statistics for the calling user's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		stats interface{}
		err   error
	)
	switch claims.Role {
	case models.RoleTeacher:
		stats, err = h.service.Teacher(c.Request.Context(), claims.UserID)
	case models.RoleStudent:
		stats, err = h.service.Student(c.Request.Context(), claims.UserID)
	case models.RoleParent:
		stats, err = h.service.Parent(c.Request.Context(), claims.UserID)
	case models.RoleAdmin, models.RoleSuperAdmin, models.RoleCoordinator:
		stats, err = h.service.Admin(c.Request.Context())
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role has no dashboard"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
