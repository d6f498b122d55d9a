package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
)

type dashboardServiceMock struct {
	teacherCalled bool
	studentCalled bool
	parentCalled  bool
	adminCalled   bool
	lastUserID    int64
}

func (m *dashboardServiceMock) Teacher(ctx context.Context, teacherID int64) (*dto.TeacherDashboardResponse, error) {
	m.teacherCalled = true
	m.lastUserID = teacherID
	return &dto.TeacherDashboardResponse{}, nil
}

func (m *dashboardServiceMock) Student(ctx context.Context, studentID int64) (*dto.StudentDashboardResponse, error) {
	m.studentCalled = true
	m.lastUserID = studentID
	return &dto.StudentDashboardResponse{}, nil
}

func (m *dashboardServiceMock) Parent(ctx context.Context, parentID int64) (*dto.ParentDashboardResponse, error) {
	m.parentCalled = true
	m.lastUserID = parentID
	return &dto.ParentDashboardResponse{}, nil
}

func (m *dashboardServiceMock) Admin(ctx context.Context) (*dto.AdminDashboardResponse, error) {
	m.adminCalled = true
	return &dto.AdminDashboardResponse{}, nil
}

func TestDashboardStatsDispatchesTeacher(t *testing.T) {
	mockSvc := &dashboardServiceMock{}
	handler := NewDashboardHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/dashboard/stats", nil, &models.JWTClaims{UserID: 9, Role: models.RoleTeacher})
	handler.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.teacherCalled)
	assert.Equal(t, int64(9), mockSvc.lastUserID)
}

func TestDashboardStatsDispatchesStudent(t *testing.T) {
	mockSvc := &dashboardServiceMock{}
	handler := NewDashboardHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/dashboard/stats", nil, &models.JWTClaims{UserID: 3, Role: models.RoleStudent})
	handler.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.studentCalled)
}

func TestDashboardStatsDispatchesParent(t *testing.T) {
	mockSvc := &dashboardServiceMock{}
	handler := NewDashboardHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/dashboard/stats", nil, &models.JWTClaims{UserID: 5, Role: models.RoleParent})
	handler.Stats(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.parentCalled)
}

func TestDashboardStatsDispatchesAdminRoles(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin, models.RoleCoordinator} {
		mockSvc := &dashboardServiceMock{}
		handler := NewDashboardHandler(mockSvc)

		c, w := testContext(t, http.MethodGet, "/dashboard/stats", nil, &models.JWTClaims{UserID: 1, Role: role})
		handler.Stats(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, mockSvc.adminCalled)
	}
}

func TestDashboardStatsRequiresClaims(t *testing.T) {
	handler := NewDashboardHandler(&dashboardServiceMock{})

	c, w := testContext(t, http.MethodGet, "/dashboard/stats", nil, nil)
	handler.Stats(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
