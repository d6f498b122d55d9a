package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
	"github.com/altius-academy/academy-api/pkg/storage"
)

type exportTaskRepoStub struct {
	task *models.TaskWithTemplate
}

func (s *exportTaskRepoStub) FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error) {
	return s.task, nil
}

type exportSubmissionsStub struct {
	submissions []models.Submission
}

func (s *exportSubmissionsStub) ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	return s.submissions, nil
}

type exportStudentsStub struct {
	users map[int64]*models.User
}

func (s *exportStudentsStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, os.ErrNotExist
}

func newExportService(t *testing.T) (*ExportService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	score := 4.25
	feedback := "bien hecho"
	grade := "3°A"
	service := NewExportService(ExportServiceParams{
		Tasks: &exportTaskRepoStub{task: &models.TaskWithTemplate{
			Task:      models.Task{ID: 7, TemplateID: 1},
			Title:     "Tarea de fracciones",
			TeacherID: 9,
			MaxGrade:  5,
		}},
		Submissions: &exportSubmissionsStub{submissions: []models.Submission{
			{
				ID:          1,
				TaskID:      7,
				StudentID:   3,
				Status:      models.SubmissionGraded,
				Score:       &score,
				Feedback:    &feedback,
				SubmittedAt: time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
			},
			{
				ID:          2,
				TaskID:      7,
				StudentID:   4,
				Status:      models.SubmissionSubmitted,
				SubmittedAt: time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC),
			},
		}},
		Students: &exportStudentsStub{users: map[int64]*models.User{
			3: {ID: 3, FirstName: "Ana", LastName: "Diaz", Role: models.RoleStudent, GradeName: &grade},
		}},
		Store:   store,
		Signer:  storage.NewSignedURLSigner("secret", time.Hour),
		Workers: 1,
	})
	return service, dir
}

func TestExportServiceRendersCSV(t *testing.T) {
	service, dir := newExportService(t)
	service.Start(context.Background())
	defer service.Stop()

	ticket, err := service.RequestExport(context.Background(), 7, 9, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "queued", ticket.Status)
	assert.Equal(t, ExportFormatCSV, ticket.Format)
	assert.Contains(t, ticket.URL, "/exports/download?token=")

	var rendered string
	require.Eventually(t, func() bool {
		matches, _ := filepath.Glob(filepath.Join(dir, "tasks", "7", "*.csv"))
		if len(matches) == 0 {
			return false
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			return false
		}
		rendered = string(data)
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, rendered, "Student,Status,Score,Feedback,Submitted At")
	assert.Contains(t, rendered, "Ana Diaz,GRADED,4.25,bien hecho,2025-03-10T14:00:00Z")
	// Unknown students fall back to their id.
	assert.Contains(t, rendered, "4,SUBMITTED")
}

func TestExportServiceStartPurgesExpiredFiles(t *testing.T) {
	service, dir := newExportService(t)
	service.ttl = 24 * time.Hour

	_, err := service.store.Save("tasks/7/stale.csv", []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "tasks", "7", "stale.csv"), stale, stale))

	service.Start(context.Background())
	defer service.Stop()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "tasks", "7", "stale.csv"))
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	service, _ := newExportService(t)

	_, err := service.RequestExport(context.Background(), 7, 9, "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceForeignTeacherForbidden(t *testing.T) {
	service, _ := newExportService(t)

	_, err := service.RequestExport(context.Background(), 7, 2, ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceResolveDownload(t *testing.T) {
	service, _ := newExportService(t)

	_, err := service.ResolveDownload("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	token, _, err := service.signer.Generate("export-1", "tasks/7/missing.csv")
	require.NoError(t, err)
	_, err = service.ResolveDownload(token)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = service.store.Save("tasks/7/ready.csv", []byte("Student\n"))
	require.NoError(t, err)
	token, _, err = service.signer.Generate("export-2", "tasks/7/ready.csv")
	require.NoError(t, err)
	path, err := service.ResolveDownload(token)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, filepath.Join("tasks", "7", "ready.csv")))
}
