package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/models"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestCreateWithTasksCommitsAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskTemplateRepository(db)

	template := &models.TaskTemplate{
		Title:     "Fractions homework",
		SubjectID: 3,
		TeacherID: 5,
		Kind:      models.TaskKindTraditional,
		Priority:  models.PriorityMedium,
		MaxGrade:  5,
		DueDate:   time.Now().Add(72 * time.Hour),
		Config:    models.TaskConfig{Kind: models.ConfigKindMultimedia, Multimedia: &models.MultimediaConfig{}},
	}
	tasks := []models.Task{
		{GradeName: strPtr("3°A"), StudentID: int64Ptr(100)},
		{GradeName: strPtr("3°A"), StudentID: int64Ptr(101)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO task_templates").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	created, err := repo.CreateWithTasks(context.Background(), template, tasks)
	require.NoError(t, err)
	assert.Equal(t, int64(42), template.ID)
	require.Len(t, created, 2)
	assert.Equal(t, int64(42), created[0].TemplateID)
	assert.Equal(t, models.TaskStatusPending, created[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithTasksRollsBackOnTaskFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskTemplateRepository(db)

	template := &models.TaskTemplate{
		Title:     "Reading log",
		SubjectID: 3,
		TeacherID: 5,
		Kind:      models.TaskKindTraditional,
		MaxGrade:  5,
		DueDate:   time.Now().Add(24 * time.Hour),
	}
	tasks := []models.Task{
		{GradeName: strPtr("3°A"), StudentID: int64Ptr(100)},
		{GradeName: strPtr("3°A"), StudentID: int64Ptr(101)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO task_templates").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO tasks").
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	_, err := repo.CreateWithTasks(context.Background(), template, tasks)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCascade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM task_submissions").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM task_templates").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteCascade(context.Background(), 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
