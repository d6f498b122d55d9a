package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestCreateSubmission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(7))
	mock.ExpectQuery("INSERT INTO task_submissions").WillReturnRows(rows)

	submission := &models.Submission{TaskID: 10, StudentID: 20, Content: "answer", Status: models.SubmissionSubmitted}
	err := repo.Create(context.Background(), submission)
	require.NoError(t, err)
	assert.Equal(t, int64(7), submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery("INSERT INTO task_submissions").
		WillReturnError(&pq.Error{Code: pq.ErrorCode(pqUniqueViolation)})

	submission := &models.Submission{TaskID: 10, StudentID: 20, Status: models.SubmissionSubmitted}
	err := repo.Create(context.Background(), submission)
	require.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTaskAndStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "task_id", "student_id", "content", "files", "status", "score", "feedback", "graded_by", "submitted_at", "graded_at", "created_at", "updated_at"}).
		AddRow(int64(7), int64(10), int64(20), "answer", []byte(`[]`), string(models.SubmissionSubmitted), nil, nil, nil, now, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM task_submissions WHERE task_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs(int64(10), int64(20)).
		WillReturnRows(rows)

	submission, err := repo.FindByTaskAndStudent(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(7), submission.ID)
	assert.Equal(t, models.SubmissionSubmitted, submission.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountPendingGradingByTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(5), string(models.SubmissionSubmitted)).
		WillReturnRows(rows)

	count, err := repo.CountPendingGradingByTeacher(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageGradedScoreByTeacherEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"coalesce"}).AddRow(0.0)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(5), string(models.SubmissionGraded)).
		WillReturnRows(rows)

	avg, err := repo.AverageGradedScoreByTeacher(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}
