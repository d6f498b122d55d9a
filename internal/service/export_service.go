package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
	"github.com/altius-academy/academy-api/pkg/export"
	"github.com/altius-academy/academy-api/pkg/jobs"
	"github.com/altius-academy/academy-api/pkg/storage"
)

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	exportJobType = "submissions_export"
)

type exportTaskRepository interface {
	FindByID(ctx context.Context, id int64) (*models.TaskWithTemplate, error)
}

type exportSubmissionLister interface {
	ListByTask(ctx context.Context, taskID int64) ([]models.Submission, error)
}

type exportStudentReader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type exportJob struct {
	TaskID  int64
	Format  string
	RelPath string
}

// ExportService renders grade sheets for a task's submissions in the
// background and hands out signed download links.
type ExportService struct {
	tasks       exportTaskRepository
	submissions exportSubmissionLister
	students    exportStudentReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	ttl         time.Duration
	logger      *zap.Logger
}

// ExportServiceParams groups constructor dependencies. TTL bounds how long
// rendered files stay on disk; it matches the signed link lifetime.
type ExportServiceParams struct {
	Tasks       exportTaskRepository
	Submissions exportSubmissionLister
	Students    exportStudentReader
	Store       *storage.LocalStorage
	Signer      *storage.SignedURLSigner
	Workers     int
	TTL         time.Duration
	Logger      *zap.Logger
}

// NewExportService constructs an ExportService with its own worker queue.
// Start must be called before exports are accepted.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		tasks:       params.Tasks,
		submissions: params.Submissions,
		students:    params.Students,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		store:       params.Store,
		signer:      params.Signer,
		ttl:         params.TTL,
		logger:      logger,
	}
	s.queue = jobs.NewQueue(exportJobType, s.process, jobs.QueueConfig{
		Workers: params.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the export workers and purges files whose signed links
// have already expired.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupExpired()
}

func (s *ExportService) cleanupExpired() {
	if s.ttl <= 0 {
		return
	}
	deleted, err := s.store.CleanupOlderThan(s.ttl)
	if err != nil {
		s.logger.Warn("failed to clean up expired exports", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// RequestExport validates ownership, queues a render job and returns the
// signed download link for the file the job will produce.
func (s *ExportService) RequestExport(ctx context.Context, taskID, teacherID int64, format string) (*dto.ExportTicket, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch task")
	}
	if task.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task belongs to another teacher")
	}

	exportID := uuid.NewString()
	relPath := fmt.Sprintf("tasks/%d/%s.%s", taskID, exportID, format)

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	job := jobs.Job{
		ID:      exportID,
		Type:    exportJobType,
		Payload: exportJob{TaskID: taskID, Format: format, RelPath: relPath},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("export queued",
		zap.String("export_id", exportID),
		zap.Int64("task_id", taskID),
		zap.String("format", format),
	)

	return &dto.ExportTicket{
		ExportID:  exportID,
		URL:       "/exports/download?token=" + url.QueryEscape(token),
		Format:    format,
		Status:    "queued",
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates a signed token and returns the absolute path
// of the rendered file. A valid token for a file that is not on disk yet
// maps to NotFound: the render has not finished.
func (s *ExportService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "export is not ready")
	}
	_ = file.Close()
	return s.store.Path(relPath), nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportJob)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	task, err := s.tasks.FindByID(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("fetch task %d: %w", payload.TaskID, err)
	}
	submissions, err := s.submissions.ListByTask(ctx, payload.TaskID)
	if err != nil {
		return fmt.Errorf("list submissions for task %d: %w", payload.TaskID, err)
	}

	dataset := s.buildDataset(ctx, submissions)

	var rendered []byte
	switch payload.Format {
	case ExportFormatPDF:
		rendered, err = s.pdf.Render(dataset, task.Title)
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		return fmt.Errorf("render %s export: %w", payload.Format, err)
	}

	if _, err := s.store.Save(payload.RelPath, rendered); err != nil {
		return fmt.Errorf("store export: %w", err)
	}

	s.logger.Info("export rendered",
		zap.String("export_id", job.ID),
		zap.Int64("task_id", payload.TaskID),
		zap.Int("submissions", len(submissions)),
	)
	return nil
}

func (s *ExportService) buildDataset(ctx context.Context, submissions []models.Submission) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Student", "Status", "Score", "Feedback", "Submitted At"},
	}
	for i := range submissions {
		sub := &submissions[i]

		name := strconv.FormatInt(sub.StudentID, 10)
		if student, err := s.students.FindByID(ctx, sub.StudentID); err == nil {
			name = student.FullName()
		}

		score := ""
		if sub.Score != nil {
			score = strconv.FormatFloat(*sub.Score, 'f', 2, 64)
		}
		feedback := ""
		if sub.Feedback != nil {
			feedback = *sub.Feedback
		}

		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      name,
			"Status":       string(sub.Status),
			"Score":        score,
			"Feedback":     feedback,
			"Submitted At": sub.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}
	return dataset
}
