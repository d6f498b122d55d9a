package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type fanoutTemplateRepository interface {
	CreateWithTasks(ctx context.Context, template *models.TaskTemplate, tasks []models.Task) ([]models.Task, error)
	FindByID(ctx context.Context, id int64) (*models.TaskTemplate, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.TaskTemplate, error)
	Update(ctx context.Context, template *models.TaskTemplate) error
	DeleteCascade(ctx context.Context, templateID int64) error
}

type fanoutSubjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type fanoutGradeRepository interface {
	FindByName(ctx context.Context, name string) (*models.SchoolGrade, error)
}

type fanoutStudentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListActiveStudentsByGrade(ctx context.Context, gradeName string) ([]models.User, error)
}

// FanoutConfig bounds fan-out volume.
type FanoutConfig struct {
	MaxTasksPerTemplate int
}

// FanoutService materialises teacher task templates into per-student or
// grade-wide task rows.
type FanoutService struct {
	templates fanoutTemplateRepository
	subjects  fanoutSubjectRepository
	grades    fanoutGradeRepository
	students  fanoutStudentRepository
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       FanoutConfig
}

// FanoutServiceParams groups constructor dependencies.
type FanoutServiceParams struct {
	Templates fanoutTemplateRepository
	Subjects  fanoutSubjectRepository
	Grades    fanoutGradeRepository
	Students  fanoutStudentRepository
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    FanoutConfig
}

// NewFanoutService constructs a FanoutService with sane defaults.
func NewFanoutService(params FanoutServiceParams) *FanoutService {
	cfg := params.Config
	if cfg.MaxTasksPerTemplate <= 0 {
		cfg.MaxTasksPerTemplate = 2000
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &FanoutService{
		templates: params.Templates,
		subjects:  params.Subjects,
		grades:    params.Grades,
		students:  params.Students,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Fanout validates the request, resolves target rows per strategy and
// persists template plus tasks atomically. An empty resolved student set
// is not an error: the template is created with zero task rows.
func (s *FanoutService) Fanout(ctx context.Context, teacherID int64, req dto.CreateTaskRequest) (*dto.FanoutResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}
	if subject.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}

	config, err := resolveConfig(req)
	if err != nil {
		return nil, err
	}

	tasks, err := s.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(tasks) > s.cfg.MaxTasksPerTemplate {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("fanout would create %d tasks, above the limit of %d", len(tasks), s.cfg.MaxTasksPerTemplate))
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	template := &models.TaskTemplate{
		Title:       req.Title,
		Description: req.Description,
		SubjectID:   req.SubjectID,
		TeacherID:   teacherID,
		Kind:        req.Kind,
		Priority:    priority,
		MaxGrade:    req.MaxGrade,
		DueDate:     req.DueDate,
		Config:      config,
	}

	created, err := s.templates.CreateWithTasks(ctx, template, tasks)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist task fanout")
	}

	s.metrics.RecordFanoutTasks(len(created))
	s.logger.Info("task fanout completed",
		zap.Int64("template_id", template.ID),
		zap.Int64("teacher_id", teacherID),
		zap.Int("tasks_created", len(created)),
	)

	return &dto.FanoutResponse{Template: *template, Tasks: created, TasksCreated: len(created)}, nil
}

// ListTemplates returns all templates authored by the teacher.
func (s *FanoutService) ListTemplates(ctx context.Context, teacherID int64) ([]models.TaskTemplate, error) {
	templates, err := s.templates.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list task templates")
	}
	return templates, nil
}

// UpdateTemplate applies administrative edits to a template the teacher owns.
func (s *FanoutService) UpdateTemplate(ctx context.Context, teacherID, templateID int64, req dto.UpdateTaskRequest) (*models.TaskTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task update payload")
	}

	template, err := s.ownedTemplate(ctx, teacherID, templateID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		template.Title = *req.Title
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Priority != nil {
		template.Priority = *req.Priority
	}
	if req.MaxGrade != nil {
		template.MaxGrade = *req.MaxGrade
	}
	if req.DueDate != nil {
		template.DueDate = *req.DueDate
	}
	if req.Config != nil {
		template.Config = *req.Config
	}

	if err := s.templates.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task template")
	}
	return template, nil
}

// DeleteTemplate removes a template the teacher owns together with its
// tasks and submissions.
func (s *FanoutService) DeleteTemplate(ctx context.Context, teacherID, templateID int64) error {
	if _, err := s.ownedTemplate(ctx, teacherID, templateID); err != nil {
		return err
	}
	if err := s.templates.DeleteCascade(ctx, templateID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task template")
	}
	s.logger.Info("task template deleted", zap.Int64("template_id", templateID), zap.Int64("teacher_id", teacherID))
	return nil
}

func (s *FanoutService) ownedTemplate(ctx context.Context, teacherID, templateID int64) (*models.TaskTemplate, error) {
	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch task template")
	}
	if template.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task template belongs to another teacher")
	}
	return template, nil
}

func (s *FanoutService) resolveTargets(ctx context.Context, req dto.CreateTaskRequest) ([]models.Task, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = models.FanoutPerStudent
	}

	if len(req.StudentIDs) > 0 {
		tasks := make([]models.Task, 0, len(req.StudentIDs))
		for _, studentID := range req.StudentIDs {
			student, err := s.students.FindByID(ctx, studentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
			}
			if student.Role != models.RoleStudent {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("user %d is not a student", studentID))
			}
			id := student.ID
			tasks = append(tasks, models.Task{GradeName: student.GradeName, StudentID: &id})
		}
		return tasks, nil
	}

	if len(req.GradeNames) > 0 {
		for _, gradeName := range req.GradeNames {
			if _, err := s.grades.FindByName(ctx, gradeName); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("grade %q not found", gradeName))
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch grade")
			}
		}

		if strategy == models.FanoutGradeWide {
			tasks := make([]models.Task, 0, len(req.GradeNames))
			for _, gradeName := range req.GradeNames {
				name := gradeName
				tasks = append(tasks, models.Task{GradeName: &name})
			}
			return tasks, nil
		}

		var tasks []models.Task
		for _, gradeName := range req.GradeNames {
			students, err := s.students.ListActiveStudentsByGrade(ctx, gradeName)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade students")
			}
			name := gradeName
			for _, student := range students {
				id := student.ID
				tasks = append(tasks, models.Task{GradeName: &name, StudentID: &id})
			}
		}
		return tasks, nil
	}

	// No targeting: one unassigned row the teacher can point at later.
	return []models.Task{{}}, nil
}

func resolveConfig(req dto.CreateTaskRequest) (models.TaskConfig, error) {
	if req.Config != nil {
		config := *req.Config
		if config.Kind == models.ConfigKindInteractive {
			if config.Interactive == nil || config.Interactive.TotalQuestions <= 0 {
				return models.TaskConfig{}, appErrors.Clone(appErrors.ErrValidation, "interactive config requires a positive question count")
			}
		}
		return config, nil
	}

	if req.Kind == models.TaskKindInteractive {
		return models.TaskConfig{}, appErrors.Clone(appErrors.ErrValidation, "interactive tasks require an interactive config")
	}
	return models.TaskConfig{Kind: models.ConfigKindMultimedia, Multimedia: &models.MultimediaConfig{}}, nil
}
