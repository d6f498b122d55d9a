package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altius-academy/academy-api/internal/dto"
	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type templateRepoStub struct {
	created       *models.TaskTemplate
	createdTasks  []models.Task
	createErr     error
	template      *models.TaskTemplate
	findErr       error
	updated       *models.TaskTemplate
	deletedID     int64
	deleteErr     error
	listByTeacher []models.TaskTemplate
}

func (s *templateRepoStub) CreateWithTasks(ctx context.Context, template *models.TaskTemplate, tasks []models.Task) ([]models.Task, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	template.ID = 42
	for i := range tasks {
		tasks[i].ID = int64(i + 1)
		tasks[i].TemplateID = template.ID
		tasks[i].Status = models.TaskStatusPending
	}
	s.created = template
	s.createdTasks = tasks
	return tasks, nil
}

func (s *templateRepoStub) FindByID(ctx context.Context, id int64) (*models.TaskTemplate, error) {
	if s.template == nil {
		return nil, sql.ErrNoRows
	}
	return s.template, s.findErr
}

func (s *templateRepoStub) ListByTeacher(ctx context.Context, teacherID int64) ([]models.TaskTemplate, error) {
	return s.listByTeacher, nil
}

func (s *templateRepoStub) Update(ctx context.Context, template *models.TaskTemplate) error {
	s.updated = template
	return nil
}

func (s *templateRepoStub) DeleteCascade(ctx context.Context, templateID int64) error {
	s.deletedID = templateID
	return s.deleteErr
}

type subjectRepoStub struct {
	subjects map[int64]*models.Subject
}

func (s subjectRepoStub) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		return subject, nil
	}
	return nil, sql.ErrNoRows
}

type gradeRepoStub struct {
	grades map[string]*models.SchoolGrade
}

func (s gradeRepoStub) FindByName(ctx context.Context, name string) (*models.SchoolGrade, error) {
	if grade, ok := s.grades[name]; ok {
		return grade, nil
	}
	return nil, sql.ErrNoRows
}

type studentRepoStub struct {
	students map[int64]*models.User
	byGrade  map[string][]models.User
}

func (s studentRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (s studentRepoStub) ListActiveStudentsByGrade(ctx context.Context, gradeName string) ([]models.User, error) {
	return s.byGrade[gradeName], nil
}

func gradeStudents(gradeName string, ids ...int64) []models.User {
	students := make([]models.User, 0, len(ids))
	for _, id := range ids {
		name := gradeName
		students = append(students, models.User{ID: id, Role: models.RoleStudent, GradeName: &name, Active: true})
	}
	return students
}

func newFanoutService(templates *templateRepoStub, subjects subjectRepoStub, grades gradeRepoStub, students studentRepoStub) *FanoutService {
	return NewFanoutService(FanoutServiceParams{
		Templates: templates,
		Subjects:  subjects,
		Grades:    grades,
		Students:  students,
	})
}

func validCreateRequest() dto.CreateTaskRequest {
	return dto.CreateTaskRequest{
		Title:      "Fractions homework",
		SubjectID:  3,
		Kind:       models.TaskKindTraditional,
		MaxGrade:   5,
		DueDate:    time.Now().Add(72 * time.Hour),
		GradeNames: []string{"3°A"},
	}
}

func TestFanoutPerStudentCreatesOneRowPerStudent(t *testing.T) {
	templates := &templateRepoStub{}
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5, GradeName: "3°A"}}}
	grades := gradeRepoStub{grades: map[string]*models.SchoolGrade{"3°A": {ID: 1, Name: "3°A", Active: true}}}
	students := studentRepoStub{byGrade: map[string][]models.User{
		"3°A": gradeStudents("3°A", 100, 101, 102, 103, 104, 105, 106, 107, 108, 109),
	}}
	svc := newFanoutService(templates, subjects, grades, students)

	resp, err := svc.Fanout(context.Background(), 5, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, 10, resp.TasksCreated)
	require.Len(t, resp.Tasks, 10)
	for _, task := range resp.Tasks {
		require.NotNil(t, task.StudentID)
		require.NotNil(t, task.GradeName)
		assert.Equal(t, "3°A", *task.GradeName)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.Equal(t, int64(42), task.TemplateID)
	}
}

func TestFanoutGradeWideCreatesOneRowPerGrade(t *testing.T) {
	templates := &templateRepoStub{}
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5, GradeName: "5°B"}}}
	grades := gradeRepoStub{grades: map[string]*models.SchoolGrade{"5°B": {ID: 2, Name: "5°B", Active: true}}}
	students := studentRepoStub{}
	svc := newFanoutService(templates, subjects, grades, students)

	req := validCreateRequest()
	req.GradeNames = []string{"5°B"}
	req.Strategy = models.FanoutGradeWide

	resp, err := svc.Fanout(context.Background(), 5, req)
	require.NoError(t, err)

	require.Len(t, resp.Tasks, 1)
	assert.Nil(t, resp.Tasks[0].StudentID)
	require.NotNil(t, resp.Tasks[0].GradeName)
	assert.Equal(t, "5°B", *resp.Tasks[0].GradeName)
}

func TestFanoutWithoutTargetsCreatesSingleUnassignedRow(t *testing.T) {
	templates := &templateRepoStub{}
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5}}}
	svc := newFanoutService(templates, subjects, gradeRepoStub{}, studentRepoStub{})

	req := validCreateRequest()
	req.GradeNames = nil

	resp, err := svc.Fanout(context.Background(), 5, req)
	require.NoError(t, err)

	require.Len(t, resp.Tasks, 1)
	assert.Nil(t, resp.Tasks[0].StudentID)
	assert.Nil(t, resp.Tasks[0].GradeName)
}

func TestFanoutEmptyGradeIsNotAnError(t *testing.T) {
	templates := &templateRepoStub{}
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5}}}
	grades := gradeRepoStub{grades: map[string]*models.SchoolGrade{"3°A": {ID: 1, Name: "3°A"}}}
	svc := newFanoutService(templates, subjects, grades, studentRepoStub{})

	resp, err := svc.Fanout(context.Background(), 5, validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.TasksCreated)
	assert.Equal(t, int64(42), resp.Template.ID)
}

func TestFanoutUnknownSubject(t *testing.T) {
	svc := newFanoutService(&templateRepoStub{}, subjectRepoStub{}, gradeRepoStub{}, studentRepoStub{})

	_, err := svc.Fanout(context.Background(), 5, validCreateRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestFanoutForeignSubjectIsForbidden(t *testing.T) {
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 9}}}
	svc := newFanoutService(&templateRepoStub{}, subjects, gradeRepoStub{}, studentRepoStub{})

	_, err := svc.Fanout(context.Background(), 5, validCreateRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestFanoutInteractiveRequiresConfig(t *testing.T) {
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5}}}
	svc := newFanoutService(&templateRepoStub{}, subjects, gradeRepoStub{}, studentRepoStub{})

	req := validCreateRequest()
	req.Kind = models.TaskKindInteractive
	req.GradeNames = nil

	_, err := svc.Fanout(context.Background(), 5, req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestFanoutEnforcesTaskCap(t *testing.T) {
	templates := &templateRepoStub{}
	subjects := subjectRepoStub{subjects: map[int64]*models.Subject{3: {ID: 3, TeacherID: 5}}}
	grades := gradeRepoStub{grades: map[string]*models.SchoolGrade{"3°A": {ID: 1, Name: "3°A"}}}
	students := studentRepoStub{byGrade: map[string][]models.User{"3°A": gradeStudents("3°A", 100, 101, 102)}}
	svc := NewFanoutService(FanoutServiceParams{
		Templates: templates,
		Subjects:  subjects,
		Grades:    grades,
		Students:  students,
		Config:    FanoutConfig{MaxTasksPerTemplate: 2},
	})

	_, err := svc.Fanout(context.Background(), 5, validCreateRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, templates.created)
}

func TestDeleteTemplateForeignTeacherIsForbidden(t *testing.T) {
	templates := &templateRepoStub{template: &models.TaskTemplate{ID: 42, TeacherID: 9}}
	svc := newFanoutService(templates, subjectRepoStub{}, gradeRepoStub{}, studentRepoStub{})

	err := svc.DeleteTemplate(context.Background(), 5, 42)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, templates.deletedID)
}
