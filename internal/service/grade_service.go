package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/altius-academy/academy-api/internal/models"
	appErrors "github.com/altius-academy/academy-api/pkg/errors"
)

type gradeRepository interface {
	ListActive(ctx context.Context) ([]models.SchoolGrade, error)
}

// GradeService serves school grade reference data.
type GradeService struct {
	grades gradeRepository
	logger *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(grades gradeRepository, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{grades: grades, logger: logger}
}

// ListAvailable returns the names of all active grades.
func (s *GradeService) ListAvailable(ctx context.Context) ([]string, error) {
	grades, err := s.grades.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}

	names := make([]string, 0, len(grades))
	for _, grade := range grades {
		names = append(names, grade.Name)
	}
	return names, nil
}
