package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type lovRepo interface {
	ListClasses(ctx context.Context, schoolID string) ([]models.SchoolClass, error)
	ListAssignedClasses(ctx context.Context, schoolID, userID string) ([]models.SchoolClass, error)
	ListYears(ctx context.Context, schoolID string) ([]models.AcademicYear, error)
	ListTerms(ctx context.Context, schoolID, yearID string) ([]models.Term, error)
	ListSubjects(ctx context.Context, schoolID, classID string) ([]models.Subject, error)
}

// LovService serves the selector lists behind the scoring screens.
type LovService struct {
	repo   lovRepo
	logger *zap.Logger
}

// NewLovService constructs LovService.
func NewLovService(repo lovRepo, logger *zap.Logger) *LovService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LovService{repo: repo, logger: logger}
}

// Classes returns the classes the actor may pick: all classes in the
// school for head teachers and admins, only assigned classes for
// teachers.
func (s *LovService) Classes(ctx context.Context, actor models.Actor) ([]models.SchoolClass, error) {
	var classes []models.SchoolClass
	var err error
	if actor.Role.CanEditHeadFields() {
		classes, err = s.repo.ListClasses(ctx, actor.SchoolID)
	} else {
		classes, err = s.repo.ListAssignedClasses(ctx, actor.SchoolID, actor.UserID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Years returns the school's academic years.
func (s *LovService) Years(ctx context.Context, actor models.Actor) ([]models.AcademicYear, error) {
	years, err := s.repo.ListYears(ctx, actor.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	return years, nil
}

// Terms returns the terms for one academic year.
func (s *LovService) Terms(ctx context.Context, actor models.Actor, yearID string) ([]models.Term, error) {
	if yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "yearId is required")
	}
	terms, err := s.repo.ListTerms(ctx, actor.SchoolID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	return terms, nil
}

// Subjects returns the subjects taught in one class.
func (s *LovService) Subjects(ctx context.Context, actor models.Actor, classID string) ([]models.Subject, error) {
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	if !actor.OwnsClass(classID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}
	subjects, err := s.repo.ListSubjects(ctx, actor.SchoolID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}
