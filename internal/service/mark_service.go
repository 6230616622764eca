package service

import (
	"context"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type markStore interface {
	ListByStudent(ctx context.Context, scope models.Scope, studentID int64) ([]models.MarkRecord, error)
	ListBySubject(ctx context.Context, scope models.Scope, subjectID string) ([]models.MarkRecord, error)
	Upsert(ctx context.Context, mark *models.MarkRecord) (string, error)
	Delete(ctx context.Context, id, schoolID string) error
}

// UpsertMarkRequest is one score-entry payload. ID carries the id of
// a previously saved record so edits update in place.
type UpsertMarkRequest struct {
	ID         string  `json:"id"`
	SubjectID  string  `json:"subject_id" validate:"required"`
	StudentID  int64   `json:"student_id" validate:"required"`
	ClassScore float64 `json:"class_score" validate:"min=0,max=100"`
	ExamScore  float64 `json:"exam_score" validate:"min=0,max=100"`
}

// MarkSheetRow is one roster line of the score-entry sheet, merged
// with the stored mark when one exists.
type MarkSheetRow struct {
	StudentID  int64   `json:"student_id"`
	Name       string  `json:"name"`
	IndexNo    string  `json:"index_no"`
	MarkID     string  `json:"mark_id,omitempty"`
	ClassScore float64 `json:"class_score"`
	ExamScore  float64 `json:"exam_score"`
	Total      float64 `json:"total"`
	Grade      string  `json:"grade"`
	Position   string  `json:"position"`
}

// MarkService handles per-subject score entry: the sheet a teacher
// fills in and the derived total, grade and position on save.
type MarkService struct {
	marks     markStore
	students  rosterReader
	scales    bandReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(marks markStore, students rosterReader, scales bandReader, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{marks: marks, students: students, scales: scales, validator: validate, logger: logger}
}

// Sheet returns the score-entry sheet for one subject: the full
// roster in index order, each line carrying the stored mark if the
// student has one.
func (s *MarkService) Sheet(ctx context.Context, actor models.Actor, scope models.Scope, subjectID string) ([]MarkSheetRow, error) {
	if !scope.Complete() || subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year, term, class and subject must all be selected")
	}
	if scope.SchoolID != actor.SchoolID || !actor.OwnsClass(scope.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}

	roster, err := s.students.ListByClass(ctx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	marks, err := s.marks.ListBySubject(ctx, scope, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marks")
	}
	markByStudent := make(map[int64]models.MarkRecord, len(marks))
	for _, mark := range marks {
		markByStudent[mark.StudentID] = mark
	}

	rows := make([]MarkSheetRow, 0, len(roster))
	for _, student := range roster {
		row := MarkSheetRow{StudentID: student.ID, Name: student.Name, IndexNo: student.IndexNo}
		if mark, ok := markByStudent[student.ID]; ok {
			row.MarkID = mark.ID
			row.ClassScore = mark.ClassScore
			row.ExamScore = mark.ExamScore
			row.Total = mark.Total
			row.Grade = mark.Grade
			row.Position = mark.Position
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Save persists one mark. The total is derived, never taken from the
// payload; the grade comes from the class scale; and the subject's
// positions are recomputed across the class, with unscored students
// left blank rather than ranked last.
func (s *MarkService) Save(ctx context.Context, actor models.Actor, scope models.Scope, req UpsertMarkRequest) (*models.MarkRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if !scope.Complete() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year, term and class must all be selected")
	}
	if scope.SchoolID != actor.SchoolID || !actor.OwnsClass(scope.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}

	bands, err := s.scales.Bands(ctx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}

	total := round1(req.ClassScore + req.ExamScore)
	mark := models.MarkRecord{
		ID:         req.ID,
		SchoolID:   scope.SchoolID,
		YearID:     scope.YearID,
		TermID:     scope.TermID,
		ClassID:    scope.ClassID,
		SubjectID:  req.SubjectID,
		StudentID:  req.StudentID,
		ClassScore: req.ClassScore,
		ExamScore:  req.ExamScore,
		Total:      total,
		Grade:      ResolveBand(bands, total).Grade,
	}
	if _, err := s.marks.Upsert(ctx, &mark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamSave.Code, appErrors.ErrUpstreamSave.Status, "failed to save mark")
	}

	if err := s.repositionSubject(ctx, scope, req.SubjectID, &mark); err != nil {
		return nil, err
	}
	return &mark, nil
}

// Delete removes a mark record and recomputes the subject positions.
func (s *MarkService) Delete(ctx context.Context, actor models.Actor, scope models.Scope, subjectID, markID string) error {
	if scope.SchoolID != actor.SchoolID || !actor.OwnsClass(scope.ClassID) {
		return appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}
	if err := s.marks.Delete(ctx, markID, scope.SchoolID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "mark not found")
	}
	return s.repositionSubject(ctx, scope, subjectID, nil)
}

// repositionSubject recomputes competition positions for one subject
// and persists the rows whose position changed. saved, when non-nil,
// picks up its fresh position in place.
func (s *MarkService) repositionSubject(ctx context.Context, scope models.Scope, subjectID string, saved *models.MarkRecord) error {
	marks, err := s.marks.ListBySubject(ctx, scope, subjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload subject marks")
	}
	entries := make([]RankEntry, len(marks))
	for i, mark := range marks {
		entries[i] = RankEntry{StudentID: mark.StudentID, Score: mark.Total}
	}
	positions := RankPositive(entries)

	for i := range marks {
		mark := &marks[i]
		position := ""
		if p, ok := positions[mark.StudentID]; ok {
			position = strconv.Itoa(p)
		}
		if saved != nil && mark.StudentID == saved.StudentID {
			saved.Position = position
		}
		if mark.Position == position {
			continue
		}
		mark.Position = position
		if _, err := s.marks.Upsert(ctx, mark); err != nil {
			return appErrors.Wrap(err, appErrors.ErrUpstreamSave.Code, appErrors.ErrUpstreamSave.Status, "failed to update subject positions")
		}
	}
	return nil
}
