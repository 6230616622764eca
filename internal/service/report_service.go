package service

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type rosterReader interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
}

type reviewStore interface {
	ListByScope(ctx context.Context, scope models.Scope) ([]models.ReviewRecord, error)
	GetByStudent(ctx context.Context, scope models.Scope, studentID int64) (*models.ReviewRecord, error)
	Upsert(ctx context.Context, review *models.ReviewRecord) (string, error)
	UpsertReopenDate(ctx context.Context, scope models.Scope, studentID int64, reopenDate string) (string, error)
}

type scoreAggregator interface {
	Aggregate(ctx context.Context, scope models.Scope, roster []models.Student, progress ProgressFunc) ([]models.StudentAggregate, error)
}

type attendanceTotaler interface {
	Totals(ctx context.Context, scope models.Scope, roster []models.Student) map[int64]int
}

type bandReader interface {
	Bands(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error)
}

// SaveRowRequest is the payload for saving one student's review row.
// ReviewID must carry the id returned by an earlier save of the same
// row so repeated saves update in place. ReopenOnly restricts the
// save to the reopening date, leaving the other fields untouched.
type SaveRowRequest struct {
	StudentID       int64   `json:"student_id" validate:"required"`
	ReviewID        string  `json:"review_id"`
	TeacherRemarks  string  `json:"teacher_remarks"`
	HeadRemarks     string  `json:"head_remarks"`
	Attendance      int     `json:"attendance" validate:"min=0"`
	ReopenDate      string  `json:"reopen_date"`
	OverallScore    float64 `json:"overall_score"`
	OverallPosition int     `json:"overall_position"`
	ReopenOnly      bool    `json:"reopen_only"`
}

// SaveAllResult summarises a bulk save.
type SaveAllResult struct {
	Saved         int              `json:"saved"`
	FailedStudent int64            `json:"failed_student,omitempty"`
	ReviewIDs     map[int64]string `json:"review_ids"`
}

// ReportService assembles class reports and persists review edits.
type ReportService struct {
	students   rosterReader
	reviews    reviewStore
	scores     scoreAggregator
	attendance attendanceTotaler
	scales     bandReader
	guard      *ScopeGuard
	validator  *validator.Validate
	logger     *zap.Logger

	saveMu     sync.Mutex
	savesInFly map[string]bool
}

// NewReportService constructs ReportService.
func NewReportService(students rosterReader, reviews reviewStore, scores scoreAggregator, attendance attendanceTotaler, scales bandReader, guard *ScopeGuard, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = NewScopeGuard(logger)
	}
	return &ReportService{
		students:   students,
		reviews:    reviews,
		scores:     scores,
		attendance: attendance,
		scales:     scales,
		guard:      guard,
		validator:  validate,
		logger:     logger,
		savesInFly: make(map[string]bool),
	}
}

// Build assembles the class report for a scope: roster, aggregated
// averages, competition positions, grade band lookup, attendance
// totals, and the stored review fields merged per student. Starting a
// build supersedes any build the same actor still has running; a
// superseded build returns ErrStaleScope instead of a stale report.
func (s *ReportService) Build(ctx context.Context, actor models.Actor, scope models.Scope, progress ProgressFunc) (*models.ClassReport, error) {
	if !scope.Complete() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year, term and class must all be selected")
	}
	if scope.SchoolID != actor.SchoolID || !actor.OwnsClass(scope.ClassID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}

	buildCtx, token := s.guard.Acquire(ctx, actor.UserID, scope)

	roster, err := s.students.ListByClass(buildCtx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, s.buildErr(token, err, "failed to load roster")
	}

	aggregates, err := s.scores.Aggregate(buildCtx, scope, roster, progress)
	if err != nil {
		return nil, s.buildErr(token, err, "failed to aggregate scores")
	}

	entries := make([]RankEntry, len(aggregates))
	for i, agg := range aggregates {
		entries[i] = RankEntry{StudentID: agg.StudentID, Score: agg.Average}
	}
	positions := Rank(entries)

	bands, err := s.scales.Bands(buildCtx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, s.buildErr(token, err, "failed to load grading scale")
	}

	reviews, err := s.reviews.ListByScope(buildCtx, scope)
	if err != nil {
		return nil, s.buildErr(token, err, "failed to load reviews")
	}
	reviewByStudent := make(map[int64]models.ReviewRecord, len(reviews))
	for _, review := range reviews {
		reviewByStudent[review.StudentID] = review
	}

	attendance := s.attendance.Totals(buildCtx, scope, roster)

	report := &models.ClassReport{
		Scope:      scope,
		Rows:       make([]models.ReportRow, 0, len(aggregates)),
		ReopenDate: majorityReopenDate(reviews),
	}
	for _, agg := range aggregates {
		if agg.Failed {
			report.PartialFailures++
		}
		result := ResolveBand(bands, agg.Average)
		row := models.ReportRow{
			StudentID:       agg.StudentID,
			Name:            agg.Name,
			IndexNo:         agg.IndexNo,
			OverallScore:    agg.Average,
			OverallPosition: positions[agg.StudentID],
			Grade:           result.Grade,
			Remark:          result.Remark,
			Attendance:      attendance[agg.StudentID],
			AggregateFailed: agg.Failed,
		}
		if review, ok := reviewByStudent[agg.StudentID]; ok {
			row.ReviewID = review.ID
			row.TeacherRemarks = review.TeacherRemarks
			row.HeadRemarks = review.HeadRemarks
			row.ReopenDate = review.ReopenDate
			if review.Attendance > 0 {
				row.Attendance = review.Attendance
			}
		}
		report.Rows = append(report.Rows, row)
	}

	if !token.Current() {
		return nil, appErrors.Clone(appErrors.ErrStaleScope, "")
	}
	return report, nil
}

// buildErr maps a failed build phase to ErrStaleScope when the build
// was superseded mid-flight, otherwise wraps the underlying error.
func (s *ReportService) buildErr(token *ScopeToken, err error, message string) error {
	if !token.Current() {
		return appErrors.Clone(appErrors.ErrStaleScope, "")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// SaveRow persists one student's review fields. Teachers may only
// write the teacher-side fields: the payload carries the row's
// current head remarks and reopening date, so echoed values pass
// through untouched, attempted changes are rejected before any write,
// and blanked head fields keep their stored values instead of being
// erased. Saves are idempotent: the returned review id must travel
// back on the next save of the same row, so editing a row twice
// updates rather than duplicates.
func (s *ReportService) SaveRow(ctx context.Context, actor models.Actor, scope models.Scope, req SaveRowRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !scope.Complete() {
		return "", appErrors.Clone(appErrors.ErrValidation, "year, term and class must all be selected")
	}
	if scope.SchoolID != actor.SchoolID || !actor.OwnsClass(scope.ClassID) {
		return "", appErrors.Clone(appErrors.ErrForbidden, "class is outside your assignment")
	}

	canEditHead := actor.Role.CanEditHeadFields()
	if req.ReopenOnly && !canEditHead {
		return "", appErrors.Clone(appErrors.ErrForbidden, "head remarks and reopening date are head-teacher fields")
	}

	if req.ReopenOnly {
		id, err := s.reviews.UpsertReopenDate(ctx, scope, req.StudentID, req.ReopenDate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrUpstreamSave.Code, appErrors.ErrUpstreamSave.Status, "failed to save reopening date")
		}
		return id, nil
	}

	headRemarks, reopenDate := req.HeadRemarks, req.ReopenDate
	if !canEditHead {
		stored, err := s.reviews.GetByStudent(ctx, scope, req.StudentID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load review row")
		}
		var storedHead, storedReopen string
		if stored != nil {
			storedHead, storedReopen = stored.HeadRemarks, stored.ReopenDate
		}
		if (req.HeadRemarks != "" && req.HeadRemarks != storedHead) ||
			(req.ReopenDate != "" && req.ReopenDate != storedReopen) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "head remarks and reopening date are head-teacher fields")
		}
		headRemarks, reopenDate = storedHead, storedReopen
	}

	review := models.ReviewRecord{
		ID:              req.ReviewID,
		SchoolID:        scope.SchoolID,
		YearID:          scope.YearID,
		TermID:          scope.TermID,
		ClassID:         scope.ClassID,
		StudentID:       req.StudentID,
		TeacherRemarks:  req.TeacherRemarks,
		HeadRemarks:     headRemarks,
		Attendance:      req.Attendance,
		ReopenDate:      reopenDate,
		OverallScore:    req.OverallScore,
		OverallPosition: req.OverallPosition,
	}
	id, err := s.reviews.Upsert(ctx, &review)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUpstreamSave.Code, appErrors.ErrUpstreamSave.Status, "failed to save review")
	}
	return id, nil
}

// SaveAll persists a batch of review rows sequentially, stopping at
// the first failure. Only one bulk save may run per scope at a time;
// a second caller gets ErrSaveInProgress instead of interleaving.
func (s *ReportService) SaveAll(ctx context.Context, actor models.Actor, scope models.Scope, reqs []SaveRowRequest) (*SaveAllResult, error) {
	key := scope.Key()
	s.saveMu.Lock()
	if s.savesInFly[key] {
		s.saveMu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrSaveInProgress, "")
	}
	s.savesInFly[key] = true
	s.saveMu.Unlock()
	defer func() {
		s.saveMu.Lock()
		delete(s.savesInFly, key)
		s.saveMu.Unlock()
	}()

	result := &SaveAllResult{ReviewIDs: make(map[int64]string, len(reqs))}
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			result.FailedStudent = req.StudentID
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk save interrupted")
		}
		id, err := s.SaveRow(ctx, actor, scope, req)
		if err != nil {
			result.FailedStudent = req.StudentID
			return result, err
		}
		result.ReviewIDs[req.StudentID] = id
		result.Saved++
	}
	return result, nil
}

// majorityReopenDate picks the class reopening date by majority among
// the stored rows; ties go to the latest date so a reopening is never
// announced earlier than most rows say.
func majorityReopenDate(reviews []models.ReviewRecord) string {
	counts := make(map[string]int)
	for _, review := range reviews {
		if review.ReopenDate != "" {
			counts[review.ReopenDate]++
		}
	}
	var winner string
	var best int
	for date, n := range counts {
		if n > best || (n == best && date > winner) {
			winner = date
			best = n
		}
	}
	return winner
}
