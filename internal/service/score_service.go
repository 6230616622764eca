package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/classbridge/report-api/internal/models"
)

// defaultFetchConcurrency bounds the number of in-flight per-student
// mark fetches during a report build.
const defaultFetchConcurrency = 6

type markReader interface {
	ListByStudent(ctx context.Context, scope models.Scope, studentID int64) ([]models.MarkRecord, error)
}

// ProgressFunc receives aggregation progress as (done, total).
type ProgressFunc func(done, total int)

// ScoreService aggregates per-subject marks into a per-student term
// average for the report pipeline.
type ScoreService struct {
	marks       markReader
	concurrency int
	logger      *zap.Logger
}

// NewScoreService constructs ScoreService. A non-positive concurrency
// falls back to the default.
func NewScoreService(marks markReader, concurrency int, logger *zap.Logger) *ScoreService {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreService{marks: marks, concurrency: concurrency, logger: logger}
}

// Aggregate fetches marks for every roster student and reduces them
// to one average each. Fetch failures for individual students do not
// abort the build: the student's aggregate is flagged Failed with a
// zero average and the rest of the class proceeds. Only context
// cancellation stops the whole aggregation.
//
// The returned slice is ordered like the roster. progress may be nil.
func (s *ScoreService) Aggregate(ctx context.Context, scope models.Scope, roster []models.Student, progress ProgressFunc) ([]models.StudentAggregate, error) {
	aggregates := make([]models.StudentAggregate, len(roster))
	total := len(roster)

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, student := range roster {
		i, student := i, student
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			agg := models.StudentAggregate{
				StudentID: student.ID,
				Name:      student.Name,
				IndexNo:   student.IndexNo,
			}
			marks, err := s.marks.ListByStudent(gctx, scope, student.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("aggregate marks for student failed",
					zap.Int64("student_id", student.ID), zap.Error(err))
				agg.Failed = true
			} else {
				agg.Average, agg.Subjects = averageOf(marks)
			}
			aggregates[i] = agg

			mu.Lock()
			done++
			if progress != nil {
				progress(done, total)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return aggregates, nil
}

// averageOf reduces mark records to (average, subject count). A
// student with no records averages to zero rather than erroring.
func averageOf(marks []models.MarkRecord) (float64, int) {
	if len(marks) == 0 {
		return 0, 0
	}
	var sum float64
	for _, m := range marks {
		sum += m.Total
	}
	return round2(sum / float64(len(marks))), len(marks)
}
