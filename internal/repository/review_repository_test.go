package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/models"
)

func newReviewRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReviewRepositoryUpsertGeneratesID(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO report_reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rev-1"))

	review := &models.ReviewRecord{
		SchoolID:       "sch-1",
		YearID:         "year-1",
		TermID:         "term-1",
		ClassID:        "class-1",
		StudentID:      101,
		TeacherRemarks: "Good progress",
	}
	id, err := repo.Upsert(context.Background(), review)
	require.NoError(t, err)
	require.Equal(t, "rev-1", id)
	require.Equal(t, "rev-1", review.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryUpsertKeepsExistingID(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	// The conflict target is the student scope, so a second save of the
	// same row echoes the original id back.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO report_reviews")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rev-1"))

	review := &models.ReviewRecord{
		ID:        "rev-1",
		SchoolID:  "sch-1",
		YearID:    "year-1",
		TermID:    "term-1",
		ClassID:   "class-1",
		StudentID: 101,
	}
	id, err := repo.Upsert(context.Background(), review)
	require.NoError(t, err)
	require.Equal(t, "rev-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "year_id", "term_id", "class_id", "student_id",
		"teacher_remarks", "head_remarks", "attendance", "reopen_date", "overall_score", "overall_position",
		"created_at", "updated_at"}).
		AddRow("rev-1", "sch-1", "year-1", "term-1", "class-1", int64(101), "Solid term", "Keep it up", 54, "2026-01-12", 78.25, 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_reviews")).
		WithArgs("sch-1", "year-1", "term-1", "class-1").
		WillReturnRows(rows)

	scope := models.Scope{SchoolID: "sch-1", YearID: "year-1", TermID: "term-1", ClassID: "class-1"}
	reviews, err := repo.ListByScope(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, int64(101), reviews[0].StudentID)
	require.Equal(t, "2026-01-12", reviews[0].ReopenDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryGetByStudent(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "year_id", "term_id", "class_id", "student_id",
		"teacher_remarks", "head_remarks", "attendance", "reopen_date", "overall_score", "overall_position",
		"created_at", "updated_at"}).
		AddRow("rev-1", "sch-1", "year-1", "term-1", "class-1", int64(101), "Solid term", "Promoted", 54, "2026-01-12", 78.25, 2, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("AND student_id = $5")).
		WithArgs("sch-1", "year-1", "term-1", "class-1", int64(101)).
		WillReturnRows(rows)

	scope := models.Scope{SchoolID: "sch-1", YearID: "year-1", TermID: "term-1", ClassID: "class-1"}
	review, err := repo.GetByStudent(context.Background(), scope, 101)
	require.NoError(t, err)
	require.NotNil(t, review)
	require.Equal(t, "Promoted", review.HeadRemarks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryGetByStudentMissingRow(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND student_id = $5")).
		WithArgs("sch-1", "year-1", "term-1", "class-1", int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	scope := models.Scope{SchoolID: "sch-1", YearID: "year-1", TermID: "term-1", ClassID: "class-1"}
	review, err := repo.GetByStudent(context.Background(), scope, 999)
	require.NoError(t, err)
	require.Nil(t, review)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryUpsertReopenDate(t *testing.T) {
	db, mock, cleanup := newReviewRepoMock(t)
	defer cleanup()
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("DO UPDATE SET reopen_date = EXCLUDED.reopen_date")).
		WithArgs(sqlmock.AnyArg(), "sch-1", "year-1", "term-1", "class-1", int64(101), "2026-01-12", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rev-1"))

	scope := models.Scope{SchoolID: "sch-1", YearID: "year-1", TermID: "term-1", ClassID: "class-1"}
	id, err := repo.UpsertReopenDate(context.Background(), scope, 101, "2026-01-12")
	require.NoError(t, err)
	require.Equal(t, "rev-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}
