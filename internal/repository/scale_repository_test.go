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

func newScaleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScaleRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newScaleRepoMock(t)
	defer cleanup()
	repo := NewScaleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "class_id", "min_percent", "max_percent", "grade_label", "remark", "created_at", "updated_at"}).
		AddRow("band-a", "sch-1", "class-1", 80.0, 100.0, "A", "Excellent", now, now).
		AddRow("band-b", "sch-1", "class-1", 70.0, 79.99, "B", "Very good", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM grade_bands")).
		WithArgs("sch-1", "class-1").
		WillReturnRows(rows)

	bands, err := repo.ListByClass(context.Background(), "sch-1", "class-1")
	require.NoError(t, err)
	require.Len(t, bands, 2)
	require.Equal(t, "A", bands[0].GradeLabel)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScaleRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newScaleRepoMock(t)
	defer cleanup()
	repo := NewScaleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_bands")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	band := &models.GradeBand{
		SchoolID:   "sch-1",
		ClassID:    "class-1",
		MinPercent: 80,
		MaxPercent: 100,
		GradeLabel: "A",
		Remark:     "Excellent",
	}
	id, err := repo.Upsert(context.Background(), band)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, band.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScaleRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newScaleRepoMock(t)
	defer cleanup()
	repo := NewScaleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_bands")).
		WithArgs("band-x", "sch-1", "class-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "band-x", "sch-1", "class-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}
