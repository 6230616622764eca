package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type mockScaleRepo struct {
	bands   []models.GradeBand
	upserts []models.GradeBand
	deleted []string
}

func (m *mockScaleRepo) ListByClass(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error) {
	return m.bands, nil
}

func (m *mockScaleRepo) Upsert(ctx context.Context, band *models.GradeBand) (string, error) {
	if band.ID == "" {
		band.ID = "band-new"
	}
	m.upserts = append(m.upserts, *band)
	return band.ID, nil
}

func (m *mockScaleRepo) Delete(ctx context.Context, id, schoolID, classID string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func defaultBands() []models.GradeBand {
	return []models.GradeBand{
		{ID: "band-a", GradeLabel: "A", Remark: "Excellent", MinPercent: 80, MaxPercent: 100},
		{ID: "band-b", GradeLabel: "B", Remark: "Very good", MinPercent: 70, MaxPercent: 79.99},
		{ID: "band-c", GradeLabel: "C", Remark: "Good", MinPercent: 60, MaxPercent: 69.99},
	}
}

func headActor() models.Actor {
	return models.Actor{UserID: "user-head", SchoolID: "sch-1", Role: models.RoleHeadTeacher}
}

func TestResolveBandInclusiveBounds(t *testing.T) {
	bands := defaultBands()

	assert.Equal(t, "A", ResolveBand(bands, 80).Grade)
	assert.Equal(t, "A", ResolveBand(bands, 100).Grade)
	assert.Equal(t, "B", ResolveBand(bands, 79.99).Grade)
	assert.Equal(t, "C", ResolveBand(bands, 60).Grade)
}

func TestResolveBandNoMatchIsEmptyNotError(t *testing.T) {
	bands := defaultBands()

	result := ResolveBand(bands, 30)
	assert.Empty(t, result.Grade)
	assert.Empty(t, result.Remark)
}

func TestResolveBandEmptyScale(t *testing.T) {
	result := ResolveBand(nil, 75)
	assert.Empty(t, result.Grade)
}

func TestScaleServiceUpsertRejectsOverlapNamingConflict(t *testing.T) {
	repo := &mockScaleRepo{bands: defaultBands()}
	svc := NewScaleService(repo, nil, 0, nil, nil)

	_, err := svc.Upsert(context.Background(), headActor(), UpsertBandRequest{
		ClassID:    "class-1",
		MinPercent: 75,
		MaxPercent: 85,
		GradeLabel: "B+",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBandOverlap.Code, appErr.Code)
	assert.Contains(t, appErr.Message, `"A"`)
	assert.Empty(t, repo.upserts)
}

func TestScaleServiceUpsertAllowsEditingOwnRange(t *testing.T) {
	repo := &mockScaleRepo{bands: defaultBands()}
	svc := NewScaleService(repo, nil, 0, nil, nil)

	band, err := svc.Upsert(context.Background(), headActor(), UpsertBandRequest{
		ID:         "band-b",
		ClassID:    "class-1",
		MinPercent: 70,
		MaxPercent: 79.5,
		GradeLabel: "B",
	})
	require.NoError(t, err)
	assert.Equal(t, "band-b", band.ID)
	require.Len(t, repo.upserts, 1)
}

func TestScaleServiceUpsertRejectsInvertedRange(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewScaleService(repo, nil, 0, nil, nil)

	_, err := svc.Upsert(context.Background(), headActor(), UpsertBandRequest{
		ClassID:    "class-1",
		MinPercent: 50,
		MaxPercent: 40,
		GradeLabel: "D",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScaleServiceUpsertRejectsOutOfRangePercent(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewScaleService(repo, nil, 0, nil, nil)

	_, err := svc.Upsert(context.Background(), headActor(), UpsertBandRequest{
		ClassID:    "class-1",
		MinPercent: 90,
		MaxPercent: 110,
		GradeLabel: "A",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScaleServiceUpsertTeacherForbidden(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewScaleService(repo, nil, 0, nil, nil)

	actor := models.Actor{UserID: "user-t", SchoolID: "sch-1", Role: models.RoleTeacher, ClassIDs: []string{"class-1"}}
	_, err := svc.Upsert(context.Background(), actor, UpsertBandRequest{
		ClassID:    "class-1",
		MinPercent: 0,
		MaxPercent: 59.99,
		GradeLabel: "F",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

type mockScaleCache struct {
	store map[string][]models.GradeBand
	gets  int
	hits  int
}

func (m *mockScaleCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	bands, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	m.hits++
	*(dest.(*[]models.GradeBand)) = bands
	return nil
}

func (m *mockScaleCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]models.GradeBand)
	}
	m.store[key] = value.([]models.GradeBand)
	return nil
}

func (m *mockScaleCache) DeleteByPattern(ctx context.Context, pattern string) error {
	delete(m.store, pattern)
	return nil
}

func TestScaleServiceBandsCachesAndInvalidates(t *testing.T) {
	repo := &mockScaleRepo{bands: defaultBands()}
	cache := &mockScaleCache{}
	svc := NewScaleService(repo, cache, time.Minute, nil, nil)

	_, err := svc.Bands(context.Background(), "sch-1", "class-1")
	require.NoError(t, err)
	_, err = svc.Bands(context.Background(), "sch-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.Upsert(context.Background(), headActor(), UpsertBandRequest{
		ClassID:    "class-1",
		MinPercent: 0,
		MaxPercent: 59.99,
		GradeLabel: "F",
	})
	require.NoError(t, err)
	assert.Empty(t, cache.store)
}
