package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/report-api/internal/models"
	appErrors "github.com/classbridge/report-api/pkg/errors"
)

type scaleRepo interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error)
	Upsert(ctx context.Context, band *models.GradeBand) (string, error)
	Delete(ctx context.Context, id, schoolID, classID string) error
}

type scaleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ResolveBand returns the grade and remark for a score, or an empty
// result when no band covers it. Band bounds are inclusive on both
// ends; a score sitting exactly on min or max matches that band. A
// miss is a legitimate outcome for classes with gappy scales, so it
// is not an error.
func ResolveBand(bands []models.GradeBand, score float64) models.GradeResult {
	for _, band := range bands {
		if band.Contains(score) {
			return models.GradeResult{Grade: band.GradeLabel, Remark: band.Remark}
		}
	}
	return models.GradeResult{}
}

// UpsertBandRequest is the payload for creating or editing a band.
type UpsertBandRequest struct {
	ID         string  `json:"id"`
	ClassID    string  `json:"class_id" validate:"required"`
	MinPercent float64 `json:"min_percent" validate:"min=0,max=100"`
	MaxPercent float64 `json:"max_percent" validate:"min=0,max=100"`
	GradeLabel string  `json:"grade_label" validate:"required"`
	Remark     string  `json:"remark"`
}

// ScaleService manages grading scales and serves band lookups to the
// report pipeline, with a Redis cache in front of the store.
type ScaleService struct {
	scales    scaleRepo
	cache     scaleCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScaleService constructs ScaleService. cache may be nil, in which
// case every lookup hits the store.
func NewScaleService(scales scaleRepo, cache scaleCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ScaleService{scales: scales, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

func scaleCacheKey(schoolID, classID string) string {
	return fmt.Sprintf("scales:%s:%s", schoolID, classID)
}

// Bands returns the class's bands sorted descending by lower bound,
// serving from cache when possible.
func (s *ScaleService) Bands(ctx context.Context, schoolID, classID string) ([]models.GradeBand, error) {
	key := scaleCacheKey(schoolID, classID)
	if s.cache != nil {
		var cached []models.GradeBand
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	bands, err := s.scales.ListByClass(ctx, schoolID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, bands, s.cacheTTL); err != nil {
			s.logger.Warn("cache grading scale", zap.String("class_id", classID), zap.Error(err))
		}
	}
	return bands, nil
}

// Resolve looks up the grade for a score in a class's scale.
func (s *ScaleService) Resolve(ctx context.Context, schoolID, classID string, score float64) (models.GradeResult, error) {
	bands, err := s.Bands(ctx, schoolID, classID)
	if err != nil {
		return models.GradeResult{}, err
	}
	return ResolveBand(bands, score), nil
}

// Upsert validates and saves a band. The range must sit inside
// [0,100], run low to high, and not overlap any other band in the
// class; the conflicting band is named in the rejection.
func (s *ScaleService) Upsert(ctx context.Context, actor models.Actor, req UpsertBandRequest) (*models.GradeBand, error) {
	if !actor.Role.CanEditHeadFields() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only head teachers may edit grading scales")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade band payload")
	}
	if req.MinPercent > req.MaxPercent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "band lower bound exceeds upper bound")
	}

	existing, err := s.scales.ListByClass(ctx, actor.SchoolID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading scale")
	}
	band := models.GradeBand{
		ID:         req.ID,
		SchoolID:   actor.SchoolID,
		ClassID:    req.ClassID,
		MinPercent: req.MinPercent,
		MaxPercent: req.MaxPercent,
		GradeLabel: req.GradeLabel,
		Remark:     req.Remark,
	}
	for _, other := range existing {
		if other.ID == band.ID {
			continue
		}
		if band.Overlaps(other) {
			msg := fmt.Sprintf("range %.2f-%.2f overlaps band %q (%.2f-%.2f)",
				band.MinPercent, band.MaxPercent, other.GradeLabel, other.MinPercent, other.MaxPercent)
			return nil, appErrors.Clone(appErrors.ErrBandOverlap, msg)
		}
	}

	if _, err := s.scales.Upsert(ctx, &band); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade band")
	}
	s.invalidate(ctx, actor.SchoolID, req.ClassID)
	return &band, nil
}

// Delete removes a band from the class scale.
func (s *ScaleService) Delete(ctx context.Context, actor models.Actor, classID, bandID string) error {
	if !actor.Role.CanEditHeadFields() {
		return appErrors.Clone(appErrors.ErrForbidden, "only head teachers may edit grading scales")
	}
	if err := s.scales.Delete(ctx, bandID, actor.SchoolID, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "grade band not found")
	}
	s.invalidate(ctx, actor.SchoolID, classID)
	return nil
}

func (s *ScaleService) invalidate(ctx context.Context, schoolID, classID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, scaleCacheKey(schoolID, classID)); err != nil {
		s.logger.Warn("invalidate grading scale cache", zap.String("class_id", classID), zap.Error(err))
	}
}
