package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

// Cache keys and invalidation patterns for configuration-derived payloads.
// Enrollment and assignment listings are keyed by the active year, so any
// configuration switch must clear them too.
const (
	ActiveConfigCacheKey   = "config:active"
	EnrollmentCachePattern = "matriculas:*"
	AssignmentCachePattern = "asignaciones:*"
)

type activeConfigReader interface {
	ActiveConfig(ctx context.Context) (*models.ActiveConfig, error)
	FindActive(ctx context.Context) (*models.SchoolYear, error)
}

// ActiveConfigService resolves the active school year and period through a
// cache-aside snapshot. Cache failures degrade to database reads.
type ActiveConfigService struct {
	repo   activeConfigReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewActiveConfigService constructs an ActiveConfigService.
func NewActiveConfigService(repo activeConfigReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ActiveConfigService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActiveConfigService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the active configuration snapshot, or (nil, nil) when no
// school year is active. A cached snapshot whose timestamp no longer matches
// the year row is discarded and rebuilt.
func (s *ActiveConfigService) Resolve(ctx context.Context) (*models.ActiveConfig, error) {
	var cached models.ActiveConfig
	hit, err := s.cache.Get(ctx, ActiveConfigCacheKey, &cached)
	if err != nil {
		s.logger.Warn("active config cache read failed, falling back to database", zap.Error(err))
	}
	if hit {
		if stale, checkErr := s.isStale(ctx, &cached); checkErr == nil && !stale {
			return &cached, nil
		}
		_ = s.cache.Delete(ctx, ActiveConfigCacheKey)
	}

	cfg, err := s.repo.ActiveConfig(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, "ACTIVE_CONFIG_FAILED", 500, "failed to resolve active configuration")
	}

	if setErr := s.cache.Set(ctx, ActiveConfigCacheKey, cfg, s.ttl); setErr != nil {
		s.logger.Warn("active config cache write failed", zap.Error(setErr))
	}
	return cfg, nil
}

// Require resolves the active configuration and fails when no year, or no
// period, is active. Write paths that depend on the active window use this.
func (s *ActiveConfigService) Require(ctx context.Context) (*models.ActiveConfig, error) {
	cfg, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, appErrors.ErrNoActiveYear
	}
	if cfg.PeriodID == "" {
		return nil, appErrors.ErrNoActivePeriod
	}
	return cfg, nil
}

// Invalidate drops the snapshot and every cache family derived from it.
// Called after any mutation that can change the active configuration.
func (s *ActiveConfigService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, ActiveConfigCacheKey); err != nil {
		s.logger.Warn("active config invalidation failed", zap.Error(err))
	}
	for _, pattern := range []string{EnrollmentCachePattern, AssignmentCachePattern} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("derived cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// Refresh invalidates and immediately re-primes the snapshot so the next
// reader does not pay the database round trip.
func (s *ActiveConfigService) Refresh(ctx context.Context) (*models.ActiveConfig, error) {
	s.Invalidate(ctx)
	return s.Resolve(ctx)
}

// isStale compares the cached snapshot timestamp against the active year
// row. A mismatch means another instance switched configuration and the
// invalidation did not reach this cache.
func (s *ActiveConfigService) isStale(ctx context.Context, cached *models.ActiveConfig) (bool, error) {
	year, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	if year.Year != cached.Year {
		return true, nil
	}
	return !year.UpdatedAt.Equal(cached.UpdatedAt), nil
}
