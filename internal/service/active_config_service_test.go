package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusonrisas/academia-api/internal/models"
	appErrors "github.com/edusonrisas/academia-api/pkg/errors"
)

type memoryCacheRepo struct {
	entries map[string][]byte
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if matched, _ := path.Match(pattern, key); matched {
			delete(m.entries, key)
		}
	}
	m.deletes = append(m.deletes, pattern)
	return nil
}

type failingCacheRepo struct {
	err error
}

func (f *failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return f.err
}

func (f *failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return f.err
}

func (f *failingCacheRepo) Delete(ctx context.Context, key string) error {
	return f.err
}

func (f *failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return f.err
}

type stubConfigReader struct {
	config      *models.ActiveConfig
	active      *models.SchoolYear
	configReads int
}

func (s *stubConfigReader) ActiveConfig(ctx context.Context) (*models.ActiveConfig, error) {
	s.configReads++
	if s.config == nil {
		return nil, sql.ErrNoRows
	}
	return s.config, nil
}

func (s *stubConfigReader) FindActive(ctx context.Context) (*models.SchoolYear, error) {
	if s.active == nil {
		return nil, sql.ErrNoRows
	}
	return s.active, nil
}

func newConfigFixture() (*stubConfigReader, *memoryCacheRepo, *ActiveConfigService) {
	updated := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubConfigReader{
		config: &models.ActiveConfig{Year: 2026, PeriodID: "p1", PeriodName: "Primer Periodo", UpdatedAt: updated},
		active: &models.SchoolYear{Year: 2026, Status: models.YearStatusActive, UpdatedAt: updated},
	}
	cacheRepo := newMemoryCacheRepo()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewActiveConfigService(repo, cacheSvc, time.Minute, zap.NewNop())
	return repo, cacheRepo, svc
}

func TestResolvePrimesCache(t *testing.T) {
	repo, cacheRepo, svc := newConfigFixture()

	cfg, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 2026, cfg.Year)
	assert.Equal(t, "p1", cfg.PeriodID)
	assert.Contains(t, cacheRepo.entries, ActiveConfigCacheKey)

	// Second read is served from the snapshot.
	_, err = svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.configReads)
}

func TestResolveDiscardsStaleSnapshot(t *testing.T) {
	repo, _, svc := newConfigFixture()

	_, err := svc.Resolve(context.Background())
	require.NoError(t, err)

	// Another instance activated a different year and period.
	newUpdated := time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)
	repo.config = &models.ActiveConfig{Year: 2026, PeriodID: "p2", PeriodName: "Segundo Periodo", UpdatedAt: newUpdated}
	repo.active = &models.SchoolYear{Year: 2026, Status: models.YearStatusActive, UpdatedAt: newUpdated}

	cfg, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p2", cfg.PeriodID)
	assert.Equal(t, 2, repo.configReads)
}

func TestResolveNoActiveYear(t *testing.T) {
	repo, _, svc := newConfigFixture()
	repo.config = nil
	repo.active = nil

	cfg, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestRequireErrors(t *testing.T) {
	repo, _, svc := newConfigFixture()

	repo.config = nil
	repo.active = nil
	_, err := svc.Require(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNoActiveYear)

	repo.config = &models.ActiveConfig{Year: 2026}
	repo.active = &models.SchoolYear{Year: 2026, Status: models.YearStatusActive}
	_, err = svc.Require(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNoActivePeriod)
}

func TestResolveSurvivesCacheOutage(t *testing.T) {
	updated := time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubConfigReader{
		config: &models.ActiveConfig{Year: 2026, PeriodID: "p1", PeriodName: "Primer Periodo", UpdatedAt: updated},
		active: &models.SchoolYear{Year: 2026, Status: models.YearStatusActive, UpdatedAt: updated},
	}
	broken := errors.New("connection refused")
	cacheSvc := NewCacheService(&failingCacheRepo{err: broken}, nil, time.Minute, zap.NewNop(), true)
	svc := NewActiveConfigService(repo, cacheSvc, time.Minute, zap.NewNop())

	cfg, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 2026, cfg.Year)
	assert.Equal(t, 1, repo.configReads)

	// Every read pays the database while the cache is down.
	_, err = svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.configReads)
}

func TestInvalidateCascades(t *testing.T) {
	_, cacheRepo, svc := newConfigFixture()

	_, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	cacheRepo.entries["matriculas:2026:ACTIVE:1:20"] = []byte("[]")
	cacheRepo.entries["asignaciones:2026::::1:20"] = []byte("[]")

	svc.Invalidate(context.Background())

	assert.Empty(t, cacheRepo.entries)
	assert.Contains(t, cacheRepo.deletes, ActiveConfigCacheKey)
	assert.Contains(t, cacheRepo.deletes, EnrollmentCachePattern)
	assert.Contains(t, cacheRepo.deletes, AssignmentCachePattern)
}
