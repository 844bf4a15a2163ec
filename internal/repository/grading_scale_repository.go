package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusonrisas/academia-api/internal/models"
)

// GradingScaleRepository handles persistence for per-year grading scales.
type GradingScaleRepository struct {
	db *sqlx.DB
}

// NewGradingScaleRepository instantiates a grading scale repository.
func NewGradingScaleRepository(db *sqlx.DB) *GradingScaleRepository {
	return &GradingScaleRepository{db: db}
}

// GetOrCreate returns the year's scale, inserting the default cutoffs on
// first use so every year always has a scale to grade against.
func (r *GradingScaleRepository) GetOrCreate(ctx context.Context, year int) (*models.GradingScale, error) {
	const query = `SELECT id, year, superior_cutoff, high_cutoff, basic_cutoff, pass_level, updated_by, created_at, updated_at FROM grading_scales WHERE year = $1`
	var scale models.GradingScale
	err := r.db.GetContext(ctx, &scale, query, year)
	if err == nil {
		return &scale, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get grading scale: %w", err)
	}

	now := time.Now().UTC()
	scale = models.GradingScale{
		ID:             uuid.NewString(),
		Year:           year,
		SuperiorCutoff: models.DefaultSuperiorCutoff,
		HighCutoff:     models.DefaultHighCutoff,
		BasicCutoff:    models.DefaultBasicCutoff,
		PassLevel:      models.DefaultPassLevel,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	const insert = `
		INSERT INTO grading_scales (id, year, superior_cutoff, high_cutoff, basic_cutoff, pass_level, created_at, updated_at)
		VALUES (:id, :year, :superior_cutoff, :high_cutoff, :basic_cutoff, :pass_level, :created_at, :updated_at)
		ON CONFLICT (year) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, insert, &scale); err != nil {
		return nil, fmt.Errorf("create default grading scale: %w", err)
	}

	// Re-read in case a concurrent request inserted first.
	if err := r.db.GetContext(ctx, &scale, query, year); err != nil {
		return nil, fmt.Errorf("reload grading scale: %w", err)
	}
	return &scale, nil
}

// Update persists new cutoffs for the year's scale.
func (r *GradingScaleRepository) Update(ctx context.Context, scale *models.GradingScale) error {
	scale.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grading_scales SET superior_cutoff = :superior_cutoff, high_cutoff = :high_cutoff, basic_cutoff = :basic_cutoff, pass_level = :pass_level, updated_by = :updated_by, updated_at = :updated_at WHERE year = :year`
	if _, err := r.db.NamedExecContext(ctx, query, scale); err != nil {
		return fmt.Errorf("update grading scale: %w", err)
	}
	return nil
}
