package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/merchportal/backend/internal/domain/integration"
	"github.com/merchportal/backend/internal/domain/shared"
	"github.com/merchportal/backend/internal/infrastructure/persistence/models"
)

// GormExportRunRepository implements integration.ExportRunRepository using GORM
type GormExportRunRepository struct {
	db *gorm.DB
}

// NewGormExportRunRepository creates a new GormExportRunRepository
func NewGormExportRunRepository(db *gorm.DB) *GormExportRunRepository {
	return &GormExportRunRepository{db: db}
}

// Save creates the run or overwrites every column of an existing one
func (r *GormExportRunRepository) Save(ctx context.Context, run *integration.ExportRun) error {
	model, err := models.ExportRunModelFromDomain(run)
	if err != nil {
		return fmt.Errorf("failed to map export run: %w", err)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// FindByID finds an export run by its ID
func (r *GormExportRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ExportRun, error) {
	var model models.ExportRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of export runs and the total number matching the filter
func (r *GormExportRunRepository) List(ctx context.Context, filter integration.ExportRunFilter) ([]integration.ExportRun, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)

	var runModels []models.ExportRunModel
	if err := r.filtered(ctx, filter).
		Order(orderByColumn(filter.OrderBy, filter.OrderDir, sortableRunColumns, "created_at")).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(shared.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&runModels).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]integration.ExportRun, len(runModels))
	for i := range runModels {
		runs[i] = *runModels[i].ToDomain()
	}
	return runs, total, nil
}

func (r *GormExportRunRepository) filtered(ctx context.Context, filter integration.ExportRunFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ExportRunModel{})
	if filter.ShopID != "" {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

// Ensure GormExportRunRepository implements the interface
var _ integration.ExportRunRepository = (*GormExportRunRepository)(nil)
