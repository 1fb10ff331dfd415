package repository

import (
	"context"
	"fmt"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

// OperationRepository stores trade records. Rows are immutable apart from
// their visibility flag.
type OperationRepository interface {
	Create(ctx context.Context, operation *model.Operation, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Operation, error)
	Get(ctx context.Context, param model.GetOperationsParam, opts ...utils.DBOption) ([]model.Operation, error)
	SetVisibility(ctx context.Context, ids []uint, visibility model.Visibility, opts ...utils.DBOption) error
}

type operationRepository struct {
	db *gorm.DB
}

func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

func (r *operationRepository) Create(ctx context.Context, operation *model.Operation, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(operation).Error
}

func (r *operationRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Operation, error) {
	var operation model.Operation
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&operation, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &operation, nil
}

func (r *operationRepository) Get(ctx context.Context, param model.GetOperationsParam, opts ...utils.DBOption) ([]model.Operation, error) {
	if param.PositionID == 0 && len(param.IDs) == 0 {
		return nil, fmt.Errorf("no filter provided")
	}

	var operations []model.Operation
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if param.PositionID != 0 {
		db = db.Where("position_id = ?", param.PositionID)
	}
	if len(param.IDs) > 0 {
		db = db.Where("id IN ?", param.IDs)
	}
	if !param.IncludeHidden {
		db = db.Where("visibility = ?", model.VisibilityVisible)
	}
	if err := db.Order("id ASC").Find(&operations).Error; err != nil {
		return nil, err
	}
	return operations, nil
}

func (r *operationRepository) SetVisibility(ctx context.Context, ids []uint, visibility model.Visibility, opts ...utils.DBOption) error {
	if len(ids) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Operation{}).
		Where("id IN ?", ids).
		Update("visibility", visibility).Error
}
