package repository

import (
	"context"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

// ExitRecordRepository is append-only.
type ExitRecordRepository interface {
	CreateBatch(ctx context.Context, records []model.ExitRecord, opts ...utils.DBOption) error
	GetByPosition(ctx context.Context, positionID uint, opts ...utils.DBOption) ([]model.ExitRecord, error)
}

type exitRecordRepository struct {
	db *gorm.DB
}

func NewExitRecordRepository(db *gorm.DB) ExitRecordRepository {
	return &exitRecordRepository{db: db}
}

func (r *exitRecordRepository) CreateBatch(ctx context.Context, records []model.ExitRecord, opts ...utils.DBOption) error {
	if len(records) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(&records).Error
}

func (r *exitRecordRepository) GetByPosition(ctx context.Context, positionID uint, opts ...utils.DBOption) ([]model.ExitRecord, error) {
	var records []model.ExitRecord
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("position_id = ?", positionID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
