package repository

import (
	"context"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

type EntryLotRepository interface {
	Create(ctx context.Context, lot *model.EntryLot, opts ...utils.DBOption) error
	Save(ctx context.Context, lot *model.EntryLot, opts ...utils.DBOption) error
	// GetByPosition returns every lot of the position, consumed ones included,
	// ordered by sequence.
	GetByPosition(ctx context.Context, positionID uint, opts ...utils.DBOption) ([]model.EntryLot, error)
}

type entryLotRepository struct {
	db *gorm.DB
}

func NewEntryLotRepository(db *gorm.DB) EntryLotRepository {
	return &entryLotRepository{db: db}
}

func (r *entryLotRepository) Create(ctx context.Context, lot *model.EntryLot, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(lot).Error
}

func (r *entryLotRepository) Save(ctx context.Context, lot *model.EntryLot, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(lot).Error
}

func (r *entryLotRepository) GetByPosition(ctx context.Context, positionID uint, opts ...utils.DBOption) ([]model.EntryLot, error) {
	var lots []model.EntryLot
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("position_id = ?", positionID).
		Order("sequence ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}
