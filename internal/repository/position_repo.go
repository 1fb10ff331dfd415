package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

type PositionRepository interface {
	Create(ctx context.Context, position *model.Position, opts ...utils.DBOption) error
	Save(ctx context.Context, position *model.Position, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Position, error)
	Get(ctx context.Context, param model.GetPositionsParam, opts ...utils.DBOption) ([]model.Position, error)
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{
		db: db,
	}
}

func (r *positionRepository) Create(ctx context.Context, position *model.Position, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(position).Error
}

// Save writes every column, zero quantities included.
func (r *positionRepository) Save(ctx context.Context, position *model.Position, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(position).Error
}

func (r *positionRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.Position, error) {
	var position model.Position
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).First(&position, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &position, nil
}

func (r *positionRepository) Get(ctx context.Context, param model.GetPositionsParam, opts ...utils.DBOption) ([]model.Position, error) {
	var positions []model.Position

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if len(param.IDs) > 0 {
		qFilter = append(qFilter, "id IN (?)")
		qFilterParam = append(qFilterParam, param.IDs)
	}

	if param.Series != nil {
		qFilter = append(qFilter, "account_id = ? AND broker = ? AND option_series = ? AND direction = ?")
		qFilterParam = append(qFilterParam, param.Series.AccountID, param.Series.Broker, param.Series.OptionSeries, param.Series.Direction)
	}

	if len(param.Statuses) > 0 {
		qFilter = append(qFilter, "status IN (?)")
		qFilterParam = append(qFilterParam, param.Statuses)
	}

	if len(qFilter) == 0 {
		return nil, fmt.Errorf("no filter provided")
	}

	if param.ForUpdate {
		opts = append(opts, utils.WithLockForUpdate())
	}

	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where(strings.Join(qFilter, " AND "), qFilterParam...).
		Order("open_date ASC, id ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}

	return positions, nil
}
