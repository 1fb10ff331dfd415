package repository

import (
	"context"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

type GroupRepository interface {
	Create(ctx context.Context, group *model.Group, opts ...utils.DBOption) error
	Save(ctx context.Context, group *model.Group, opts ...utils.DBOption) error
	// GetLedger loads the group of a position together with all of its items
	// ordered by sequence.
	GetLedger(ctx context.Context, positionID uint, opts ...utils.DBOption) (*model.GroupLedger, error)
	CreateItem(ctx context.Context, item *model.GroupItem, opts ...utils.DBOption) error
	Supersede(ctx context.Context, itemID, supersededBy uint, opts ...utils.DBOption) error
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(group).Error
}

func (r *groupRepository) Save(ctx context.Context, group *model.Group, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(group).Error
}

func (r *groupRepository) GetLedger(ctx context.Context, positionID uint, opts ...utils.DBOption) (*model.GroupLedger, error) {
	var group model.Group
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("position_id = ?", positionID).
		First(&group).Error; err != nil {
		return nil, notFound(err)
	}

	var items []model.GroupItem
	if err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("group_id = ?", group.ID).
		Order("sequence ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &model.GroupLedger{Group: group, Items: items}, nil
}

func (r *groupRepository) CreateItem(ctx context.Context, item *model.GroupItem, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(item).Error
}

func (r *groupRepository) Supersede(ctx context.Context, itemID, supersededBy uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.GroupItem{}).
		Where("id = ?", itemID).
		Updates(map[string]interface{}{
			"superseded":    true,
			"superseded_by": supersededBy,
		}).Error
}
