package repository

import (
	"errors"

	"golang-options/internal/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	PositionRepo   PositionRepository
	EntryLotRepo   EntryLotRepository
	ExitRecordRepo ExitRecordRepository
	OperationRepo  OperationRepository
	GroupRepo      GroupRepository
	UnitOfWork     UnitOfWork
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		PositionRepo:   NewPositionRepository(db),
		EntryLotRepo:   NewEntryLotRepository(db),
		ExitRecordRepo: NewExitRecordRepository(db),
		OperationRepo:  NewOperationRepository(db),
		GroupRepo:      NewGroupRepository(db),
		UnitOfWork:     NewUnitOfWork(db),
	}
}

// Models lists every table owned by the engine, in creation order.
func Models() []interface{} {
	return []interface{}{
		&model.Position{},
		&model.Operation{},
		&model.EntryLot{},
		&model.ExitRecord{},
		&model.Group{},
		&model.GroupItem{},
	}
}

// AutoMigrate creates the schema through gorm. Postgres deployments use the
// SQL files under migrations/ instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
