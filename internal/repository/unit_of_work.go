package repository

import (
	"context"
	"fmt"

	"golang-options/pkg/trace"
	"golang-options/pkg/utils"

	"gorm.io/gorm"
)

// UnitOfWork runs fn inside one database transaction. fn receives the option
// that binds repository calls to the transaction and must pass it on to every
// repository it touches.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(opts ...utils.DBOption) error) error
}

type unitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{
		db: db,
	}
}

func (u *unitOfWork) Run(ctx context.Context, fn func(opts ...utils.DBOption) error) (err error) {
	ctx, span := trace.StartSpan(ctx, "repository.unit_of_work")
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		trace.End(span, tx.Error)
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			trace.End(span, fmt.Errorf("panic in transaction: %v", r))
			panic(r)
		}
		switch {
		case err != nil:
			if rbErr := tx.Rollback().Error; rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		default:
			if commitErr := tx.Commit().Error; commitErr != nil {
				err = fmt.Errorf("commit transaction: %w", commitErr)
			}
		}
		trace.End(span, err)
	}()

	err = fn(utils.WithTx(tx))
	return
}
