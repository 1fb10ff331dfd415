package service

import (
	"context"
	"errors"
	"fmt"

	"golang-options/config"
	"golang-options/internal/dto"
	"golang-options/internal/engine"
	"golang-options/internal/model"
	"golang-options/internal/repository"
	"golang-options/pkg/cache"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"
	"golang-options/pkg/trace"
	"golang-options/pkg/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidSeries = errors.New("invalid option series")

// EntryService is the applyEntry entry point.
type EntryService interface {
	ApplyEntry(ctx context.Context, cmd dto.EntryCommand) (*dto.EntryResult, error)
}

type entryService struct {
	cfg          *config.Config
	log          *logger.Logger
	repo         *repository.Repository
	ledger       ConsolidationLedger
	stateMachine engine.PositionStateMachine
	locker       keylock.Locker
	cache        cache.Cache
}

func NewEntryService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	ledger ConsolidationLedger,
	stateMachine engine.PositionStateMachine,
	locker keylock.Locker,
	inmemoryCache cache.Cache,
) EntryService {
	return &entryService{
		cfg:          cfg,
		log:          log,
		repo:         repo,
		ledger:       ledger,
		stateMachine: stateMachine,
		locker:       locker,
		cache:        inmemoryCache,
	}
}

func (s *entryService) ApplyEntry(ctx context.Context, cmd dto.EntryCommand) (result *dto.EntryResult, err error) {
	ctx, span := trace.StartSpan(ctx, "position.apply_entry",
		attribute.Int64("position_id", int64(cmd.PositionID)),
		attribute.String("option_series", cmd.Series.OptionSeries),
		attribute.Int64("quantity", cmd.Quantity),
	)
	defer func() { trace.End(span, err) }()

	series, err := s.resolveSeries(ctx, cmd)
	if err != nil {
		return nil, err
	}
	release, err := acquire(ctx, s.locker, s.cfg.Engine, series.Key())
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		position, txErr := s.findTarget(ctx, cmd, series, opts...)
		if txErr != nil {
			return txErr
		}
		if position == nil {
			result, txErr = s.open(ctx, cmd, series, opts...)
		} else {
			result, txErr = s.add(ctx, cmd, position, opts...)
		}
		return txErr
	})
	if err != nil {
		s.log.WarnContext(ctx, "Entry rejected",
			logger.StringField("series", series.Key()),
			logger.Int64Field("quantity", cmd.Quantity),
			logger.StringerField("unit_price", cmd.UnitPrice),
			logger.ErrorField(err),
		)
		return nil, err
	}

	invalidateSummary(s.cache, result.Position.ID)
	s.log.InfoContext(ctx, "Entry applied",
		logger.UintField("position_id", result.Position.ID),
		logger.Int64Field("quantity", cmd.Quantity),
		logger.Field("created", result.Created),
		logger.StringerField("average_price", result.Position.AveragePrice),
	)
	return result, nil
}

// resolveSeries returns the series the entry belongs to. A targeted position
// wins over whatever series the command carries.
func (s *entryService) resolveSeries(ctx context.Context, cmd dto.EntryCommand) (model.SeriesRef, error) {
	if cmd.PositionID != 0 {
		position, err := s.repo.PositionRepo.GetByID(ctx, cmd.PositionID)
		if err != nil {
			return model.SeriesRef{}, fmt.Errorf("load position %d: %w", cmd.PositionID, err)
		}
		return position.SeriesRef(), nil
	}

	series := cmd.Series
	if series.AccountID == "" || series.Broker == "" || series.OptionSeries == "" {
		return model.SeriesRef{}, fmt.Errorf("%w: account, broker and option series are required", ErrInvalidSeries)
	}
	if !series.Direction.Valid() {
		return model.SeriesRef{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSeries, series.Direction)
	}
	return series, nil
}

// findTarget returns the position the entry is added to, or nil when a new
// position has to be opened.
func (s *entryService) findTarget(ctx context.Context, cmd dto.EntryCommand, series model.SeriesRef, opts ...utils.DBOption) (*model.Position, error) {
	if cmd.PositionID != 0 {
		position, err := s.repo.PositionRepo.GetByID(ctx, cmd.PositionID, append(opts, utils.WithLockForUpdate())...)
		if err != nil {
			return nil, fmt.Errorf("load position %d: %w", cmd.PositionID, err)
		}
		return position, nil
	}

	positions, err := s.repo.PositionRepo.Get(ctx, model.GetPositionsParam{
		Series:    &series,
		Statuses:  []model.PositionStatus{model.PositionStatusOpen, model.PositionStatusPartial},
		ForUpdate: true,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("find open position of %s: %w", series.Key(), err)
	}
	if len(positions) == 0 {
		return nil, nil
	}
	if len(positions) > 1 {
		s.log.WarnContext(ctx, "More than one open position on series, using the oldest",
			logger.StringField("series", series.Key()),
			logger.IntField("count", len(positions)),
			logger.UintField("position_id", positions[0].ID),
		)
	}
	return &positions[0], nil
}

func (s *entryService) open(ctx context.Context, cmd dto.EntryCommand, series model.SeriesRef, opts ...utils.DBOption) (*dto.EntryResult, error) {
	position, err := s.stateMachine.Open(series, cmd.Quantity, cmd.UnitPrice, cmd.EntryDate)
	if err != nil {
		return nil, err
	}
	if err := s.repo.PositionRepo.Create(ctx, &position, opts...); err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}

	operation, err := s.createEntryOperation(ctx, position, cmd, opts...)
	if err != nil {
		return nil, err
	}
	lot := s.stateMachine.NewLot(position, operation.ID, cmd.Quantity, cmd.UnitPrice, cmd.EntryDate)
	if err := s.repo.EntryLotRepo.Create(ctx, &lot, opts...); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	if _, err := s.ledger.Create(ctx, position, operation, opts...); err != nil {
		return nil, err
	}

	return &dto.EntryResult{
		Position:  position,
		Lot:       lot,
		Operation: operation,
		Created:   true,
	}, nil
}

func (s *entryService) add(ctx context.Context, cmd dto.EntryCommand, position *model.Position, opts ...utils.DBOption) (*dto.EntryResult, error) {
	lots, err := s.repo.EntryLotRepo.GetByPosition(ctx, position.ID, opts...)
	if err != nil {
		return nil, fmt.Errorf("load lots of position %d: %w", position.ID, err)
	}
	if err := s.stateMachine.CheckInvariants(*position, lots); err != nil {
		return nil, err
	}
	ledger, err := s.ledger.Load(ctx, position.ID, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.stateMachine.ApplyEntry(position, lots, cmd.Quantity, cmd.UnitPrice); err != nil {
		return nil, err
	}

	operation, err := s.createEntryOperation(ctx, *position, cmd, opts...)
	if err != nil {
		return nil, err
	}
	lot := s.stateMachine.NewLot(*position, operation.ID, cmd.Quantity, cmd.UnitPrice, cmd.EntryDate)
	if err := s.repo.EntryLotRepo.Create(ctx, &lot, opts...); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	lots = append(lots, lot)

	if err := s.repo.PositionRepo.Save(ctx, position, opts...); err != nil {
		return nil, fmt.Errorf("save position %d: %w", position.ID, err)
	}

	if _, err := s.ledger.AddItem(ctx, ledger, operation, model.RoleNewEntry, opts...); err != nil {
		return nil, err
	}
	ce, err := s.ledger.UpsertConsolidatedEntry(ctx, ledger, *position, lots, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(ctx, ledger, *position, opts...); err != nil {
		return nil, err
	}

	return &dto.EntryResult{
		Position:          *position,
		Lot:               lot,
		Operation:         operation,
		ConsolidatedEntry: ce,
	}, nil
}

func (s *entryService) createEntryOperation(ctx context.Context, position model.Position, cmd dto.EntryCommand, opts ...utils.DBOption) (model.Operation, error) {
	operation := model.Operation{
		PositionID:       position.ID,
		AccountID:        position.AccountID,
		Broker:           position.Broker,
		OptionSeries:     position.OptionSeries,
		Kind:             model.OperationKindEntry,
		Direction:        position.Direction,
		Quantity:         cmd.Quantity,
		EntryPrice:       cmd.UnitPrice,
		EntryDate:        cmd.EntryDate,
		ProfitLoss:       decimal.Zero,
		ProfitPercentage: decimal.Zero,
		Visibility:       model.VisibilityVisible,
	}
	if err := s.repo.OperationRepo.Create(ctx, &operation, opts...); err != nil {
		return model.Operation{}, fmt.Errorf("create entry operation: %w", err)
	}
	return operation, nil
}
