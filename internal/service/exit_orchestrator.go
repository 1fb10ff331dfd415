package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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

// ExitOrchestrator is the applyExit entry point.
type ExitOrchestrator interface {
	ApplyExit(ctx context.Context, cmd dto.ExitCommand) (*dto.ExitResult, error)
}

type exitOrchestrator struct {
	cfg          *config.Config
	log          *logger.Logger
	repo         *repository.Repository
	ledger       ConsolidationLedger
	consumption  engine.ConsumptionEngine
	stateMachine engine.PositionStateMachine
	locker       keylock.Locker
	cache        cache.Cache
}

func NewExitOrchestrator(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	ledger ConsolidationLedger,
	consumption engine.ConsumptionEngine,
	stateMachine engine.PositionStateMachine,
	locker keylock.Locker,
	inmemoryCache cache.Cache,
) ExitOrchestrator {
	return &exitOrchestrator{
		cfg:          cfg,
		log:          log,
		repo:         repo,
		ledger:       ledger,
		consumption:  consumption,
		stateMachine: stateMachine,
		locker:       locker,
		cache:        inmemoryCache,
	}
}

func (s *exitOrchestrator) ApplyExit(ctx context.Context, cmd dto.ExitCommand) (result *dto.ExitResult, err error) {
	ctx, span := trace.StartSpan(ctx, "position.apply_exit",
		attribute.Int64("position_id", int64(cmd.PositionID)),
		attribute.Int64("quantity", cmd.Quantity),
	)
	defer func() { trace.End(span, err) }()

	strategy := cmd.Strategy
	if strategy == "" {
		strategy = model.Strategy(s.cfg.Engine.DefaultStrategy)
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownStrategy, strategy)
	}

	// The series key is what entries lock on too, so entries and exits of one
	// position are serialized against each other.
	position, err := s.repo.PositionRepo.GetByID(ctx, cmd.PositionID)
	if err != nil {
		return nil, fmt.Errorf("load position %d: %w", cmd.PositionID, err)
	}
	release, err := acquire(ctx, s.locker, s.cfg.Engine, position.SeriesRef().Key())
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.repo.UnitOfWork.Run(ctx, func(opts ...utils.DBOption) error {
		var txErr error
		result, txErr = s.exit(ctx, cmd, strategy, opts...)
		return txErr
	})
	if err != nil {
		s.log.WarnContext(ctx, "Exit rejected",
			logger.UintField("position_id", cmd.PositionID),
			logger.Int64Field("quantity", cmd.Quantity),
			logger.StringField("strategy", string(strategy)),
			logger.ErrorField(err),
		)
		return nil, err
	}

	invalidateSummary(s.cache, cmd.PositionID)
	s.log.InfoContext(ctx, "Exit applied",
		logger.UintField("position_id", cmd.PositionID),
		logger.Int64Field("quantity", cmd.Quantity),
		logger.StringField("scenario", result.Scenario),
		logger.StringField("status", string(result.Position.Status)),
		logger.Int64Field("remaining", result.Position.RemainingQuantity),
	)
	return result, nil
}

func (s *exitOrchestrator) exit(ctx context.Context, cmd dto.ExitCommand, strategy model.Strategy, opts ...utils.DBOption) (*dto.ExitResult, error) {
	// 1. load and validate under lock
	position, err := s.repo.PositionRepo.GetByID(ctx, cmd.PositionID, append(opts, utils.WithLockForUpdate())...)
	if err != nil {
		return nil, fmt.Errorf("load position %d: %w", cmd.PositionID, err)
	}
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

	// 2. plan and price the consumption without touching anything
	plan, err := s.consumption.Plan(*position, lots, cmd.Quantity, cmd.ExitDate, strategy)
	if err != nil {
		return nil, err
	}
	consumed, err := s.consumption.Execute(plan, cmd.ExitPrice)
	if err != nil {
		return nil, err
	}
	scenario := engine.ClassifyScenario(plan, position.RemainingQuantity)
	role := engine.ExitRole(position.RemainingQuantity - cmd.Quantity)
	s.log.DebugContext(ctx, "Exit planned",
		logger.UintField("position_id", position.ID),
		logger.StringField("scenario", string(scenario)),
		logger.StringField("role", string(role)),
		logger.Field("plan", plan),
	)

	// 3. trade records and their exit records
	operations, err := s.createExitOperations(ctx, *position, consumed, scenario, opts...)
	if err != nil {
		return nil, err
	}
	records := exitRecordsFor(*position, consumed, operations)
	if err := s.repo.ExitRecordRepo.CreateBatch(ctx, records, opts...); err != nil {
		return nil, fmt.Errorf("create exit records: %w", err)
	}

	// 4. lot decrements, only now that the records captured the consumption
	changed, err := s.consumption.Apply(consumed, lots)
	if err != nil {
		return nil, err
	}
	for i := range changed {
		if err := s.repo.EntryLotRepo.Save(ctx, &changed[i], opts...); err != nil {
			return nil, fmt.Errorf("save lot %d: %w", changed[i].ID, err)
		}
	}
	lots = mergeLots(lots, changed)

	// 5. position
	if err := s.stateMachine.ApplyExit(position, lots, cmd.Quantity, consumed.Total.ProfitLoss, consumed.Total.CostBasis, cmd.ExitDate); err != nil {
		return nil, err
	}
	if err := s.repo.PositionRepo.Save(ctx, position, opts...); err != nil {
		return nil, fmt.Errorf("save position %d: %w", position.ID, err)
	}

	// 6. ledger
	for _, op := range operations {
		if _, err := s.ledger.AddItem(ctx, ledger, op, role, opts...); err != nil {
			return nil, err
		}
	}
	engine.AccumulateTradeTypes(&ledger.Group, consumed)
	ce, err := s.ledger.UpsertConsolidatedEntry(ctx, ledger, *position, lots, opts...)
	if err != nil {
		return nil, err
	}
	allRecords, err := s.repo.ExitRecordRepo.GetByPosition(ctx, position.ID, opts...)
	if err != nil {
		return nil, fmt.Errorf("load exit records of position %d: %w", position.ID, err)
	}
	cr, err := s.ledger.UpsertConsolidatedResult(ctx, ledger, *position, allRecords, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Save(ctx, ledger, *position, opts...); err != nil {
		return nil, err
	}

	return &dto.ExitResult{
		Position:           *position,
		Scenario:           string(scenario),
		Role:               role,
		Operations:         operations,
		ConsolidatedEntry:  ce,
		ConsolidatedResult: cr,
	}, nil
}

// createExitOperations writes one trade record per trade type present: two for
// a complex exit, one otherwise.
func (s *exitOrchestrator) createExitOperations(ctx context.Context, position model.Position, consumed engine.Result, scenario engine.Scenario, opts ...utils.DBOption) ([]model.Operation, error) {
	tradeTypes := consumed.Plan.TradeTypes()
	operations := make([]model.Operation, 0, len(tradeTypes))
	for _, tradeType := range tradeTypes {
		totals, err := consumed.Totals(tradeType)
		if err != nil {
			return nil, err
		}
		slices := consumed.SlicesOf(tradeType)

		details := model.OperationDetails{Scenario: string(scenario)}
		entryDate := slices[0].EntryDate
		for _, slice := range slices {
			if slice.EntryDate.Before(entryDate) {
				entryDate = slice.EntryDate
			}
			details.Slices = append(details.Slices, model.SliceDetail{
				EntryLotID: slice.LotID,
				Quantity:   slice.Quantity,
				EntryPrice: slice.UnitPrice,
				EntryDate:  slice.EntryDate,
				ProfitLoss: slice.ProfitLoss,
				Percentage: slice.Percentage,
				TradeType:  slice.TradeType,
			})
		}
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, err
		}

		exitDate := consumed.Plan.ExitDate
		op := model.Operation{
			PositionID:       position.ID,
			AccountID:        position.AccountID,
			Broker:           position.Broker,
			OptionSeries:     position.OptionSeries,
			Kind:             model.OperationKindExit,
			Direction:        position.Direction,
			TradeType:        tradeType,
			Quantity:         totals.Quantity,
			EntryPrice:       totals.AverageEntryPrice(),
			ExitPrice:        decimal.NewNullDecimal(consumed.ExitPrice),
			EntryDate:        entryDate,
			ExitDate:         &exitDate,
			ProfitLoss:       totals.ProfitLoss,
			ProfitPercentage: totals.Percentage(),
			Visibility:       model.VisibilityVisible,
			Details:          raw,
		}
		if err := s.repo.OperationRepo.Create(ctx, &op, opts...); err != nil {
			return nil, fmt.Errorf("create %s exit operation: %w", tradeType, err)
		}
		operations = append(operations, op)
	}
	return operations, nil
}

func exitRecordsFor(position model.Position, consumed engine.Result, operations []model.Operation) []model.ExitRecord {
	opByType := make(map[model.TradeType]uint, len(operations))
	for _, op := range operations {
		opByType[op.TradeType] = op.ID
	}
	records := make([]model.ExitRecord, 0, len(consumed.Slices))
	for _, slice := range consumed.Slices {
		records = append(records, model.ExitRecord{
			PositionID:  position.ID,
			EntryLotID:  slice.LotID,
			OperationID: opByType[slice.TradeType],
			Quantity:    slice.Quantity,
			EntryPrice:  slice.UnitPrice,
			ExitPrice:   slice.ExitPrice,
			ExitDate:    consumed.Plan.ExitDate,
			TradeType:   slice.TradeType,
			ProfitLoss:  slice.ProfitLoss,
			Percentage:  slice.Percentage,
		})
	}
	return records
}

// mergeLots overlays changed lots on lots by ID.
func mergeLots(lots, changed []model.EntryLot) []model.EntryLot {
	byID := make(map[uint]model.EntryLot, len(changed))
	for _, lot := range changed {
		byID[lot.ID] = lot
	}
	out := make([]model.EntryLot, len(lots))
	for i, lot := range lots {
		if c, ok := byID[lot.ID]; ok {
			lot = c
		}
		out[i] = lot
	}
	return out
}

// acquire takes the series lock, waiting at most LockWait.
func acquire(ctx context.Context, locker keylock.Locker, cfg config.Engine, key string) (func(), error) {
	wait := cfg.LockWait
	if wait <= 0 {
		wait = 10 * time.Second
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	release, err := locker.Acquire(lockCtx, key, cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return release, nil
}
