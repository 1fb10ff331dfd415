package service

import (
	"context"
	"fmt"

	"golang-options/config"
	"golang-options/internal/dto"
	"golang-options/internal/engine"
	"golang-options/internal/model"
	"golang-options/internal/repository"
	"golang-options/pkg/cache"
	"golang-options/pkg/common"
	"golang-options/pkg/logger"
)

func summaryCacheKey(positionID uint) string {
	return fmt.Sprintf(common.KEY_POSITION_SUMMARY, positionID)
}

func invalidateSummary(c cache.Cache, positionID uint) {
	if c == nil {
		return
	}
	c.Delete(summaryCacheKey(positionID))
}

// PositionQueryService is the read side: summaries, trade records, the group
// ledger and an integrity check.
type PositionQueryService interface {
	Summary(ctx context.Context, positionID uint) (*dto.PositionSummary, error)
	Operations(ctx context.Context, positionID uint, includeHidden bool) ([]model.Operation, error)
	Ledger(ctx context.Context, positionID uint) (*model.GroupLedger, error)
	Verify(ctx context.Context, positionID uint) error
}

type positionQueryService struct {
	cfg          *config.Config
	log          *logger.Logger
	repo         *repository.Repository
	stateMachine engine.PositionStateMachine
	cache        cache.Cache
}

func NewPositionQueryService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	stateMachine engine.PositionStateMachine,
	inmemoryCache cache.Cache,
) PositionQueryService {
	return &positionQueryService{
		cfg:          cfg,
		log:          log,
		repo:         repo,
		stateMachine: stateMachine,
		cache:        inmemoryCache,
	}
}

func (s *positionQueryService) Summary(ctx context.Context, positionID uint) (*dto.PositionSummary, error) {
	return cache.GetOrLoad(s.cache, summaryCacheKey(positionID), s.cfg.Cache.DefaultExpiration, func() (*dto.PositionSummary, error) {
		return s.loadSummary(ctx, positionID)
	})
}

func (s *positionQueryService) loadSummary(ctx context.Context, positionID uint) (*dto.PositionSummary, error) {
	position, err := s.repo.PositionRepo.GetByID(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("load position %d: %w", positionID, err)
	}
	lots, err := s.repo.EntryLotRepo.GetByPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("load lots of position %d: %w", positionID, err)
	}
	ledger, err := s.repo.GroupRepo.GetLedger(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("load group of position %d: %w", positionID, err)
	}

	summary := &dto.PositionSummary{
		Position: *position,
		LiveLots: []model.EntryLot{},
		Group:    ledger.Group,
	}
	for _, lot := range lots {
		if lot.IsLive() {
			summary.LiveLots = append(summary.LiveLots, lot)
		}
	}
	s.log.DebugContext(ctx, "Position summary loaded", logger.UintField("position_id", positionID))
	return summary, nil
}

func (s *positionQueryService) Operations(ctx context.Context, positionID uint, includeHidden bool) ([]model.Operation, error) {
	if _, err := s.repo.PositionRepo.GetByID(ctx, positionID); err != nil {
		return nil, fmt.Errorf("load position %d: %w", positionID, err)
	}
	operations, err := s.repo.OperationRepo.Get(ctx, model.GetOperationsParam{
		PositionID:    positionID,
		IncludeHidden: includeHidden,
	})
	if err != nil {
		return nil, fmt.Errorf("load operations of position %d: %w", positionID, err)
	}
	return operations, nil
}

func (s *positionQueryService) Ledger(ctx context.Context, positionID uint) (*model.GroupLedger, error) {
	ledger, err := s.repo.GroupRepo.GetLedger(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("load group of position %d: %w", positionID, err)
	}
	return ledger, nil
}

// Verify re-derives everything the ledger materializes and compares it with
// what is stored. The first violation is returned.
func (s *positionQueryService) Verify(ctx context.Context, positionID uint) error {
	position, err := s.repo.PositionRepo.GetByID(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load position %d: %w", positionID, err)
	}
	lots, err := s.repo.EntryLotRepo.GetByPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load lots of position %d: %w", positionID, err)
	}
	if err := s.stateMachine.CheckInvariants(*position, lots); err != nil {
		return err
	}

	ledger, err := s.repo.GroupRepo.GetLedger(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load group of position %d: %w", positionID, err)
	}
	if err := engine.ValidateLedger(positionID, ledger); err != nil {
		return err
	}

	group := ledger.Group
	if group.Status != position.Status ||
		group.TotalQuantity != position.TotalQuantity ||
		group.RemainingQuantity != position.RemainingQuantity ||
		group.ClosedQuantity != position.TotalQuantity-position.RemainingQuantity ||
		!group.RealizedProfit.Equal(position.RealizedProfit) {
		return engine.InconsistentGroup(positionID, "group does not mirror the position")
	}

	records, err := s.repo.ExitRecordRepo.GetByPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("load exit records of position %d: %w", positionID, err)
	}
	cr, err := engine.ConsolidatedResultFor(*position, records)
	if err != nil {
		return err
	}
	if group.DayTradeQuantity != cr.Day.Quantity || group.SwingTradeQuantity != cr.Swing.Quantity ||
		!group.DayTradeProfit.Equal(cr.Day.ProfitLoss) || !group.SwingTradeProfit.Equal(cr.Swing.ProfitLoss) {
		return engine.InconsistentGroup(positionID, "day/swing totals do not match the exit records")
	}

	if live := ledger.LiveItems(model.RoleConsolidatedResult); len(live) == 1 {
		operation, err := s.repo.OperationRepo.GetByID(ctx, live[0].OperationID)
		if err != nil {
			return fmt.Errorf("load consolidated result %d: %w", live[0].OperationID, err)
		}
		if operation.Quantity != cr.Quantity || !operation.ProfitLoss.Equal(cr.ProfitLoss) {
			return engine.InconsistentGroup(positionID, "consolidated result is stale")
		}
	}
	if live := ledger.LiveItems(model.RoleConsolidatedEntry); len(live) == 1 {
		operation, err := s.repo.OperationRepo.GetByID(ctx, live[0].OperationID)
		if err != nil {
			return fmt.Errorf("load consolidated entry %d: %w", live[0].OperationID, err)
		}
		if operation.Quantity != position.RemainingQuantity {
			return engine.InconsistentGroup(positionID, "consolidated entry is stale")
		}
	}

	s.log.DebugContext(ctx, "Position verified", logger.UintField("position_id", positionID))
	return nil
}
