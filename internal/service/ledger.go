package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang-options/internal/engine"
	"golang-options/internal/model"
	"golang-options/internal/repository"
	"golang-options/pkg/logger"
	"golang-options/pkg/utils"

	"github.com/shopspring/decimal"
)

// ConsolidationLedger owns every write to a position's group and items. Items
// are append-only; consolidated items are replaced by superseding them with a
// new item that points at a new trade record.
type ConsolidationLedger interface {
	Create(ctx context.Context, position model.Position, original model.Operation, opts ...utils.DBOption) (*model.GroupLedger, error)
	Load(ctx context.Context, positionID uint, opts ...utils.DBOption) (*model.GroupLedger, error)
	AddItem(ctx context.Context, ledger *model.GroupLedger, operation model.Operation, role model.ItemRole, opts ...utils.DBOption) (*model.GroupItem, error)
	UpsertConsolidatedEntry(ctx context.Context, ledger *model.GroupLedger, position model.Position, lots []model.EntryLot, opts ...utils.DBOption) (*model.Operation, error)
	UpsertConsolidatedResult(ctx context.Context, ledger *model.GroupLedger, position model.Position, records []model.ExitRecord, opts ...utils.DBOption) (*model.Operation, error)
	Save(ctx context.Context, ledger *model.GroupLedger, position model.Position, opts ...utils.DBOption) error
}

type consolidationLedger struct {
	log           *logger.Logger
	groupRepo     repository.GroupRepository
	operationRepo repository.OperationRepository
}

func NewConsolidationLedger(log *logger.Logger, groupRepo repository.GroupRepository, operationRepo repository.OperationRepository) ConsolidationLedger {
	return &consolidationLedger{
		log:           log,
		groupRepo:     groupRepo,
		operationRepo: operationRepo,
	}
}

// Create opens the group of a new position with its ORIGINAL item.
func (l *consolidationLedger) Create(ctx context.Context, position model.Position, original model.Operation, opts ...utils.DBOption) (*model.GroupLedger, error) {
	group := model.Group{
		PositionID:          position.ID,
		OriginalOperationID: original.ID,
		NextSequence:        1,
		DayTradeProfit:      decimal.Zero,
		SwingTradeProfit:    decimal.Zero,
	}
	engine.SyncGroup(&group, position)
	if err := l.groupRepo.Create(ctx, &group, opts...); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	ledger := &model.GroupLedger{Group: group}
	if _, err := l.AddItem(ctx, ledger, original, model.RoleOriginal, opts...); err != nil {
		return nil, err
	}
	if err := l.Save(ctx, ledger, position, opts...); err != nil {
		return nil, err
	}
	return ledger, nil
}

// Load returns the group of a position and fails on any structural violation.
func (l *consolidationLedger) Load(ctx context.Context, positionID uint, opts ...utils.DBOption) (*model.GroupLedger, error) {
	ledger, err := l.groupRepo.GetLedger(ctx, positionID, opts...)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, engine.InconsistentGroup(positionID, "position has no group")
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	if err := engine.ValidateLedger(positionID, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

// AddItem appends a fact item. Consolidated roles only enter through the upserts.
func (l *consolidationLedger) AddItem(ctx context.Context, ledger *model.GroupLedger, operation model.Operation, role model.ItemRole, opts ...utils.DBOption) (*model.GroupItem, error) {
	switch role {
	case model.RoleOriginal:
		if len(ledger.ItemsWithRole(model.RoleOriginal)) > 0 {
			return nil, engine.InconsistentGroup(ledger.Group.PositionID, "group already has an ORIGINAL item")
		}
	case model.RoleNewEntry, model.RolePartialExit, model.RoleTotalExit:
	case model.RoleConsolidatedEntry, model.RoleConsolidatedResult:
		return nil, fmt.Errorf("%w: %s items are written by the consolidation upserts", engine.ErrUnknownRole, role)
	default:
		return nil, fmt.Errorf("%w: %q", engine.ErrUnknownRole, role)
	}
	return l.appendItem(ctx, ledger, operation.ID, role, false, opts...)
}

func (l *consolidationLedger) appendItem(ctx context.Context, ledger *model.GroupLedger, operationID uint, role model.ItemRole, final bool, opts ...utils.DBOption) (*model.GroupItem, error) {
	item := model.GroupItem{
		GroupID:     ledger.Group.ID,
		OperationID: operationID,
		Role:        role,
		Sequence:    ledger.Group.NextSequence,
		Final:       final,
	}
	if err := l.groupRepo.CreateItem(ctx, &item, opts...); err != nil {
		return nil, fmt.Errorf("create %s item: %w", role, err)
	}
	ledger.Group.NextSequence++
	ledger.Items = append(ledger.Items, item)
	return &ledger.Items[len(ledger.Items)-1], nil
}

// supersede replaces the live item of role with a new item pointing at
// operation and hides the trade record of the old one.
func (l *consolidationLedger) supersede(ctx context.Context, ledger *model.GroupLedger, old *model.GroupItem, operation model.Operation, role model.ItemRole, final bool, opts ...utils.DBOption) error {
	var oldID, oldOperationID uint
	if old != nil {
		oldID, oldOperationID = old.ID, old.OperationID
	}

	item, err := l.appendItem(ctx, ledger, operation.ID, role, final, opts...)
	if err != nil {
		return err
	}
	if oldID == 0 {
		return nil
	}

	if err := l.groupRepo.Supersede(ctx, oldID, item.ID, opts...); err != nil {
		return fmt.Errorf("supersede %s item %d: %w", role, oldID, err)
	}
	if err := l.operationRepo.SetVisibility(ctx, []uint{oldOperationID}, model.VisibilityHidden, opts...); err != nil {
		return fmt.Errorf("hide superseded operation %d: %w", oldOperationID, err)
	}
	// appendItem may have moved the backing array, look the old item up again.
	newID := item.ID
	for i := range ledger.Items {
		if ledger.Items[i].ID == oldID {
			ledger.Items[i].Superseded = true
			ledger.Items[i].SupersededBy = &newID
		}
	}
	return nil
}

func (l *consolidationLedger) liveItem(ledger *model.GroupLedger, role model.ItemRole) (*model.GroupItem, error) {
	live := ledger.LiveItems(role)
	switch len(live) {
	case 0:
		return nil, nil
	case 1:
		return live[0], nil
	default:
		return nil, engine.InconsistentGroup(ledger.Group.PositionID, fmt.Sprintf("%d live %s items", len(live), role))
	}
}

// hideFacts hides the trade records behind the live fact items of the given roles.
func (l *consolidationLedger) hideFacts(ctx context.Context, ledger *model.GroupLedger, roles []model.ItemRole, opts ...utils.DBOption) error {
	var ids []uint
	for _, role := range roles {
		for _, item := range ledger.LiveItems(role) {
			ids = append(ids, item.OperationID)
		}
	}
	if err := l.operationRepo.SetVisibility(ctx, ids, model.VisibilityHidden, opts...); err != nil {
		return fmt.Errorf("hide superseded operations: %w", err)
	}
	return nil
}

// UpsertConsolidatedEntry makes the live CONSOLIDATED_ENTRY describe what is
// still open. Entry trade records are hidden behind it. A position that closes
// without ever having a consolidated entry does not get one; an existing one is
// replaced by a zero quantity HIDDEN record.
func (l *consolidationLedger) UpsertConsolidatedEntry(ctx context.Context, ledger *model.GroupLedger, position model.Position, lots []model.EntryLot, opts ...utils.DBOption) (*model.Operation, error) {
	ce := engine.ConsolidatedEntryFor(position, lots)
	visibility := model.VisibilityVisible
	if ce.Quantity == 0 {
		visibility = model.VisibilityHidden
	}

	if err := l.hideFacts(ctx, ledger, []model.ItemRole{model.RoleOriginal, model.RoleNewEntry}, opts...); err != nil {
		return nil, err
	}

	current, err := l.liveItem(ledger, model.RoleConsolidatedEntry)
	if err != nil {
		return nil, err
	}
	if current == nil && ce.Quantity == 0 {
		return nil, nil
	}
	if current != nil {
		existing, err := l.operationRepo.GetByID(ctx, current.OperationID, opts...)
		if err != nil {
			return nil, fmt.Errorf("load consolidated entry operation %d: %w", current.OperationID, err)
		}
		if existing.Quantity == ce.Quantity && existing.EntryPrice.Equal(ce.AveragePrice) && existing.Visibility == visibility {
			return existing, nil
		}
	}

	openValue := ce.Value
	details, err := json.Marshal(model.OperationDetails{OpenValue: &openValue})
	if err != nil {
		return nil, err
	}
	operation := model.Operation{
		PositionID:       position.ID,
		AccountID:        position.AccountID,
		Broker:           position.Broker,
		OptionSeries:     position.OptionSeries,
		Kind:             model.OperationKindConsolidatedEntry,
		Direction:        position.Direction,
		Quantity:         ce.Quantity,
		EntryPrice:       ce.AveragePrice,
		EntryDate:        ce.EntryDate,
		ProfitLoss:       decimal.Zero,
		ProfitPercentage: decimal.Zero,
		Visibility:       visibility,
		Details:          details,
	}
	if err := l.operationRepo.Create(ctx, &operation, opts...); err != nil {
		return nil, fmt.Errorf("create consolidated entry: %w", err)
	}
	if err := l.supersede(ctx, ledger, current, operation, model.RoleConsolidatedEntry, false, opts...); err != nil {
		return nil, err
	}

	l.log.DebugContext(ctx, "Consolidated entry updated",
		logger.UintField("position_id", position.ID),
		logger.Int64Field("quantity", ce.Quantity),
		logger.StringerField("average_price", ce.AveragePrice),
	)
	return &operation, nil
}

// UpsertConsolidatedResult makes the live CONSOLIDATED_RESULT describe every
// exit so far. Exit trade records are hidden behind it. The item written when
// the position is closed is tagged Final.
func (l *consolidationLedger) UpsertConsolidatedResult(ctx context.Context, ledger *model.GroupLedger, position model.Position, records []model.ExitRecord, opts ...utils.DBOption) (*model.Operation, error) {
	cr, err := engine.ConsolidatedResultFor(position, records)
	if err != nil {
		return nil, err
	}
	if cr.Quantity == 0 {
		return nil, nil
	}

	current, err := l.liveItem(ledger, model.RoleConsolidatedResult)
	if err != nil {
		return nil, err
	}
	if current != nil {
		existing, err := l.operationRepo.GetByID(ctx, current.OperationID, opts...)
		if err != nil {
			return nil, fmt.Errorf("load consolidated result operation %d: %w", current.OperationID, err)
		}
		if current.Final == cr.Final &&
			existing.Quantity == cr.Quantity &&
			existing.ProfitLoss.Equal(cr.ProfitLoss) &&
			existing.EntryPrice.Equal(cr.AverageEntryPrice) &&
			existing.ExitPrice.Valid && existing.ExitPrice.Decimal.Equal(cr.AverageExitPrice) {
			return existing, nil
		}
	}

	if err := l.hideFacts(ctx, ledger, []model.ItemRole{model.RolePartialExit, model.RoleTotalExit}, opts...); err != nil {
		return nil, err
	}

	dayProfit, swingProfit := cr.Day.ProfitLoss, cr.Swing.ProfitLoss
	details, err := json.Marshal(model.OperationDetails{
		DayTradeQuantity:   cr.Day.Quantity,
		DayTradeProfit:     &dayProfit,
		SwingTradeQuantity: cr.Swing.Quantity,
		SwingTradeProfit:   &swingProfit,
	})
	if err != nil {
		return nil, err
	}
	exitDate := cr.ExitDate
	operation := model.Operation{
		PositionID:       position.ID,
		AccountID:        position.AccountID,
		Broker:           position.Broker,
		OptionSeries:     position.OptionSeries,
		Kind:             model.OperationKindConsolidatedResult,
		Direction:        position.Direction,
		TradeType:        cr.TradeType,
		Quantity:         cr.Quantity,
		EntryPrice:       cr.AverageEntryPrice,
		ExitPrice:        decimal.NewNullDecimal(cr.AverageExitPrice),
		EntryDate:        cr.EntryDate,
		ExitDate:         &exitDate,
		ProfitLoss:       cr.ProfitLoss,
		ProfitPercentage: cr.Percentage,
		Visibility:       model.VisibilityVisible,
		Details:          details,
	}
	if err := l.operationRepo.Create(ctx, &operation, opts...); err != nil {
		return nil, fmt.Errorf("create consolidated result: %w", err)
	}
	if err := l.supersede(ctx, ledger, current, operation, model.RoleConsolidatedResult, cr.Final, opts...); err != nil {
		return nil, err
	}

	l.log.DebugContext(ctx, "Consolidated result updated",
		logger.UintField("position_id", position.ID),
		logger.Int64Field("quantity", cr.Quantity),
		logger.StringerField("profit_loss", cr.ProfitLoss),
		logger.Field("final", cr.Final),
	)
	return &operation, nil
}

// Save mirrors the position onto the group, checks the ledger invariants and
// writes the group row.
func (l *consolidationLedger) Save(ctx context.Context, ledger *model.GroupLedger, position model.Position, opts ...utils.DBOption) error {
	engine.SyncGroup(&ledger.Group, position)
	if err := engine.ValidateLedger(position.ID, ledger); err != nil {
		return err
	}
	if err := l.groupRepo.Save(ctx, &ledger.Group, opts...); err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	return nil
}
