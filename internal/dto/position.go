package dto

import (
	"fmt"
	"time"

	"golang-options/internal/model"
	"golang-options/pkg/utils"

	"github.com/shopspring/decimal"
)

// EntryCommand is the applyEntry input. PositionID, when set, targets that
// position; otherwise Series selects the open position of the series or
// creates one.
type EntryCommand struct {
	PositionID uint            `json:"position_id"`
	Series     model.SeriesRef `json:"series"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	EntryDate  time.Time       `json:"entry_date"`
}

// ExitCommand is the applyExit input. An empty Strategy uses the configured default.
type ExitCommand struct {
	PositionID uint            `json:"position_id"`
	Quantity   int64           `json:"quantity"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	ExitDate   time.Time       `json:"exit_date"`
	Strategy   model.Strategy  `json:"strategy,omitempty"`
}

type EntryResult struct {
	Position          model.Position   `json:"position"`
	Lot               model.EntryLot   `json:"lot"`
	Operation         model.Operation  `json:"operation"`
	ConsolidatedEntry *model.Operation `json:"consolidated_entry,omitempty"`
	Created           bool             `json:"created"`
}

type ExitResult struct {
	Position           model.Position    `json:"position"`
	Scenario           string            `json:"scenario"`
	Role               model.ItemRole    `json:"role"`
	Operations         []model.Operation `json:"operations"`
	ConsolidatedEntry  *model.Operation  `json:"consolidated_entry,omitempty"`
	ConsolidatedResult *model.Operation  `json:"consolidated_result,omitempty"`
}

// EntryRequest is the HTTP body of POST /entries.
type EntryRequest struct {
	PositionID   uint            `json:"position_id"`
	AccountID    string          `json:"account_id" validate:"required_without=PositionID"`
	Broker       string          `json:"broker" validate:"required_without=PositionID"`
	OptionSeries string          `json:"option_series" validate:"required_without=PositionID"`
	Underlying   string          `json:"underlying"`
	Direction    model.Direction `json:"direction" validate:"required_without=PositionID,omitempty,oneof=BUY SELL"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"dgt0"`
	EntryDate    string          `json:"entry_date" validate:"required"`
}

func (r EntryRequest) ToCommand(loc *time.Location) (EntryCommand, error) {
	date, err := utils.ParseTradeDate(r.EntryDate, loc)
	if err != nil {
		return EntryCommand{}, err
	}
	return EntryCommand{
		PositionID: r.PositionID,
		Series: model.SeriesRef{
			AccountID:    r.AccountID,
			Broker:       r.Broker,
			OptionSeries: r.OptionSeries,
			Underlying:   r.Underlying,
			Direction:    r.Direction,
		},
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		EntryDate: date,
	}, nil
}

// ExitRequest is the HTTP body of POST /positions/:id/exits.
type ExitRequest struct {
	Quantity  int64           `json:"quantity" validate:"gt=0"`
	ExitPrice decimal.Decimal `json:"exit_price" validate:"dgte0"`
	ExitDate  string          `json:"exit_date" validate:"required"`
	Strategy  model.Strategy  `json:"strategy" validate:"omitempty,oneof=FIFO LIFO AUTO"`
}

func (r ExitRequest) ToCommand(positionID uint, loc *time.Location) (ExitCommand, error) {
	date, err := utils.ParseTradeDate(r.ExitDate, loc)
	if err != nil {
		return ExitCommand{}, err
	}
	return ExitCommand{
		PositionID: positionID,
		Quantity:   r.Quantity,
		ExitPrice:  r.ExitPrice,
		ExitDate:   date,
		Strategy:   r.Strategy,
	}, nil
}

// PositionSummary is the cached read model of one position.
type PositionSummary struct {
	Position model.Position   `json:"position"`
	LiveLots []model.EntryLot `json:"live_lots"`
	Group    model.Group      `json:"group"`
}

const (
	BatchKindEntry = "ENTRY"
	BatchKindExit  = "EXIT"
)

// BatchItem carries either an entry or an exit.
type BatchItem struct {
	Kind  string        `json:"kind" validate:"oneof=ENTRY EXIT"`
	Entry *EntryRequest `json:"entry,omitempty" validate:"required_if=Kind ENTRY,omitempty"`
	Exit  *BatchExit    `json:"exit,omitempty" validate:"required_if=Kind EXIT,omitempty"`
}

type BatchExit struct {
	PositionID uint `json:"position_id" validate:"required"`
	ExitRequest
}

type BatchRequest struct {
	Items []BatchItem `json:"items" validate:"required,min=1,dive"`
}

// BatchCommand is one resolved batch item; exactly one of Entry and Exit is set.
type BatchCommand struct {
	Entry *EntryCommand
	Exit  *ExitCommand
}

func (i BatchItem) ToCommand(loc *time.Location) (BatchCommand, error) {
	switch i.Kind {
	case BatchKindEntry:
		if i.Entry == nil {
			return BatchCommand{}, fmt.Errorf("entry payload missing")
		}
		cmd, err := i.Entry.ToCommand(loc)
		if err != nil {
			return BatchCommand{}, err
		}
		return BatchCommand{Entry: &cmd}, nil
	case BatchKindExit:
		if i.Exit == nil {
			return BatchCommand{}, fmt.Errorf("exit payload missing")
		}
		cmd, err := i.Exit.ExitRequest.ToCommand(i.Exit.PositionID, loc)
		if err != nil {
			return BatchCommand{}, err
		}
		return BatchCommand{Exit: &cmd}, nil
	default:
		return BatchCommand{}, fmt.Errorf("unknown batch item kind %q", i.Kind)
	}
}

// BatchOutcome reports one batch item, in request order.
type BatchOutcome struct {
	Index int          `json:"index"`
	Entry *EntryResult `json:"entry,omitempty"`
	Exit  *ExitResult  `json:"exit,omitempty"`
	Error string       `json:"error,omitempty"`
	Err   error        `json:"-"`
}
