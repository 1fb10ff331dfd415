package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang-options/config"
	"golang-options/internal/dto"
	"golang-options/internal/model"
	"golang-options/internal/repository"
	"golang-options/pkg/cache"
	"golang-options/pkg/database"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cfg   *config.Config
	repo  *repository.Repository
	cache cache.Cache
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewSQLiteMemory(name, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.AutoMigrate(db.DB))

	cfg := &config.Config{
		Cache: config.Cache{DefaultExpiration: time.Minute, CleanupInterval: time.Minute},
		Engine: config.Engine{
			DefaultStrategy:  string(model.StrategyFIFO),
			TimeZone:         "UTC",
			LockTTL:          5 * time.Second,
			LockWait:         5 * time.Second,
			BatchConcurrency: 2,
		},
	}
	repo := repository.NewRepository(db.DB)
	c := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)
	return &fixture{
		cfg:   cfg,
		repo:  repo,
		cache: c,
		svc:   NewService(cfg, logger.NewNop(), repo, c, keylock.NewMemoryLocker()),
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 10, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

var seriesA = model.SeriesRef{AccountID: "acc-1", Broker: "xp", OptionSeries: "PETRB250", Underlying: "PETR4", Direction: model.DirectionBuy}

func (f *fixture) enter(t *testing.T, series model.SeriesRef, qty int64, price string, date time.Time) *dto.EntryResult {
	t.Helper()
	res, err := f.svc.EntryService.ApplyEntry(context.Background(), dto.EntryCommand{
		Series:    series,
		Quantity:  qty,
		UnitPrice: d(price),
		EntryDate: date,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) exit(positionID uint, qty int64, price string, date time.Time, strategy model.Strategy) (*dto.ExitResult, error) {
	return f.svc.ExitOrchestrator.ApplyExit(context.Background(), dto.ExitCommand{
		PositionID: positionID,
		Quantity:   qty,
		ExitPrice:  d(price),
		ExitDate:   date,
		Strategy:   strategy,
	})
}

// snapshot is everything an exit may write for one position.
type snapshot struct {
	Position   *model.Position
	Lots       []model.EntryLot
	Records    []model.ExitRecord
	Operations []model.Operation
	Ledger     *model.GroupLedger
}

func (f *fixture) snapshot(t *testing.T, positionID uint) snapshot {
	t.Helper()
	ctx := context.Background()
	position, err := f.repo.PositionRepo.GetByID(ctx, positionID)
	require.NoError(t, err)
	lots, err := f.repo.EntryLotRepo.GetByPosition(ctx, positionID)
	require.NoError(t, err)
	records, err := f.repo.ExitRecordRepo.GetByPosition(ctx, positionID)
	require.NoError(t, err)
	ops, err := f.repo.OperationRepo.Get(ctx, model.GetOperationsParam{PositionID: positionID, IncludeHidden: true})
	require.NoError(t, err)
	ledger, err := f.repo.GroupRepo.GetLedger(ctx, positionID)
	require.NoError(t, err)
	return snapshot{Position: position, Lots: lots, Records: records, Operations: ops, Ledger: ledger}
}

func visibleKinds(ops []model.Operation) []model.OperationKind {
	var kinds []model.OperationKind
	for _, op := range ops {
		if !op.IsHidden() {
			kinds = append(kinds, op.Kind)
		}
	}
	return kinds
}
