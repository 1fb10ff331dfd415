package service

import (
	"golang-options/config"
	"golang-options/internal/engine"
	"golang-options/internal/repository"
	"golang-options/pkg/cache"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"
)

type Service struct {
	EntryService     EntryService
	ExitOrchestrator ExitOrchestrator
	PositionQuery    PositionQueryService
	BatchService     BatchService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	locker keylock.Locker,
) *Service {
	resolver := engine.NewTradeTypeResolver(cfg.Engine.MarketLocation())
	consumption := engine.NewConsumptionEngine(engine.NewLotSelector(resolver))
	stateMachine := engine.NewPositionStateMachine()
	ledger := NewConsolidationLedger(log, repo.GroupRepo, repo.OperationRepo)

	entryService := NewEntryService(cfg, log, repo, ledger, stateMachine, locker, inmemoryCache)
	exitOrchestrator := NewExitOrchestrator(cfg, log, repo, ledger, consumption, stateMachine, locker, inmemoryCache)
	return &Service{
		EntryService:     entryService,
		ExitOrchestrator: exitOrchestrator,
		PositionQuery:    NewPositionQueryService(cfg, log, repo, stateMachine, inmemoryCache),
		BatchService:     NewBatchService(cfg, log, repo, entryService, exitOrchestrator),
	}
}
