package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang-options/config"
	"golang-options/internal/dto"
	"golang-options/internal/repository"
	"golang-options/pkg/logger"
	"golang-options/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// BatchService applies a list of entries and exits. Commands on the same
// series run one after another in date order; different series run in
// parallel. A failing command does not stop the others.
type BatchService interface {
	Apply(ctx context.Context, commands []dto.BatchCommand) ([]dto.BatchOutcome, error)
}

type batchService struct {
	cfg   *config.Config
	log   *logger.Logger
	repo  *repository.Repository
	entry EntryService
	exit  ExitOrchestrator
}

func NewBatchService(cfg *config.Config, log *logger.Logger, repo *repository.Repository, entry EntryService, exit ExitOrchestrator) BatchService {
	return &batchService{
		cfg:   cfg,
		log:   log,
		repo:  repo,
		entry: entry,
		exit:  exit,
	}
}

type batchTask struct {
	index int
	date  time.Time
	cmd   dto.BatchCommand
}

func (s *batchService) Apply(ctx context.Context, commands []dto.BatchCommand) ([]dto.BatchOutcome, error) {
	outcomes := make([]dto.BatchOutcome, len(commands))
	groups := make(map[string][]batchTask)
	var keys []string

	for i, cmd := range commands {
		outcomes[i].Index = i
		key, date, err := s.keyOf(ctx, cmd)
		if err != nil {
			outcomes[i].Err = err
			outcomes[i].Error = err.Error()
			continue
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], batchTask{index: i, date: date, cmd: cmd})
	}

	limit := s.cfg.Engine.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, key := range keys {
		tasks := groups[key]
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].date.Before(tasks[j].date)
		})

		g.Go(func() error {
			for _, task := range tasks {
				if !utils.ShouldContinue(gCtx, s.log, logger.StringField("series", key), logger.IntField("index", task.index)) {
					return gCtx.Err()
				}
				// each task owns its slot in outcomes
				outcomes[task.index] = s.run(gCtx, task)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "Batch interrupted", logger.ErrorField(err), logger.IntField("total", len(commands)))
		return outcomes, err
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
		}
	}
	s.log.InfoContext(ctx, "Batch applied",
		logger.IntField("total", len(commands)),
		logger.IntField("series", len(keys)),
		logger.IntField("failed", failed),
	)
	return outcomes, nil
}

func (s *batchService) run(ctx context.Context, task batchTask) dto.BatchOutcome {
	outcome := dto.BatchOutcome{Index: task.index}
	var err error
	switch {
	case task.cmd.Entry != nil:
		outcome.Entry, err = s.entry.ApplyEntry(ctx, *task.cmd.Entry)
	case task.cmd.Exit != nil:
		outcome.Exit, err = s.exit.ApplyExit(ctx, *task.cmd.Exit)
	default:
		err = fmt.Errorf("batch item %d carries neither an entry nor an exit", task.index)
	}
	if err != nil {
		outcome.Err = err
		outcome.Error = err.Error()
	}
	return outcome
}

// keyOf returns the series key a command serializes on and the date it is
// ordered by.
func (s *batchService) keyOf(ctx context.Context, cmd dto.BatchCommand) (string, time.Time, error) {
	switch {
	case cmd.Entry != nil:
		if cmd.Entry.PositionID == 0 {
			return cmd.Entry.Series.Key(), cmd.Entry.EntryDate, nil
		}
		position, err := s.repo.PositionRepo.GetByID(ctx, cmd.Entry.PositionID)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("load position %d: %w", cmd.Entry.PositionID, err)
		}
		return position.SeriesRef().Key(), cmd.Entry.EntryDate, nil
	case cmd.Exit != nil:
		position, err := s.repo.PositionRepo.GetByID(ctx, cmd.Exit.PositionID)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("load position %d: %w", cmd.Exit.PositionID, err)
		}
		return position.SeriesRef().Key(), cmd.Exit.ExitDate, nil
	default:
		return "", time.Time{}, fmt.Errorf("batch item carries neither an entry nor an exit")
	}
}
