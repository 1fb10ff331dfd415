package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-options/internal/delivery/http"
	"golang-options/internal/repository"
	"golang-options/internal/service"
	"golang-options/pkg/database"
	"golang-options/pkg/logger"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the golang-options HTTP API",
	RunE:  Start,
}

func Start(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		return fmt.Errorf("create app dependency: %w", err)
	}
	defer func() {
		if err := appDep.Close(); err != nil {
			appDep.log.Error("Failed to close app dependency", logger.ErrorField(err))
		}
	}()

	// sqlite has no migration files; its schema comes from the models
	if appDep.db.Driver == database.DriverSQLite {
		if err := repository.AutoMigrate(appDep.db.DB); err != nil {
			return fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}

	services := service.NewService(
		appDep.cfg,
		appDep.log,
		repository.NewRepository(appDep.db.DB),
		appDep.cache,
		appDep.locker,
	)
	handler := http.NewHttpAPIHandler(ctx, appDep.echo, appDep.validator, services, appDep.log, appDep.cfg.Engine.MarketLocation())
	apiServer := NewHTTPServer(appDep, handler)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		appDep.log.Info("Shutting down gracefully")
	}
	return apiServer.Stop()
}
