package cmd

import (
	"context"
	"time"

	"golang-options/config"
	"golang-options/pkg/cache"
	"golang-options/pkg/common"
	"golang-options/pkg/database"
	"golang-options/pkg/keylock"
	"golang-options/pkg/logger"
	"golang-options/pkg/trace"
	"golang-options/pkg/validation"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type AppDependency struct {
	db        *database.DB
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	locker    keylock.Locker
	redis     *redis.Client
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	if err := trace.Init(cfg.Tracing); err != nil {
		log.Error("Failed to init tracing", zap.Error(err))
		return nil, err
	}

	db, err := database.NewDB(cfg.DB, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	dep := &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: validation.New(),
		db:        db,
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
	}

	switch cfg.Engine.LockBackend {
	case common.LOCK_BACKEND_REDIS:
		rdb, err := keylock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("Failed to connect to redis", zap.Error(err))
			_ = db.Close()
			return nil, err
		}
		dep.redis = rdb
		dep.locker = keylock.NewRedisLocker(rdb)
	default:
		dep.locker = keylock.NewMemoryLocker()
	}
	log.Info("Position lock backend ready", zap.String("backend", cfg.Engine.LockBackend))

	return dep, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := trace.Shutdown(ctx); err != nil {
		d.log.Warn("Failed to flush traces", zap.Error(err))
	}

	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.log.Warn("Failed to close redis", zap.Error(err))
		}
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
