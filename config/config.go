package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang-options/pkg/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log     Logger   `mapstructure:"logger"`
	DB      Database `mapstructure:"database"`
	API     API      `mapstructure:"api"`
	Cache   Cache    `mapstructure:"cache"`
	Engine  Engine   `mapstructure:"engine"`
	Redis   Redis    `mapstructure:"redis"`
	Tracing Tracing  `mapstructure:"tracing"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port      int     `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// Engine holds the knobs of the lot-consumption engine.
type Engine struct {
	DefaultStrategy  string        `mapstructure:"default_strategy"`
	TimeZone         string        `mapstructure:"timezone"`
	LockBackend      string        `mapstructure:"lock_backend"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	LockWait         time.Duration `mapstructure:"lock_wait"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Tracing struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.sqlite_path", "options.db")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.rate_limit", 10)
	viper.SetDefault("api.rate_burst", 30)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("engine.default_strategy", "AUTO")
	viper.SetDefault("engine.timezone", "America/Sao_Paulo")
	viper.SetDefault("engine.lock_backend", common.LOCK_BACKEND_MEMORY)
	viper.SetDefault("engine.lock_ttl", 30*time.Second)
	viper.SetDefault("engine.lock_wait", 10*time.Second)
	viper.SetDefault("engine.batch_concurrency", 4)
	viper.SetDefault("tracing.service_name", "golang-options")
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if _, err := time.LoadLocation(cfg.Engine.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid engine timezone %q: %w", cfg.Engine.TimeZone, err)
	}

	cfg.Engine.DefaultStrategy = strings.ToUpper(cfg.Engine.DefaultStrategy)
	switch cfg.Engine.DefaultStrategy {
	case "FIFO", "LIFO", "AUTO":
	default:
		return nil, fmt.Errorf("invalid engine default_strategy %q, expected FIFO, LIFO or AUTO", cfg.Engine.DefaultStrategy)
	}

	if !slices.Contains(common.GetLockBackendList(), cfg.Engine.LockBackend) {
		return nil, fmt.Errorf("invalid engine lock_backend %q, expected one of %v", cfg.Engine.LockBackend, common.GetLockBackendList())
	}

	return &cfg, nil
}

// MarketLocation returns the location used to decide calendar dates of trades.
func (e Engine) MarketLocation() *time.Location {
	loc, err := time.LoadLocation(e.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
