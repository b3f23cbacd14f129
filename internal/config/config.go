package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	RunAddress    string   `env:"RUN_ADDRESS"`
	Storage       string   `env:"STORAGE"`
	DatabaseDSN   string   `env:"DATABASE_URI"`
	MigrationsDir string   `env:"MIGRATIONS_DIR"`
	RedisAddress  string   `env:"REDIS_ADDRESS"`
	JWTSecret     string   `env:"JWT_SECRET"`
	AdminUsers    []string `env:"ADMIN_USERNAMES" envSeparator:","`

	Currency string `env:"CURRENCY"`
	// MinIncrement минимальный шаг ставки в минимальных единицах валюты.
	MinIncrement        int64   `env:"MIN_INCREMENT"`
	MinIncrementPercent float64 `env:"MIN_INCREMENT_PERCENT"`

	OperationTimeout time.Duration `env:"OPERATION_TIMEOUT"`
	BidRetries       int           `env:"BID_RETRIES"`
	PayoutAttempts   int           `env:"PAYOUT_ATTEMPTS"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`
	SweepWorkers  uint          `env:"SWEEP_WORKERS"`
	SweepBatch    uint          `env:"SWEEP_BATCH"`

	RateLimit  int64         `env:"RATE_LIMIT"`
	RateWindow time.Duration `env:"RATE_WINDOW"`

	// LogLevel уровень logrus. Пустое значение оставляет уровень по режиму gin.
	LogLevel string `env:"LOG_LEVEL"`
}

// LoadConfig собирает конфигурацию из флагов args и переменных окружения. Переменные окружения
// приоритетнее флагов. Если в рабочей директории есть .env, он загружается первым и не перезаписывает
// уже заданные переменные.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}

	var conf Config
	if flagsErr := loadFlags(&conf, args); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %s", flagsErr.Error())
	}

	// env.Parse не трогает поля, для которых переменная не задана, поэтому значения флагов остаются.
	if envParseErr := env.Parse(&conf); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(conf *Config, args []string) error {
	flags := flag.NewFlagSet("auction", flag.ContinueOnError)

	var admins string
	flags.StringVar(&conf.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flags.StringVar(&conf.Storage, "s", StoragePostgres, "Storage backend: postgres or memory")
	flags.StringVar(&conf.DatabaseDSN, "d", "", "Database DSN")
	flags.StringVar(&conf.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flags.StringVar(&conf.RedisAddress, "r", "", "Redis address for notifications and rate limiting")
	flags.StringVar(&conf.JWTSecret, "j", "", "JWT signing secret")
	flags.StringVar(&admins, "admins", "", "Comma separated usernames that get the admin role")

	flags.StringVar(&conf.Currency, "currency", "USD", "Account currency")
	flags.Int64Var(&conf.MinIncrement, "min-increment", 100, "Minimum bid increment in minor units") //nolint:mnd
	flags.Float64Var(&conf.MinIncrementPercent, "min-increment-percent", 0, "Minimum bid increment in percent")

	flags.DurationVar(&conf.OperationTimeout, "op-timeout", 5*time.Second, "Wallet and bid operation timeout")
	flags.IntVar(&conf.BidRetries, "bid-retries", 3, "Retries on concurrent auction updates")             //nolint:mnd
	flags.IntVar(&conf.PayoutAttempts, "payout-attempts", 5, "Failed payouts before the buyer is refunded") //nolint:mnd

	flags.DurationVar(&conf.SweepInterval, "sweep-interval", 5*time.Second, "Pause between lifecycle sweeps")
	flags.UintVar(&conf.SweepWorkers, "sweep-workers", 5, "Lifecycle sweep workers")                       //nolint:mnd
	flags.UintVar(&conf.SweepBatch, "sweep-batch", 50, "Auctions advanced per sweep iteration")            //nolint:mnd

	flags.Int64Var(&conf.RateLimit, "rate-limit", 120, "Requests per client per window, 0 disables") //nolint:mnd
	flags.DurationVar(&conf.RateWindow, "rate-window", time.Minute, "Rate limit window")
	flags.StringVar(&conf.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	if err := flags.Parse(args); err != nil {
		return err //nolint:wrapcheck
	}
	conf.AdminUsers = splitList(admins)
	return nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return errors.New("database DSN is not set")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is not set")
	}
	if c.MinIncrement < 0 || c.MinIncrementPercent < 0 {
		return errors.New("bid increment must not be negative")
	}
	if c.RateLimit > 0 && c.RateWindow <= 0 {
		return errors.New("rate window must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
