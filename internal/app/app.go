package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-auction/internal/config"
	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/lifecycle"
	"github.com/fsdevblog/groph-auction/internal/notify"
	"github.com/fsdevblog/groph-auction/internal/repository/memrepo"
	"github.com/fsdevblog/groph-auction/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/fsdevblog/groph-auction/internal/transport/api"
	"github.com/fsdevblog/groph-auction/internal/transport/api/middlewares"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const (
	shutdownTimeout   = 10 * time.Second
	redisPingTimeout  = 3 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// Run поднимает хранилище, сервисы, http сервер и планировщик аукционов. Возвращает nil после
// штатной остановки по SIGINT/SIGTERM.
func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithFields(logrus.Fields{
		"address": a.Config.RunAddress,
		"storage": a.Config.Storage,
		"redis":   a.Config.RedisAddress != "",
	}).Info("starting app")

	unitOfWork, closeStorage, storageErr := a.initStorage(notifyCtx)
	if storageErr != nil {
		return fmt.Errorf("app run: %s", storageErr.Error())
	}
	defer closeStorage()

	publisher, counter, closeRedis, redisErr := a.initRedis(notifyCtx)
	if redisErr != nil {
		return fmt.Errorf("app run: %s", redisErr.Error())
	}
	defer closeRedis()

	services, sErr := service.Factory(unitOfWork, a.serviceOptions(), publisher, a.Logger)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router, rErr := api.New(api.RouterArgs{
		Logger:         a.Logger,
		UserService:    services.UserService,
		WalletService:  services.WalletService,
		AuctionService: services.AuctionService,
		JWTSecretKey:   []byte(a.Config.JWTSecret),
		RateCounter:    counter,
		RateLimit:      a.Config.RateLimit,
		RateWindow:     a.Config.RateWindow,
	})
	if rErr != nil {
		return fmt.Errorf("app run: %s", rErr.Error())
	}

	server := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	sweeper := lifecycle.New(services.AuctionService, a.Logger).
		SetWorkers(a.Config.SweepWorkers).
		SetLimitPerIteration(a.Config.SweepBatch).
		SetInterval(a.Config.SweepInterval)

	g, gCtx := errgroup.WithContext(notifyCtx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweeper.Run(gCtx)
		return nil
	})

	return g.Wait() //nolint:wrapcheck
}

func (a *App) serviceOptions() service.Options {
	return service.Options{
		Currency: a.Config.Currency,
		Increment: domain.IncrementPolicy{
			Fixed:   domain.Amount(a.Config.MinIncrement),
			Percent: decimal.NewFromFloat(a.Config.MinIncrementPercent),
		},
		OperationTimeout: a.Config.OperationTimeout,
		BidRetries:       a.Config.BidRetries,
		PayoutAttempts:   a.Config.PayoutAttempts,
		AdminUsernames:   a.Config.AdminUsers,
		JWTSecret:        []byte(a.Config.JWTSecret),
		TokenExpire:      service.JWTTokenExpire,
	}
}

// initStorage открывает выбранное хранилище. Возвращаемая функция освобождает его ресурсы.
func (a *App) initStorage(ctx context.Context) (uow.UOW, func(), error) {
	if a.Config.Storage == config.StorageMemory {
		a.Logger.Warn("using in-memory storage, data is lost on restart")
		return memrepo.New(), func() {}, nil
	}

	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return nil, nil, fmt.Errorf("init storage: %w", connErr)
	}

	unitOfWork := uow.NewUnitOfWork(conn)
	if regErr := pgrepo.Register(unitOfWork); regErr != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init storage: %w", regErr)
	}
	return unitOfWork, conn.Close, nil
}

// initRedis подключает redis для очереди уведомлений и счетчика запросов. Без адреса redis
// уведомления пишутся в лог, а лимит запросов считается в памяти процесса.
func (a *App) initRedis(
	ctx context.Context,
) (service.EventPublisher, middlewares.Counter, func(), error) {
	if a.Config.RedisAddress == "" {
		return notify.NewLogDispatcher(a.Logger), middlewares.NewMemoryCounter(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddress})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("init redis: %w", err)
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			a.Logger.WithError(err).Error("close redis")
		}
	}
	return notify.NewRedisDispatcher(rdb, notify.DefaultQueue), middlewares.NewRedisCounter(rdb), closeFn, nil
}
