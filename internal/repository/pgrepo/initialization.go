package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectMaxAttempts   uint = 30
	connectRetryInterval      = 3 * time.Second
)

// Connect подключается к postgres, повторяя попытки, пока база не станет доступна, и применяет миграции.
func Connect(ctx context.Context, migrationsDir, dsn string, l *logrus.Logger) (*pgxpool.Pool, error) {
	var attempts uint
	for {
		conn, connErr := newPostgresConnection(ctx, dsn)
		if connErr == nil {
			if err := postgresMigrate(migrationsDir, dsn); err != nil {
				conn.Close()
				return nil, err
			}
			return conn, nil
		}

		attempts++
		if attempts >= connectMaxAttempts {
			return nil, fmt.Errorf("init postgres connection after %d attempts: %w", attempts, connErr)
		}
		l.WithError(connErr).
			WithField("CurrentAttempt", fmt.Sprintf("#%d / %d", attempts, connectMaxAttempts)).
			Warnf("init postgres connection error, retrying in %.f seconds", connectRetryInterval.Seconds())

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("init postgres connection: %w", ctx.Err())
		case <-time.After(connectRetryInterval):
		}
	}
}

// Register регистрирует в unit of work все postgres репозитории.
func Register(u *uow.UnitOfWork) error {
	err := u.RegisterAll(map[uow.RepositoryName]uow.RepositoryFactory{
		uow.RepositoryName(repoargs.UserRepoName):    func(dbtx uow.DBTX) uow.Repository { return NewUserRepository(dbtx) },
		uow.RepositoryName(repoargs.AccountRepoName): func(dbtx uow.DBTX) uow.Repository { return NewAccountRepository(dbtx) },
		uow.RepositoryName(repoargs.LedgerRepoName):  func(dbtx uow.DBTX) uow.Repository { return NewLedgerRepository(dbtx) },
		uow.RepositoryName(repoargs.AuctionRepoName): func(dbtx uow.DBTX) uow.Repository { return NewAuctionRepository(dbtx) },
		uow.RepositoryName(repoargs.BidRepoName):     func(dbtx uow.DBTX) uow.Repository { return NewBidRepository(dbtx) },
		uow.RepositoryName(repoargs.TransitionRepoName): func(dbtx uow.DBTX) uow.Repository {
			return NewTransitionRepository(dbtx)
		},
	})
	if err != nil {
		return fmt.Errorf("register repositories: %w", err)
	}
	return nil
}

func newPostgresConnection(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, confErr := pgxpool.ParseConfig(dsn)
	if confErr != nil {
		return nil, fmt.Errorf("parse postgres config: %s", confErr.Error())
	}
	pool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if poolErr != nil {
		return nil, fmt.Errorf("failed to create pool: %s", poolErr.Error())
	}

	// Проверяем, что соединение работает (Ping)
	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %s", pingErr.Error())
	}

	return pool, nil
}

func postgresMigrate(dir string, dsn string) error {
	m, mErr := migrate.New("file://"+dir, dsn)
	if mErr != nil {
		return fmt.Errorf("failed to create migrate instance: %w", mErr)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
