package uow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

type RepositoryName string
type Repository any
type RepositoryFactory func(DBTX) Repository

// UnitOfWork открывает транзакции pgx и раздает в них зарегистрированные репозитории.
type UnitOfWork struct {
	conn         *pgxpool.Pool
	repositories map[RepositoryName]RepositoryFactory
	txOptions    pgx.TxOptions
}

func NewUnitOfWork(conn *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		conn:         conn,
		repositories: make(map[RepositoryName]RepositoryFactory),
		txOptions:    pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// SetIsoLevel задает уровень изоляции транзакций, открываемых в Do.
func (u *UnitOfWork) SetIsoLevel(level pgx.TxIsoLevel) *UnitOfWork {
	u.txOptions.IsoLevel = level
	return u
}

// RegisterAll регистрирует набор репозиториев в порядке имен. При первом занятом имени возвращает
// RepositoryError с ErrRepositoryAlreadyRegistered, уже добавленные репозитории остаются.
func (u *UnitOfWork) RegisterAll(factories map[RepositoryName]RepositoryFactory) error {
	names := make([]RepositoryName, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if _, ok := u.repositories[name]; ok {
			return &RepositoryError{Name: name, Err: ErrRepositoryAlreadyRegistered}
		}
		u.repositories[name] = factories[name]
	}
	return nil
}

// Do выполняет fn в транзакции и фиксирует ее, если fn вернула nil. Сбой сериализации или взаимная
// блокировка при фиксации возвращаются как ErrTxConflict.
func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, TX) error) (err error) {
	tx, err := u.conn.BeginTx(ctx, u.txOptions)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// откат без ctx запроса: отмена запроса не должна оставлять транзакцию открытой
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(ctx, NewTransaction(tx, u.repositories)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return commitErr(err)
	}
	return nil
}

func commitErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode) {
		return fmt.Errorf("commit: %w: %w", ErrTxConflict, err)
	}
	return fmt.Errorf("commit: %w", err)
}

// GetRepository возвращает репозиторий, работающий вне транзакции на пуле соединений.
func (u *UnitOfWork) GetRepository(name RepositoryName) (Repository, error) {
	factory, ok := u.repositories[name]
	if !ok {
		return nil, NotRegistered(name)
	}
	return factory(u.conn), nil
}

// GetRepositoryAs возвращает репозиторий name вне транзакции, приведенный к типу T.
func GetRepositoryAs[T any](u UOW, name RepositoryName) (T, error) {
	var zero T
	repo, err := u.GetRepository(name)
	if err != nil {
		return zero, err //nolint:wrapcheck
	}
	typed, ok := repo.(T)
	if !ok {
		return zero, &RepositoryError{Name: name, Err: ErrInvalidRepositoryType}
	}
	return typed, nil
}
