package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `user_id, created_at, updated_at, currency, available, held, frozen, frozen_reason`

type AccountRepository struct {
	conn uow.DBTX
}

func NewAccountRepository(conn uow.DBTX) *AccountRepository {
	return &AccountRepository{conn: conn}
}

func (a *AccountRepository) Create(ctx context.Context, userID int64, currency string) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx,
		`INSERT INTO accounts (user_id, currency) VALUES ($1, $2) RETURNING `+accountColumns,
		userID, currency,
	)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "creating account %d", userID)
	}
	return acc, nil
}

func (a *AccountRepository) Get(ctx context.Context, userID int64) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "getting account %d", userID)
	}
	return acc, nil
}

// Lock читает счет с блокировкой строки FOR UPDATE. Имеет смысл только внутри транзакции.
func (a *AccountRepository) Lock(ctx context.Context, userID int64) (*domain.Account, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID)
	acc, err := scanAccount(row)
	if err != nil {
		return nil, convertErr(err, "locking account %d", userID)
	}
	return acc, nil
}

func (a *AccountRepository) UpdateSnapshot(ctx context.Context, userID int64, balance domain.Balance) error {
	tag, err := a.conn.Exec(ctx,
		`UPDATE accounts SET available = $2, held = $3, updated_at = now() WHERE user_id = $1`,
		userID, int64(balance.Available), int64(balance.Held),
	)
	if err != nil {
		return convertErr(err, "updating account %d snapshot", userID)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "updating account %d snapshot", userID)
	}
	return nil
}

func (a *AccountRepository) SetFrozen(ctx context.Context, userID int64, frozen bool, reason string) error {
	if !frozen {
		reason = ""
	}
	tag, err := a.conn.Exec(ctx,
		`UPDATE accounts SET frozen = $2, frozen_reason = $3, updated_at = now() WHERE user_id = $1`,
		userID, frozen, reason,
	)
	if err != nil {
		return convertErr(err, "freezing account %d", userID)
	}
	if tag.RowsAffected() == 0 {
		return convertErr(pgx.ErrNoRows, "freezing account %d", userID)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc             domain.Account
		available, held int64
	)
	if err := row.Scan(
		&acc.UserID, &acc.CreatedAt, &acc.UpdatedAt, &acc.Currency, &available, &held, &acc.Frozen, &acc.FrozenReason,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	acc.Available = domain.Amount(available)
	acc.Held = domain.Amount(held)
	return &acc, nil
}
