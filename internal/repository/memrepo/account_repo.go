package memrepo

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
)

type AccountRepository struct {
	base
}

func (r *AccountRepository) Create(_ context.Context, userID int64, currency string) (*domain.Account, error) {
	var acc domain.Account
	err := r.write(func(d *data) error {
		if _, ok := d.accounts[userID]; ok {
			return errorf(domain.ErrDuplicateKey, "creating account %d", userID)
		}
		now := r.s.now()
		acc = domain.Account{UserID: userID, CreatedAt: now, UpdatedAt: now, Currency: currency}
		d.accounts[userID] = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepository) Get(_ context.Context, userID int64) (*domain.Account, error) {
	var acc domain.Account
	err := r.read(func(d *data) error {
		a, ok := d.accounts[userID]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "getting account %d", userID)
		}
		acc = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// Lock в памяти совпадает с Get: транзакции и так выполняются по очереди.
func (r *AccountRepository) Lock(ctx context.Context, userID int64) (*domain.Account, error) {
	return r.Get(ctx, userID)
}

func (r *AccountRepository) UpdateSnapshot(_ context.Context, userID int64, balance domain.Balance) error {
	return r.write(func(d *data) error {
		a, ok := d.accounts[userID]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "updating account %d snapshot", userID)
		}
		a.Available = balance.Available
		a.Held = balance.Held
		a.UpdatedAt = r.s.now()
		d.accounts[userID] = a
		return nil
	})
}

func (r *AccountRepository) SetFrozen(_ context.Context, userID int64, frozen bool, reason string) error {
	return r.write(func(d *data) error {
		a, ok := d.accounts[userID]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "freezing account %d", userID)
		}
		a.Frozen = frozen
		a.FrozenReason = reason
		if !frozen {
			a.FrozenReason = ""
		}
		a.UpdatedAt = r.s.now()
		d.accounts[userID] = a
		return nil
	})
}

// Corrupt перезаписывает закешированный баланс счета в обход журнала. Нужен для проверки обнаружения
// расхождений.
func (r *AccountRepository) Corrupt(userID int64, balance domain.Balance) {
	_ = r.write(func(d *data) error {
		a := d.accounts[userID]
		a.Available = balance.Available
		a.Held = balance.Held
		d.accounts[userID] = a
		return nil
	})
}
