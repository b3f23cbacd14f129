package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

// Ledger журнал операций счета. Баланс всегда вычисляется сверткой журнала.
type Ledger struct {
	repo LedgerRepository
}

func NewLedger(repo LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Append добавляет запись. Сумма должна быть положительной, тип записи известным.
func (l *Ledger) Append(ctx context.Context, args repoargs.LedgerEntryCreate) (*domain.LedgerEntry, error) {
	if args.Amount <= 0 {
		return nil, fmt.Errorf("append %s of %s: %w", args.Kind, args.Amount, domain.ErrInvalidAmount)
	}
	if !args.Kind.Valid() {
		return nil, fmt.Errorf("append %q: %w", args.Kind, domain.ErrInvalidEntryKind)
	}
	if args.Status == "" {
		args.Status = domain.EntryStatusCompleted
	}
	entry, err := l.repo.Append(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", args.Kind, err)
	}
	return entry, nil
}

// BalanceOf возвращает баланс счета по журналу.
func (l *Ledger) BalanceOf(ctx context.Context, accountID int64) (domain.Balance, error) {
	sums, err := l.repo.SumByKind(ctx, accountID)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("balance of account %d: %w", accountID, err)
	}
	return domain.BalanceFromSums(repoargs.Sums(sums)), nil
}
