package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/sirupsen/logrus"
)

// WalletService кошельки пользователей поверх журнала операций.
type WalletService struct {
	uow         uow.UOW
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	opts        Options
	l           *logrus.Entry
}

func NewWalletService(u uow.UOW, opts Options, l *logrus.Logger) (*WalletService, error) {
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	ledgerRepo, err := uow.GetRepositoryAs[LedgerRepository](u, uow.RepositoryName(repoargs.LedgerRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &WalletService{
		uow:         u,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		opts:        opts.withDefaults(),
		l:           l.WithField("component", "wallet"),
	}, nil
}

type UserBalance struct {
	AccountID int64
	Currency  string
	Available domain.Amount
	Held      domain.Amount
	Frozen    bool
}

// WalletOpArgs аргументы операции с кошельком. Непустой IdempotencyKey делает операцию идемпотентной
// в пределах счета: повтор возвращает уже созданную запись.
type WalletOpArgs struct {
	AccountID      int64
	Amount         domain.Amount
	AuctionID      *int64
	IdempotencyKey string
	Description    string
}

// GetBalance возвращает баланс, посчитанный по журналу.
func (w *WalletService) GetBalance(ctx context.Context, accountID int64) (*UserBalance, error) {
	acc, err := w.accountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	bal, err := NewLedger(w.ledgerRepo).BalanceOf(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return newUserBalance(acc, bal), nil
}

// Deposit зачисляет средства на счет. Ключ клиента хранится в собственном пространстве имен и не
// пересекается с системными ключами аукционов.
func (w *WalletService) Deposit(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	args.IdempotencyKey = callerKey(args.IdempotencyKey)
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Deposit(c, args)
	})
}

// Withdraw списывает средства со счета. Вывод во внешнюю систему не моделируется, поэтому запись сразу
// получает статус completed.
func (w *WalletService) Withdraw(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	args.IdempotencyKey = callerKey(args.IdempotencyKey)
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Withdraw(c, args)
	})
}

// Hold блокирует средства под ставку.
func (w *WalletService) Hold(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Hold(c, args)
	})
}

// Release снимает блокировку holdID, возвращая средства в доступные.
func (w *WalletService) Release(ctx context.Context, holdID int64, idempotencyKey string) (*domain.LedgerEntry, error) {
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Release(c, holdID, idempotencyKey)
	})
}

// Capture окончательно списывает заблокированные средства.
func (w *WalletService) Capture(ctx context.Context, holdID int64, idempotencyKey string) (*domain.LedgerEntry, error) {
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Capture(c, holdID, idempotencyKey)
	})
}

// Refund возвращает списанные средства компенсирующей записью.
func (w *WalletService) Refund(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Refund(c, args)
	})
}

// Payout зачисляет продавцу выручку.
func (w *WalletService) Payout(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return w.run(ctx, func(c context.Context, wtx *WalletTx) (*domain.LedgerEntry, error) {
		return wtx.Payout(c, args)
	})
}

// MaxIdempotencyKeyLen максимальная длина ключа идемпотентности, переданного клиентом.
const MaxIdempotencyKeyLen = 200

// callerKey переводит ключ клиента в пространство "user:". Пустой ключ остается пустым.
func callerKey(key string) string {
	if key == "" {
		return ""
	}
	return "user:" + key
}

type TransactionsArgs struct {
	AccountID int64
	Kind      domain.EntryKindType
	Limit     uint
	Offset    uint
}

// Transactions возвращает историю операций счета от новых к старым и общее количество записей.
func (w *WalletService) Transactions(ctx context.Context, args TransactionsArgs) ([]domain.LedgerEntry, int, error) {
	if args.Kind != "" && !args.Kind.Valid() {
		return nil, 0, fmt.Errorf("transactions: %w", domain.ErrInvalidEntryKind)
	}
	if _, err := w.accountRepo.Get(ctx, args.AccountID); err != nil {
		return nil, 0, fmt.Errorf("transactions: %w", err)
	}
	entries, total, err := w.ledgerRepo.List(ctx, args.AccountID, repoargs.LedgerFilter{
		Kind: args.Kind,
		Page: repoargs.Page{Limit: pageLimit(args.Limit), Offset: args.Offset},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("transactions: %w", err)
	}
	return entries, total, nil
}

// Reconcile пересчитывает кеш баланса по журналу и размораживает счет. Доступно только администратору.
func (w *WalletService) Reconcile(ctx context.Context, who domain.Identity, accountID int64) (*UserBalance, error) {
	if !who.CanAdministrate() {
		return nil, fmt.Errorf("reconcile: %w", domain.ErrForbidden)
	}
	var res *UserBalance
	err := w.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		wtx, err := w.Tx(tx)
		if err != nil {
			return err
		}
		acc, err := wtx.accounts.Lock(c, accountID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		bal, err := wtx.ledger.BalanceOf(c, accountID)
		if err != nil {
			return err
		}
		if err = wtx.accounts.UpdateSnapshot(c, accountID, bal); err != nil {
			return err //nolint:wrapcheck
		}
		if err = wtx.accounts.SetFrozen(c, accountID, false, ""); err != nil {
			return err //nolint:wrapcheck
		}
		acc.Frozen = false
		res = newUserBalance(acc, bal)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile account %d: %w", accountID, err)
	}
	w.l.WithField("accountID", accountID).Info("account reconciled")
	return res, nil
}

// Tx возвращает операции с кошельками в рамках транзакции tx.
func (w *WalletService) Tx(tx uow.TX) (*WalletTx, error) {
	accounts, err := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	ledgerRepo, err := uow.GetAs[LedgerRepository](tx, uow.RepositoryName(repoargs.LedgerRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &WalletTx{accounts: accounts, ledger: NewLedger(ledgerRepo)}, nil
}

// FreezeOnViolation замораживает счет, если err сообщает о расхождении кеша с журналом. Заморозка
// выполняется отдельной транзакцией: транзакция, обнаружившая расхождение, к этому моменту откатилась.
func (w *WalletService) FreezeOnViolation(ctx context.Context, err error) {
	var violation *domain.InvariantViolationError
	if !errors.As(err, &violation) {
		return
	}
	l := w.l.WithFields(logrus.Fields{
		"accountID":       violation.AccountID,
		"cachedAvailable": violation.Cached.Available.String(),
		"cachedHeld":      violation.Cached.Held.String(),
		"ledgerAvailable": violation.Folded.Available.String(),
		"ledgerHeld":      violation.Folded.Held.String(),
	})
	l.Error("ledger invariant violated, freezing account")

	freezeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.OperationTimeout)
	defer cancel()
	if freezeErr := w.accountRepo.SetFrozen(freezeCtx, violation.AccountID, true, violation.Error()); freezeErr != nil {
		l.WithError(freezeErr).Error("freeze account")
	}
}

func (w *WalletService) run(
	ctx context.Context,
	fn func(context.Context, *WalletTx) (*domain.LedgerEntry, error),
) (*domain.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.OperationTimeout)
	defer cancel()

	var entry *domain.LedgerEntry
	err := w.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		wtx, err := w.Tx(tx)
		if err != nil {
			return err
		}
		entry, err = fn(c, wtx)
		return err
	})
	if err != nil {
		w.FreezeOnViolation(ctx, err)
		return nil, asConflict(err)
	}
	return entry, nil
}

func newUserBalance(acc *domain.Account, bal domain.Balance) *UserBalance {
	return &UserBalance{
		AccountID: acc.UserID,
		Currency:  acc.Currency,
		Available: bal.Available,
		Held:      bal.Held,
		Frozen:    acc.Frozen,
	}
}

// WalletTx операции с кошельками внутри открытой транзакции. Каждая запись блокирует строку счета,
// сверяет кеш баланса с журналом, добавляет запись и обновляет кеш.
type WalletTx struct {
	accounts AccountRepository
	ledger   *Ledger
}

// LockInOrder блокирует счета в порядке возрастания id, чтобы параллельные транзакции над одними и
// теми же счетами не ждали друг друга по кругу.
func (t *WalletTx) LockInOrder(ctx context.Context, accountIDs ...int64) error {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		if _, err := t.accounts.Lock(ctx, id); err != nil {
			return fmt.Errorf("lock account %d: %w", id, err)
		}
	}
	return nil
}

func (t *WalletTx) Deposit(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return t.credit(ctx, domain.EntryKindDeposit, args)
}

func (t *WalletTx) Refund(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return t.credit(ctx, domain.EntryKindRefund, args)
}

func (t *WalletTx) Payout(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return t.credit(ctx, domain.EntryKindPayout, args)
}

func (t *WalletTx) Withdraw(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return t.debit(ctx, domain.EntryKindWithdrawal, args)
}

func (t *WalletTx) Hold(ctx context.Context, args WalletOpArgs) (*domain.LedgerEntry, error) {
	return t.debit(ctx, domain.EntryKindHold, args)
}

func (t *WalletTx) Release(ctx context.Context, holdID int64, idempotencyKey string) (*domain.LedgerEntry, error) {
	return t.settleHold(ctx, domain.EntryKindRelease, holdID, idempotencyKey)
}

func (t *WalletTx) Capture(ctx context.Context, holdID int64, idempotencyKey string) (*domain.LedgerEntry, error) {
	return t.settleHold(ctx, domain.EntryKindCapture, holdID, idempotencyKey)
}

// FindByKey ищет запись счета по ключу идемпотентности. Возвращает nil, если записи нет.
func (t *WalletTx) FindByKey(ctx context.Context, accountID int64, key string) (*domain.LedgerEntry, error) {
	entry, err := t.ledger.repo.FindByIdempotencyKey(ctx, accountID, key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find entry by key: %w", err)
	}
	return entry, nil
}

// OpenHolds возвращает незакрытые блокировки по аукциону.
func (t *WalletTx) OpenHolds(ctx context.Context, auctionID int64) ([]domain.LedgerEntry, error) {
	holds, err := t.ledger.repo.ListOpenHolds(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("open holds of auction %d: %w", auctionID, err)
	}
	return holds, nil
}

func (t *WalletTx) credit(ctx context.Context, kind domain.EntryKindType, args WalletOpArgs) (*domain.LedgerEntry, error) {
	if args.Amount <= 0 {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrInvalidAmount)
	}
	return t.write(ctx, args.AccountID, kind, args.IdempotencyKey, func(domain.Balance) (repoargs.LedgerEntryCreate, error) {
		return entryArgs(kind, args), nil
	})
}

func (t *WalletTx) debit(ctx context.Context, kind domain.EntryKindType, args WalletOpArgs) (*domain.LedgerEntry, error) {
	if args.Amount <= 0 {
		return nil, fmt.Errorf("%s: %w", kind, domain.ErrInvalidAmount)
	}
	return t.write(ctx, args.AccountID, kind, args.IdempotencyKey, func(bal domain.Balance) (repoargs.LedgerEntryCreate, error) {
		if args.Amount > bal.Available {
			return repoargs.LedgerEntryCreate{}, fmt.Errorf(
				"%s of %s with %s available: %w", kind, args.Amount, bal.Available, domain.ErrInsufficientFunds,
			)
		}
		return entryArgs(kind, args), nil
	})
}

func (t *WalletTx) settleHold(
	ctx context.Context,
	kind domain.EntryKindType,
	holdID int64,
	idempotencyKey string,
) (*domain.LedgerEntry, error) {
	hold, err := t.ledger.repo.GetByID(ctx, holdID)
	if err != nil {
		return nil, fmt.Errorf("%s hold %d: %w", kind, holdID, err)
	}
	if hold.Kind != domain.EntryKindHold {
		return nil, fmt.Errorf("%s entry %d: %w", kind, holdID, domain.ErrNotAHold)
	}

	return t.write(ctx, hold.AccountID, kind, idempotencyKey, func(domain.Balance) (repoargs.LedgerEntryCreate, error) {
		settlements, findErr := t.ledger.repo.FindSettlements(ctx, holdID)
		if findErr != nil {
			return repoargs.LedgerEntryCreate{}, fmt.Errorf("%s hold %d: %w", kind, holdID, findErr)
		}
		for _, s := range settlements {
			if s.Status == domain.EntryStatusFailed {
				continue
			}
			if s.Kind == domain.EntryKindCapture {
				return repoargs.LedgerEntryCreate{}, fmt.Errorf("%s hold %d: %w", kind, holdID, domain.ErrAlreadyCaptured)
			}
			return repoargs.LedgerEntryCreate{}, fmt.Errorf("%s hold %d: %w", kind, holdID, domain.ErrAlreadyReleased)
		}
		return repoargs.LedgerEntryCreate{
			AccountID:      hold.AccountID,
			Kind:           kind,
			Status:         domain.EntryStatusCompleted,
			Amount:         hold.Amount,
			AuctionID:      hold.AuctionID,
			RelatedEntryID: &hold.ID,
			Description:    fmt.Sprintf("%s of hold #%d", kind, hold.ID),
		}, nil
	})
}

// write общий путь записи в журнал счета accountID.
func (t *WalletTx) write(
	ctx context.Context,
	accountID int64,
	kind domain.EntryKindType,
	idempotencyKey string,
	build func(bal domain.Balance) (repoargs.LedgerEntryCreate, error),
) (*domain.LedgerEntry, error) {
	acc, err := t.accounts.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: lock account %d: %w", kind, accountID, err)
	}

	if idempotencyKey != "" {
		existing, findErr := t.FindByKey(ctx, accountID, idempotencyKey)
		if findErr != nil {
			return nil, findErr
		}
		if existing != nil {
			if existing.Kind != kind {
				return nil, fmt.Errorf(
					"%s: idempotency key %q already used for %s: %w", kind, idempotencyKey, existing.Kind, domain.ErrDuplicateKey,
				)
			}
			return existing, nil
		}
	}

	if acc.Frozen {
		return nil, fmt.Errorf("%s: account %d: %w", kind, accountID, domain.ErrAccountFrozen)
	}

	bal, err := t.ledger.BalanceOf(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if bal != acc.Snapshot() {
		return nil, &domain.InvariantViolationError{AccountID: accountID, Cached: acc.Snapshot(), Folded: bal}
	}

	args, err := build(bal)
	if err != nil {
		return nil, err
	}
	args.IdempotencyKey = idempotencyKey

	entry, err := t.ledger.Append(ctx, args)
	if err != nil {
		return nil, err
	}

	next := bal.Apply(*entry)
	if !next.Valid() {
		return nil, &domain.InvariantViolationError{AccountID: accountID, Cached: bal, Folded: next}
	}
	if err = t.accounts.UpdateSnapshot(ctx, accountID, next); err != nil {
		return nil, fmt.Errorf("%s: update account %d snapshot: %w", kind, accountID, err)
	}
	return entry, nil
}

func entryArgs(kind domain.EntryKindType, args WalletOpArgs) repoargs.LedgerEntryCreate {
	return repoargs.LedgerEntryCreate{
		AccountID:   args.AccountID,
		Kind:        kind,
		Status:      domain.EntryStatusCompleted,
		Amount:      args.Amount,
		AuctionID:   args.AuctionID,
		Description: args.Description,
	}
}
