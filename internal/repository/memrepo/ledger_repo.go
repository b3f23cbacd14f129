package memrepo

import (
	"context"
	"slices"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

type LedgerRepository struct {
	base
}

// Append добавляет запись в журнал. Повтор ключа идемпотентности в пределах счета возвращает
// domain.ErrDuplicateKey.
func (r *LedgerRepository) Append(_ context.Context, args repoargs.LedgerEntryCreate) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := r.write(func(d *data) error {
		if _, ok := d.accounts[args.AccountID]; !ok {
			return errorf(domain.ErrRecordNotFound, "appending entry to account %d", args.AccountID)
		}
		if args.IdempotencyKey != "" {
			for _, e := range d.entries {
				if e.AccountID == args.AccountID && e.IdempotencyKey == args.IdempotencyKey {
					return errorf(domain.ErrDuplicateKey, "appending entry with key %s", args.IdempotencyKey)
				}
			}
		}
		row := entryRow{
			ID:             int64(len(d.entries)) + 1,
			CreatedAt:      r.s.now(),
			AccountID:      args.AccountID,
			Kind:           args.Kind,
			Status:         args.Status,
			Amount:         args.Amount,
			AuctionID:      ptr(args.AuctionID),
			RelatedEntryID: ptr(args.RelatedEntryID),
			IdempotencyKey: args.IdempotencyKey,
			Description:    args.Description,
		}
		d.entries = append(d.entries, row)
		entry = copyEntry(row)
		return nil
	})
	return entry, err
}

func (r *LedgerRepository) GetByID(_ context.Context, id int64) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := r.read(func(d *data) error {
		if id < 1 || id > int64(len(d.entries)) {
			return errorf(domain.ErrRecordNotFound, "getting ledger entry %d", id)
		}
		entry = copyEntry(d.entries[id-1])
		return nil
	})
	return entry, err
}

func (r *LedgerRepository) FindByIdempotencyKey(
	_ context.Context,
	accountID int64,
	key string,
) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := r.read(func(d *data) error {
		for _, e := range d.entries {
			if e.AccountID == accountID && e.IdempotencyKey == key {
				entry = copyEntry(e)
				return nil
			}
		}
		return errorf(domain.ErrRecordNotFound, "finding entry by key %s", key)
	})
	return entry, err
}

func (r *LedgerRepository) FindSettlements(_ context.Context, holdID int64) ([]domain.LedgerEntry, error) {
	var res []domain.LedgerEntry
	err := r.read(func(d *data) error {
		for _, e := range d.entries {
			if e.RelatedEntryID != nil && *e.RelatedEntryID == holdID &&
				(e.Kind == domain.EntryKindRelease || e.Kind == domain.EntryKindCapture) {
				res = append(res, *copyEntry(e))
			}
		}
		return nil
	})
	return res, err
}

func (r *LedgerRepository) SumByKind(_ context.Context, accountID int64) ([]repoargs.KindSum, error) {
	sums := make(map[domain.EntryKindType]domain.Amount)
	err := r.read(func(d *data) error {
		for _, e := range d.entries {
			if e.AccountID == accountID && e.Status != domain.EntryStatusFailed {
				sums[e.Kind] += e.Amount
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res := make([]repoargs.KindSum, 0, len(sums))
	for kind, sum := range sums {
		res = append(res, repoargs.KindSum{Kind: kind, Sum: sum})
	}
	return res, nil
}

// List возвращает страницу записей счета от новых к старым и общее количество записей под фильтр.
func (r *LedgerRepository) List(
	_ context.Context,
	accountID int64,
	filter repoargs.LedgerFilter,
) ([]domain.LedgerEntry, int, error) {
	var matched []domain.LedgerEntry
	err := r.read(func(d *data) error {
		for _, e := range slices.Backward(d.entries) {
			if e.AccountID != accountID || (filter.Kind != "" && e.Kind != filter.Kind) {
				continue
			}
			matched = append(matched, *copyEntry(e))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return paginate(matched, filter.Page), len(matched), nil
}

func (r *LedgerRepository) ListOpenHolds(_ context.Context, auctionID int64) ([]domain.LedgerEntry, error) {
	var res []domain.LedgerEntry
	err := r.read(func(d *data) error {
		closed := make(map[int64]struct{})
		for _, e := range d.entries {
			if e.RelatedEntryID != nil && (e.Kind == domain.EntryKindRelease || e.Kind == domain.EntryKindCapture) {
				closed[*e.RelatedEntryID] = struct{}{}
			}
		}
		for _, e := range d.entries {
			if e.Kind != domain.EntryKindHold || e.AuctionID == nil || *e.AuctionID != auctionID ||
				e.Status == domain.EntryStatusFailed {
				continue
			}
			if _, ok := closed[e.ID]; !ok {
				res = append(res, *copyEntry(e))
			}
		}
		return nil
	})
	return res, err
}

func paginate[T any](items []T, page repoargs.Page) []T {
	if page.Offset >= uint(len(items)) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < uint(len(items)) {
		items = items[:page.Limit]
	}
	return items
}
