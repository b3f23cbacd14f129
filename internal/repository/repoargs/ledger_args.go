package repoargs

import "github.com/fsdevblog/groph-auction/internal/domain"

type LedgerEntryCreate struct {
	AccountID      int64
	Kind           domain.EntryKindType
	Status         domain.EntryStatusType
	Amount         domain.Amount
	AuctionID      *int64
	RelatedEntryID *int64
	IdempotencyKey string
	Description    string
}

// LedgerFilter фильтр истории операций. Пустой Kind означает все типы.
type LedgerFilter struct {
	Kind domain.EntryKindType
	Page
}

// KindSum сумма записей одного типа без учета записей со статусом failed.
type KindSum struct {
	Kind domain.EntryKindType
	Sum  domain.Amount
}

// Sums переводит агрегаты в карту для domain.BalanceFromSums.
func Sums(rows []KindSum) map[domain.EntryKindType]domain.Amount {
	res := make(map[domain.EntryKindType]domain.Amount, len(rows))
	for _, r := range rows {
		res[r.Kind] += r.Sum
	}
	return res
}
