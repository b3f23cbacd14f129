package domain

import (
	"time"
)

type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string
	Email     string
	Password  string
	Role      RoleType
}

// Account кошелек пользователя. Available и Held это кеш последнего известного баланса,
// источником истины он не является: баланс всегда вычисляется из журнала.
type Account struct {
	UserID       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Currency     string
	Available    Amount
	Held         Amount
	Frozen       bool
	FrozenReason string
}

// Snapshot возвращает закешированный баланс счета.
func (a Account) Snapshot() Balance {
	return Balance{Available: a.Available, Held: a.Held}
}

type LedgerEntry struct {
	ID             int64
	CreatedAt      time.Time
	AccountID      int64
	Kind           EntryKindType
	Status         EntryStatusType
	Amount         Amount
	AuctionID      *int64
	RelatedEntryID *int64
	IdempotencyKey string
	Description    string
}

type Auction struct {
	ID              int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SellerID        int64
	Title           string
	Description     string
	Category        CategoryType
	Condition       ConditionType
	StartingPrice   Amount
	CurrentPrice    Amount
	BuyNowPrice     Amount
	StartTime       time.Time
	EndTime         time.Time
	Status          AuctionStatusType
	StatusChangedAt time.Time
	BidCount        int
	WinningBidID    *int64
	Version         int64
	Settlement      SettlementType
	PayoutAttempts  int
	SettledAt       *time.Time
}

// Bid принятая ставка. Отклоненные ставки не сохраняются.
type Bid struct {
	ID          int64
	CreatedAt   time.Time
	AuctionID   int64
	BidderID    int64
	Amount      Amount
	HoldEntryID int64
}

type AuctionTransition struct {
	ID        int64
	CreatedAt time.Time
	AuctionID int64
	From      AuctionStatusType
	To        AuctionStatusType
	Reason    string
}
