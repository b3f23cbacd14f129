package repoargs

import (
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
)

type AuctionCreate struct {
	SellerID      int64
	Title         string
	Description   string
	Category      domain.CategoryType
	Condition     domain.ConditionType
	StartingPrice domain.Amount
	BuyNowPrice   domain.Amount
	StartTime     time.Time
	EndTime       time.Time
	Status        domain.AuctionStatusType
}

// AuctionFilter фильтр выдачи аукционов. Нулевые значения полей не ограничивают выборку.
type AuctionFilter struct {
	Statuses  []domain.AuctionStatusType
	SellerID  int64
	Category  domain.CategoryType
	Condition domain.ConditionType
	MinPrice  domain.Amount
	MaxPrice  domain.Amount
	Search    string
	MinBids   int
	// EndAfter и EndBefore ограничивают время окончания: EndAfter < end_time <= EndBefore.
	EndAfter  time.Time
	EndBefore time.Time
	Sort      domain.SortType
	Page
}

type BidCreate struct {
	AuctionID   int64
	BidderID    int64
	Amount      domain.Amount
	HoldEntryID int64
}

type TransitionCreate struct {
	AuctionID int64
	From      domain.AuctionStatusType
	To        domain.AuctionStatusType
	Reason    string
}

// AuctionStats сводка по аукционам для администратора.
type AuctionStats struct {
	ByStatus   map[domain.AuctionStatusType]int
	TotalBids  int
	SoldVolume domain.Amount
}
