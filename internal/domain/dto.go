package domain

type AuctionStatusType string

const (
	AuctionStatusScheduled AuctionStatusType = "scheduled"
	AuctionStatusActive    AuctionStatusType = "active"
	AuctionStatusEnded     AuctionStatusType = "ended"
	AuctionStatusSold      AuctionStatusType = "sold"
	AuctionStatusCancelled AuctionStatusType = "cancelled"
)

type EntryKindType string

const (
	EntryKindDeposit    EntryKindType = "deposit"
	EntryKindWithdrawal EntryKindType = "withdrawal"
	EntryKindHold       EntryKindType = "hold"
	EntryKindRelease    EntryKindType = "release"
	EntryKindCapture    EntryKindType = "capture"
	EntryKindRefund     EntryKindType = "refund"
	EntryKindPayout     EntryKindType = "payout"
)

// Valid сообщает, известен ли тип записи журнала.
func (k EntryKindType) Valid() bool {
	switch k {
	case EntryKindDeposit, EntryKindWithdrawal, EntryKindHold, EntryKindRelease,
		EntryKindCapture, EntryKindRefund, EntryKindPayout:
		return true
	}
	return false
}

type EntryStatusType string

const (
	EntryStatusPending   EntryStatusType = "pending"
	EntryStatusCompleted EntryStatusType = "completed"
	EntryStatusFailed    EntryStatusType = "failed"
)

type SettlementType string

const (
	SettlementNone     SettlementType = "none"
	SettlementPending  SettlementType = "pending"
	SettlementPaid     SettlementType = "paid"
	SettlementReversed SettlementType = "reversed"
)

type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

type CategoryType string

const (
	CategoryElectronics CategoryType = "electronics"
	CategoryFashion     CategoryType = "fashion"
	CategoryHomeGarden  CategoryType = "home_garden"
	CategorySports      CategoryType = "sports"
	CategoryBooks       CategoryType = "books"
	CategoryCollectible CategoryType = "collectibles"
	CategoryArt         CategoryType = "art"
	CategoryJewelry     CategoryType = "jewelry"
	CategoryToys        CategoryType = "toys"
	CategoryAutomotive  CategoryType = "automotive"
	CategoryOther       CategoryType = "other"
)

type ConditionType string

const (
	ConditionNew     ConditionType = "new"
	ConditionLikeNew ConditionType = "like_new"
	ConditionGood    ConditionType = "good"
	ConditionFair    ConditionType = "fair"
	ConditionPoor    ConditionType = "poor"
)

// SortType порядок выдачи списка аукционов.
type SortType string

const (
	SortEndingSoon SortType = "ending_soon"
	SortNewest     SortType = "newest"
	SortPriceLow   SortType = "price_low"
	SortPriceHigh  SortType = "price_high"
	SortMostBids   SortType = "most_bids"
)

type EventType string

const (
	EventOutbid           EventType = "outbid"
	EventAuctionWon       EventType = "auction_won"
	EventAuctionEnded     EventType = "auction_ended"
	EventAuctionLost      EventType = "auction_lost"
	EventAuctionSold      EventType = "auction_sold"
	EventAuctionCancelled EventType = "auction_cancelled"
	EventPaymentReceived  EventType = "payment_received"
)
