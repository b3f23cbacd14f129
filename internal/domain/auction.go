package domain

import "time"

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s AuctionStatusType) IsTerminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusSold || s == AuctionStatusCancelled
}

// AcceptsBids сообщает, можно ли сделать ставку в момент now. Аукцион, у которого истекло время, ставки
// не принимает, даже если планировщик еще не перевел его в завершенный статус.
func (a Auction) AcceptsBids(now time.Time) bool {
	return a.Status == AuctionStatusActive && !now.Before(a.StartTime) && now.Before(a.EndTime)
}

// NextStatus возвращает статус, в который аукцион должен перейти к моменту now, и false, если переход
// не требуется.
func (a Auction) NextStatus(now time.Time) (AuctionStatusType, bool) {
	switch a.Status {
	case AuctionStatusScheduled:
		if !now.Before(a.StartTime) {
			return AuctionStatusActive, true
		}
	case AuctionStatusActive:
		if !now.Before(a.EndTime) {
			if a.WinningBidID != nil {
				return AuctionStatusSold, true
			}
			return AuctionStatusEnded, true
		}
	}
	return "", false
}

// Due сообщает, что аукциону требуется переход или расчет с продавцом.
func (a Auction) Due(now time.Time) bool {
	if _, ok := a.NextStatus(now); ok {
		return true
	}
	return a.Settlement == SettlementPending
}

// HasBuyNow сообщает, доступна ли покупка по фиксированной цене.
func (a Auction) HasBuyNow() bool {
	return a.BuyNowPrice > 0 && a.BuyNowPrice > a.CurrentPrice
}
