package domain

import "time"

// Event уведомление об изменении аукциона для конкретного пользователя.
type Event struct {
	Type       EventType
	AuctionID  int64
	UserID     int64
	Amount     Amount
	OccurredAt time.Time
}
