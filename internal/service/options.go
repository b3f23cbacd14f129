package service

import (
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
)

const (
	JWTTokenExpire          = 24 * time.Hour
	defaultCurrency         = "USD"
	defaultOperationTimeout = 5 * time.Second
	defaultBidRetries       = 3
	defaultPayoutAttempts   = 5
	defaultPageLimit        = 20
	maxPageLimit            = 100
	publishTimeout          = 5 * time.Second
)

// Options настройки сервисного слоя.
type Options struct {
	Currency  string
	Increment domain.IncrementPolicy
	// OperationTimeout ограничивает время операций с кошельком и ставок, включая ожидание блокировок.
	OperationTimeout time.Duration
	// BidRetries сколько раз повторять транзакцию при конфликте версий.
	BidRetries int
	// PayoutAttempts после стольких неудачных выплат продавцу покупателю возвращаются деньги.
	PayoutAttempts int
	AdminUsernames []string
	JWTSecret      []byte
	TokenExpire    time.Duration
	Clock          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Currency == "" {
		o.Currency = defaultCurrency
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = defaultOperationTimeout
	}
	if o.BidRetries <= 0 {
		o.BidRetries = defaultBidRetries
	}
	if o.PayoutAttempts <= 0 {
		o.PayoutAttempts = defaultPayoutAttempts
	}
	if o.TokenExpire <= 0 {
		o.TokenExpire = JWTTokenExpire
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

func pageLimit(limit uint) uint {
	if limit == 0 {
		return defaultPageLimit
	}
	return min(limit, maxPageLimit)
}
