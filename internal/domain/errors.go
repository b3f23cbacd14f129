package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidEntryKind    = errors.New("invalid ledger entry kind")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyReleased     = errors.New("hold already released")
	ErrAlreadyCaptured     = errors.New("hold already captured")
	ErrNotAHold            = errors.New("ledger entry is not a hold")
	ErrAccountFrozen       = errors.New("account frozen")
	ErrInvariantViolation  = errors.New("ledger invariant violation")
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	ErrInvalidAuction     = errors.New("invalid auction")
	ErrAuctionNotActive   = errors.New("auction not active")
	ErrBidTooLow          = errors.New("bid too low")
	ErrSelfBid            = errors.New("seller cannot bid on own auction")
	ErrBuyNowUnavailable  = errors.New("buy now unavailable")
	ErrForbidden          = errors.New("forbidden")
	ErrAuctionNotSettling = errors.New("auction has no pending settlement")
)

// BidTooLowError отклоненная ставка. MinAcceptable минимальная сумма, которая была бы принята.
type BidTooLowError struct {
	Current       Amount
	MinAcceptable Amount
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: current price %s, minimum acceptable %s", e.Current, e.MinAcceptable)
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}

// InvariantViolationError расхождение кеша счета с балансом, посчитанным по журналу.
type InvariantViolationError struct {
	AccountID int64
	Cached    Balance
	Folded    Balance
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf(
		"account %d: cached balance %s/%s does not match ledger %s/%s",
		e.AccountID,
		e.Cached.Available, e.Cached.Held,
		e.Folded.Available, e.Folded.Held,
	)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}
