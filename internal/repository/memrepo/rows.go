package memrepo

import "github.com/fsdevblog/groph-auction/internal/domain"

type (
	userRow       = domain.User
	accountRow    = domain.Account
	entryRow      = domain.LedgerEntry
	auctionRow    = domain.Auction
	bidRow        = domain.Bid
	transitionRow = domain.AuctionTransition
)

func ptr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// copyEntry отвязывает указатели записи от хранилища.
func copyEntry(e entryRow) *domain.LedgerEntry {
	e.AuctionID = ptr(e.AuctionID)
	e.RelatedEntryID = ptr(e.RelatedEntryID)
	return &e
}

func copyAuction(a auctionRow) *domain.Auction {
	a.WinningBidID = ptr(a.WinningBidID)
	a.SettledAt = ptr(a.SettledAt)
	return &a
}
