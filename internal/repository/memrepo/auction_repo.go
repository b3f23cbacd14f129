package memrepo

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

type AuctionRepository struct {
	base
}

func (r *AuctionRepository) Create(_ context.Context, args repoargs.AuctionCreate) (*domain.Auction, error) {
	var auction *domain.Auction
	err := r.write(func(d *data) error {
		if _, ok := d.users[args.SellerID]; !ok {
			return errorf(domain.ErrRecordNotFound, "creating auction for seller %d", args.SellerID)
		}
		d.auctionSeq++
		now := r.s.now()
		row := auctionRow{
			ID:              d.auctionSeq,
			CreatedAt:       now,
			UpdatedAt:       now,
			SellerID:        args.SellerID,
			Title:           args.Title,
			Description:     args.Description,
			Category:        args.Category,
			Condition:       args.Condition,
			StartingPrice:   args.StartingPrice,
			CurrentPrice:    args.StartingPrice,
			BuyNowPrice:     args.BuyNowPrice,
			StartTime:       args.StartTime,
			EndTime:         args.EndTime,
			Status:          args.Status,
			StatusChangedAt: now,
			Version:         1,
			Settlement:      domain.SettlementNone,
		}
		d.auctions[row.ID] = row
		auction = copyAuction(row)
		return nil
	})
	return auction, err
}

func (r *AuctionRepository) Get(_ context.Context, id int64) (*domain.Auction, error) {
	var auction *domain.Auction
	err := r.read(func(d *data) error {
		row, ok := d.auctions[id]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "getting auction %d", id)
		}
		auction = copyAuction(row)
		return nil
	})
	return auction, err
}

func (r *AuctionRepository) Update(_ context.Context, auction domain.Auction) (*domain.Auction, error) {
	var updated *domain.Auction
	err := r.write(func(d *data) error {
		row, ok := d.auctions[auction.ID]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "updating auction %d", auction.ID)
		}
		if row.Version != auction.Version {
			return errorf(domain.ErrConcurrencyConflict, "updating auction %d at version %d", auction.ID, auction.Version)
		}
		auction.Version++
		auction.UpdatedAt = r.s.now()
		auction.CreatedAt = row.CreatedAt
		d.auctions[auction.ID] = *copyAuction(auction)
		updated = copyAuction(auction)
		return nil
	})
	return updated, err
}

func (r *AuctionRepository) List(_ context.Context, filter repoargs.AuctionFilter) ([]domain.Auction, int, error) {
	var matched []domain.Auction
	err := r.read(func(d *data) error {
		for _, a := range d.auctions {
			if matchAuction(a, filter) {
				matched = append(matched, *copyAuction(a))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	slices.SortFunc(matched, auctionOrder(filter.Sort))
	return paginate(matched, filter.Page), len(matched), nil
}

func matchAuction(a auctionRow, f repoargs.AuctionFilter) bool {
	switch {
	case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status),
		f.SellerID != 0 && a.SellerID != f.SellerID,
		f.Category != "" && a.Category != f.Category,
		f.Condition != "" && a.Condition != f.Condition,
		f.MinPrice > 0 && a.CurrentPrice < f.MinPrice,
		f.MaxPrice > 0 && a.CurrentPrice > f.MaxPrice,
		f.MinBids > 0 && a.BidCount < f.MinBids,
		!f.EndAfter.IsZero() && !a.EndTime.After(f.EndAfter),
		!f.EndBefore.IsZero() && a.EndTime.After(f.EndBefore):
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Description), q)
	}
	return true
}

func auctionOrder(sort domain.SortType) func(a, b domain.Auction) int {
	byID := func(a, b domain.Auction) int { return cmp.Compare(a.ID, b.ID) }
	return func(a, b domain.Auction) int {
		var c int
		switch sort {
		case domain.SortNewest:
			c = b.CreatedAt.Compare(a.CreatedAt)
			if c == 0 {
				return cmp.Compare(b.ID, a.ID)
			}
		case domain.SortPriceLow:
			c = cmp.Compare(a.CurrentPrice, b.CurrentPrice)
		case domain.SortPriceHigh:
			c = cmp.Compare(b.CurrentPrice, a.CurrentPrice)
		case domain.SortMostBids:
			c = cmp.Compare(b.BidCount, a.BidCount)
		default:
			c = a.EndTime.Compare(b.EndTime)
		}
		if c != 0 {
			return c
		}
		return byID(a, b)
	}
}

func (r *AuctionRepository) DueIDs(_ context.Context, now time.Time, afterID int64, limit uint) ([]int64, error) {
	var ids []int64
	err := r.read(func(d *data) error {
		for id, a := range d.auctions {
			if id > afterID && a.Due(now) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	if limit > 0 && uint(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *AuctionRepository) Stats(_ context.Context) (*repoargs.AuctionStats, error) {
	stats := &repoargs.AuctionStats{ByStatus: make(map[domain.AuctionStatusType]int)}
	err := r.read(func(d *data) error {
		for _, a := range d.auctions {
			stats.ByStatus[a.Status]++
			if a.Status == domain.AuctionStatusSold {
				stats.SoldVolume += a.CurrentPrice
			}
		}
		stats.TotalBids = len(d.bids)
		return nil
	})
	return stats, err
}
