package memrepo

import (
	"context"
	"slices"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

type BidRepository struct {
	base
}

func (r *BidRepository) Create(_ context.Context, args repoargs.BidCreate) (*domain.Bid, error) {
	var bid domain.Bid
	err := r.write(func(d *data) error {
		if _, ok := d.auctions[args.AuctionID]; !ok {
			return errorf(domain.ErrRecordNotFound, "creating bid for auction %d", args.AuctionID)
		}
		bid = domain.Bid{
			ID:          int64(len(d.bids)) + 1,
			CreatedAt:   r.s.now(),
			AuctionID:   args.AuctionID,
			BidderID:    args.BidderID,
			Amount:      args.Amount,
			HoldEntryID: args.HoldEntryID,
		}
		d.bids = append(d.bids, bid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) GetByID(_ context.Context, id int64) (*domain.Bid, error) {
	var bid domain.Bid
	err := r.read(func(d *data) error {
		if id < 1 || id > int64(len(d.bids)) {
			return errorf(domain.ErrRecordNotFound, "getting bid %d", id)
		}
		bid = d.bids[id-1]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) FindByHoldEntry(_ context.Context, holdEntryID int64) (*domain.Bid, error) {
	var bid *domain.Bid
	err := r.read(func(d *data) error {
		for _, b := range d.bids {
			if b.HoldEntryID == holdEntryID {
				bid = &b
				return nil
			}
		}
		return errorf(domain.ErrRecordNotFound, "finding bid by hold entry %d", holdEntryID)
	})
	return bid, err
}

func (r *BidRepository) ListByAuction(_ context.Context, auctionID int64) ([]domain.Bid, error) {
	res := make([]domain.Bid, 0)
	err := r.read(func(d *data) error {
		for _, b := range slices.Backward(d.bids) {
			if b.AuctionID == auctionID {
				res = append(res, b)
			}
		}
		return nil
	})
	return res, err
}
