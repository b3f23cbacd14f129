package memrepo

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

type TransitionRepository struct {
	base
}

func (r *TransitionRepository) Create(
	_ context.Context,
	args repoargs.TransitionCreate,
) (*domain.AuctionTransition, error) {
	var tr domain.AuctionTransition
	err := r.write(func(d *data) error {
		tr = domain.AuctionTransition{
			ID:        int64(len(d.transitions)) + 1,
			CreatedAt: r.s.now(),
			AuctionID: args.AuctionID,
			From:      args.From,
			To:        args.To,
			Reason:    args.Reason,
		}
		d.transitions = append(d.transitions, tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// ListByAuction возвращает переходы в порядке их совершения.
func (r *TransitionRepository) ListByAuction(_ context.Context, auctionID int64) ([]domain.AuctionTransition, error) {
	res := make([]domain.AuctionTransition, 0)
	err := r.read(func(d *data) error {
		for _, t := range d.transitions {
			if t.AuctionID == auctionID {
				res = append(res, t)
			}
		}
		return nil
	})
	return res, err
}
