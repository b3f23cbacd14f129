package lifecycle

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
)

type Servicer interface {
	DueForSweep(ctx context.Context, afterID int64, limit uint) ([]int64, error)
	Advance(ctx context.Context, auctionID int64) (*domain.Auction, error)
}
