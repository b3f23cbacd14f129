package service

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

// LedgerRepository журнал операций по счетам. Записи только добавляются.
type LedgerRepository interface {
	Append(ctx context.Context, entry repoargs.LedgerEntryCreate) (*domain.LedgerEntry, error)
	GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error)
	FindByIdempotencyKey(ctx context.Context, accountID int64, key string) (*domain.LedgerEntry, error)
	// FindSettlements возвращает записи release и capture, закрывающие блокировку holdID.
	FindSettlements(ctx context.Context, holdID int64) ([]domain.LedgerEntry, error)
	SumByKind(ctx context.Context, accountID int64) ([]repoargs.KindSum, error)
	List(ctx context.Context, accountID int64, filter repoargs.LedgerFilter) ([]domain.LedgerEntry, int, error)
	// ListOpenHolds возвращает незакрытые блокировки по аукциону.
	ListOpenHolds(ctx context.Context, auctionID int64) ([]domain.LedgerEntry, error)
}

type AuctionRepository interface {
	Create(ctx context.Context, args repoargs.AuctionCreate) (*domain.Auction, error)
	Get(ctx context.Context, id int64) (*domain.Auction, error)
	// Update сохраняет аукцион, если его версия в хранилище совпадает с auction.Version, и увеличивает
	// версию. Иначе возвращает domain.ErrConcurrencyConflict.
	Update(ctx context.Context, auction domain.Auction) (*domain.Auction, error)
	List(ctx context.Context, filter repoargs.AuctionFilter) ([]domain.Auction, int, error)
	// DueIDs возвращает id аукционов больше afterID, которым пора сменить статус, по возрастанию.
	DueIDs(ctx context.Context, now time.Time, afterID int64, limit uint) ([]int64, error)
	Stats(ctx context.Context) (*repoargs.AuctionStats, error)
}

type BidRepository interface {
	Create(ctx context.Context, args repoargs.BidCreate) (*domain.Bid, error)
	GetByID(ctx context.Context, id int64) (*domain.Bid, error)
	FindByHoldEntry(ctx context.Context, holdEntryID int64) (*domain.Bid, error)
	// ListByAuction возвращает ставки от новых к старым.
	ListByAuction(ctx context.Context, auctionID int64) ([]domain.Bid, error)
}

type TransitionRepository interface {
	Create(ctx context.Context, args repoargs.TransitionCreate) (*domain.AuctionTransition, error)
	ListByAuction(ctx context.Context, auctionID int64) ([]domain.AuctionTransition, error)
}
