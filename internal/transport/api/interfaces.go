package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
}

type WalletServicer interface {
	GetBalance(ctx context.Context, accountID int64) (*service.UserBalance, error)
	Deposit(ctx context.Context, args service.WalletOpArgs) (*domain.LedgerEntry, error)
	Withdraw(ctx context.Context, args service.WalletOpArgs) (*domain.LedgerEntry, error)
	Transactions(ctx context.Context, args service.TransactionsArgs) ([]domain.LedgerEntry, int, error)
	Reconcile(ctx context.Context, who domain.Identity, accountID int64) (*service.UserBalance, error)
}

type AuctionServicer interface {
	Create(ctx context.Context, args service.CreateAuctionArgs) (*domain.Auction, error)
	Get(ctx context.Context, auctionID int64) (*domain.Auction, error)
	List(ctx context.Context, args service.ListAuctionsArgs) ([]domain.Auction, int, error)
	Featured(ctx context.Context) ([]domain.Auction, error)
	EndingSoon(ctx context.Context) ([]domain.Auction, error)
	Bids(ctx context.Context, auctionID int64) ([]domain.Bid, error)
	PlaceBid(ctx context.Context, args service.PlaceBidArgs) (*service.BidResult, error)
	BuyNow(ctx context.Context, auctionID, buyerID int64, idempotencyKey string) (*service.BidResult, error)
	Cancel(ctx context.Context, who domain.Identity, auctionID int64) (*domain.Auction, error)
	History(ctx context.Context, who domain.Identity, auctionID int64) ([]domain.AuctionTransition, error)
	Schedule(ctx context.Context, who domain.Identity) ([]domain.Auction, error)
	Analytics(ctx context.Context, who domain.Identity) (*repoargs.AuctionStats, error)
}
