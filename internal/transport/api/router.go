package api

import (
	"time"

	"github.com/fsdevblog/groph-auction/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 5 * time.Second
)

const (
	RouteGroup          = "/api/v1"
	RegisterRoute       = "/auth/register"
	LoginRoute          = "/auth/login"
	WalletRoute         = "/wallet"
	DepositRoute        = "/wallet/deposit"
	WithdrawRoute       = "/wallet/withdraw"
	TransactionsRoute   = "/wallet/transactions"
	AuctionsRoute       = "/auctions"
	FeaturedRoute       = "/auctions/featured"
	EndingSoonRoute     = "/auctions/ending-soon"
	AuctionRoute        = "/auctions/:id"
	BidsRoute           = "/auctions/:id/bids"
	BuyNowRoute         = "/auctions/:id/buy-now"
	AdminCancelRoute    = "/admin/auctions/:id/cancel"
	AdminHistoryRoute   = "/admin/auctions/:id/history"
	AdminScheduleRoute  = "/admin/auctions/schedule"
	AdminAnalyticsRoute = "/admin/auctions/analytics"
	AdminReconcileRoute = "/admin/accounts/:id/reconcile"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	UserService    UserServicer
	WalletService  WalletServicer
	AuctionService AuctionServicer
	JWTSecretKey   []byte
	// RateCounter счетчик запросов. Если nil, ограничение не применяется.
	RateCounter middlewares.Counter
	RateLimit   int64
	RateWindow  time.Duration
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())
	if args.RateCounter != nil {
		r.Use(middlewares.RateLimit(args.RateCounter, args.RateLimit, args.RateWindow, args.Logger))
	}

	authHandler := NewAuthHandler(args.UserService)
	walletHandler := NewWalletHandler(args.WalletService)
	auctionsHandler := NewAuctionsHandler(args.AuctionService)
	adminHandler := NewAdminHandler(args.AuctionService, args.WalletService)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	// каталог открыт без авторизации.
	api.GET(AuctionsRoute, auctionsHandler.Index)
	api.GET(FeaturedRoute, auctionsHandler.Featured)
	api.GET(EndingSoonRoute, auctionsHandler.EndingSoon)
	api.GET(AuctionRoute, auctionsHandler.Show)
	api.GET(BidsRoute, auctionsHandler.Bids)

	authed := api.Group("", middlewares.AuthRequired(args.JWTSecretKey))
	authed.GET(WalletRoute, walletHandler.Index)
	authed.POST(DepositRoute, walletHandler.Deposit)
	authed.POST(WithdrawRoute, walletHandler.Withdraw)
	authed.GET(TransactionsRoute, walletHandler.Transactions)

	authed.POST(AuctionsRoute, auctionsHandler.Create)
	authed.POST(BidsRoute, auctionsHandler.PlaceBid)
	authed.POST(BuyNowRoute, auctionsHandler.BuyNow)

	admin := authed.Group("", middlewares.AdminRequired())
	admin.PUT(AdminCancelRoute, adminHandler.Cancel)
	admin.GET(AdminHistoryRoute, adminHandler.History)
	admin.GET(AdminScheduleRoute, adminHandler.Schedule)
	admin.GET(AdminAnalyticsRoute, adminHandler.Analytics)
	admin.POST(AdminReconcileRoute, adminHandler.Reconcile)
	return r, nil
}
