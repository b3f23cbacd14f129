package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/fsdevblog/groph-auction/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
)

func testAuction(id, sellerID int64) *domain.Auction {
	now := time.Now().UTC()
	return &domain.Auction{
		ID:            id,
		SellerID:      sellerID,
		Title:         "Vintage camera",
		Category:      domain.CategoryElectronics,
		Condition:     domain.ConditionGood,
		StartingPrice: domain.MustAmount("100"),
		CurrentPrice:  domain.MustAmount("100"),
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
		Status:        domain.AuctionStatusActive,
		Settlement:    domain.SettlementNone,
	}
}

func auctionURL(route string, id int64) string {
	return RouteGroup + strings.Replace(route, ":id", strconv.FormatInt(id, 10), 1)
}

func (s *HandlerTestSuite) TestCreateAuction() {
	end := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	s.mockAuctionService.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args service.CreateAuctionArgs) (*domain.Auction, error) {
			s.Equal(s.userID, args.SellerID)
			s.Equal(domain.MustAmount("15.50"), args.StartingPrice)
			s.True(end.Equal(args.EndTime))
			return testAuction(1, args.SellerID), nil
		}).Times(1)

	valid := fmt.Sprintf(
		`{"title":"Vintage camera","category":"electronics","condition":"good","startingPrice":"15.50","endTime":%q}`,
		end.Format(time.RFC3339),
	)

	cases := []struct {
		name       string
		body       []byte
		token      string
		wantStatus int
	}{
		{
			name:       "created",
			body:       []byte(valid),
			token:      s.userToken,
			wantStatus: http.StatusCreated,
		}, {
			name:       "not authorized",
			body:       []byte(valid),
			wantStatus: http.StatusUnauthorized,
		}, {
			name:       "unknown category",
			body:       []byte(`{"title":"x","category":"weapons","condition":"good","startingPrice":"1","endTime":"2030-01-01T00:00:00Z"}`),
			token:      s.userToken,
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "zero starting price",
			body:       []byte(`{"title":"x","category":"art","condition":"new","startingPrice":"0","endTime":"2030-01-01T00:00:00Z"}`),
			token:      s.userToken,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+AuctionsRoute, t.token, t.body)
			defer s.closeBody(res)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *HandlerTestSuite) TestCreateAuctionInvalidSchedule() {
	s.mockAuctionService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidAuction)).Times(1)

	res := s.request(http.MethodPost, RouteGroup+AuctionsRoute, s.userToken, []byte(
		`{"title":"x","category":"art","condition":"new","startingPrice":"1","endTime":"2001-01-01T00:00:00Z"}`,
	))
	s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	s.Equal(domain.ErrInvalidAuction.Error(), s.errorText(res))
}

func (s *HandlerTestSuite) TestListAuctions() {
	s.mockAuctionService.EXPECT().List(gomock.Any(), service.ListAuctionsArgs{
		Category: domain.CategoryElectronics,
		MinPrice: domain.MustAmount("10"),
		MaxPrice: domain.MustAmount("99.99"),
		Sort:     domain.SortPriceLow,
		Limit:    5,
	}).Return([]domain.Auction{*testAuction(1, 2)}, 1, nil).Times(1)

	s.Run("ok", func() {
		res := s.request(http.MethodGet,
			RouteGroup+AuctionsRoute+"?category=electronics&min_price=10&max_price=99.99&sort=price_low&limit=5", "", nil)
		s.Require().Equal(http.StatusOK, res.StatusCode)

		var body struct {
			Auctions []AuctionResponse `json:"auctions"`
			Total    int               `json:"total"`
		}
		s.Require().NoError(testutils.DecodeBody(res, &body))
		s.Equal(1, body.Total)
		s.Require().Len(body.Auctions, 1)
		s.Equal(domain.MustAmount("100"), body.Auctions[0].CurrentPrice)
		s.Nil(body.Auctions[0].BuyNowPrice)
	})
	s.Run("bad price", func() {
		res := s.request(http.MethodGet, RouteGroup+AuctionsRoute+"?min_price=abc", "", nil)
		defer s.closeBody(res)
		s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	})
	s.Run("bad sort", func() {
		res := s.request(http.MethodGet, RouteGroup+AuctionsRoute+"?sort=random", "", nil)
		defer s.closeBody(res)
		s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	})
}

func (s *HandlerTestSuite) TestFeaturedAndEndingSoon() {
	s.mockAuctionService.EXPECT().Featured(gomock.Any()).Return([]domain.Auction{*testAuction(1, 2)}, nil).Times(1)
	s.mockAuctionService.EXPECT().EndingSoon(gomock.Any()).Return([]domain.Auction{}, nil).Times(1)

	res := s.request(http.MethodGet, RouteGroup+FeaturedRoute, "", nil)
	s.closeBody(res)
	s.Equal(http.StatusOK, res.StatusCode)

	res = s.request(http.MethodGet, RouteGroup+EndingSoonRoute, "", nil)
	s.closeBody(res)
	s.Equal(http.StatusOK, res.StatusCode)
}

func (s *HandlerTestSuite) TestShowAuction() {
	s.mockAuctionService.EXPECT().Get(gomock.Any(), int64(1)).Return(testAuction(1, 2), nil).Times(1)
	s.mockAuctionService.EXPECT().Get(gomock.Any(), int64(2)).
		Return(nil, fmt.Errorf("get auction: %w", domain.ErrRecordNotFound)).Times(1)

	cases := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{name: "ok", url: auctionURL(AuctionRoute, 1), wantStatus: http.StatusOK},
		{name: "not found", url: auctionURL(AuctionRoute, 2), wantStatus: http.StatusNotFound},
		{name: "invalid id", url: RouteGroup + "/auctions/abc", wantStatus: http.StatusNotFound},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodGet, t.url, "", nil)
			defer s.closeBody(res)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *HandlerTestSuite) TestAuctionBids() {
	bids := []domain.Bid{
		{ID: 2, AuctionID: 1, BidderID: 4, Amount: domain.MustAmount("120")},
		{ID: 1, AuctionID: 1, BidderID: 3, Amount: domain.MustAmount("110")},
	}
	s.mockAuctionService.EXPECT().Bids(gomock.Any(), int64(1)).Return(bids, nil).Times(1)

	res := s.request(http.MethodGet, auctionURL(BidsRoute, 1), "", nil)
	s.Require().Equal(http.StatusOK, res.StatusCode)

	var body struct {
		Bids []BidResponse `json:"bids"`
	}
	s.Require().NoError(testutils.DecodeBody(res, &body))
	s.Require().Len(body.Bids, 2)
	s.Equal(domain.MustAmount("120"), body.Bids[0].Amount)
}

func (s *HandlerTestSuite) TestPlaceBid() {
	auction := testAuction(1, 2)
	bid := &domain.Bid{ID: 9, AuctionID: 1, BidderID: s.userID, Amount: domain.MustAmount("150")}

	s.mockAuctionService.EXPECT().PlaceBid(gomock.Any(), service.PlaceBidArgs{
		AuctionID:      1,
		BidderID:       s.userID,
		Amount:         domain.MustAmount("150"),
		IdempotencyKey: "bid-1",
	}).Return(&service.BidResult{Bid: bid, Auction: auction}, nil).Times(1)
	s.mockAuctionService.EXPECT().PlaceBid(gomock.Any(), service.PlaceBidArgs{
		AuctionID: 1,
		BidderID:  s.userID,
		Amount:    domain.MustAmount("101"),
	}).Return(nil, &domain.BidTooLowError{
		Current:       domain.MustAmount("100"),
		MinAcceptable: domain.MustAmount("105"),
	}).Times(1)
	s.mockAuctionService.EXPECT().PlaceBid(gomock.Any(), service.PlaceBidArgs{
		AuctionID: 1,
		BidderID:  s.userID,
		Amount:    domain.MustAmount("200"),
	}).Return(nil, fmt.Errorf("place bid: %w", domain.ErrConcurrencyConflict)).Times(1)
	s.mockAuctionService.EXPECT().PlaceBid(gomock.Any(), service.PlaceBidArgs{
		AuctionID: 1,
		BidderID:  s.userID,
		Amount:    domain.MustAmount("300"),
	}).Return(nil, domain.ErrSelfBid).Times(1)

	s.Run("accepted", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), s.userToken, []byte(`{"amount":"150"}`),
			testutils.WithHeader(IdempotencyKeyHeader, "bid-1"))
		s.Require().Equal(http.StatusCreated, res.StatusCode)

		var body struct {
			Bid BidResponse `json:"bid"`
		}
		s.Require().NoError(testutils.DecodeBody(res, &body))
		s.Equal(int64(9), body.Bid.ID)
	})
	s.Run("too low", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), s.userToken, []byte(`{"amount":"101"}`))
		s.Equal(http.StatusConflict, res.StatusCode)
		s.Contains(s.errorText(res), "105.00")
	})
	s.Run("conflict", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), s.userToken, []byte(`{"amount":"200"}`))
		defer s.closeBody(res)
		s.Equal(http.StatusServiceUnavailable, res.StatusCode)
		s.Equal(retryAfterSeconds, res.Header.Get("Retry-After"))
	})
	s.Run("self bid", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), s.userToken, []byte(`{"amount":"300"}`))
		defer s.closeBody(res)
		s.Equal(http.StatusForbidden, res.StatusCode)
	})
	s.Run("not authorized", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), "", []byte(`{"amount":"150"}`))
		defer s.closeBody(res)
		s.Equal(http.StatusUnauthorized, res.StatusCode)
	})
	s.Run("idempotency key too long", func() {
		res := s.request(http.MethodPost, auctionURL(BidsRoute, 1), s.userToken, []byte(`{"amount":"150"}`),
			testutils.WithHeader(IdempotencyKeyHeader, testutils.OverLimit(service.MaxIdempotencyKeyLen)))
		s.Equal(http.StatusBadRequest, res.StatusCode)
		s.Equal(errIdempotencyKeyTooLong.Error(), s.errorText(res))
	})
}

func (s *HandlerTestSuite) TestBuyNow() {
	auction := testAuction(1, 2)
	auction.Status = domain.AuctionStatusSold
	auction.BuyNowPrice = domain.MustAmount("500")
	bid := &domain.Bid{ID: 3, AuctionID: 1, BidderID: s.userID, Amount: auction.BuyNowPrice}

	s.mockAuctionService.EXPECT().BuyNow(gomock.Any(), int64(1), s.userID, "buy-1").
		Return(&service.BidResult{Bid: bid, Auction: auction}, nil).Times(1)
	s.mockAuctionService.EXPECT().BuyNow(gomock.Any(), int64(2), s.userID, "").
		Return(nil, domain.ErrBuyNowUnavailable).Times(1)

	res := s.request(http.MethodPost, auctionURL(BuyNowRoute, 1), s.userToken, nil,
		testutils.WithHeader(IdempotencyKeyHeader, "buy-1"))
	s.Require().Equal(http.StatusOK, res.StatusCode)
	var body struct {
		Auction AuctionResponse `json:"auction"`
	}
	s.Require().NoError(testutils.DecodeBody(res, &body))
	s.Equal(domain.AuctionStatusSold, body.Auction.Status)
	s.Require().NotNil(body.Auction.BuyNowPrice)
	s.Equal(domain.MustAmount("500"), *body.Auction.BuyNowPrice)

	res = s.request(http.MethodPost, auctionURL(BuyNowRoute, 2), s.userToken, nil)
	s.Equal(http.StatusConflict, res.StatusCode)
	s.Equal(domain.ErrBuyNowUnavailable.Error(), s.errorText(res))

	res = s.request(http.MethodPost, auctionURL(BuyNowRoute, 1), s.userToken, nil,
		testutils.WithHeader(IdempotencyKeyHeader, testutils.OverLimit(service.MaxIdempotencyKeyLen)))
	s.Equal(http.StatusBadRequest, res.StatusCode)
}

func (s *HandlerTestSuite) TestAdminRoutes() {
	admin := domain.Identity{UserID: s.adminID, Role: domain.RoleAdmin}
	cancelled := testAuction(1, 2)
	cancelled.Status = domain.AuctionStatusCancelled

	s.mockAuctionService.EXPECT().Cancel(gomock.Any(), admin, int64(1)).Return(cancelled, nil).Times(1)
	s.mockAuctionService.EXPECT().Cancel(gomock.Any(), admin, int64(3)).
		Return(nil, domain.ErrAuctionNotActive).Times(1)
	s.mockAuctionService.EXPECT().History(gomock.Any(), admin, int64(1)).Return([]domain.AuctionTransition{
		{AuctionID: 1, From: "", To: domain.AuctionStatusActive, Reason: "created"},
		{AuctionID: 1, From: domain.AuctionStatusActive, To: domain.AuctionStatusCancelled, Reason: "cancelled"},
	}, nil).Times(1)
	s.mockAuctionService.EXPECT().Schedule(gomock.Any(), admin).Return([]domain.Auction{}, nil).Times(1)
	s.mockAuctionService.EXPECT().Analytics(gomock.Any(), admin).Return(&repoargs.AuctionStats{
		ByStatus:   map[domain.AuctionStatusType]int{domain.AuctionStatusCancelled: 1},
		TotalBids:  4,
		SoldVolume: domain.MustAmount("12.34"),
	}, nil).Times(1)
	s.mockWalletService.EXPECT().Reconcile(gomock.Any(), admin, int64(5)).
		Return(&service.UserBalance{AccountID: 5}, nil).Times(1)

	cases := []struct {
		name       string
		method     string
		url        string
		token      string
		wantStatus int
	}{
		{name: "cancel", method: http.MethodPut, url: auctionURL(AdminCancelRoute, 1), token: s.adminToken, wantStatus: http.StatusOK},
		{name: "cancel terminal", method: http.MethodPut, url: auctionURL(AdminCancelRoute, 3), token: s.adminToken, wantStatus: http.StatusConflict},
		{name: "cancel by user", method: http.MethodPut, url: auctionURL(AdminCancelRoute, 1), token: s.userToken, wantStatus: http.StatusForbidden},
		{name: "cancel anonymous", method: http.MethodPut, url: auctionURL(AdminCancelRoute, 1), wantStatus: http.StatusUnauthorized},
		{name: "history", method: http.MethodGet, url: auctionURL(AdminHistoryRoute, 1), token: s.adminToken, wantStatus: http.StatusOK},
		{name: "schedule", method: http.MethodGet, url: RouteGroup + AdminScheduleRoute, token: s.adminToken, wantStatus: http.StatusOK},
		{name: "analytics", method: http.MethodGet, url: RouteGroup + AdminAnalyticsRoute, token: s.adminToken, wantStatus: http.StatusOK},
		{name: "analytics by user", method: http.MethodGet, url: RouteGroup + AdminAnalyticsRoute, token: s.userToken, wantStatus: http.StatusForbidden},
		{name: "reconcile", method: http.MethodPost, url: auctionURL(AdminReconcileRoute, 5), token: s.adminToken, wantStatus: http.StatusOK},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(t.method, t.url, t.token, nil)
			defer s.closeBody(res)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}
