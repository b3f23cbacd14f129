package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/stretchr/testify/suite"
)

type AuctionServiceTestSuite struct {
	serviceSuite
}

func TestAuctionServiceSuite(t *testing.T) {
	suite.Run(t, new(AuctionServiceTestSuite))
}

func (s *AuctionServiceTestSuite) bid(auctionID, bidderID int64, amount domain.Amount) (*BidResult, error) {
	return s.auctions.PlaceBid(s.T().Context(), PlaceBidArgs{AuctionID: auctionID, BidderID: bidderID, Amount: amount})
}

func (s *AuctionServiceTestSuite) TestOutbidAndSettlementScenario() {
	seller := s.newUser(0)
	a := s.newUser(1000)
	b := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)
	s.Equal(domain.AuctionStatusActive, auction.Status)

	_, err := s.bid(auction.ID, a.ID, 150)
	s.Require().NoError(err)
	s.Equal(UserBalance{AccountID: a.ID, Currency: defaultCurrency, Available: 850, Held: 150}, *s.balance(a.ID))

	res, err := s.bid(auction.ID, b.ID, 200)
	s.Require().NoError(err)
	s.Equal(domain.Amount(200), res.Auction.CurrentPrice)
	s.Equal(2, res.Auction.BidCount)
	s.Equal(res.Bid.ID, *res.Auction.WinningBidID)

	s.Equal(domain.Amount(1000), s.balance(a.ID).Available)
	s.Equal(domain.Amount(0), s.balance(a.ID).Held)
	s.Equal(domain.Amount(200), s.balance(b.ID).Held)
	s.Len(s.entries(a.ID, domain.EntryKindRelease), 1)

	s.Eventually(func() bool {
		return s.publisher.Has(domain.EventOutbid, a.ID)
	}, time.Second, 10*time.Millisecond)

	s.clock.Advance(2 * time.Hour)
	ended, err := s.auctions.Advance(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusSold, ended.Status)
	s.Equal(domain.SettlementPaid, ended.Settlement)
	s.NotNil(ended.SettledAt)

	s.Equal(UserBalance{AccountID: b.ID, Currency: defaultCurrency, Available: 800}, *s.balance(b.ID))
	s.Equal(domain.Amount(200), s.balance(seller.ID).Available)
	s.Equal(domain.Amount(1000), s.balance(a.ID).Available)
	for _, id := range []int64{seller.ID, a.ID, b.ID} {
		s.assertLedgerConsistent(id)
	}

	s.Eventually(func() bool {
		return s.publisher.Has(domain.EventAuctionWon, b.ID) &&
			s.publisher.Has(domain.EventAuctionLost, a.ID) &&
			s.publisher.Has(domain.EventAuctionSold, seller.ID) &&
			s.publisher.Has(domain.EventPaymentReceived, seller.ID)
	}, time.Second, 10*time.Millisecond)

	// Повторный переход ничего не меняет.
	again, err := s.auctions.Advance(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(ended.Version, again.Version)
	s.Equal(domain.Amount(200), s.balance(seller.ID).Available)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_Rejections() {
	seller := s.newUser(0)
	bidder := s.newUser(1000)
	poor := s.newUser(120)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, bidder.ID, 110)
	s.Require().NoError(err)

	cases := []struct {
		name     string
		bidderID int64
		amount   domain.Amount
		wantErr  error
	}{
		{name: "equal to current price", bidderID: poor.ID, amount: 110, wantErr: domain.ErrBidTooLow},
		{name: "below current price", bidderID: poor.ID, amount: 50, wantErr: domain.ErrBidTooLow},
		{name: "zero amount", bidderID: poor.ID, amount: 0, wantErr: domain.ErrInvalidAmount},
		{name: "seller bids", bidderID: seller.ID, amount: 500, wantErr: domain.ErrSelfBid},
		{name: "not enough funds", bidderID: poor.ID, amount: 121, wantErr: domain.ErrInsufficientFunds},
		{name: "unknown auction", bidderID: poor.ID, amount: 500, wantErr: domain.ErrRecordNotFound},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			auctionID := auction.ID
			if t.wantErr == domain.ErrRecordNotFound {
				auctionID = 9999
			}
			_, bidErr := s.bid(auctionID, t.bidderID, t.amount)
			s.Require().ErrorIs(bidErr, t.wantErr)

			current, getErr := s.auctions.Get(s.T().Context(), auction.ID)
			s.Require().NoError(getErr)
			s.Equal(domain.Amount(110), current.CurrentPrice)
			s.Equal(1, current.BidCount)
			s.Equal(domain.Amount(110), s.balance(bidder.ID).Held)
			s.Equal(domain.Amount(0), s.balance(poor.ID).Held)
		})
	}

	var tooLow *domain.BidTooLowError
	_, err = s.bid(auction.ID, poor.ID, 110)
	s.Require().ErrorAs(err, &tooLow)
	s.Equal(domain.Amount(111), tooLow.MinAcceptable)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_IncrementPolicy() {
	s.setup(Options{Increment: domain.IncrementPolicy{Fixed: 25}})
	seller := s.newUser(0)
	bidder := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, bidder.ID, 124)
	s.Require().ErrorIs(err, domain.ErrBidTooLow)
	_, err = s.bid(auction.ID, bidder.ID, 125)
	s.Require().NoError(err)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_NotActive() {
	seller := s.newUser(0)
	bidder := s.newUser(1000)

	scheduled, err := s.auctions.Create(s.T().Context(), CreateAuctionArgs{
		SellerID:      seller.ID,
		Title:         "scheduled",
		StartingPrice: 100,
		StartTime:     s.clock.Now().Add(time.Hour),
		EndTime:       s.clock.Now().Add(2 * time.Hour),
	})
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusScheduled, scheduled.Status)

	_, err = s.bid(scheduled.ID, bidder.ID, 150)
	s.Require().ErrorIs(err, domain.ErrAuctionNotActive)

	expired := s.newAuction(seller.ID, 100, 0)
	s.clock.Advance(90 * time.Minute)
	_, err = s.bid(expired.ID, bidder.ID, 150)
	s.Require().ErrorIs(err, domain.ErrAuctionNotActive)

	started, err := s.auctions.Get(s.T().Context(), scheduled.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusActive, started.Status)
	_, err = s.bid(scheduled.ID, bidder.ID, 150)
	s.Require().NoError(err)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_RaiseOwnBid() {
	seller := s.newUser(0)
	bidder := s.newUser(200)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, bidder.ID, 150)
	s.Require().NoError(err)
	res, err := s.bid(auction.ID, bidder.ID, 200)
	s.Require().NoError(err)

	s.Equal(domain.Amount(200), res.Auction.CurrentPrice)
	s.Equal(UserBalance{AccountID: bidder.ID, Currency: defaultCurrency, Held: 200}, *s.balance(bidder.ID))
	s.False(s.publisher.Has(domain.EventOutbid, bidder.ID))
}

func (s *AuctionServiceTestSuite) TestPlaceBid_Idempotent() {
	seller := s.newUser(0)
	bidder := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)
	args := PlaceBidArgs{AuctionID: auction.ID, BidderID: bidder.ID, Amount: 150, IdempotencyKey: "k1"}

	first, err := s.auctions.PlaceBid(s.T().Context(), args)
	s.Require().NoError(err)
	second, err := s.auctions.PlaceBid(s.T().Context(), args)
	s.Require().NoError(err)

	s.Equal(first.Bid.ID, second.Bid.ID)
	s.Equal(1, second.Auction.BidCount)
	s.Equal(domain.Amount(150), s.balance(bidder.ID).Held)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_ConcurrentEqualBids() {
	seller := s.newUser(0)
	auction := s.newAuction(seller.ID, 100, 0)

	const bidders = 8
	ids := make([]int64, bidders)
	for i := range ids {
		ids[i] = s.newUser(1000).ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		tooLow   int
	)
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.auctions.PlaceBid(s.T().Context(), PlaceBidArgs{AuctionID: auction.ID, BidderID: id, Amount: 150})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case s.ErrorIs(err, domain.ErrBidTooLow):
				tooLow++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, accepted)
	s.Equal(bidders-1, tooLow)

	current, err := s.auctions.Get(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.Amount(150), current.CurrentPrice)
	s.Equal(1, current.BidCount)

	var held domain.Amount
	for _, id := range ids {
		held += s.balance(id).Held
		s.assertLedgerConsistent(id)
	}
	s.Equal(domain.Amount(150), held)
}

func (s *AuctionServiceTestSuite) TestPlaceBid_ConcurrentRisingBids() {
	seller := s.newUser(0)
	auction := s.newAuction(seller.ID, 100, 0)

	const bidders = 10
	ids := make([]int64, bidders)
	for i := range ids {
		ids[i] = s.newUser(5000).ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		highest domain.Amount
	)
	for i, id := range ids {
		amount := domain.Amount(200 + 10*i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.auctions.PlaceBid(s.T().Context(), PlaceBidArgs{
				AuctionID: auction.ID,
				BidderID:  id,
				Amount:    amount,
			}); err == nil {
				mu.Lock()
				highest = max(highest, amount)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	current, err := s.auctions.Get(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(highest, current.CurrentPrice)

	bids, err := s.auctions.Bids(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Len(bids, current.BidCount)

	// Блокировка средств остается только у лидера.
	var holders int
	for _, id := range ids {
		if s.balance(id).Held > 0 {
			holders++
		}
		s.assertLedgerConsistent(id)
	}
	s.Equal(1, holders)
}

func (s *AuctionServiceTestSuite) TestBuyNow() {
	seller := s.newUser(0)
	leader := s.newUser(1000)
	buyer := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 500)

	_, err := s.bid(auction.ID, leader.ID, 200)
	s.Require().NoError(err)

	res, err := s.auctions.BuyNow(s.T().Context(), auction.ID, buyer.ID, "buy-1")
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusSold, res.Auction.Status)
	s.Equal(domain.SettlementPaid, res.Auction.Settlement)
	s.Equal(domain.Amount(500), res.Bid.Amount)

	s.Equal(domain.Amount(1000), s.balance(leader.ID).Available)
	s.Equal(UserBalance{AccountID: buyer.ID, Currency: defaultCurrency, Available: 500}, *s.balance(buyer.ID))
	s.Equal(domain.Amount(500), s.balance(seller.ID).Available)

	replay, err := s.auctions.BuyNow(s.T().Context(), auction.ID, buyer.ID, "buy-1")
	s.Require().NoError(err)
	s.Equal(res.Bid.ID, replay.Bid.ID)

	_, err = s.bid(auction.ID, leader.ID, 600)
	s.Require().ErrorIs(err, domain.ErrAuctionNotActive)
}

func (s *AuctionServiceTestSuite) TestBuyNow_Unavailable() {
	seller := s.newUser(0)
	bidder := s.newUser(1000)

	plain := s.newAuction(seller.ID, 100, 0)
	_, err := s.auctions.BuyNow(s.T().Context(), plain.ID, bidder.ID, "")
	s.Require().ErrorIs(err, domain.ErrBuyNowUnavailable)

	overtaken := s.newAuction(seller.ID, 100, 300)
	_, err = s.bid(overtaken.ID, bidder.ID, 300)
	s.Require().NoError(err)
	_, err = s.auctions.BuyNow(s.T().Context(), overtaken.ID, s.newUser(1000).ID, "")
	s.Require().ErrorIs(err, domain.ErrBuyNowUnavailable)
}

func (s *AuctionServiceTestSuite) TestCancel() {
	seller := s.newUser(0)
	a := s.newUser(1000)
	b := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, a.ID, 150)
	s.Require().NoError(err)
	_, err = s.bid(auction.ID, b.ID, 300)
	s.Require().NoError(err)

	_, err = s.auctions.Cancel(s.T().Context(), domain.Identity{UserID: seller.ID, Role: domain.RoleUser}, auction.ID)
	s.Require().ErrorIs(err, domain.ErrForbidden)

	cancelled, err := s.auctions.Cancel(s.T().Context(), s.admin, auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusCancelled, cancelled.Status)

	for _, id := range []int64{a.ID, b.ID} {
		s.Equal(UserBalance{AccountID: id, Currency: defaultCurrency, Available: 1000}, *s.balance(id))
		s.assertLedgerConsistent(id)
	}

	again, err := s.auctions.Cancel(s.T().Context(), s.admin, auction.ID)
	s.Require().NoError(err)
	s.Equal(cancelled.Version, again.Version)

	s.Eventually(func() bool {
		return s.publisher.Has(domain.EventAuctionCancelled, a.ID) &&
			s.publisher.Has(domain.EventAuctionCancelled, b.ID) &&
			s.publisher.Has(domain.EventAuctionCancelled, seller.ID)
	}, time.Second, 10*time.Millisecond)

	history, err := s.auctions.History(s.T().Context(), s.admin, auction.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(domain.AuctionStatusActive, history[0].To)
	s.Equal(domain.AuctionStatusCancelled, history[1].To)
}

func (s *AuctionServiceTestSuite) TestCancel_Terminal() {
	seller := s.newUser(0)
	auction := s.newAuction(seller.ID, 100, 0)

	s.clock.Advance(2 * time.Hour)
	ended, err := s.auctions.Get(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusEnded, ended.Status)

	_, err = s.auctions.Cancel(s.T().Context(), s.admin, auction.ID)
	s.Require().ErrorIs(err, domain.ErrAuctionNotActive)

	s.Eventually(func() bool {
		return s.publisher.Has(domain.EventAuctionEnded, seller.ID)
	}, time.Second, 10*time.Millisecond)
}

func (s *AuctionServiceTestSuite) TestSettle_RefundsBuyerAfterFailedPayouts() {
	s.setup(Options{PayoutAttempts: 2})
	seller := s.newUser(0)
	buyer := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, buyer.ID, 400)
	s.Require().NoError(err)

	// Расхождение кеша продавца с журналом делает выплату невозможной.
	s.corrupt(seller.ID, domain.Balance{Available: 1})

	s.clock.Advance(2 * time.Hour)
	sold, err := s.auctions.Advance(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusSold, sold.Status)
	s.Equal(domain.SettlementPending, sold.Settlement)
	s.Equal(1, sold.PayoutAttempts)
	s.True(s.balance(seller.ID).Frozen)

	due, err := s.auctions.DueForSweep(s.T().Context(), 0, 10)
	s.Require().NoError(err)
	s.Contains(due, auction.ID)

	reversed, err := s.auctions.Settle(s.T().Context(), auction.ID)
	s.Require().Error(err)
	s.Equal(domain.SettlementReversed, reversed.Settlement)

	s.Equal(UserBalance{AccountID: buyer.ID, Currency: defaultCurrency, Available: 1000}, *s.balance(buyer.ID))
	s.Empty(s.entries(seller.ID, domain.EntryKindPayout))

	due, err = s.auctions.DueForSweep(s.T().Context(), 0, 10)
	s.Require().NoError(err)
	s.NotContains(due, auction.ID)
}

func (s *AuctionServiceTestSuite) TestSettle_NotSold() {
	seller := s.newUser(0)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.auctions.Settle(s.T().Context(), auction.ID)
	s.Require().ErrorIs(err, domain.ErrAuctionNotSettling)
}

func (s *AuctionServiceTestSuite) TestCreate_Validation() {
	seller := s.newUser(0)
	now := s.clock.Now()

	cases := []struct {
		name    string
		args    CreateAuctionArgs
		wantErr error
	}{
		{
			name:    "empty title",
			args:    CreateAuctionArgs{StartingPrice: 100, EndTime: now.Add(time.Hour)},
			wantErr: domain.ErrInvalidAuction,
		},
		{
			name:    "zero starting price",
			args:    CreateAuctionArgs{Title: "lot", EndTime: now.Add(time.Hour)},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "buy now below starting price",
			args:    CreateAuctionArgs{Title: "lot", StartingPrice: 100, BuyNowPrice: 100, EndTime: now.Add(time.Hour)},
			wantErr: domain.ErrInvalidAuction,
		},
		{
			name: "ends before start",
			args: CreateAuctionArgs{
				Title:         "lot",
				StartingPrice: 100,
				StartTime:     now.Add(2 * time.Hour),
				EndTime:       now.Add(time.Hour),
			},
			wantErr: domain.ErrInvalidAuction,
		},
		{
			name:    "ends in the past",
			args:    CreateAuctionArgs{Title: "lot", StartingPrice: 100, StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour)},
			wantErr: domain.ErrInvalidAuction,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			t.args.SellerID = seller.ID
			_, err := s.auctions.Create(s.T().Context(), t.args)
			s.Require().ErrorIs(err, t.wantErr)
		})
	}
}

func (s *AuctionServiceTestSuite) TestListings() {
	seller := s.newUser(0)
	ctx := s.T().Context()

	popular := s.newAuction(seller.ID, 100, 0)
	quiet := s.newAuction(seller.ID, 50, 0)
	late, err := s.auctions.Create(ctx, CreateAuctionArgs{
		SellerID:      seller.ID,
		Title:         "vintage camera",
		Category:      domain.CategoryCollectible,
		StartingPrice: 80,
		EndTime:       s.clock.Now().Add(48 * time.Hour),
	})
	s.Require().NoError(err)
	_, err = s.auctions.Cancel(ctx, s.admin, quiet.ID)
	s.Require().NoError(err)

	price := domain.Amount(100)
	for range featuredMinBids {
		price += 10
		_, err = s.bid(popular.ID, s.newUser(1000).ID, price)
		s.Require().NoError(err)
	}

	list, total, err := s.auctions.List(ctx, ListAuctionsArgs{Sort: domain.SortPriceHigh})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal(popular.ID, list[0].ID)

	list, total, err = s.auctions.List(ctx, ListAuctionsArgs{Search: "CAMERA", Category: domain.CategoryCollectible})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(late.ID, list[0].ID)

	featured, err := s.auctions.Featured(ctx)
	s.Require().NoError(err)
	s.Require().Len(featured, 1)
	s.Equal(popular.ID, featured[0].ID)

	endingSoon, err := s.auctions.EndingSoon(ctx)
	s.Require().NoError(err)
	s.Require().Len(endingSoon, 1)
	s.Equal(popular.ID, endingSoon[0].ID)

	_, err = s.auctions.Schedule(ctx, domain.Identity{UserID: seller.ID, Role: domain.RoleUser})
	s.Require().ErrorIs(err, domain.ErrForbidden)
	schedule, err := s.auctions.Schedule(ctx, s.admin)
	s.Require().NoError(err)
	s.Len(schedule, 2)

	stats, err := s.auctions.Analytics(ctx, s.admin)
	s.Require().NoError(err)
	s.Equal(2, stats.ByStatus[domain.AuctionStatusActive])
	s.Equal(1, stats.ByStatus[domain.AuctionStatusCancelled])
	s.Equal(featuredMinBids, stats.TotalBids)
}

func (s *AuctionServiceTestSuite) deposit(accountID int64, amount domain.Amount, key string) {
	_, err := s.wallet.Deposit(s.T().Context(), WalletOpArgs{AccountID: accountID, Amount: amount, IdempotencyKey: key})
	s.Require().NoError(err)
}

func (s *AuctionServiceTestSuite) TestCallerKeys_OutbidReleaseUnaffected() {
	seller := s.newUser(0)
	a := s.newUser(1000)
	b := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	first, err := s.bid(auction.ID, a.ID, 150)
	s.Require().NoError(err)
	s.deposit(a.ID, 10, fmt.Sprintf("outbid:%d", first.Bid.ID))

	_, err = s.bid(auction.ID, b.ID, 200)
	s.Require().NoError(err)

	s.Equal(UserBalance{AccountID: a.ID, Currency: defaultCurrency, Available: 1010}, *s.balance(a.ID))
	s.Len(s.entries(a.ID, domain.EntryKindRelease), 1)
	s.assertLedgerConsistent(a.ID)
}

func (s *AuctionServiceTestSuite) TestCallerKeys_SettlementUnaffected() {
	seller := s.newUser(0)
	winner := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, winner.ID, 300)
	s.Require().NoError(err)
	s.deposit(winner.ID, 10, fmt.Sprintf("capture:%d", auction.ID))
	s.deposit(seller.ID, 10, fmt.Sprintf("payout:%d", auction.ID))

	s.clock.Advance(2 * time.Hour)
	sold, err := s.auctions.Advance(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusSold, sold.Status)
	s.Equal(domain.SettlementPaid, sold.Settlement)

	s.Equal(UserBalance{AccountID: winner.ID, Currency: defaultCurrency, Available: 710}, *s.balance(winner.ID))
	s.Equal(domain.Amount(310), s.balance(seller.ID).Available)
	s.Len(s.entries(winner.ID, domain.EntryKindCapture), 1)
	s.Len(s.entries(seller.ID, domain.EntryKindPayout), 1)
	s.assertLedgerConsistent(winner.ID)
	s.assertLedgerConsistent(seller.ID)
}

func (s *AuctionServiceTestSuite) TestCallerKeys_CancelReleaseUnaffected() {
	seller := s.newUser(0)
	leader := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	res, err := s.bid(auction.ID, leader.ID, 250)
	s.Require().NoError(err)
	s.deposit(leader.ID, 10, fmt.Sprintf("cancel:%d", res.Bid.HoldEntryID))
	s.deposit(leader.ID, 10, fmt.Sprintf("close:%d", res.Bid.HoldEntryID))

	cancelled, err := s.auctions.Cancel(s.T().Context(), s.admin, auction.ID)
	s.Require().NoError(err)
	s.Equal(domain.AuctionStatusCancelled, cancelled.Status)

	s.Equal(UserBalance{AccountID: leader.ID, Currency: defaultCurrency, Available: 1020}, *s.balance(leader.ID))
	s.assertLedgerConsistent(leader.ID)
}

func (s *AuctionServiceTestSuite) TestCallerKeys_RefundUnaffected() {
	s.setup(Options{PayoutAttempts: 2})
	seller := s.newUser(0)
	buyer := s.newUser(1000)
	auction := s.newAuction(seller.ID, 100, 0)

	_, err := s.bid(auction.ID, buyer.ID, 400)
	s.Require().NoError(err)
	s.deposit(buyer.ID, 10, fmt.Sprintf("refund:%d", auction.ID))
	s.corrupt(seller.ID, domain.Balance{Available: 1})

	s.clock.Advance(2 * time.Hour)
	_, err = s.auctions.Advance(s.T().Context(), auction.ID)
	s.Require().NoError(err)
	reversed, err := s.auctions.Settle(s.T().Context(), auction.ID)
	s.Require().Error(err)
	s.Equal(domain.SettlementReversed, reversed.Settlement)

	s.Equal(UserBalance{AccountID: buyer.ID, Currency: defaultCurrency, Available: 1010}, *s.balance(buyer.ID))
	s.Len(s.entries(buyer.ID, domain.EntryKindRefund), 1)
}
