package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/sirupsen/logrus"
)

type PlaceBidArgs struct {
	AuctionID int64
	BidderID  int64
	Amount    domain.Amount
	// IdempotencyKey повтор ставки с тем же ключом возвращает уже принятую ставку.
	IdempotencyKey string
}

type BidResult struct {
	Bid     *domain.Bid
	Auction *domain.Auction
}

// PlaceBid принимает ставку. Блокировка средств участника, снятие блокировки прежнего лидера, запись
// ставки и новая цена аукциона фиксируются одной транзакцией.
func (s *AuctionService) PlaceBid(ctx context.Context, args PlaceBidArgs) (*BidResult, error) {
	if args.Amount <= 0 {
		return nil, fmt.Errorf("place bid: %w", domain.ErrInvalidAmount)
	}
	holdKey := scopedKey("bid", args.AuctionID, args.IdempotencyKey)

	var res *BidResult
	err := s.exclusive(ctx, args.AuctionID, func(c context.Context) error {
		events, err := s.transact(c, func(c context.Context, atx *auctionTx) error {
			replay, err := atx.replayBid(c, args.AuctionID, args.BidderID, holdKey)
			if err != nil || replay != nil {
				res = replay
				return err
			}

			auction, err := atx.auctions.Get(c, args.AuctionID)
			if err != nil {
				return err //nolint:wrapcheck
			}
			if err = s.checkBidder(auction, args.BidderID, atx); err != nil {
				return err
			}
			if minAcceptable := s.opts.Increment.MinNextBid(auction.CurrentPrice); args.Amount < minAcceptable {
				return &domain.BidTooLowError{Current: auction.CurrentPrice, MinAcceptable: minAcceptable}
			}

			res, err = atx.acceptBid(c, auction, args.BidderID, args.Amount, holdKey)
			return err
		})
		if err != nil {
			return err
		}
		s.publish(events)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("place bid on auction %d: %w", args.AuctionID, err)
	}

	s.l.WithFields(logrus.Fields{
		"auctionID": args.AuctionID,
		"bidderID":  args.BidderID,
		"amount":    res.Bid.Amount.String(),
	}).Debug("bid accepted")
	return res, nil
}

// BuyNow покупает лот по фиксированной цене: ставка на сумму BuyNowPrice сразу завершает аукцион
// продажей. Выплата продавцу выполняется после фиксации.
func (s *AuctionService) BuyNow(ctx context.Context, auctionID, buyerID int64, idempotencyKey string) (*BidResult, error) {
	holdKey := scopedKey("buynow", auctionID, idempotencyKey)

	var res *BidResult
	err := s.exclusive(ctx, auctionID, func(c context.Context) error {
		events, err := s.transact(c, func(c context.Context, atx *auctionTx) error {
			replay, err := atx.replayBid(c, auctionID, buyerID, holdKey)
			if err != nil || replay != nil {
				res = replay
				return err
			}

			auction, err := atx.auctions.Get(c, auctionID)
			if err != nil {
				return err //nolint:wrapcheck
			}
			if err = s.checkBidder(auction, buyerID, atx); err != nil {
				return err
			}
			if !auction.HasBuyNow() {
				return domain.ErrBuyNowUnavailable
			}

			accepted, err := atx.acceptBid(c, auction, buyerID, auction.BuyNowPrice, holdKey)
			if err != nil {
				return err
			}
			sold, err := atx.transition(c, accepted.Auction, domain.AuctionStatusSold, "buy now")
			if err != nil {
				return err
			}
			res = &BidResult{Bid: accepted.Bid, Auction: sold}
			return nil
		})
		if err != nil {
			return err
		}
		s.publish(events)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("buy now auction %d: %w", auctionID, err)
	}

	if res.Auction.Settlement == domain.SettlementPending {
		settled, settleErr := s.Settle(ctx, auctionID)
		if settleErr != nil {
			s.l.WithError(settleErr).WithField("auctionID", auctionID).Warn("settle after buy now")
		}
		if settled != nil {
			res.Auction = settled
		}
	}
	return res, nil
}

func (s *AuctionService) checkBidder(auction *domain.Auction, bidderID int64, atx *auctionTx) error {
	if !auction.AcceptsBids(atx.now) {
		return fmt.Errorf("auction %d is %s: %w", auction.ID, auction.Status, domain.ErrAuctionNotActive)
	}
	if auction.SellerID == bidderID {
		return domain.ErrSelfBid
	}
	return nil
}

// replayBid возвращает ставку, ранее принятую с ключом holdKey, или nil.
func (t *auctionTx) replayBid(ctx context.Context, auctionID, bidderID int64, holdKey string) (*BidResult, error) {
	if holdKey == "" {
		return nil, nil
	}
	hold, err := t.wallet.FindByKey(ctx, bidderID, holdKey)
	if err != nil || hold == nil {
		return nil, err
	}
	bid, err := t.bids.FindByHoldEntry(ctx, hold.ID)
	if err != nil {
		return nil, fmt.Errorf("bid of hold %d: %w", hold.ID, err)
	}
	auction, err := t.auctions.Get(ctx, auctionID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &BidResult{Bid: bid, Auction: auction}, nil
}

// acceptBid снимает блокировку прежнего лидера, блокирует средства нового и делает его ставку выигрывающей.
func (t *auctionTx) acceptBid(
	ctx context.Context,
	auction *domain.Auction,
	bidderID int64,
	amount domain.Amount,
	holdKey string,
) (*BidResult, error) {
	var prev *domain.Bid
	if auction.WinningBidID != nil {
		var err error
		if prev, err = t.bids.GetByID(ctx, *auction.WinningBidID); err != nil {
			return nil, fmt.Errorf("winning bid of auction %d: %w", auction.ID, err)
		}
	}

	accounts := []int64{bidderID}
	if prev != nil {
		accounts = append(accounts, prev.BidderID)
	}
	if err := t.wallet.LockInOrder(ctx, accounts...); err != nil {
		return nil, err
	}

	if prev != nil {
		if _, err := t.wallet.Release(ctx, prev.HoldEntryID, fmt.Sprintf("outbid:%d", prev.ID)); err != nil {
			return nil, err
		}
	}

	hold, err := t.wallet.Hold(ctx, WalletOpArgs{
		AccountID:      bidderID,
		Amount:         amount,
		AuctionID:      &auction.ID,
		IdempotencyKey: holdKey,
		Description:    fmt.Sprintf("bid on auction #%d", auction.ID),
	})
	if err != nil {
		return nil, err
	}

	bid, err := t.bids.Create(ctx, repoargs.BidCreate{
		AuctionID:   auction.ID,
		BidderID:    bidderID,
		Amount:      amount,
		HoldEntryID: hold.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	next := *auction
	next.CurrentPrice = amount
	next.BidCount++
	next.WinningBidID = &bid.ID
	updated, err := t.auctions.Update(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("update auction %d price: %w", auction.ID, err)
	}

	if prev != nil && prev.BidderID != bidderID {
		t.emit(domain.EventOutbid, auction.ID, prev.BidderID, amount)
	}
	return &BidResult{Bid: bid, Auction: updated}, nil
}

// Advance выполняет все переходы статуса, которые к текущему моменту положены аукциону, и затем расчет
// с продавцом, если он ожидается.
func (s *AuctionService) Advance(ctx context.Context, auctionID int64) (*domain.Auction, error) {
	var auction *domain.Auction
	err := s.exclusive(ctx, auctionID, func(c context.Context) error {
		events, err := s.transact(c, func(c context.Context, atx *auctionTx) error {
			a, err := atx.auctions.Get(c, auctionID)
			if err != nil {
				return err //nolint:wrapcheck
			}
			for {
				next, ok := a.NextStatus(atx.now)
				if !ok {
					break
				}
				if a, err = atx.transition(c, a, next, "schedule"); err != nil {
					return err
				}
			}
			auction = a
			return nil
		})
		if err != nil {
			return err
		}
		s.publish(events)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("advance auction %d: %w", auctionID, err)
	}

	if auction.Settlement == domain.SettlementPending {
		settled, settleErr := s.Settle(ctx, auctionID)
		if settleErr != nil {
			s.l.WithError(settleErr).WithField("auctionID", auctionID).Warn("settle auction")
		}
		if settled != nil {
			auction = settled
		}
	}
	return auction, nil
}

// Settle выплачивает продавцу выручку проданного аукциона. После PayoutAttempts неудачных попыток деньги
// возвращаются покупателю, а расчет помечается как reversed.
func (s *AuctionService) Settle(ctx context.Context, auctionID int64) (*domain.Auction, error) {
	var auction *domain.Auction
	err := s.exclusive(ctx, auctionID, func(c context.Context) error {
		events, err := s.transact(c, func(c context.Context, atx *auctionTx) error {
			a, err := atx.auctions.Get(c, auctionID)
			if err != nil {
				return err //nolint:wrapcheck
			}
			auction = a
			switch a.Settlement {
			case domain.SettlementPaid, domain.SettlementReversed:
				return nil
			case domain.SettlementPending:
			default:
				return domain.ErrAuctionNotSettling
			}

			if _, err = atx.wallet.Payout(c, WalletOpArgs{
				AccountID:      a.SellerID,
				Amount:         a.CurrentPrice,
				AuctionID:      &a.ID,
				IdempotencyKey: fmt.Sprintf("payout:%d", a.ID),
				Description:    fmt.Sprintf("proceeds of auction #%d", a.ID),
			}); err != nil {
				return err
			}

			next := *a
			next.Settlement = domain.SettlementPaid
			next.SettledAt = &atx.now
			if auction, err = atx.auctions.Update(c, next); err != nil {
				return err //nolint:wrapcheck
			}
			atx.emit(domain.EventPaymentReceived, a.ID, a.SellerID, a.CurrentPrice)
			return nil
		})
		if err == nil {
			s.publish(events)
			return nil
		}
		if errors.Is(err, domain.ErrAuctionNotSettling) || isConflict(err) || c.Err() != nil {
			return err
		}
		if failed, failErr := s.failPayout(c, auctionID); failErr != nil {
			s.l.WithError(failErr).WithField("auctionID", auctionID).Error("record failed payout")
		} else {
			auction = failed
		}
		return err
	})
	if err != nil {
		return auction, fmt.Errorf("settle auction %d: %w", auctionID, err)
	}
	return auction, nil
}

// failPayout учитывает неудачную выплату и при исчерпании попыток возвращает деньги покупателю.
func (s *AuctionService) failPayout(ctx context.Context, auctionID int64) (*domain.Auction, error) {
	var auction *domain.Auction
	_, err := s.transact(ctx, func(c context.Context, atx *auctionTx) error {
		a, err := atx.auctions.Get(c, auctionID)
		if err != nil {
			return err //nolint:wrapcheck
		}
		auction = a
		if a.Settlement != domain.SettlementPending {
			return nil
		}

		next := *a
		next.PayoutAttempts++
		if next.PayoutAttempts >= s.opts.PayoutAttempts {
			winner, getErr := atx.bids.GetByID(c, *a.WinningBidID)
			if getErr != nil {
				return fmt.Errorf("winning bid of auction %d: %w", a.ID, getErr)
			}
			if _, err = atx.wallet.Refund(c, WalletOpArgs{
				AccountID:      winner.BidderID,
				Amount:         a.CurrentPrice,
				AuctionID:      &a.ID,
				IdempotencyKey: fmt.Sprintf("refund:%d", a.ID),
				Description:    fmt.Sprintf("refund for auction #%d", a.ID),
			}); err != nil {
				return err
			}
			next.Settlement = domain.SettlementReversed
			next.SettledAt = &atx.now
			s.l.WithFields(logrus.Fields{
				"auctionID": a.ID,
				"attempts":  next.PayoutAttempts,
			}).Warn("payout attempts exhausted, buyer refunded")
		}
		auction, err = atx.auctions.Update(c, next)
		return err //nolint:wrapcheck
	})
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// Cancel отменяет аукцион и снимает все блокировки средств по нему. Повторная отмена ничего не меняет.
func (s *AuctionService) Cancel(ctx context.Context, who domain.Identity, auctionID int64) (*domain.Auction, error) {
	if !who.CanAdministrate() {
		return nil, fmt.Errorf("cancel auction: %w", domain.ErrForbidden)
	}
	var auction *domain.Auction
	err := s.exclusive(ctx, auctionID, func(c context.Context) error {
		events, err := s.transact(c, func(c context.Context, atx *auctionTx) error {
			a, err := atx.auctions.Get(c, auctionID)
			if err != nil {
				return err //nolint:wrapcheck
			}
			if a.Status == domain.AuctionStatusCancelled {
				auction = a
				return nil
			}
			if a.Status.IsTerminal() {
				return fmt.Errorf("auction %d is %s: %w", a.ID, a.Status, domain.ErrAuctionNotActive)
			}
			auction, err = atx.transition(c, a, domain.AuctionStatusCancelled, fmt.Sprintf("cancelled by user %d", who.UserID))
			return err
		})
		if err != nil {
			return err
		}
		s.publish(events)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cancel auction %d: %w", auctionID, err)
	}
	return auction, nil
}

func scopedKey(scope string, auctionID int64, key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%s", scope, auctionID, key)
}
