package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
)

// auctionTx репозитории аукционов и операции с кошельками в одной транзакции. События копятся до фиксации.
type auctionTx struct {
	auctions    AuctionRepository
	bids        BidRepository
	transitions TransitionRepository
	wallet      *WalletTx
	now         time.Time
	events      []domain.Event
}

func (s *AuctionService) begin(tx uow.TX) (*auctionTx, error) {
	auctions, err := uow.GetAs[AuctionRepository](tx, uow.RepositoryName(repoargs.AuctionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	bids, err := uow.GetAs[BidRepository](tx, uow.RepositoryName(repoargs.BidRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	transitions, err := uow.GetAs[TransitionRepository](tx, uow.RepositoryName(repoargs.TransitionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	wallet, err := s.wallet.Tx(tx)
	if err != nil {
		return nil, err
	}
	return &auctionTx{
		auctions:    auctions,
		bids:        bids,
		transitions: transitions,
		wallet:      wallet,
		now:         s.opts.Clock(),
	}, nil
}

func (t *auctionTx) emit(typ domain.EventType, auctionID, userID int64, amount domain.Amount) {
	t.events = append(t.events, domain.Event{
		Type:       typ,
		AuctionID:  auctionID,
		UserID:     userID,
		Amount:     amount,
		OccurredAt: t.now,
	})
}

func (t *auctionTx) record(ctx context.Context, auctionID int64, from, to domain.AuctionStatusType, reason string) error {
	if _, err := t.transitions.Create(ctx, repoargs.TransitionCreate{
		AuctionID: auctionID,
		From:      from,
		To:        to,
		Reason:    reason,
	}); err != nil {
		return fmt.Errorf("record transition %s->%s: %w", from, to, err)
	}
	return nil
}

// transition переводит аукцион в статус to, закрывая блокировки средств участников.
func (t *auctionTx) transition(
	ctx context.Context,
	a *domain.Auction,
	to domain.AuctionStatusType,
	reason string,
) (*domain.Auction, error) {
	from := a.Status
	next := *a

	switch to {
	case domain.AuctionStatusActive:
	case domain.AuctionStatusEnded:
		if err := t.releaseOpen(ctx, a.ID, "close", 0); err != nil {
			return nil, err
		}
		t.emit(domain.EventAuctionEnded, a.ID, a.SellerID, a.CurrentPrice)
	case domain.AuctionStatusSold:
		winner, err := t.sell(ctx, a)
		if err != nil {
			return nil, err
		}
		next.Settlement = domain.SettlementPending
		if err = t.notifyBidders(ctx, a.ID, winner.BidderID, domain.EventAuctionLost, 0); err != nil {
			return nil, err
		}
		t.emit(domain.EventAuctionWon, a.ID, winner.BidderID, winner.Amount)
		t.emit(domain.EventAuctionSold, a.ID, a.SellerID, winner.Amount)
	case domain.AuctionStatusCancelled:
		if err := t.releaseOpen(ctx, a.ID, "cancel", 0); err != nil {
			return nil, err
		}
		if err := t.notifyBidders(ctx, a.ID, 0, domain.EventAuctionCancelled, 0); err != nil {
			return nil, err
		}
		t.emit(domain.EventAuctionCancelled, a.ID, a.SellerID, 0)
	default:
		return nil, fmt.Errorf("unexpected transition %s->%s of auction %d", from, to, a.ID)
	}

	next.Status = to
	next.StatusChangedAt = t.now
	updated, err := t.auctions.Update(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("auction %d %s->%s: %w", a.ID, from, to, err)
	}
	if err = t.record(ctx, a.ID, from, to, reason); err != nil {
		return nil, err
	}
	return updated, nil
}

// sell списывает заблокированные средства победителя и снимает все остальные блокировки по аукциону.
func (t *auctionTx) sell(ctx context.Context, a *domain.Auction) (*domain.Bid, error) {
	if a.WinningBidID == nil {
		return nil, fmt.Errorf("sell auction %d without bids: %w", a.ID, domain.ErrInvalidAuction)
	}
	winner, err := t.bids.GetByID(ctx, *a.WinningBidID)
	if err != nil {
		return nil, fmt.Errorf("winning bid of auction %d: %w", a.ID, err)
	}
	holds, err := t.wallet.OpenHolds(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if err = t.wallet.LockInOrder(ctx, holdAccounts(holds)...); err != nil {
		return nil, err
	}
	if _, err = t.wallet.Capture(ctx, winner.HoldEntryID, fmt.Sprintf("capture:%d", a.ID)); err != nil {
		return nil, err
	}
	if err = t.releaseOpen(ctx, a.ID, "close", winner.HoldEntryID); err != nil {
		return nil, err
	}
	return winner, nil
}

// releaseOpen снимает все незакрытые блокировки аукциона, кроме keep.
func (t *auctionTx) releaseOpen(ctx context.Context, auctionID int64, keyPrefix string, keep int64) error {
	holds, err := t.wallet.OpenHolds(ctx, auctionID)
	if err != nil {
		return err
	}
	if err = t.wallet.LockInOrder(ctx, holdAccounts(holds)...); err != nil {
		return err
	}
	for _, h := range holds {
		if h.ID == keep {
			continue
		}
		if _, err = t.wallet.Release(ctx, h.ID, fmt.Sprintf("%s:%d", keyPrefix, h.ID)); err != nil {
			return err
		}
	}
	return nil
}

// notifyBidders отправляет событие каждому участнику торгов, кроме except.
func (t *auctionTx) notifyBidders(
	ctx context.Context,
	auctionID, except int64,
	typ domain.EventType,
	amount domain.Amount,
) error {
	bids, err := t.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("bidders of auction %d: %w", auctionID, err)
	}
	seen := map[int64]struct{}{except: {}}
	for _, b := range bids {
		if _, ok := seen[b.BidderID]; ok {
			continue
		}
		seen[b.BidderID] = struct{}{}
		t.emit(typ, auctionID, b.BidderID, amount)
	}
	return nil
}

func holdAccounts(holds []domain.LedgerEntry) []int64 {
	ids := make([]int64, 0, len(holds))
	for _, h := range holds {
		ids = append(ids, h.AccountID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
