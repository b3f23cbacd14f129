package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const bidColumns = `id, created_at, auction_id, bidder_id, amount, hold_entry_id`

type BidRepository struct {
	conn uow.DBTX
}

func NewBidRepository(conn uow.DBTX) *BidRepository {
	return &BidRepository{conn: conn}
}

func (b *BidRepository) Create(ctx context.Context, args repoargs.BidCreate) (*domain.Bid, error) {
	row := b.conn.QueryRow(ctx,
		`INSERT INTO bids (auction_id, bidder_id, amount, hold_entry_id) VALUES ($1, $2, $3, $4)
		RETURNING `+bidColumns,
		args.AuctionID, args.BidderID, int64(args.Amount), args.HoldEntryID,
	)
	bid, err := scanBid(row)
	if err != nil {
		return nil, convertErr(err, "creating bid for auction %d", args.AuctionID)
	}
	return bid, nil
}

func (b *BidRepository) GetByID(ctx context.Context, id int64) (*domain.Bid, error) {
	bid, err := scanBid(b.conn.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "getting bid %d", id)
	}
	return bid, nil
}

func (b *BidRepository) FindByHoldEntry(ctx context.Context, holdEntryID int64) (*domain.Bid, error) {
	bid, err := scanBid(b.conn.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE hold_entry_id = $1`, holdEntryID))
	if err != nil {
		return nil, convertErr(err, "finding bid by hold entry %d", holdEntryID)
	}
	return bid, nil
}

// ListByAuction возвращает ставки от новых к старым.
func (b *BidRepository) ListByAuction(ctx context.Context, auctionID int64) ([]domain.Bid, error) {
	rows, err := b.conn.Query(ctx, `SELECT `+bidColumns+` FROM bids WHERE auction_id = $1 ORDER BY id DESC`, auctionID)
	if err != nil {
		return nil, convertErr(err, "listing bids of auction %d", auctionID)
	}
	bids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Bid, error) {
		bid, scanErr := scanBid(row)
		if scanErr != nil {
			return domain.Bid{}, scanErr
		}
		return *bid, nil
	})
	if err != nil {
		return nil, convertErr(err, "listing bids of auction %d", auctionID)
	}
	return bids, nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var (
		bid    domain.Bid
		amount int64
	)
	if err := row.Scan(&bid.ID, &bid.CreatedAt, &bid.AuctionID, &bid.BidderID, &amount, &bid.HoldEntryID); err != nil {
		return nil, err //nolint:wrapcheck
	}
	bid.Amount = domain.Amount(amount)
	return &bid, nil
}
