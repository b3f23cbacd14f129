package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const auctionColumns = `id, created_at, updated_at, seller_id, title, description, category, condition,
	starting_price, current_price, buy_now_price, start_time, end_time, status::text, status_changed_at,
	bid_count, winning_bid_id, version, settlement::text, payout_attempts, settled_at`

type AuctionRepository struct {
	conn uow.DBTX
}

func NewAuctionRepository(conn uow.DBTX) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

func (a *AuctionRepository) Create(ctx context.Context, args repoargs.AuctionCreate) (*domain.Auction, error) {
	row := a.conn.QueryRow(ctx,
		`INSERT INTO auctions (seller_id, title, description, category, condition, starting_price, current_price,
			buy_now_price, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9, $10::auction_status)
		RETURNING `+auctionColumns,
		args.SellerID,
		args.Title,
		args.Description,
		string(args.Category),
		string(args.Condition),
		int64(args.StartingPrice),
		int64(args.BuyNowPrice),
		args.StartTime,
		args.EndTime,
		string(args.Status),
	)
	auction, err := scanAuction(row)
	if err != nil {
		return nil, convertErr(err, "creating auction for seller %d", args.SellerID)
	}
	return auction, nil
}

func (a *AuctionRepository) Get(ctx context.Context, id int64) (*domain.Auction, error) {
	row := a.conn.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	auction, err := scanAuction(row)
	if err != nil {
		return nil, convertErr(err, "getting auction %d", id)
	}
	return auction, nil
}

// Update сохраняет изменяемые поля аукциона, если версия в базе равна auction.Version.
func (a *AuctionRepository) Update(ctx context.Context, auction domain.Auction) (*domain.Auction, error) {
	row := a.conn.QueryRow(ctx,
		`UPDATE auctions SET
			current_price = $3,
			status = $4::auction_status,
			status_changed_at = $5,
			bid_count = $6,
			winning_bid_id = $7,
			settlement = $8::auction_settlement,
			payout_attempts = $9,
			settled_at = $10,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING `+auctionColumns,
		auction.ID,
		auction.Version,
		int64(auction.CurrentPrice),
		string(auction.Status),
		auction.StatusChangedAt,
		auction.BidCount,
		auction.WinningBidID,
		string(auction.Settlement),
		auction.PayoutAttempts,
		auction.SettledAt,
	)
	updated, err := scanAuction(row)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		// строка либо удалена, либо уже изменена другой транзакцией
		if _, getErr := a.Get(ctx, auction.ID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf(
			"[repository/updating auction %d at version %d] %w", auction.ID, auction.Version, domain.ErrConcurrencyConflict,
		)
	}
	return nil, convertErr(err, "updating auction %d", auction.ID)
}

func (a *AuctionRepository) List(ctx context.Context, filter repoargs.AuctionFilter) ([]domain.Auction, int, error) {
	where, args := auctionWhere(filter)

	batch := new(pgx.Batch)
	batch.Queue(
		fmt.Sprintf(`SELECT %s FROM auctions %s ORDER BY %s LIMIT $%d OFFSET $%d`,
			auctionColumns, where, auctionOrderBy(filter.Sort), len(args)+1, len(args)+2),
		append(args, limitOrAll(filter.Limit), int64(filter.Offset))...,
	)
	batch.Queue(`SELECT COUNT(*) FROM auctions `+where, args...)

	br := a.conn.SendBatch(ctx, batch)
	defer br.Close()

	rows, err := br.Query()
	if err != nil {
		return nil, 0, convertErr(err, "listing auctions")
	}
	auctions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Auction, error) {
		auction, scanErr := scanAuction(row)
		if scanErr != nil {
			return domain.Auction{}, scanErr
		}
		return *auction, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "listing auctions")
	}
	var total int
	if err = br.QueryRow().Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting auctions")
	}
	return auctions, total, nil
}

func auctionWhere(f repoargs.AuctionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		add("status::text = ANY($%d)", statuses)
	}
	if f.SellerID != 0 {
		add("seller_id = $%d", f.SellerID)
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Condition != "" {
		add("condition = $%d", string(f.Condition))
	}
	if f.MinPrice > 0 {
		add("current_price >= $%d", int64(f.MinPrice))
	}
	if f.MaxPrice > 0 {
		add("current_price <= $%d", int64(f.MaxPrice))
	}
	if f.MinBids > 0 {
		add("bid_count >= $%d", f.MinBids)
	}
	if !f.EndAfter.IsZero() {
		add("end_time > $%d", f.EndAfter)
	}
	if !f.EndBefore.IsZero() {
		add("end_time <= $%d", f.EndBefore)
	}
	if f.Search != "" {
		add("(title ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+escapeLike(f.Search)+"%")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func auctionOrderBy(sort domain.SortType) string {
	switch sort {
	case domain.SortNewest:
		return "created_at DESC, id DESC"
	case domain.SortPriceLow:
		return "current_price ASC, id"
	case domain.SortPriceHigh:
		return "current_price DESC, id"
	case domain.SortMostBids:
		return "bid_count DESC, id"
	default:
		return "end_time ASC, id"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// DueIDs возвращает аукционы, которым пора сменить статус, и проданные аукционы без расчета с продавцом.
func (a *AuctionRepository) DueIDs(ctx context.Context, now time.Time, afterID int64, limit uint) ([]int64, error) {
	rows, err := a.conn.Query(ctx,
		`SELECT id FROM auctions
		WHERE id > $2 AND (
			(status = 'scheduled' AND start_time <= $1)
			OR (status = 'active' AND end_time <= $1)
			OR settlement = 'pending'
		)
		ORDER BY id
		LIMIT $3`,
		now, afterID, limitOrAll(limit),
	)
	if err != nil {
		return nil, convertErr(err, "listing due auctions")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, convertErr(err, "listing due auctions")
	}
	return ids, nil
}

func (a *AuctionRepository) Stats(ctx context.Context) (*repoargs.AuctionStats, error) {
	stats := &repoargs.AuctionStats{ByStatus: make(map[domain.AuctionStatusType]int)}

	rows, err := a.conn.Query(ctx,
		`SELECT status::text, COUNT(*), COALESCE(SUM(current_price) FILTER (WHERE status = 'sold'), 0)::BIGINT
		FROM auctions GROUP BY status`,
	)
	if err != nil {
		return nil, convertErr(err, "collecting auction stats")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
			volume int64
		)
		if err = rows.Scan(&status, &count, &volume); err != nil {
			return nil, convertErr(err, "collecting auction stats")
		}
		stats.ByStatus[domain.AuctionStatusType(status)] = count
		stats.SoldVolume += domain.Amount(volume)
	}
	if err = rows.Err(); err != nil {
		return nil, convertErr(err, "collecting auction stats")
	}

	if err = a.conn.QueryRow(ctx, `SELECT COUNT(*) FROM bids`).Scan(&stats.TotalBids); err != nil {
		return nil, convertErr(err, "counting bids")
	}
	return stats, nil
}

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	var (
		a                                domain.Auction
		category, condition              string
		status, settlement               string
		startPrice, currentPrice, buyNow int64
	)
	if err := row.Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.SellerID, &a.Title, &a.Description, &category, &condition,
		&startPrice, &currentPrice, &buyNow, &a.StartTime, &a.EndTime, &status, &a.StatusChangedAt,
		&a.BidCount, &a.WinningBidID, &a.Version, &settlement, &a.PayoutAttempts, &a.SettledAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	a.Category = domain.CategoryType(category)
	a.Condition = domain.ConditionType(condition)
	a.Status = domain.AuctionStatusType(status)
	a.Settlement = domain.SettlementType(settlement)
	a.StartingPrice = domain.Amount(startPrice)
	a.CurrentPrice = domain.Amount(currentPrice)
	a.BuyNowPrice = domain.Amount(buyNow)
	return &a, nil
}
