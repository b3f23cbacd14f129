package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const transitionColumns = `id, created_at, auction_id, COALESCE(from_status::text, ''), to_status::text, reason`

type TransitionRepository struct {
	conn uow.DBTX
}

func NewTransitionRepository(conn uow.DBTX) *TransitionRepository {
	return &TransitionRepository{conn: conn}
}

func (t *TransitionRepository) Create(
	ctx context.Context,
	args repoargs.TransitionCreate,
) (*domain.AuctionTransition, error) {
	row := t.conn.QueryRow(ctx,
		`INSERT INTO auction_transitions (auction_id, from_status, to_status, reason)
		VALUES ($1, NULLIF($2, '')::auction_status, $3::auction_status, $4)
		RETURNING `+transitionColumns,
		args.AuctionID, string(args.From), string(args.To), args.Reason,
	)
	tr, err := scanTransition(row)
	if err != nil {
		return nil, convertErr(err, "recording transition of auction %d", args.AuctionID)
	}
	return tr, nil
}

// ListByAuction возвращает переходы в порядке их совершения.
func (t *TransitionRepository) ListByAuction(ctx context.Context, auctionID int64) ([]domain.AuctionTransition, error) {
	rows, err := t.conn.Query(ctx,
		`SELECT `+transitionColumns+` FROM auction_transitions WHERE auction_id = $1 ORDER BY id`,
		auctionID,
	)
	if err != nil {
		return nil, convertErr(err, "listing transitions of auction %d", auctionID)
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuctionTransition, error) {
		tr, scanErr := scanTransition(row)
		if scanErr != nil {
			return domain.AuctionTransition{}, scanErr
		}
		return *tr, nil
	})
	if err != nil {
		return nil, convertErr(err, "listing transitions of auction %d", auctionID)
	}
	return res, nil
}

func scanTransition(row pgx.Row) (*domain.AuctionTransition, error) {
	var (
		tr       domain.AuctionTransition
		from, to string
	)
	if err := row.Scan(&tr.ID, &tr.CreatedAt, &tr.AuctionID, &from, &to, &tr.Reason); err != nil {
		return nil, err //nolint:wrapcheck
	}
	tr.From = domain.AuctionStatusType(from)
	tr.To = domain.AuctionStatusType(to)
	return &tr, nil
}
