package pgrepo

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, created_at, account_id, kind::text, status::text, amount, auction_id, related_entry_id,
	idempotency_key, description`

type LedgerRepository struct {
	conn uow.DBTX
}

func NewLedgerRepository(conn uow.DBTX) *LedgerRepository {
	return &LedgerRepository{conn: conn}
}

// Append добавляет запись в журнал. Повтор ключа идемпотентности в пределах счета возвращает
// domain.ErrDuplicateKey.
func (l *LedgerRepository) Append(ctx context.Context, args repoargs.LedgerEntryCreate) (*domain.LedgerEntry, error) {
	row := l.conn.QueryRow(ctx,
		`INSERT INTO ledger_entries
			(account_id, kind, status, amount, auction_id, related_entry_id, idempotency_key, description)
		VALUES ($1, $2::ledger_entry_kind, $3::ledger_entry_status, $4, $5, $6, $7, $8)
		RETURNING `+entryColumns,
		args.AccountID,
		string(args.Kind),
		string(args.Status),
		int64(args.Amount),
		args.AuctionID,
		args.RelatedEntryID,
		args.IdempotencyKey,
		args.Description,
	)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, convertErr(err, "appending %s entry to account %d", args.Kind, args.AccountID)
	}
	return entry, nil
}

func (l *LedgerRepository) GetByID(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	row := l.conn.QueryRow(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, convertErr(err, "getting ledger entry %d", id)
	}
	return entry, nil
}

func (l *LedgerRepository) FindByIdempotencyKey(
	ctx context.Context,
	accountID int64,
	key string,
) (*domain.LedgerEntry, error) {
	row := l.conn.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE account_id = $1 AND idempotency_key = $2`,
		accountID, key,
	)
	entry, err := scanEntry(row)
	if err != nil {
		return nil, convertErr(err, "finding entry by key %s", key)
	}
	return entry, nil
}

func (l *LedgerRepository) FindSettlements(ctx context.Context, holdID int64) ([]domain.LedgerEntry, error) {
	rows, err := l.conn.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries
		WHERE related_entry_id = $1 AND kind IN ('release', 'capture')
		ORDER BY id`,
		holdID,
	)
	if err != nil {
		return nil, convertErr(err, "finding settlements of hold %d", holdID)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, convertErr(err, "finding settlements of hold %d", holdID)
	}
	return entries, nil
}

func (l *LedgerRepository) SumByKind(ctx context.Context, accountID int64) ([]repoargs.KindSum, error) {
	rows, err := l.conn.Query(ctx,
		`SELECT kind::text, COALESCE(SUM(amount), 0)::BIGINT FROM ledger_entries
		WHERE account_id = $1 AND status <> 'failed'
		GROUP BY kind`,
		accountID,
	)
	if err != nil {
		return nil, convertErr(err, "summing ledger of account %d", accountID)
	}
	sums, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (repoargs.KindSum, error) {
		var (
			kind string
			sum  int64
		)
		scanErr := row.Scan(&kind, &sum)
		return repoargs.KindSum{Kind: domain.EntryKindType(kind), Sum: domain.Amount(sum)}, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "summing ledger of account %d", accountID)
	}
	return sums, nil
}

// List возвращает страницу записей счета от новых к старым и общее количество записей под фильтр.
// Страница и количество читаются одним пакетом запросов.
func (l *LedgerRepository) List(
	ctx context.Context,
	accountID int64,
	filter repoargs.LedgerFilter,
) ([]domain.LedgerEntry, int, error) {
	where := `account_id = $1 AND ($2 = '' OR kind::text = $2)`
	batch := new(pgx.Batch)
	batch.Queue(
		`SELECT `+entryColumns+` FROM ledger_entries WHERE `+where+` ORDER BY id DESC LIMIT $3 OFFSET $4`,
		accountID, string(filter.Kind), limitOrAll(filter.Limit), int64(filter.Offset),
	)
	batch.Queue(`SELECT COUNT(*) FROM ledger_entries WHERE `+where, accountID, string(filter.Kind))

	br := l.conn.SendBatch(ctx, batch)
	defer br.Close()

	rows, err := br.Query()
	if err != nil {
		return nil, 0, convertErr(err, "listing ledger of account %d", accountID)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, convertErr(err, "listing ledger of account %d", accountID)
	}
	var total int
	if err = br.QueryRow().Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting ledger of account %d", accountID)
	}
	return entries, total, nil
}

func (l *LedgerRepository) ListOpenHolds(ctx context.Context, auctionID int64) ([]domain.LedgerEntry, error) {
	rows, err := l.conn.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries h
		WHERE h.auction_id = $1 AND h.kind = 'hold' AND h.status <> 'failed'
			AND NOT EXISTS (
				SELECT 1 FROM ledger_entries s
				WHERE s.related_entry_id = h.id AND s.kind IN ('release', 'capture')
			)
		ORDER BY h.id`,
		auctionID,
	)
	if err != nil {
		return nil, convertErr(err, "listing open holds of auction %d", auctionID)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, convertErr(err, "listing open holds of auction %d", auctionID)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e            domain.LedgerEntry
		kind, status string
		amount       int64
	)
	if err := row.Scan(
		&e.ID, &e.CreatedAt, &e.AccountID, &kind, &status, &amount, &e.AuctionID, &e.RelatedEntryID,
		&e.IdempotencyKey, &e.Description,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	e.Kind = domain.EntryKindType(kind)
	e.Status = domain.EntryStatusType(status)
	e.Amount = domain.Amount(amount)
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]domain.LedgerEntry, error) {
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		e, scanErr := scanEntry(row)
		if scanErr != nil {
			return domain.LedgerEntry{}, scanErr
		}
		return *e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting ledger entries: %w", err)
	}
	return entries, nil
}

// limitOrAll переводит нулевой лимит в NULL, что для LIMIT означает отсутствие ограничения.
func limitOrAll(limit uint) *int64 {
	if limit == 0 {
		return nil
	}
	v := int64(limit)
	return &v
}
