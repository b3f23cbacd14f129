// Package memrepo хранит данные в памяти процесса. Store реализует uow.UOW: транзакция работает с
// копией данных и подменяет ими состояние только при успешном завершении, поэтому откат бесплатный.
// Транзакции выполняются строго по очереди.
package memrepo

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/uow"
)

type data struct {
	users       map[int64]userRow
	accounts    map[int64]accountRow
	entries     []entryRow
	auctions    map[int64]auctionRow
	bids        []bidRow
	transitions []transitionRow
	userSeq     int64
	auctionSeq  int64
}

func newData() *data {
	return &data{
		users:    make(map[int64]userRow),
		accounts: make(map[int64]accountRow),
		auctions: make(map[int64]auctionRow),
	}
}

// clone копирует данные. Строки хранятся по значению, указатели внутри них не меняются после записи.
func (d *data) clone() *data {
	return &data{
		users:       maps.Clone(d.users),
		accounts:    maps.Clone(d.accounts),
		entries:     slices.Clone(d.entries),
		auctions:    maps.Clone(d.auctions),
		bids:        slices.Clone(d.bids),
		transitions: slices.Clone(d.transitions),
		userSeq:     d.userSeq,
		auctionSeq:  d.auctionSeq,
	}
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
	now  func() time.Time
}

func New() *Store {
	return &Store{
		d:   newData(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет источник времени для меток created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Do выполняет fn над копией данных и сохраняет копию, если fn вернула nil.
func (s *Store) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}

	s.mu.RLock()
	work := s.d.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &transaction{s: s, d: work}); err != nil {
		return err
	}

	s.mu.Lock()
	s.d = work
	s.mu.Unlock()
	return nil
}

// GetRepository возвращает репозиторий, работающий с зафиксированными данными.
func (s *Store) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return s.repository(name, nil)
}

func (s *Store) repository(name uow.RepositoryName, d *data) (uow.Repository, error) {
	b := base{s: s, d: d}
	switch repoargs.RepositoryName(name) {
	case repoargs.UserRepoName:
		return &UserRepository{base: b}, nil
	case repoargs.AccountRepoName:
		return &AccountRepository{base: b}, nil
	case repoargs.LedgerRepoName:
		return &LedgerRepository{base: b}, nil
	case repoargs.AuctionRepoName:
		return &AuctionRepository{base: b}, nil
	case repoargs.BidRepoName:
		return &BidRepository{base: b}, nil
	case repoargs.TransitionRepoName:
		return &TransitionRepository{base: b}, nil
	}
	return nil, uow.NotRegistered(name)
}

type transaction struct {
	s *Store
	d *data
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	return t.s.repository(name, t.d)
}

// base общая часть репозиториев. Внутри транзакции d указывает на рабочую копию.
type base struct {
	s *Store
	d *data
}

func (b base) read(fn func(d *data) error) error {
	if b.d != nil {
		return fn(b.d)
	}
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return fn(b.s.d)
}

// write вне транзакции применяет изменение сразу к зафиксированным данным. fn не должна ничего менять,
// если возвращает ошибку.
func (b base) write(fn func(d *data) error) error {
	if b.d != nil {
		return fn(b.d)
	}
	b.s.txMu.Lock()
	defer b.s.txMu.Unlock()
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return fn(b.s.d)
}

func errorf(err error, format string, args ...any) error {
	return fmt.Errorf("[memrepo/%s] %w", fmt.Sprintf(format, args...), err)
}
