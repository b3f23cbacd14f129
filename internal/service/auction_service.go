package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/pkg/keylock"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/sirupsen/logrus"
)

const (
	featuredMinBids  = 5
	featuredLimit    = 8
	endingSoonWindow = 24 * time.Hour
	endingSoonLimit  = 12
	scheduleLimit    = 100
	maxTitleLength   = 200
)

// AuctionService аукционы, ставки и их жизненный цикл. Операции над одним аукционом выполняются по очереди
// внутри процесса, между процессами их разводит версия записи аукциона.
type AuctionService struct {
	uow            uow.UOW
	auctionRepo    AuctionRepository
	bidRepo        BidRepository
	transitionRepo TransitionRepository
	wallet         *WalletService
	locks          *keylock.Pool[int64]
	publisher      EventPublisher
	opts           Options
	l              *logrus.Entry
}

func NewAuctionService(
	u uow.UOW,
	wallet *WalletService,
	publisher EventPublisher,
	opts Options,
	l *logrus.Logger,
) (*AuctionService, error) {
	auctionRepo, err := uow.GetRepositoryAs[AuctionRepository](u, uow.RepositoryName(repoargs.AuctionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	bidRepo, err := uow.GetRepositoryAs[BidRepository](u, uow.RepositoryName(repoargs.BidRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	transitionRepo, err := uow.GetRepositoryAs[TransitionRepository](u, uow.RepositoryName(repoargs.TransitionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &AuctionService{
		uow:            u,
		auctionRepo:    auctionRepo,
		bidRepo:        bidRepo,
		transitionRepo: transitionRepo,
		wallet:         wallet,
		locks:          keylock.New[int64](),
		publisher:      publisher,
		opts:           opts.withDefaults(),
		l:              l.WithField("component", "auction"),
	}, nil
}

type CreateAuctionArgs struct {
	SellerID      int64
	Title         string
	Description   string
	Category      domain.CategoryType
	Condition     domain.ConditionType
	StartingPrice domain.Amount
	BuyNowPrice   domain.Amount
	// Нулевое StartTime означает немедленный старт.
	StartTime time.Time
	EndTime   time.Time
}

// Create выставляет лот. Аукцион с временем старта в будущем создается в статусе scheduled, иначе active.
func (s *AuctionService) Create(ctx context.Context, args CreateAuctionArgs) (*domain.Auction, error) {
	now := s.opts.Clock()
	if args.StartTime.IsZero() {
		args.StartTime = now
	}
	if err := validateAuction(args, now); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	status := domain.AuctionStatusActive
	if args.StartTime.After(now) {
		status = domain.AuctionStatusScheduled
	}

	var auction *domain.Auction
	_, err := s.transact(ctx, func(c context.Context, atx *auctionTx) error {
		var err error
		auction, err = atx.auctions.Create(c, repoargs.AuctionCreate{
			SellerID:      args.SellerID,
			Title:         strings.TrimSpace(args.Title),
			Description:   args.Description,
			Category:      args.Category,
			Condition:     args.Condition,
			StartingPrice: args.StartingPrice,
			BuyNowPrice:   args.BuyNowPrice,
			StartTime:     args.StartTime,
			EndTime:       args.EndTime,
			Status:        status,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}
		return atx.record(c, auction.ID, "", status, "created")
	})
	if err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}
	return auction, nil
}

func validateAuction(args CreateAuctionArgs, now time.Time) error {
	switch {
	case strings.TrimSpace(args.Title) == "" || len(args.Title) > maxTitleLength:
		return fmt.Errorf("%w: title must be 1..%d characters", domain.ErrInvalidAuction, maxTitleLength)
	case args.StartingPrice <= 0:
		return fmt.Errorf("starting price: %w", domain.ErrInvalidAmount)
	case args.BuyNowPrice < 0:
		return fmt.Errorf("buy now price: %w", domain.ErrInvalidAmount)
	case args.BuyNowPrice > 0 && args.BuyNowPrice <= args.StartingPrice:
		return fmt.Errorf("%w: buy now price must exceed starting price", domain.ErrInvalidAuction)
	case !args.EndTime.After(args.StartTime):
		return fmt.Errorf("%w: end time must be after start time", domain.ErrInvalidAuction)
	case !args.EndTime.After(now):
		return fmt.Errorf("%w: end time must be in the future", domain.ErrInvalidAuction)
	}
	return nil
}

// Get возвращает аукцион. Если аукциону пора сменить статус, переход выполняется до ответа.
func (s *AuctionService) Get(ctx context.Context, auctionID int64) (*domain.Auction, error) {
	auction, err := s.auctionRepo.Get(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	if !auction.Due(s.opts.Clock()) {
		return auction, nil
	}
	return s.Advance(ctx, auctionID)
}

type ListAuctionsArgs struct {
	Category  domain.CategoryType
	Condition domain.ConditionType
	MinPrice  domain.Amount
	MaxPrice  domain.Amount
	Search    string
	Sort      domain.SortType
	Limit     uint
	Offset    uint
}

// List возвращает активные аукционы, которые еще принимают ставки, и их общее количество.
func (s *AuctionService) List(ctx context.Context, args ListAuctionsArgs) ([]domain.Auction, int, error) {
	auctions, total, err := s.auctionRepo.List(ctx, repoargs.AuctionFilter{
		Statuses:  []domain.AuctionStatusType{domain.AuctionStatusActive},
		Category:  args.Category,
		Condition: args.Condition,
		MinPrice:  args.MinPrice,
		MaxPrice:  args.MaxPrice,
		Search:    strings.TrimSpace(args.Search),
		EndAfter:  s.opts.Clock(),
		Sort:      args.Sort,
		Page:      repoargs.Page{Limit: pageLimit(args.Limit), Offset: args.Offset},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list auctions: %w", err)
	}
	return auctions, total, nil
}

// Featured популярные активные аукционы.
func (s *AuctionService) Featured(ctx context.Context) ([]domain.Auction, error) {
	auctions, _, err := s.auctionRepo.List(ctx, repoargs.AuctionFilter{
		Statuses: []domain.AuctionStatusType{domain.AuctionStatusActive},
		MinBids:  featuredMinBids,
		EndAfter: s.opts.Clock(),
		Sort:     domain.SortMostBids,
		Page:     repoargs.Page{Limit: featuredLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("featured auctions: %w", err)
	}
	return auctions, nil
}

// EndingSoon активные аукционы, которые закончатся в ближайшие сутки.
func (s *AuctionService) EndingSoon(ctx context.Context) ([]domain.Auction, error) {
	now := s.opts.Clock()
	auctions, _, err := s.auctionRepo.List(ctx, repoargs.AuctionFilter{
		Statuses:  []domain.AuctionStatusType{domain.AuctionStatusActive},
		EndAfter:  now,
		EndBefore: now.Add(endingSoonWindow),
		Sort:      domain.SortEndingSoon,
		Page:      repoargs.Page{Limit: endingSoonLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("ending soon auctions: %w", err)
	}
	return auctions, nil
}

// Bids история ставок аукциона от новых к старым.
func (s *AuctionService) Bids(ctx context.Context, auctionID int64) ([]domain.Bid, error) {
	if _, err := s.auctionRepo.Get(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("auction bids: %w", err)
	}
	bids, err := s.bidRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction bids: %w", err)
	}
	return bids, nil
}

// History переходы аукциона между статусами.
func (s *AuctionService) History(
	ctx context.Context,
	who domain.Identity,
	auctionID int64,
) ([]domain.AuctionTransition, error) {
	if !who.CanAdministrate() {
		return nil, fmt.Errorf("auction history: %w", domain.ErrForbidden)
	}
	if _, err := s.auctionRepo.Get(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("auction history: %w", err)
	}
	history, err := s.transitionRepo.ListByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("auction history: %w", err)
	}
	return history, nil
}

// Schedule запланированные и идущие аукционы в порядке окончания.
func (s *AuctionService) Schedule(ctx context.Context, who domain.Identity) ([]domain.Auction, error) {
	if !who.CanAdministrate() {
		return nil, fmt.Errorf("auction schedule: %w", domain.ErrForbidden)
	}
	auctions, _, err := s.auctionRepo.List(ctx, repoargs.AuctionFilter{
		Statuses: []domain.AuctionStatusType{domain.AuctionStatusScheduled, domain.AuctionStatusActive},
		Sort:     domain.SortEndingSoon,
		Page:     repoargs.Page{Limit: scheduleLimit},
	})
	if err != nil {
		return nil, fmt.Errorf("auction schedule: %w", err)
	}
	return auctions, nil
}

// Analytics сводка по аукционам.
func (s *AuctionService) Analytics(ctx context.Context, who domain.Identity) (*repoargs.AuctionStats, error) {
	if !who.CanAdministrate() {
		return nil, fmt.Errorf("auction analytics: %w", domain.ErrForbidden)
	}
	stats, err := s.auctionRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("auction analytics: %w", err)
	}
	return stats, nil
}

// DueForSweep возвращает id аукционов больше afterID, которым нужен переход статуса или расчет с продавцом,
// по возрастанию id.
func (s *AuctionService) DueForSweep(ctx context.Context, afterID int64, limit uint) ([]int64, error) {
	ids, err := s.auctionRepo.DueIDs(ctx, s.opts.Clock(), afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("due auctions: %w", err)
	}
	return ids, nil
}

// exclusive выполняет fn, удерживая блокировку аукциона. Ожидание блокировки и сама операция ограничены
// OperationTimeout.
func (s *AuctionService) exclusive(ctx context.Context, auctionID int64, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("wait for auction %d: %w", auctionID, err)
	}
	defer unlock()
	return fn(ctx)
}

// transact выполняет fn в транзакции, повторяя ее при конфликте версий. Возвращает события, накопленные
// успешной попыткой.
func (s *AuctionService) transact(
	ctx context.Context,
	fn func(context.Context, *auctionTx) error,
) ([]domain.Event, error) {
	var events []domain.Event
	err := uow.DoWithRetry(ctx, s.uow, s.opts.BidRetries, isConflict, func(c context.Context, tx uow.TX) error {
		atx, err := s.begin(tx)
		if err != nil {
			return err
		}
		if err = fn(c, atx); err != nil {
			return err
		}
		events = atx.events
		return nil
	})
	if err != nil {
		s.wallet.FreezeOnViolation(ctx, err)
		return nil, asConflict(err)
	}
	return events, nil
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConcurrencyConflict) || errors.Is(err, uow.ErrTxConflict)
}

// asConflict помечает проигранную при фиксации гонку как domain.ErrConcurrencyConflict.
func asConflict(err error) error {
	if errors.Is(err, uow.ErrTxConflict) && !errors.Is(err, domain.ErrConcurrencyConflict) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
	}
	return err
}

// publish отправляет события после фиксации транзакции. Ошибки доставки только логируются.
func (s *AuctionService) publish(events []domain.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, e := range events {
			if err := s.publisher.Publish(ctx, e); err != nil {
				s.l.WithError(err).WithFields(logrus.Fields{
					"event":     e.Type,
					"auctionID": e.AuctionID,
					"userID":    e.UserID,
				}).Warn("publish event")
			}
		}
	}()
}
