package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/memrepo"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/internal/service/psswd"
	"github.com/fsdevblog/groph-auction/pkg/uow"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

var testEpoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Has(typ domain.EventType, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == typ && e.UserID == userID {
			return true
		}
	}
	return false
}

// serviceSuite поднимает сервисы поверх хранилища в памяти с управляемыми часами.
type serviceSuite struct {
	suite.Suite
	store     *memrepo.Store
	clock     *testClock
	publisher *recordingPublisher
	opts      Options
	users     *UserService
	wallet    *WalletService
	auctions  *AuctionService
	admin     domain.Identity
}

func (s *serviceSuite) SetupTest() {
	s.setup(Options{})
}

func (s *serviceSuite) setup(opts Options) {
	s.clock = &testClock{now: testEpoch}
	s.publisher = &recordingPublisher{}
	s.store = memrepo.New().SetClock(s.clock.Now)

	opts.Clock = s.clock.Now
	opts.JWTSecret = []byte("secret")
	s.opts = opts.withDefaults()

	l := logrus.New()
	l.SetOutput(io.Discard)

	var err error
	s.users, err = NewUserService(s.store, psswd.PasswordHash{Cost: bcrypt.MinCost}, s.opts)
	s.Require().NoError(err)
	s.wallet, err = NewWalletService(s.store, s.opts, l)
	s.Require().NoError(err)
	s.auctions, err = NewAuctionService(s.store, s.wallet, s.publisher, s.opts, l)
	s.Require().NoError(err)

	s.admin = domain.Identity{UserID: s.newUser(0).ID, Role: domain.RoleAdmin}
}

// newUser регистрирует пользователя и зачисляет ему deposit, если он больше нуля.
func (s *serviceSuite) newUser(deposit domain.Amount) *domain.User {
	user, _, err := s.users.Register(s.T().Context(), RegisterUserArgs{
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	})
	s.Require().NoError(err)
	if deposit > 0 {
		_, err = s.wallet.Deposit(s.T().Context(), WalletOpArgs{AccountID: user.ID, Amount: deposit})
		s.Require().NoError(err)
	}
	return user
}

func (s *serviceSuite) newAuction(sellerID int64, starting, buyNow domain.Amount) *domain.Auction {
	auction, err := s.auctions.Create(s.T().Context(), CreateAuctionArgs{
		SellerID:      sellerID,
		Title:         gofakeit.ProductName(),
		Description:   gofakeit.Sentence(8),
		Category:      domain.CategoryElectronics,
		Condition:     domain.ConditionNew,
		StartingPrice: starting,
		BuyNowPrice:   buyNow,
		EndTime:       s.clock.Now().Add(time.Hour),
	})
	s.Require().NoError(err)
	return auction
}

func (s *serviceSuite) balance(accountID int64) *UserBalance {
	bal, err := s.wallet.GetBalance(s.T().Context(), accountID)
	s.Require().NoError(err)
	return bal
}

// assertLedgerConsistent проверяет, что кеш счета совпадает со сверткой журнала.
func (s *serviceSuite) assertLedgerConsistent(accountID int64) {
	accounts, err := uow.GetRepositoryAs[*memrepo.AccountRepository](s.store, uow.RepositoryName(repoargs.AccountRepoName))
	s.Require().NoError(err)
	acc, err := accounts.Get(s.T().Context(), accountID)
	s.Require().NoError(err)
	s.Equal(s.balance(accountID).Available, acc.Available, "available of account %d", accountID)
	s.Equal(s.balance(accountID).Held, acc.Held, "held of account %d", accountID)
}

func (s *serviceSuite) corrupt(accountID int64, bal domain.Balance) {
	accounts, err := uow.GetRepositoryAs[*memrepo.AccountRepository](s.store, uow.RepositoryName(repoargs.AccountRepoName))
	s.Require().NoError(err)
	accounts.Corrupt(accountID, bal)
}

func (s *serviceSuite) entries(accountID int64, kind domain.EntryKindType) []domain.LedgerEntry {
	entries, _, err := s.wallet.Transactions(s.T().Context(), TransactionsArgs{AccountID: accountID, Kind: kind, Limit: maxPageLimit})
	s.Require().NoError(err)
	return entries
}
