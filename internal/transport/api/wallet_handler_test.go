package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/fsdevblog/groph-auction/internal/transport/api/testutils"
	"github.com/golang/mock/gomock"
)

func (s *HandlerTestSuite) TestWalletIndex() {
	s.mockWalletService.EXPECT().GetBalance(gomock.Any(), s.userID).Return(&service.UserBalance{
		AccountID: s.userID,
		Currency:  "USD",
		Available: domain.MustAmount("70"),
		Held:      domain.MustAmount("30.50"),
	}, nil).Times(1)

	s.Run("not authorized", func() {
		res := s.request(http.MethodGet, RouteGroup+WalletRoute, "", nil)
		defer s.closeBody(res)
		s.Equal(http.StatusUnauthorized, res.StatusCode)
	})
	s.Run("ok", func() {
		res := s.request(http.MethodGet, RouteGroup+WalletRoute, s.userToken, nil)
		s.Require().Equal(http.StatusOK, res.StatusCode)

		var body BalanceResponse
		s.Require().NoError(testutils.DecodeBody(res, &body))
		s.Equal(domain.MustAmount("70"), body.Available)
		s.Equal(domain.MustAmount("30.50"), body.Held)
		s.Equal(domain.MustAmount("100.50"), body.Total)
	})
}

func (s *HandlerTestSuite) TestDeposit() {
	entry := &domain.LedgerEntry{
		ID:        5,
		AccountID: s.userID,
		Kind:      domain.EntryKindDeposit,
		Status:    domain.EntryStatusCompleted,
		Amount:    domain.MustAmount("25"),
		CreatedAt: time.Now(),
	}
	s.mockWalletService.EXPECT().Deposit(gomock.Any(), service.WalletOpArgs{
		AccountID:      s.userID,
		Amount:         domain.MustAmount("25"),
		IdempotencyKey: "dep-1",
	}).Return(entry, nil).Times(1)
	s.mockWalletService.EXPECT().GetBalance(gomock.Any(), s.userID).
		Return(&service.UserBalance{AccountID: s.userID, Available: domain.MustAmount("25")}, nil).Times(1)
	s.mockWalletService.EXPECT().Deposit(gomock.Any(), service.WalletOpArgs{
		AccountID:      s.userID,
		Amount:         domain.MustAmount("25"),
		IdempotencyKey: "dep-frozen",
	}).Return(nil, fmt.Errorf("deposit: %w", domain.ErrAccountFrozen)).Times(1)

	cases := []struct {
		name       string
		body       any
		key        string
		wantStatus int
	}{
		{
			name:       "ok",
			body:       []byte(`{"amount":"25.00"}`),
			key:        "dep-1",
			wantStatus: http.StatusOK,
		}, {
			name:       "frozen account",
			body:       []byte(`{"amount":25}`),
			key:        "dep-frozen",
			wantStatus: http.StatusLocked,
		}, {
			name:       "negative amount",
			body:       []byte(`{"amount":"-5"}`),
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "missing amount",
			body:       []byte(`{}`),
			wantStatus: http.StatusUnprocessableEntity,
		}, {
			name:       "too many fractional digits",
			body:       []byte(`{"amount":"1.005"}`),
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "idempotency key too long",
			body:       []byte(`{"amount":"25"}`),
			key:        testutils.OverLimit(service.MaxIdempotencyKeyLen),
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, t := range cases {
		s.Run(t.name, func() {
			res := s.request(http.MethodPost, RouteGroup+DepositRoute, s.userToken, t.body,
				testutils.WithHeader(IdempotencyKeyHeader, t.key))
			defer s.closeBody(res)
			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *HandlerTestSuite) TestWithdrawInsufficientFunds() {
	s.mockWalletService.EXPECT().Withdraw(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("withdraw: %w", domain.ErrInsufficientFunds)).Times(1)

	res := s.request(http.MethodPost, RouteGroup+WithdrawRoute, s.userToken, []byte(`{"amount":"500"}`))
	s.Equal(http.StatusBadRequest, res.StatusCode)
	s.Equal(domain.ErrInsufficientFunds.Error(), s.errorText(res))
}

func (s *HandlerTestSuite) TestTransactions() {
	entries := []domain.LedgerEntry{
		{ID: 2, Kind: domain.EntryKindHold, Status: domain.EntryStatusPending, Amount: domain.MustAmount("10")},
		{ID: 1, Kind: domain.EntryKindDeposit, Status: domain.EntryStatusCompleted, Amount: domain.MustAmount("50")},
	}
	s.mockWalletService.EXPECT().Transactions(gomock.Any(), service.TransactionsArgs{
		AccountID: s.userID,
		Kind:      domain.EntryKindHold,
		Limit:     10,
		Offset:    0,
	}).Return(entries[:1], 1, nil).Times(1)
	s.mockWalletService.EXPECT().Transactions(gomock.Any(), service.TransactionsArgs{AccountID: s.userID}).
		Return(entries, 2, nil).Times(1)

	s.Run("filtered", func() {
		res := s.request(http.MethodGet, RouteGroup+TransactionsRoute+"?type=hold&limit=10", s.userToken, nil)
		s.Require().Equal(http.StatusOK, res.StatusCode)

		var body struct {
			Transactions []LedgerEntryResponse `json:"transactions"`
			Total        int                   `json:"total"`
		}
		s.Require().NoError(testutils.DecodeBody(res, &body))
		s.Equal(1, body.Total)
		s.Require().Len(body.Transactions, 1)
		s.Equal(domain.EntryKindHold, body.Transactions[0].Kind)
	})
	s.Run("all", func() {
		res := s.request(http.MethodGet, RouteGroup+TransactionsRoute, s.userToken, nil)
		defer s.closeBody(res)
		s.Equal(http.StatusOK, res.StatusCode)
	})
	s.Run("unknown type", func() {
		res := s.request(http.MethodGet, RouteGroup+TransactionsRoute+"?type=bonus", s.userToken, nil)
		defer s.closeBody(res)
		s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	})
	s.Run("limit too large", func() {
		res := s.request(http.MethodGet, RouteGroup+TransactionsRoute+"?limit=1000", s.userToken, nil)
		defer s.closeBody(res)
		s.Equal(http.StatusUnprocessableEntity, res.StatusCode)
	})
}
