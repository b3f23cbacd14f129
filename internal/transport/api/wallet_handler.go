package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	walletService WalletServicer
}

func NewWalletHandler(walletService WalletServicer) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type BalanceResponse struct {
	AccountID int64         `json:"accountId"`
	Currency  string        `json:"currency"`
	Available domain.Amount `json:"available"`
	Held      domain.Amount `json:"held"`
	Total     domain.Amount `json:"total"`
	Frozen    bool          `json:"frozen"`
}

func newBalanceResponse(b *service.UserBalance) BalanceResponse {
	return BalanceResponse{
		AccountID: b.AccountID,
		Currency:  b.Currency,
		Available: b.Available,
		Held:      b.Held,
		Total:     b.Available + b.Held,
		Frozen:    b.Frozen,
	}
}

type LedgerEntryResponse struct {
	ID             int64                  `json:"id"`
	Kind           domain.EntryKindType   `json:"kind"`
	Status         domain.EntryStatusType `json:"status"`
	Amount         domain.Amount          `json:"amount"`
	AuctionID      *int64                 `json:"auctionId,omitempty"`
	RelatedEntryID *int64                 `json:"relatedEntryId,omitempty"`
	Description    string                 `json:"description,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

func newLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID,
		Kind:           e.Kind,
		Status:         e.Status,
		Amount:         e.Amount,
		AuctionID:      e.AuctionID,
		RelatedEntryID: e.RelatedEntryID,
		Description:    e.Description,
		CreatedAt:      e.CreatedAt,
	}
}

// Index GET RouteGroup + WalletRoute. Баланс текущего пользователя.
func (h *WalletHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.walletService.GetBalance(ctx, currentIdentity(c).UserID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBalanceResponse(balance))
}

type WalletOpParams struct {
	Amount      domain.Amount `binding:"required,money"         json:"amount"`
	Description string        `binding:"omitempty,max_bytes=255" json:"description"`
}

// Deposit POST RouteGroup + DepositRoute. Пополнение счета.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.operate(c, h.walletService.Deposit)
}

// Withdraw POST RouteGroup + WithdrawRoute. Вывод средств со счета.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.operate(c, h.walletService.Withdraw)
}

func (h *WalletHandler) operate(
	c *gin.Context,
	op func(context.Context, service.WalletOpArgs) (*domain.LedgerEntry, error),
) {
	var params WalletOpParams
	if !bind(c, &params, c.ShouldBindJSON) {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accountID := currentIdentity(c).UserID
	entry, err := op(ctx, service.WalletOpArgs{
		AccountID:      accountID,
		Amount:         params.Amount,
		IdempotencyKey: key,
		Description:    params.Description,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	balance, err := h.walletService.GetBalance(ctx, accountID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry":   newLedgerEntryResponse(entry),
		"balance": newBalanceResponse(balance),
	})
}

type TransactionsParams struct {
	Kind   domain.EntryKindType `binding:"omitempty,oneof=deposit withdrawal hold release capture refund payout" form:"type"`
	Limit  uint                 `binding:"omitempty,max=100"                                                   form:"limit"`
	Offset uint                 `form:"offset"`
}

// Transactions GET RouteGroup + TransactionsRoute. Журнал операций по счету, от новых к старым.
func (h *WalletHandler) Transactions(c *gin.Context) {
	var params TransactionsParams
	if !bind(c, &params, c.ShouldBindQuery) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	entries, total, err := h.walletService.Transactions(ctx, service.TransactionsArgs{
		AccountID: currentIdentity(c).UserID,
		Kind:      params.Kind,
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	resp := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		resp[i] = newLedgerEntryResponse(&entries[i])
	}
	c.JSON(http.StatusOK, gin.H{"transactions": resp, "total": total})
}
