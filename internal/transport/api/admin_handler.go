package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/gin-gonic/gin"
)

// AdminHandler операции администратора. Роуты закрыты middlewares.AdminRequired, но сервисы проверяют
// права повторно.
type AdminHandler struct {
	auctionService AuctionServicer
	walletService  WalletServicer
}

func NewAdminHandler(auctionService AuctionServicer, walletService WalletServicer) *AdminHandler {
	return &AdminHandler{auctionService: auctionService, walletService: walletService}
}

type TransitionResponse struct {
	From      domain.AuctionStatusType `json:"from"`
	To        domain.AuctionStatusType `json:"to"`
	Reason    string                   `json:"reason"`
	CreatedAt time.Time                `json:"createdAt"`
}

type AnalyticsResponse struct {
	ByStatus   map[domain.AuctionStatusType]int `json:"byStatus"`
	TotalBids  int                              `json:"totalBids"`
	SoldVolume domain.Amount                    `json:"soldVolume"`
}

// Cancel PUT RouteGroup + AdminCancelRoute.
func (h *AdminHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auction, err := h.auctionService.Cancel(ctx, currentIdentity(c), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(auction))
}

// History GET RouteGroup + AdminHistoryRoute. Журнал смены статусов лота.
func (h *AdminHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transitions, err := h.auctionService.History(ctx, currentIdentity(c), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	resp := make([]TransitionResponse, len(transitions))
	for i, t := range transitions {
		resp[i] = TransitionResponse{From: t.From, To: t.To, Reason: t.Reason, CreatedAt: t.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"transitions": resp})
}

// Schedule GET RouteGroup + AdminScheduleRoute. Лоты, ожидающие старта или завершения.
func (h *AdminHandler) Schedule(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auctions, err := h.auctionService.Schedule(ctx, currentIdentity(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": newAuctionsResponse(auctions)})
}

// Analytics GET RouteGroup + AdminAnalyticsRoute.
func (h *AdminHandler) Analytics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	stats, err := h.auctionService.Analytics(ctx, currentIdentity(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, AnalyticsResponse{
		ByStatus:   stats.ByStatus,
		TotalBids:  stats.TotalBids,
		SoldVolume: stats.SoldVolume,
	})
}

// Reconcile POST RouteGroup + AdminReconcileRoute. Пересчитывает баланс счета по журналу и снимает заморозку.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.walletService.Reconcile(ctx, currentIdentity(c), id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBalanceResponse(balance))
}
