package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/gin-gonic/gin"
)

type AuctionsHandler struct {
	auctionService AuctionServicer
}

func NewAuctionsHandler(auctionService AuctionServicer) *AuctionsHandler {
	return &AuctionsHandler{auctionService: auctionService}
}

type AuctionResponse struct {
	ID            int64                    `json:"id"`
	SellerID      int64                    `json:"sellerId"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Category      domain.CategoryType      `json:"category"`
	Condition     domain.ConditionType     `json:"condition"`
	StartingPrice domain.Amount            `json:"startingPrice"`
	CurrentPrice  domain.Amount            `json:"currentPrice"`
	BuyNowPrice   *domain.Amount           `json:"buyNowPrice,omitempty"`
	StartTime     time.Time                `json:"startTime"`
	EndTime       time.Time                `json:"endTime"`
	Status        domain.AuctionStatusType `json:"status"`
	BidCount      int                      `json:"bidCount"`
	WinningBidID  *int64                   `json:"winningBidId,omitempty"`
	Settlement    domain.SettlementType    `json:"settlement"`
	CreatedAt     time.Time                `json:"createdAt"`
}

func newAuctionResponse(a *domain.Auction) AuctionResponse {
	resp := AuctionResponse{
		ID:            a.ID,
		SellerID:      a.SellerID,
		Title:         a.Title,
		Description:   a.Description,
		Category:      a.Category,
		Condition:     a.Condition,
		StartingPrice: a.StartingPrice,
		CurrentPrice:  a.CurrentPrice,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        a.Status,
		BidCount:      a.BidCount,
		WinningBidID:  a.WinningBidID,
		Settlement:    a.Settlement,
		CreatedAt:     a.CreatedAt,
	}
	if a.HasBuyNow() {
		price := a.BuyNowPrice
		resp.BuyNowPrice = &price
	}
	return resp
}

func newAuctionsResponse(auctions []domain.Auction) []AuctionResponse {
	resp := make([]AuctionResponse, len(auctions))
	for i := range auctions {
		resp[i] = newAuctionResponse(&auctions[i])
	}
	return resp
}

type BidResponse struct {
	ID        int64         `json:"id"`
	AuctionID int64         `json:"auctionId"`
	BidderID  int64         `json:"bidderId"`
	Amount    domain.Amount `json:"amount"`
	CreatedAt time.Time     `json:"createdAt"`
}

func newBidResponse(b *domain.Bid) BidResponse {
	return BidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

type CreateAuctionParams struct {
	Title         string               `binding:"required,max=200"                                                                                         json:"title"`
	Description   string               `binding:"omitempty,max_bytes=10000"                                                                                json:"description"`
	Category      domain.CategoryType  `binding:"required,oneof=electronics fashion home_garden sports books collectibles art jewelry toys automotive other" json:"category"`
	Condition     domain.ConditionType `binding:"required,oneof=new like_new good fair poor"                                                               json:"condition"`
	StartingPrice domain.Amount        `binding:"required,money"                                                                                           json:"startingPrice"`
	BuyNowPrice   domain.Amount        `binding:"omitempty,money"                                                                                          json:"buyNowPrice"`
	StartTime     time.Time            `json:"startTime"`
	EndTime       time.Time            `binding:"required"                                                                                                 json:"endTime"`
}

// Create POST RouteGroup + AuctionsRoute. Выставляет лот текущего пользователя.
func (h *AuctionsHandler) Create(c *gin.Context) {
	var params CreateAuctionParams
	if !bind(c, &params, c.ShouldBindJSON) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auction, err := h.auctionService.Create(ctx, service.CreateAuctionArgs{
		SellerID:      currentIdentity(c).UserID,
		Title:         params.Title,
		Description:   params.Description,
		Category:      params.Category,
		Condition:     params.Condition,
		StartingPrice: params.StartingPrice,
		BuyNowPrice:   params.BuyNowPrice,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAuctionResponse(auction))
}

type ListAuctionsParams struct {
	Category  domain.CategoryType  `form:"category"`
	Condition domain.ConditionType `form:"condition"`
	MinPrice  string               `form:"min_price"`
	MaxPrice  string               `form:"max_price"`
	Search    string               `binding:"omitempty,max_bytes=200"                                             form:"search"`
	Sort      domain.SortType      `binding:"omitempty,oneof=ending_soon newest price_low price_high most_bids" form:"sort"`
	Limit     uint                 `binding:"omitempty,max=100"                                                   form:"limit"`
	Offset    uint                 `form:"offset"`
}

// Index GET RouteGroup + AuctionsRoute. Активные лоты с фильтрами и сортировкой.
func (h *AuctionsHandler) Index(c *gin.Context) {
	var params ListAuctionsParams
	if !bind(c, &params, c.ShouldBindQuery) {
		return
	}
	minPrice, err := parseAmount(params.MinPrice)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	maxPrice, err := parseAmount(params.MaxPrice)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auctions, total, err := h.auctionService.List(ctx, service.ListAuctionsArgs{
		Category:  params.Category,
		Condition: params.Condition,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Search:    params.Search,
		Sort:      params.Sort,
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": newAuctionsResponse(auctions), "total": total})
}

// Featured GET RouteGroup + FeaturedRoute.
func (h *AuctionsHandler) Featured(c *gin.Context) {
	h.listing(c, h.auctionService.Featured)
}

// EndingSoon GET RouteGroup + EndingSoonRoute.
func (h *AuctionsHandler) EndingSoon(c *gin.Context) {
	h.listing(c, h.auctionService.EndingSoon)
}

func (h *AuctionsHandler) listing(c *gin.Context, fn func(context.Context) ([]domain.Auction, error)) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auctions, err := fn(ctx)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": newAuctionsResponse(auctions)})
}

// Show GET RouteGroup + AuctionRoute.
func (h *AuctionsHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	auction, err := h.auctionService.Get(ctx, id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAuctionResponse(auction))
}

// Bids GET RouteGroup + BidsRoute. История ставок лота, от новых к старым.
func (h *AuctionsHandler) Bids(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	bids, err := h.auctionService.Bids(ctx, id)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	resp := make([]BidResponse, len(bids))
	for i := range bids {
		resp[i] = newBidResponse(&bids[i])
	}
	c.JSON(http.StatusOK, gin.H{"bids": resp})
}

type PlaceBidParams struct {
	Amount domain.Amount `binding:"required,money" json:"amount"`
}

// PlaceBid POST RouteGroup + BidsRoute. Ставка текущего пользователя.
func (h *AuctionsHandler) PlaceBid(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var params PlaceBidParams
	if !bind(c, &params, c.ShouldBindJSON) {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	res, err := h.auctionService.PlaceBid(ctx, service.PlaceBidArgs{
		AuctionID:      id,
		BidderID:       currentIdentity(c).UserID,
		Amount:         params.Amount,
		IdempotencyKey: key,
	})
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bid": newBidResponse(res.Bid), "auction": newAuctionResponse(res.Auction)})
}

// BuyNow POST RouteGroup + BuyNowRoute. Покупка лота по цене "купить сейчас".
func (h *AuctionsHandler) BuyNow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	key, ok := idempotencyKey(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	res, err := h.auctionService.BuyNow(ctx, id, currentIdentity(c).UserID, key)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bid": newBidResponse(res.Bid), "auction": newAuctionResponse(res.Auction)})
}
