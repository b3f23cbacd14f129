package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds через сколько секунд клиенту стоит повторить запрос, проигравший гонку за аукцион.
const retryAfterSeconds = "1"

var serviceErrorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrRecordNotFound, http.StatusNotFound},
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{domain.ErrInvalidEntryKind, http.StatusUnprocessableEntity},
	{domain.ErrInvalidAuction, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientFunds, http.StatusBadRequest},
	{domain.ErrNotAHold, http.StatusBadRequest},
	{domain.ErrSelfBid, http.StatusForbidden},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrAuctionNotActive, http.StatusConflict},
	{domain.ErrBidTooLow, http.StatusConflict},
	{domain.ErrBuyNowUnavailable, http.StatusConflict},
	{domain.ErrAlreadyReleased, http.StatusConflict},
	{domain.ErrAlreadyCaptured, http.StatusConflict},
	{domain.ErrAuctionNotSettling, http.StatusConflict},
	{domain.ErrDuplicateKey, http.StatusConflict},
	{domain.ErrAccountFrozen, http.StatusLocked},
	{domain.ErrInvariantViolation, http.StatusLocked},
	{domain.ErrConcurrencyConflict, http.StatusServiceUnavailable},
}

// abortWithServiceError переводит ошибку сервисного слоя в ответ. Клиент получает текст доменной ошибки,
// полная цепочка попадает в лог.
func abortWithServiceError(c *gin.Context, err error) {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		_ = c.AbortWithError(http.StatusConflict, fmt.Errorf(
			"%w: minimum acceptable bid is %s", domain.ErrBidTooLow, tooLow.MinAcceptable,
		)).SetType(gin.ErrorTypePublic)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}

	for _, m := range serviceErrorStatuses {
		if !errors.Is(err, m.err) {
			continue
		}
		if m.status == http.StatusServiceUnavailable {
			c.Header("Retry-After", retryAfterSeconds)
		}
		_ = c.AbortWithError(m.status, m.err).SetType(gin.ErrorTypePublic)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.Header("Retry-After", retryAfterSeconds)
		_ = c.AbortWithError(http.StatusServiceUnavailable, err).SetType(gin.ErrorTypePrivate)
		return
	}
	_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
}
