package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/service"
	"github.com/fsdevblog/groph-auction/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const IdempotencyKeyHeader = "Idempotency-Key"

var errIdempotencyKeyTooLong = errors.New("idempotency key is too long")

// idempotencyKey читает ключ идемпотентности из заголовка. Слишком длинный ключ прерывает запрос с кодом 400.
func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > service.MaxIdempotencyKeyLen {
		_ = c.AbortWithError(http.StatusBadRequest, errIdempotencyKeyTooLong).SetType(gin.ErrorTypePublic)
		return "", false
	}
	return key, true
}

// currentIdentity текущий пользователь, установленный middlewares.AuthRequired.
func currentIdentity(c *gin.Context) domain.Identity {
	return middlewares.CurrentIdentity(c)
}

// paramID разбирает числовой параметр пути. При ошибке прерывает запрос с кодом 404.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// bind разбирает тело или query запроса. Ошибки валидации отдаются с кодом 422, прочие с кодом 400.
func bind(c *gin.Context, params any, fn func(any) error) bool {
	err := fn(params)
	if err == nil {
		return true
	}
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		_ = c.AbortWithError(http.StatusUnprocessableEntity, valErrs).SetType(gin.ErrorTypePublic)
		return false
	}
	_ = c.AbortWithError(http.StatusBadRequest, err).SetType(gin.ErrorTypeBind)
	return false
}

// parseAmount разбирает сумму из query. Пустая строка дает ноль.
func parseAmount(s string) (domain.Amount, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.ErrInvalidAmount
	}
	return domain.AmountFromDecimal(d) //nolint:wrapcheck
}
