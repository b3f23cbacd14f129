package uow

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const retryBaseDelay = 10 * time.Millisecond

// DoWithRetry выполняет fn в транзакции через u.Do и повторяет ее до attempts раз, пока retryable
// признает ошибку временной. Между попытками выдерживается экспоненциальная пауза со случайным разбросом.
// fn должна быть идемпотентной: каждая попытка начинается с чистой транзакции.
func DoWithRetry(
	ctx context.Context,
	u UOW,
	attempts int,
	retryable func(error) bool,
	fn func(ctx context.Context, tx TX) error,
) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := range attempts {
		err = u.Do(ctx, fn)
		if err == nil || !retryable(err) {
			return err
		}
		if attempt+1 == attempts {
			break
		}
		delay := time.Duration(jitter(float64(retryBaseDelay<<attempt), 0.5, 0.5))
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}

// jitter возвращает число, рассыпавшееся относительно value на случайный процент в пределах
// [1-minPercent, 1+maxPercent].
//
// minPercent и maxPercent должны быть >= 0 (0.1 = 10%). Если указано иное, значение выставится в 0.15.
func jitter(value, minPercent, maxPercent float64) float64 {
	if minPercent < 0 || maxPercent < 0 {
		minPercent = 0.15
		maxPercent = 0.15
	}
	factor := 1 - minPercent + rand.Float64()*(minPercent+maxPercent) // nolint:gosec
	return value * factor
}
