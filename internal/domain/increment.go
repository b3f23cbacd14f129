package domain

import "github.com/shopspring/decimal"

// IncrementPolicy минимальный шаг ставки. Берется большее из фиксированного шага и процента от текущей
// цены, но не меньше одной минимальной единицы.
type IncrementPolicy struct {
	Fixed   Amount
	Percent decimal.Decimal
}

// Step возвращает минимальный шаг для текущей цены.
func (p IncrementPolicy) Step(current Amount) Amount {
	step := Amount(1)
	if p.Fixed > step {
		step = p.Fixed
	}
	if p.Percent.IsPositive() {
		pct := decimal.NewFromInt(int64(current)).Mul(p.Percent).Div(decimal.NewFromInt(100)).Ceil()
		if v := Amount(pct.IntPart()); v > step {
			step = v
		}
	}
	return step
}

// MinNextBid минимальная ставка, которая будет принята при текущей цене.
func (p IncrementPolicy) MinNextBid(current Amount) Amount {
	return current + p.Step(current)
}
