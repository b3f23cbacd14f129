package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// minorUnitsExp количество знаков после запятой у минимальной денежной единицы.
const minorUnitsExp = 2

// Amount денежная сумма в минимальных единицах валюты (центах).
type Amount int64

// AmountFromDecimal переводит сумму в основных единицах в минимальные. Возвращает ErrInvalidAmount,
// если у суммы больше двух знаков после запятой или она не помещается в int64.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(minorUnitsExp)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, d, minorUnitsExp)
	}
	if shifted.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || shifted.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d)
	}
	return Amount(shifted.IntPart()), nil
}

// MustAmount удобен для констант и тестов: 150.5 -> 15050.
func MustAmount(s string) Amount {
	a, err := AmountFromDecimal(decimal.RequireFromString(s))
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal возвращает сумму в основных единицах.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorUnitsExp)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(minorUnitsExp)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String()) //nolint:wrapcheck
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err.Error())
	}
	v, err := AmountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
