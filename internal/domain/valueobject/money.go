package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const minorUnitExponent = 2

// Money хранит сумму в основных единицах валюты (фунты, а не пенсы).
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, apperror.New(apperror.ErrCodeInvalidAmount, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = "gbp"
	}
	return Money{Amount: amount, Currency: strings.ToLower(currency)}, nil
}

// MinorUnits переводит сумму в минимальные единицы с банковским округлением.
func (m Money) MinorUnits() int64 {
	return m.Amount.Shift(minorUnitExponent).RoundBank(0).IntPart()
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", strings.ToUpper(m.Currency), m.Amount.StringFixed(minorUnitExponent))
}

// PlatformFee: комиссия площадки в базисных пунктах, округлённая вниз до минимальной единицы.
func PlatformFee(amountMinor, feeBasisPoints int64) int64 {
	if amountMinor <= 0 || feeBasisPoints <= 0 {
		return 0
	}
	return amountMinor * feeBasisPoints / 10000
}
