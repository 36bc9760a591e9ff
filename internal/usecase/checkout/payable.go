package checkout

import (
	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// Payable: сумма этапа оплаты и комиссия площадки в минимальных единицах.
type Payable struct {
	Amount      valueobject.Money
	AmountMinor int64
	FeeMinor    int64
}

// ComputePayable: задаток равен deposit_amount, остаток равен price - deposit_amount.
// Нулевая или отрицательная сумма означает, что платить нечего.
func ComputePayable(quote *entity.Quote, paymentType valueobject.PaymentType, currency string, feeBasisPoints int64) (Payable, error) {
	amount, err := valueobject.NewMoney(quote.PayableAmount(paymentType), currency)
	if err != nil {
		return Payable{}, apperror.ErrNothingDue
	}

	minor := amount.MinorUnits()
	if minor <= 0 {
		return Payable{}, apperror.ErrNothingDue
	}

	return Payable{
		Amount:      amount,
		AmountMinor: minor,
		FeeMinor:    valueobject.PlatformFee(minor, feeBasisPoints),
	}, nil
}
