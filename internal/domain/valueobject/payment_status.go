package valueobject

import (
	"strings"

	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// PaymentStatus: каноническое состояние оплаты заявки.
// Пустое значение означает, что оплата ещё не начиналась.
type PaymentStatus string

const (
	PaymentStatusNone           PaymentStatus = ""
	PaymentStatusPendingDeposit PaymentStatus = "pending_deposit"
	PaymentStatusDepositFailed  PaymentStatus = "deposit_failed"
	PaymentStatusDepositPaid    PaymentStatus = "deposit_paid"
	PaymentStatusPendingFinal   PaymentStatus = "pending_final"
	PaymentStatusFinalFailed    PaymentStatus = "final_failed"
	PaymentStatusFullyPaid      PaymentStatus = "fully_paid"
	PaymentStatusRefunded       PaymentStatus = "refunded"
	PaymentStatusCanceled       PaymentStatus = "canceled"
)

var paymentStatusRank = map[PaymentStatus]int{
	PaymentStatusNone:           0,
	PaymentStatusPendingDeposit: 1,
	PaymentStatusDepositFailed:  1,
	PaymentStatusDepositPaid:    2,
	PaymentStatusPendingFinal:   3,
	PaymentStatusFinalFailed:    3,
	PaymentStatusFullyPaid:      4,
	PaymentStatusRefunded:       5,
	PaymentStatusCanceled:       5,
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentStatusRank[s]
	return ok
}

// Rank: позиция в решётке статусов; не убывает при любом допустимом переходе.
func (s PaymentStatus) Rank() int {
	return paymentStatusRank[s]
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusRefunded || s == PaymentStatusCanceled
}

// HasPaidDeposit истинно, когда по заявке уже прошла хотя бы одна успешная оплата.
func (s PaymentStatus) HasPaidDeposit() bool {
	switch s {
	case PaymentStatusDepositPaid, PaymentStatusPendingFinal, PaymentStatusFinalFailed, PaymentStatusFullyPaid:
		return true
	}
	return false
}

func (s PaymentStatus) IsFullyPaid() bool {
	return s == PaymentStatusFullyPaid
}

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус оплаты")
	}
	return s, nil
}

// PaymentOutcome: результат платежа, очищенный от словаря платёжного провайдера.
type PaymentOutcome string

const (
	PaymentOutcomePaid    PaymentOutcome = "paid"
	PaymentOutcomePending PaymentOutcome = "pending"
	PaymentOutcomeFailed  PaymentOutcome = "failed"
)

// ClassifyProcessorStatus сводит статусы сессии и платежа провайдера к трём исходам.
// authorized/requires_capture считаются оплатой: средства заблокированы и будут списаны при завершении.
func ClassifyProcessorStatus(status string) (PaymentOutcome, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "succeeded", "captured", "authorized", "requires_capture", "no_payment_required":
		return PaymentOutcomePaid, true
	case "unpaid", "processing", "pending", "requires_action", "requires_confirmation":
		return PaymentOutcomePending, true
	case "failed", "requires_payment_method", "expired":
		return PaymentOutcomeFailed, true
	}
	return "", false
}

// StatusFor возвращает канонический статус для исхода платежа данного типа.
func (t PaymentType) StatusFor(outcome PaymentOutcome) PaymentStatus {
	switch {
	case t == PaymentTypeDeposit && outcome == PaymentOutcomePaid:
		return PaymentStatusDepositPaid
	case t == PaymentTypeDeposit && outcome == PaymentOutcomePending:
		return PaymentStatusPendingDeposit
	case t == PaymentTypeDeposit && outcome == PaymentOutcomeFailed:
		return PaymentStatusDepositFailed
	case t == PaymentTypeFinal && outcome == PaymentOutcomePaid:
		return PaymentStatusFullyPaid
	case t == PaymentTypeFinal && outcome == PaymentOutcomePending:
		return PaymentStatusPendingFinal
	case t == PaymentTypeFinal && outcome == PaymentOutcomeFailed:
		return PaymentStatusFinalFailed
	}
	return PaymentStatusNone
}
