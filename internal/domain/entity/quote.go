package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type Quote struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	TradespersonID    uuid.UUID
	Price             decimal.Decimal
	DepositAmount     *decimal.Decimal
	Description       string
	EstimatedDuration string
	AvailableFrom     time.Time
	Status            valueobject.QuoteStatus
	CheckoutSessionID *string
	CheckoutStatus    *string
	PaymentIntentID   *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewQuote(jobID, tradespersonID uuid.UUID, price decimal.Decimal, deposit *decimal.Decimal, description, estimatedDuration string, availableFrom time.Time) (*Quote, error) {
	if !price.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeInvalidAmount, "цена должна быть положительной")
	}
	if deposit != nil && (!deposit.IsPositive() || deposit.GreaterThanOrEqual(price)) {
		return nil, apperror.New(apperror.ErrCodeInvalidAmount, "задаток должен быть больше нуля и меньше цены")
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание предложения обязательно")
	}
	if strings.TrimSpace(estimatedDuration) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите ориентировочный срок работ")
	}
	if availableFrom.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите дату, с которой мастер свободен")
	}

	now := time.Now().UTC()
	return &Quote{
		ID:                uuid.New(),
		JobID:             jobID,
		TradespersonID:    tradespersonID,
		Price:             price,
		DepositAmount:     deposit,
		Description:       description,
		EstimatedDuration: estimatedDuration,
		AvailableFrom:     availableFrom,
		Status:            valueobject.QuoteStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (q *Quote) IsOwnedBy(userID uuid.UUID) bool {
	return q.TradespersonID == userID
}

func (q *Quote) IsPending() bool {
	return q.Status == valueobject.QuoteStatusPending
}

func (q *Quote) IsAccepted() bool {
	return q.Status == valueobject.QuoteStatusAccepted
}

// RequiresDeposit истинно, если мастер запросил задаток.
func (q *Quote) RequiresDeposit() bool {
	return q.DepositAmount != nil && q.DepositAmount.IsPositive()
}

func (q *Quote) Deposit() decimal.Decimal {
	if q.DepositAmount == nil {
		return decimal.Zero
	}
	return *q.DepositAmount
}

// PayableAmount считает сумму к оплате для этапа: задаток или остаток.
func (q *Quote) PayableAmount(paymentType valueobject.PaymentType) decimal.Decimal {
	if paymentType == valueobject.PaymentTypeDeposit {
		return q.Deposit()
	}
	return q.Price.Sub(q.Deposit())
}

func (q *Quote) Withdraw() error {
	if !q.IsPending() {
		return apperror.InvalidTransition("отозвать можно только ожидающее предложение")
	}
	q.Status = valueobject.QuoteStatusWithdrawn
	q.UpdatedAt = time.Now().UTC()
	return nil
}

func (q *Quote) Reject() error {
	if !q.IsPending() {
		return apperror.InvalidTransition("отклонить можно только ожидающее предложение")
	}
	q.Status = valueobject.QuoteStatusRejected
	q.UpdatedAt = time.Now().UTC()
	return nil
}
