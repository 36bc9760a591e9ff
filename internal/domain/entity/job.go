package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type Job struct {
	ID                     uuid.UUID
	CustomerID             uuid.UUID
	Title                  string
	Description            string
	Urgency                valueobject.Urgency
	Location               string
	Budget                 *decimal.Decimal
	Status                 valueobject.JobStatus
	TradespersonID         *uuid.UUID
	AcceptedQuoteID        *uuid.UUID
	PaymentStatus          valueobject.PaymentStatus
	DepositPaymentIntentID *string
	FinalPaymentIntentID   *string
	// Version растёт на каждой записи и используется для compare-and-set.
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ScheduledAt *time.Time
	AssignedAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

func NewJob(customerID uuid.UUID, title, description string, urgency valueobject.Urgency, location string, budget *decimal.Decimal, scheduledAt *time.Time) (*Job, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заявки обязательно")
	}
	if len(title) > 200 {
		return nil, apperror.New(apperror.ErrCodeValidation, "название заявки слишком длинное")
	}
	if strings.TrimSpace(description) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "описание заявки обязательно")
	}
	if strings.TrimSpace(location) == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "адрес заявки обязателен")
	}
	if budget != nil && !budget.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeInvalidAmount, "бюджет должен быть положительным")
	}

	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Title:       title,
		Description: description,
		Urgency:     urgency,
		Location:    location,
		Budget:      budget,
		Status:      valueobject.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
		ScheduledAt: scheduledAt,
	}, nil
}

func (j *Job) IsOwnedBy(userID uuid.UUID) bool {
	return j.CustomerID == userID
}

func (j *Job) IsAssignedTo(userID uuid.UUID) bool {
	return j.TradespersonID != nil && *j.TradespersonID == userID
}

func (j *Job) touch() {
	j.UpdatedAt = time.Now().UTC()
}

// AcceptQuote назначает исполнителя по предложению.
// Возвращает false, если это же предложение уже принято.
func (j *Job) AcceptQuote(q *Quote) (bool, error) {
	if q.JobID != j.ID {
		return false, apperror.New(apperror.ErrCodeBadRequest, "предложение относится к другой заявке")
	}
	if j.AcceptedQuoteID != nil {
		if *j.AcceptedQuoteID == q.ID {
			return false, nil
		}
		return false, apperror.ErrAlreadyAssigned
	}
	if !j.Status.AcceptsQuotes() {
		return false, apperror.ErrJobNotOpen
	}
	if !q.IsPending() {
		return false, apperror.InvalidTransition("можно принять только ожидающее предложение, текущий статус: %s", q.Status)
	}

	now := time.Now().UTC()
	quoteID := q.ID
	tradespersonID := q.TradespersonID
	j.AcceptedQuoteID = &quoteID
	j.TradespersonID = &tradespersonID
	j.Status = valueobject.JobStatusAssigned
	j.AssignedAt = &now
	j.UpdatedAt = now

	q.Status = valueobject.QuoteStatusAccepted
	q.UpdatedAt = now
	return true, nil
}

func (j *Job) Cancel() error {
	if !j.Status.CanTransitionTo(valueobject.JobStatusCancelled) {
		return apperror.InvalidTransition("нельзя отменить заявку в статусе %s", j.Status)
	}
	now := time.Now().UTC()
	j.Status = valueobject.JobStatusCancelled
	j.CancelledAt = &now
	j.UpdatedAt = now
	return nil
}

func (j *Job) StartWork() error {
	if j.Status != valueobject.JobStatusAssigned {
		return apperror.InvalidTransition("начать работу можно только по назначенной заявке, текущий статус: %s", j.Status)
	}
	j.Status = valueobject.JobStatusInProgress
	j.touch()
	return nil
}

func (j *Job) Complete() error {
	if j.AssignedAt == nil || !j.Status.CanTransitionTo(valueobject.JobStatusCompleted) {
		return apperror.InvalidTransition("завершить можно только назначенную заявку, текущий статус: %s", j.Status)
	}
	now := time.Now().UTC()
	j.Status = valueobject.JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// NeedsDepositCapture истинно, когда задаток заблокирован и ещё не списан.
func (j *Job) NeedsDepositCapture() bool {
	return j.DepositPaymentIntentID != nil && *j.DepositPaymentIntentID != "" && j.PaymentStatus.HasPaidDeposit()
}

// Все Mark* методы идемпотентны: false без ошибки означает, что состояние уже достигнуто.

func (j *Job) MarkDepositPaid(paymentIntentID string) (bool, error) {
	if j.PaymentStatus.IsTerminal() || j.PaymentStatus.Rank() >= valueobject.PaymentStatusDepositPaid.Rank() {
		return false, nil
	}
	j.PaymentStatus = valueobject.PaymentStatusDepositPaid
	if paymentIntentID != "" {
		j.DepositPaymentIntentID = &paymentIntentID
	}
	j.touch()
	return true, nil
}

// MarkFullyPaid допускает переход минуя deposit_paid только если задаток не требовался.
func (j *Job) MarkFullyPaid(paymentIntentID string, depositRequired bool) (bool, error) {
	if j.PaymentStatus.IsTerminal() || j.PaymentStatus.IsFullyPaid() {
		return false, nil
	}
	if !j.PaymentStatus.HasPaidDeposit() && depositRequired {
		return false, apperror.InvalidTransition("остаток не может быть оплачен раньше задатка, текущий статус оплаты: %q", j.PaymentStatus)
	}
	j.PaymentStatus = valueobject.PaymentStatusFullyPaid
	if paymentIntentID != "" {
		j.FinalPaymentIntentID = &paymentIntentID
	}
	j.touch()
	return true, nil
}

// MarkPending фиксирует платёж, ожидающий подтверждения (отложенные способы оплаты).
func (j *Job) MarkPending(paymentType valueobject.PaymentType, depositRequired bool) (bool, error) {
	target := paymentType.StatusFor(valueobject.PaymentOutcomePending)
	failed := paymentType.StatusFor(valueobject.PaymentOutcomeFailed)
	if j.PaymentStatus.IsTerminal() || j.PaymentStatus == target {
		return false, nil
	}
	if j.PaymentStatus != failed && j.PaymentStatus.Rank() >= target.Rank() {
		return false, nil
	}
	if paymentType == valueobject.PaymentTypeFinal && depositRequired && !j.PaymentStatus.HasPaidDeposit() {
		return false, apperror.InvalidTransition("оплата остатка не может начаться раньше оплаты задатка")
	}
	j.PaymentStatus = target
	j.touch()
	return true, nil
}

// MarkFailed ставит маркер неудачной оплаты этапа. Статус заявки не меняется.
// Неудача оплаты остатка до оплаты обязательного задатка отклоняется.
func (j *Job) MarkFailed(paymentType valueobject.PaymentType, depositRequired bool) (bool, error) {
	if j.PaymentStatus.IsTerminal() {
		return false, nil
	}
	switch paymentType {
	case valueobject.PaymentTypeDeposit:
		if j.PaymentStatus.Rank() >= valueobject.PaymentStatusDepositPaid.Rank() || j.PaymentStatus == valueobject.PaymentStatusDepositFailed {
			return false, nil
		}
		j.PaymentStatus = valueobject.PaymentStatusDepositFailed
	case valueobject.PaymentTypeFinal:
		if j.PaymentStatus.IsFullyPaid() || j.PaymentStatus == valueobject.PaymentStatusFinalFailed {
			return false, nil
		}
		if depositRequired && !j.PaymentStatus.HasPaidDeposit() {
			return false, apperror.InvalidTransition("оплата остатка не может завершиться раньше оплаты задатка, текущий статус оплаты: %q", j.PaymentStatus)
		}
		j.PaymentStatus = valueobject.PaymentStatusFinalFailed
	default:
		return false, apperror.New(apperror.ErrCodeValidation, "неизвестный тип оплаты")
	}
	j.touch()
	return true, nil
}

// MarkRefunded: возврат возможен только после успешной оплаты.
func (j *Job) MarkRefunded() (bool, error) {
	if j.PaymentStatus.IsTerminal() {
		return false, nil
	}
	if !j.PaymentStatus.HasPaidDeposit() {
		return false, apperror.InvalidTransition("возврат невозможен без оплаты, текущий статус оплаты: %q", j.PaymentStatus)
	}
	j.PaymentStatus = valueobject.PaymentStatusRefunded
	j.touch()
	return true, nil
}

// MarkPaymentCanceled: отмена неоплаченного платежа ничего не меняет.
func (j *Job) MarkPaymentCanceled() (bool, error) {
	if j.PaymentStatus.IsTerminal() || !j.PaymentStatus.HasPaidDeposit() {
		return false, nil
	}
	j.PaymentStatus = valueobject.PaymentStatusCanceled
	j.touch()
	return true, nil
}
