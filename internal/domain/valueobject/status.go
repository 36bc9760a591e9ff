package valueobject

import "github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"

type JobStatus string

// JobStatusQuoted сервис не записывает: подача предложения заявку не меняет.
// Статус допустим в хранимых данных и ведёт себя как open.
const (
	JobStatusOpen       JobStatus = "open"
	JobStatusQuoted     JobStatus = "quoted"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusOpen, JobStatusQuoted, JobStatusAssigned, JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// AcceptsQuotes сообщает, можно ли подавать и принимать предложения.
func (s JobStatus) AcceptsQuotes() bool {
	return s == JobStatusOpen || s == JobStatusQuoted
}

func (s JobStatus) CanTransitionTo(newStatus JobStatus) bool {
	transitions := map[JobStatus][]JobStatus{
		JobStatusOpen:       {JobStatusQuoted, JobStatusAssigned, JobStatusCancelled},
		JobStatusQuoted:     {JobStatusAssigned, JobStatusCancelled},
		JobStatusAssigned:   {JobStatusInProgress, JobStatusCompleted, JobStatusCancelled},
		JobStatusInProgress: {JobStatusCompleted},
		JobStatusCompleted:  {},
		JobStatusCancelled:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewJobStatus(status string) (JobStatus, error) {
	s := JobStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}

type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
	QuoteStatusWithdrawn QuoteStatus = "withdrawn"
)

func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusWithdrawn:
		return true
	}
	return false
}

func NewQuoteStatus(status string) (QuoteStatus, error) {
	s := QuoteStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус предложения")
	}
	return s, nil
}

type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencySoon      Urgency = "soon"
	UrgencyFlexible  Urgency = "flexible"
)

func NewUrgency(value string) (Urgency, error) {
	switch u := Urgency(value); u {
	case UrgencyEmergency, UrgencyUrgent, UrgencySoon, UrgencyFlexible:
		return u, nil
	case "":
		return UrgencyFlexible, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная срочность заявки")
}

// PaymentType определяет этап оплаты по принятому предложению.
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeFinal   PaymentType = "final"
)

func NewPaymentType(value string) (PaymentType, error) {
	switch t := PaymentType(value); t {
	case PaymentTypeDeposit, PaymentTypeFinal:
		return t, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "тип оплаты должен быть deposit или final")
}

// CaptureMode определяет, списываются ли средства сразу или только блокируются.
type CaptureMode string

const (
	CaptureModeManual    CaptureMode = "manual"
	CaptureModeAutomatic CaptureMode = "automatic"
)

// DefaultCaptureMode: задаток блокируется до завершения работ, остаток списывается сразу.
func (t PaymentType) DefaultCaptureMode() CaptureMode {
	if t == PaymentTypeDeposit {
		return CaptureModeManual
	}
	return CaptureModeAutomatic
}

// CaptureModeFromRequest переводит клиентское значение mode в режим списания.
func CaptureModeFromRequest(mode string, paymentType PaymentType) (CaptureMode, error) {
	switch mode {
	case "":
		return paymentType.DefaultCaptureMode(), nil
	case "authorize":
		return CaptureModeManual, nil
	case "charge":
		return CaptureModeAutomatic, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "mode должен быть authorize или charge")
}
