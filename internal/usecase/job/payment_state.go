package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

const EventPaymentStatusChanged = "payment_status_changed"

// PaymentStateUseCase: единственный писатель payment_status заявки.
// Вызывается только обработчиком событий платёжного провайдера.
type PaymentStateUseCase struct {
	jobRepo   repository.JobRepository
	quoteRepo repository.QuoteRepository
	notifier  repository.Notifier
}

func NewPaymentStateUseCase(jobRepo repository.JobRepository, quoteRepo repository.QuoteRepository, notifier repository.Notifier) *PaymentStateUseCase {
	return &PaymentStateUseCase{
		jobRepo:   jobRepo,
		quoteRepo: quoteRepo,
		notifier:  notifier,
	}
}

// PaymentChange описывает результат применения перехода.
type PaymentChange struct {
	Job     *entity.Job
	Changed bool
}

func (uc *PaymentStateUseCase) MarkDepositPaid(ctx context.Context, jobID uuid.UUID, eventID, paymentIntentID string) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "deposit_paid", func(job *entity.Job, _ bool) (bool, error) {
		return job.MarkDepositPaid(paymentIntentID)
	})
}

func (uc *PaymentStateUseCase) MarkFullyPaid(ctx context.Context, jobID uuid.UUID, eventID, paymentIntentID string) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "fully_paid", func(job *entity.Job, depositRequired bool) (bool, error) {
		return job.MarkFullyPaid(paymentIntentID, depositRequired)
	})
}

func (uc *PaymentStateUseCase) MarkPending(ctx context.Context, jobID uuid.UUID, eventID string, paymentType valueobject.PaymentType) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "pending", func(job *entity.Job, depositRequired bool) (bool, error) {
		return job.MarkPending(paymentType, depositRequired)
	})
}

func (uc *PaymentStateUseCase) MarkFailed(ctx context.Context, jobID uuid.UUID, eventID string, paymentType valueobject.PaymentType) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "failed", func(job *entity.Job, depositRequired bool) (bool, error) {
		return job.MarkFailed(paymentType, depositRequired)
	})
}

func (uc *PaymentStateUseCase) MarkRefunded(ctx context.Context, jobID uuid.UUID, eventID string) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "refunded", func(job *entity.Job, _ bool) (bool, error) {
		return job.MarkRefunded()
	})
}

func (uc *PaymentStateUseCase) MarkPaymentCanceled(ctx context.Context, jobID uuid.UUID, eventID string) (*PaymentChange, error) {
	return uc.apply(ctx, jobID, eventID, "canceled", func(job *entity.Job, _ bool) (bool, error) {
		return job.MarkPaymentCanceled()
	})
}

func (uc *PaymentStateUseCase) apply(ctx context.Context, jobID uuid.UUID, eventID, operation string, transition func(job *entity.Job, depositRequired bool) (bool, error)) (*PaymentChange, error) {
	var depositRequired *bool

	job, changed, err := mutateJob(ctx, uc.jobRepo, jobID, func(job *entity.Job) (bool, error) {
		if depositRequired == nil {
			required, err := uc.depositRequired(ctx, job)
			if err != nil {
				return false, err
			}
			depositRequired = &required
		}
		return transition(job, *depositRequired)
	})

	fields := logrus.Fields{
		"job_id":    jobID,
		"event_id":  eventID,
		"operation": operation,
	}
	if err != nil {
		logger.Log.WithFields(fields).WithError(err).Warn("payment: переход отклонён")
		return nil, err
	}

	fields["payment_status"] = job.PaymentStatus
	fields["changed"] = changed
	logger.Log.WithFields(fields).Info("payment: переход применён")

	if changed {
		uc.notifyParticipants(ctx, job)
	}
	return &PaymentChange{Job: job, Changed: changed}, nil
}

// depositRequired определяется принятым предложением; без него считается, что задатка нет.
func (uc *PaymentStateUseCase) depositRequired(ctx context.Context, job *entity.Job) (bool, error) {
	if job.AcceptedQuoteID == nil {
		return false, nil
	}
	quote, err := uc.quoteRepo.FindByID(ctx, *job.AcceptedQuoteID)
	if err != nil {
		return false, err
	}
	return quote.RequiresDeposit(), nil
}

func (uc *PaymentStateUseCase) notifyParticipants(ctx context.Context, job *entity.Job) {
	if uc.notifier == nil {
		return
	}
	payload := map[string]any{
		"job_id":         job.ID,
		"payment_status": job.PaymentStatus,
	}
	uc.notifier.Notify(ctx, job.CustomerID, EventPaymentStatusChanged, payload)
	if job.TradespersonID != nil {
		uc.notifier.Notify(ctx, *job.TradespersonID, EventPaymentStatusChanged, payload)
	}
}
