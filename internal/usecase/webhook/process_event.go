package webhook

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/job"
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Типы событий провайдера, которые влияют на состояние оплаты.
const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncSucceeded     = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed        = "checkout.session.async_payment_failed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentCapturable    = "payment_intent.amount_capturable_updated"
	EventPaymentIntentPaymentFailed = "payment_intent.payment_failed"
	EventPaymentIntentCanceled      = "payment_intent.canceled"
	EventChargeRefunded             = "charge.refunded"
)

type ProcessEventUseCase struct {
	verifier  repository.WebhookVerifier
	events    repository.PaymentEventRepository
	gateway   repository.PaymentGateway
	quoteRepo repository.QuoteRepository
	payments  *job.PaymentStateUseCase
}

func NewProcessEventUseCase(
	verifier repository.WebhookVerifier,
	events repository.PaymentEventRepository,
	gateway repository.PaymentGateway,
	quoteRepo repository.QuoteRepository,
	payments *job.PaymentStateUseCase,
) *ProcessEventUseCase {
	return &ProcessEventUseCase{
		verifier:  verifier,
		events:    events,
		gateway:   gateway,
		quoteRepo: quoteRepo,
		payments:  payments,
	}
}

// Execute проверяет подпись, отбрасывает повторные доставки и применяет событие.
// Запись в журнал делается после побочного эффекта: при сбое между ними
// повторная доставка будет поглощена идемпотентностью переходов оплаты.
func (uc *ProcessEventUseCase) Execute(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	event, err := uc.verifier.VerifyEvent(payload, signature)
	if err != nil {
		logger.Log.WithError(err).Warn("webhook: событие отклонено, подпись не прошла проверку")
		return "", err
	}

	log := logger.Log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	seen, err := uc.events.Exists(ctx, event.ID)
	if err != nil {
		log.WithError(err).Error("webhook: не удалось проверить журнал событий")
		return "", apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить журнал событий")
	}
	if seen {
		if err := uc.events.Touch(ctx, event.ID); err != nil {
			log.WithError(err).Warn("webhook: не удалось обновить счётчик доставок")
		}
		log.Info("webhook: повторная доставка, событие уже обработано")
		return OutcomeDuplicate, nil
	}

	outcome, jobID, err := uc.dispatch(ctx, event, log)
	if err != nil {
		log.WithError(err).Error("webhook: не удалось применить событие")
		return "", err
	}

	if err := uc.events.Record(ctx, entity.NewPaymentEvent(event.ID, event.Type, jobID)); err != nil {
		log.WithError(err).Error("webhook: не удалось записать событие в журнал")
		return "", apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать событие в журнал")
	}

	log.WithField("outcome", outcome).Info("webhook: событие обработано")
	return outcome, nil
}

func (uc *ProcessEventUseCase) dispatch(ctx context.Context, event *repository.GatewayEvent, log *logrus.Entry) (Outcome, *uuid.UUID, error) {
	switch event.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded:
		return uc.handleCheckoutSession(ctx, event, log)
	case EventCheckoutAsyncFailed:
		return uc.handleTyped(ctx, event, log, func(jobID uuid.UUID, ref paymentRef) (*job.PaymentChange, error) {
			return uc.payments.MarkFailed(ctx, jobID, event.ID, ref.paymentType)
		})
	case EventPaymentIntentSucceeded, EventPaymentIntentCapturable:
		return uc.handleTyped(ctx, event, log, func(jobID uuid.UUID, ref paymentRef) (*job.PaymentChange, error) {
			return uc.markPaid(ctx, jobID, event.ID, ref)
		})
	case EventPaymentIntentPaymentFailed:
		return uc.handleTyped(ctx, event, log, func(jobID uuid.UUID, ref paymentRef) (*job.PaymentChange, error) {
			return uc.payments.MarkFailed(ctx, jobID, event.ID, ref.paymentType)
		})
	case EventPaymentIntentCanceled:
		return uc.handleUntyped(ctx, event, log, func(jobID uuid.UUID) (*job.PaymentChange, error) {
			return uc.payments.MarkPaymentCanceled(ctx, jobID, event.ID)
		})
	case EventChargeRefunded:
		if !event.FullyRefunded {
			log.Info("webhook: частичный возврат, статус оплаты не меняется")
			return OutcomeIgnored, nil, nil
		}
		return uc.handleUntyped(ctx, event, log, func(jobID uuid.UUID) (*job.PaymentChange, error) {
			return uc.payments.MarkRefunded(ctx, jobID, event.ID)
		})
	default:
		log.Debug("webhook: тип события не обрабатывается")
		return OutcomeIgnored, nil, nil
	}
}
