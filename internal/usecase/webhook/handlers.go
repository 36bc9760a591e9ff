package webhook

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/job"
)

// paymentRef: то, что удалось восстановить из метаданных события.
type paymentRef struct {
	jobID           *uuid.UUID
	quoteID         *uuid.UUID
	paymentType     valueobject.PaymentType
	paymentIntentID string
}

func parseRef(metadata map[string]string, paymentIntentID string) paymentRef {
	ref := paymentRef{paymentIntentID: paymentIntentID}
	if id, err := uuid.Parse(metadata[repository.MetadataJobID]); err == nil {
		ref.jobID = &id
	}
	if id, err := uuid.Parse(metadata[repository.MetadataQuoteID]); err == nil {
		ref.quoteID = &id
	}
	if t, err := valueobject.NewPaymentType(metadata[repository.MetadataPaymentType]); err == nil {
		ref.paymentType = t
	}
	return ref
}

// resolveJob берёт job_id из метаданных, иначе ищет предложение по payment intent.
func (uc *ProcessEventUseCase) resolveJob(ctx context.Context, ref paymentRef) (*uuid.UUID, error) {
	if ref.jobID != nil {
		return ref.jobID, nil
	}
	if ref.paymentIntentID == "" {
		return nil, nil
	}
	quote, err := uc.quoteRepo.FindByPaymentIntentID(ctx, ref.paymentIntentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &quote.JobID, nil
}

func (uc *ProcessEventUseCase) handleCheckoutSession(ctx context.Context, event *repository.GatewayEvent, log *logrus.Entry) (Outcome, *uuid.UUID, error) {
	// Состояние берётся из актуальной сессии, а не из тела события.
	session, err := uc.gateway.RetrieveCheckoutSession(ctx, event.ObjectID)
	if err != nil {
		return "", nil, apperror.Wrap(err, apperror.ErrCodeGateway, apperror.ErrGateway.Message)
	}

	metadata := session.Metadata
	if len(metadata) == 0 {
		metadata = event.Metadata
	}
	ref := parseRef(metadata, session.PaymentIntentID)

	processorStatus := session.PaymentIntentStatus
	if processorStatus == "" {
		processorStatus = session.PaymentStatus
	}
	outcome, known := valueobject.ClassifyProcessorStatus(processorStatus)

	log = log.WithFields(logrus.Fields{
		"session_id":       session.ID,
		"processor_status": processorStatus,
	})

	if !known {
		log.Warn("webhook: неизвестный статус оплаты, событие пропущено")
		return OutcomeIgnored, ref.jobID, nil
	}

	result, jobID, err := uc.apply(ctx, ref, true, log, func(jobID uuid.UUID) (*job.PaymentChange, error) {
		switch outcome {
		case valueobject.PaymentOutcomePaid:
			return uc.markPaid(ctx, jobID, event.ID, ref)
		case valueobject.PaymentOutcomePending:
			return uc.payments.MarkPending(ctx, jobID, event.ID, ref.paymentType)
		default:
			return uc.payments.MarkFailed(ctx, jobID, event.ID, ref.paymentType)
		}
	})
	if err != nil || result != OutcomeApplied {
		return result, jobID, err
	}

	if ref.quoteID != nil {
		annotation := repository.CheckoutAnnotation{
			SessionID:       session.ID,
			Status:          string(outcome),
			PaymentIntentID: session.PaymentIntentID,
		}
		if err := uc.quoteRepo.AnnotateCheckout(ctx, *ref.quoteID, annotation); err != nil {
			log.WithError(err).Warn("webhook: не удалось обновить данные оплаты в предложении")
		}
	}
	return result, jobID, nil
}

func (uc *ProcessEventUseCase) markPaid(ctx context.Context, jobID uuid.UUID, eventID string, ref paymentRef) (*job.PaymentChange, error) {
	if ref.paymentType == valueobject.PaymentTypeDeposit {
		return uc.payments.MarkDepositPaid(ctx, jobID, eventID, ref.paymentIntentID)
	}
	return uc.payments.MarkFullyPaid(ctx, jobID, eventID, ref.paymentIntentID)
}

func (uc *ProcessEventUseCase) handleTyped(ctx context.Context, event *repository.GatewayEvent, log *logrus.Entry, transition func(jobID uuid.UUID, ref paymentRef) (*job.PaymentChange, error)) (Outcome, *uuid.UUID, error) {
	ref := parseRef(event.Metadata, intentID(event))
	return uc.apply(ctx, ref, true, log, func(jobID uuid.UUID) (*job.PaymentChange, error) {
		return transition(jobID, ref)
	})
}

func (uc *ProcessEventUseCase) handleUntyped(ctx context.Context, event *repository.GatewayEvent, log *logrus.Entry, transition func(jobID uuid.UUID) (*job.PaymentChange, error)) (Outcome, *uuid.UUID, error) {
	ref := parseRef(event.Metadata, intentID(event))
	return uc.apply(ctx, ref, false, log, transition)
}

// apply находит заявку и выполняет переход. Событие без привязки к заявке
// или к неизвестной заявке пропускается: повторная доставка ничего не изменит.
func (uc *ProcessEventUseCase) apply(ctx context.Context, ref paymentRef, needsType bool, log *logrus.Entry, transition func(jobID uuid.UUID) (*job.PaymentChange, error)) (Outcome, *uuid.UUID, error) {
	jobID, err := uc.resolveJob(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	if jobID == nil {
		log.Error("webhook: событие не связано ни с одной заявкой")
		return OutcomeIgnored, nil, nil
	}
	log = log.WithField("job_id", *jobID)

	if needsType && ref.paymentType == "" {
		log.Error("webhook: в метаданных события нет типа оплаты")
		return OutcomeIgnored, jobID, nil
	}

	if _, err := transition(*jobID); err != nil {
		if apperror.HasCode(err, apperror.ErrCodeNotFound) {
			log.WithError(err).Error("webhook: заявка из события не найдена")
			return OutcomeIgnored, jobID, nil
		}
		return "", jobID, err
	}
	return OutcomeApplied, jobID, nil
}

func intentID(event *repository.GatewayEvent) string {
	if event.PaymentIntentID != "" {
		return event.PaymentIntentID
	}
	return event.ObjectID
}
