package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
)

type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	UpdateStatus(ctx context.Context, quote *entity.Quote) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Quote, error)
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Quote, error)
	FindByTradespersonID(ctx context.Context, tradespersonID uuid.UUID) ([]*entity.Quote, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Quote, error)
	CountByTradespersonSince(ctx context.Context, tradespersonID uuid.UUID, since time.Time) (int, error)
	// AnnotateCheckout перезаписывает служебные поля оплаты без проверки состояния.
	AnnotateCheckout(ctx context.Context, quoteID uuid.UUID, annotation CheckoutAnnotation) error
}

type CheckoutAnnotation struct {
	SessionID       string
	Status          string
	PaymentIntentID string
}

// PaymentEventRepository: журнал обработанных событий для дедупликации вебхуков.
type PaymentEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Touch обновляет last_seen_at и счётчик доставок у уже записанного события.
	Touch(ctx context.Context, eventID string) error
	// Record создаёт запись или, если она уже есть, ведёт себя как Touch.
	Record(ctx context.Context, event *entity.PaymentEvent) error
}
