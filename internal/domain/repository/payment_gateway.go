package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
)

// Ключи метаданных, которые провайдер возвращает в событиях без изменений.
const (
	MetadataJobID          = "job_id"
	MetadataQuoteID        = "quote_id"
	MetadataTradespersonID = "tradesperson_id"
	MetadataCustomerID     = "customer_id"
	MetadataPaymentType    = "payment_type"
)

type CheckoutSessionRequest struct {
	AmountMinor          int64
	Currency             string
	DestinationAccountID string
	ApplicationFeeMinor  int64
	CaptureMode          valueobject.CaptureMode
	Description          string
	Metadata             map[string]string
	IdempotencyKey       string
}

type CheckoutSession struct {
	ID                  string
	URL                 string
	PaymentStatus       string
	PaymentIntentID     string
	PaymentIntentStatus string
	AmountTotal         int64
	Metadata            map[string]string
}

type ConnectedAccount struct {
	ID             string
	ChargesEnabled bool
}

// GatewayEvent: проверенное событие провайдера, приведённое к полям, нужным домену.
// FullyRefunded заполняется для charge.refunded, когда возвращена вся сумма.
type GatewayEvent struct {
	ID              string
	Type            string
	ObjectID        string
	PaymentIntentID string
	Status          string
	Metadata        map[string]string
	FullyRefunded   bool
	CreatedAt       time.Time
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	RetrieveAccount(ctx context.Context, accountID string) (*ConnectedAccount, error)
	// CapturePayment списывает заблокированные средства; уже списанный платёж не считается ошибкой.
	CapturePayment(ctx context.Context, paymentIntentID string) error
}

type WebhookVerifier interface {
	VerifyEvent(payload []byte, signature string) (*GatewayEvent, error)
}

// IdempotencyStore хранит результаты запросов по ключу идемпотентности ограниченное время.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Notifier доставляет уведомления пользователям. Ошибки доставки не возвращаются.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data any)
}
