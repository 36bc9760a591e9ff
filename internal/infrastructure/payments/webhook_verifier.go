package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// StripeWebhookVerifier проверяет заголовок подписи Stripe (t=...,v1=...) общим секретом.
type StripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

var _ repository.WebhookVerifier = (*StripeWebhookVerifier)(nil)

func NewStripeWebhookVerifier(secret string, tolerance time.Duration) *StripeWebhookVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeWebhookVerifier{secret: secret, tolerance: tolerance}
}

func (v *StripeWebhookVerifier) VerifyEvent(payload []byte, signature string) (*repository.GatewayEvent, error) {
	if v.secret == "" || signature == "" {
		return nil, apperror.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInvalidSignature, "подпись события не прошла проверку")
	}
	return toGatewayEvent(event)
}

func toGatewayEvent(event stripe.Event) (*repository.GatewayEvent, error) {
	out := &repository.GatewayEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return out, nil
	}

	var err error
	switch {
	case strings.HasPrefix(out.Type, "checkout.session."):
		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err == nil {
			out.ObjectID = session.ID
			out.Status = string(session.PaymentStatus)
			out.Metadata = session.Metadata
			if session.PaymentIntent != nil {
				out.PaymentIntentID = session.PaymentIntent.ID
			}
		}
	case strings.HasPrefix(out.Type, "payment_intent."):
		var intent stripe.PaymentIntent
		if err = json.Unmarshal(event.Data.Raw, &intent); err == nil {
			out.ObjectID = intent.ID
			out.PaymentIntentID = intent.ID
			out.Status = string(intent.Status)
			out.Metadata = intent.Metadata
		}
	case strings.HasPrefix(out.Type, "charge."):
		var charge stripe.Charge
		if err = json.Unmarshal(event.Data.Raw, &charge); err == nil {
			out.ObjectID = charge.ID
			out.Status = string(charge.Status)
			out.Metadata = charge.Metadata
			out.FullyRefunded = charge.Refunded
			if charge.PaymentIntent != nil {
				out.PaymentIntentID = charge.PaymentIntent.ID
			}
		}
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело события")
	}
	return out, nil
}
