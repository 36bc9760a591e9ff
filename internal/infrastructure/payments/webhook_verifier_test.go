package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const testWebhookSecret = "whsec_test_secret"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

const checkoutCompletedPayload = `{
	"id": "evt_1",
	"object": "event",
	"type": "checkout.session.completed",
	"created": 1700000000,
	"data": {
		"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"payment_status": "paid",
			"payment_intent": "pi_1",
			"metadata": {"job_id": "b6f1c8d2-8a0e-4c57-9d0e-0f4f2e4a1a11", "payment_type": "deposit"}
		}
	}
}`

func TestStripeWebhookVerifier_ValidCheckoutEvent(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret, 0)
	payload := []byte(checkoutCompletedPayload)

	event, err := verifier.VerifyEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
	assert.Equal(t, "cs_test_1", event.ObjectID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.Equal(t, "paid", event.Status)
	assert.Equal(t, "deposit", event.Metadata["payment_type"])
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), event.CreatedAt)
}

func TestStripeWebhookVerifier_ChargeRefunded(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret, 0)
	payload := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"created": 1700000000,
		"data": {"object": {"id": "ch_1", "object": "charge", "status": "succeeded", "payment_intent": "pi_9", "refunded": true, "amount": 10000, "amount_refunded": 10000}}
	}`)

	event, err := verifier.VerifyEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "ch_1", event.ObjectID)
	assert.Equal(t, "pi_9", event.PaymentIntentID)
	assert.True(t, event.FullyRefunded)
}

func TestStripeWebhookVerifier_PartialRefund(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret, 0)
	payload := []byte(`{
		"id": "evt_3",
		"type": "charge.refunded",
		"created": 1700000000,
		"data": {"object": {"id": "ch_2", "object": "charge", "status": "succeeded", "payment_intent": "pi_9", "refunded": false, "amount": 10000, "amount_refunded": 2500}}
	}`)

	event, err := verifier.VerifyEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.False(t, event.FullyRefunded)
}

func TestStripeWebhookVerifier_Rejects(t *testing.T) {
	verifier := NewStripeWebhookVerifier(testWebhookSecret, 0)
	payload := []byte(checkoutCompletedPayload)

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{"пустая подпись", payload, ""},
		{"чужой секрет", payload, sign(payload, "whsec_other", time.Now())},
		{"изменённое тело", []byte(`{"id":"evt_forged","type":"charge.refunded"}`), sign(payload, testWebhookSecret, time.Now())},
		{"просроченная метка времени", payload, sign(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
		{"мусор вместо заголовка", payload, "not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := verifier.VerifyEvent(tt.payload, tt.signature)
			assert.Nil(t, event)
			assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidSignature))
		})
	}
}

func TestStripeWebhookVerifier_EmptySecretRejectsEverything(t *testing.T) {
	verifier := NewStripeWebhookVerifier("", 0)
	payload := []byte(checkoutCompletedPayload)

	_, err := verifier.VerifyEvent(payload, sign(payload, "", time.Now()))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidSignature))
}
