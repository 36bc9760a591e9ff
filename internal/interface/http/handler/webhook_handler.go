package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/trades-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/webhook"
)

const (
	SignatureHeader = "X-Signature"
	// Провайдер подписывает заголовком Stripe-Signature, если прокси его не переименовал.
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 64 * 1024
)

type EventProcessor interface {
	Execute(ctx context.Context, payload []byte, signature string) (webhook.Outcome, error)
}

type WebhookHandler struct {
	processor EventProcessor
}

func NewWebhookHandler(processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// HandlePaymentEvent обрабатывает POST /webhooks/payments.
// Провайдер повторяет доставку на любой ответ кроме 2xx, поэтому конфликт переходов отдаётся как 409.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid payload")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		signature = c.GetHeader(stripeSignatureHeader)
	}

	if _, err := h.processor.Execute(c.Request.Context(), payload, signature); err != nil {
		switch {
		case apperror.HasCode(err, apperror.ErrCodeInvalidSignature):
			c.String(http.StatusBadRequest, "invalid signature")
		case apperror.HasCode(err, apperror.ErrCodeBadRequest), apperror.IsValidation(err):
			c.String(http.StatusBadRequest, "invalid payload")
		case apperror.IsInvalidTransition(err), apperror.IsConcurrentUpdate(err):
			c.String(http.StatusConflict, "transition rejected")
		default:
			logger.Log.WithError(err).Error("webhook: внутренняя ошибка обработки события")
			c.String(http.StatusInternalServerError, "internal error")
		}
		return
	}

	c.JSON(http.StatusOK, dto.WebhookReceivedResponse{Received: true})
}
