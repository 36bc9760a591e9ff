package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/checkout"
)

// IdempotencyKeyHeader: необязательный ключ, повтор с которым возвращает ту же сессию.
const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	createCheckoutUC *checkout.CreateCheckoutUseCase
}

func NewCheckoutHandler(createCheckoutUC *checkout.CreateCheckoutUseCase) *CheckoutHandler {
	return &CheckoutHandler{createCheckoutUC: createCheckoutUC}
}

// CreateCheckout обрабатывает POST /api/payments/checkout.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}
	quoteID, err := uuid.Parse(req.QuoteID)
	if err != nil {
		response.BadRequest(c, "некорректный ID предложения")
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > 255 {
		response.BadRequest(c, "ключ идемпотентности слишком длинный")
		return
	}

	result, err := h.createCheckoutUC.Execute(c.Request.Context(), checkout.CreateCheckoutInput{
		JobID:          jobID,
		QuoteID:        quoteID,
		PaymentType:    req.PaymentType,
		Mode:           req.Mode,
		Actor:          actor,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}
