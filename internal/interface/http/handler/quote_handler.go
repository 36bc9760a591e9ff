package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/trades-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/quote"
)

type QuoteHandler struct {
	submitQuoteUC   *quote.SubmitQuoteUseCase
	getQuotaUC      *quote.GetQuotaUseCase
	withdrawQuoteUC *quote.WithdrawQuoteUseCase
	rejectQuoteUC   *quote.RejectQuoteUseCase
	listJobQuotesUC *quote.ListJobQuotesUseCase
	listMyQuotesUC  *quote.ListMyQuotesUseCase
}

func NewQuoteHandler(
	submitQuoteUC *quote.SubmitQuoteUseCase,
	getQuotaUC *quote.GetQuotaUseCase,
	withdrawQuoteUC *quote.WithdrawQuoteUseCase,
	rejectQuoteUC *quote.RejectQuoteUseCase,
	listJobQuotesUC *quote.ListJobQuotesUseCase,
	listMyQuotesUC *quote.ListMyQuotesUseCase,
) *QuoteHandler {
	return &QuoteHandler{
		submitQuoteUC:   submitQuoteUC,
		getQuotaUC:      getQuotaUC,
		withdrawQuoteUC: withdrawQuoteUC,
		rejectQuoteUC:   rejectQuoteUC,
		listJobQuotesUC: listJobQuotesUC,
		listMyQuotesUC:  listMyQuotesUC,
	}
}

// SubmitQuote обрабатывает POST /api/quotes. Тариф мастера берётся из профиля, а не из запроса.
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	jobID, err := uuid.Parse(req.JobID)
	if err != nil {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	availableFrom, err := dto.ParseTime(req.AvailableDate)
	if err != nil {
		response.BadRequest(c, "некорректный формат даты")
		return
	}

	submitted, err := h.submitQuoteUC.Execute(c.Request.Context(), quote.SubmitQuoteInput{
		TradespersonID:    userID,
		JobID:             jobID,
		Price:             req.Price,
		DepositAmount:     req.DepositAmount,
		Description:       req.Description,
		EstimatedDuration: req.EstimatedDuration,
		AvailableFrom:     availableFrom,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.SubmitQuoteResponse{QuoteID: submitted.ID})
}

func (h *QuoteHandler) GetQuota(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	usage, err := h.getQuotaUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, usage)
}

func (h *QuoteHandler) WithdrawQuote(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	quoteID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID предложения")
		return
	}

	withdrawn, err := h.withdrawQuoteUC.Execute(c.Request.Context(), quoteID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToQuoteResponse(withdrawn))
}

func (h *QuoteHandler) RejectQuote(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}
	quoteID, ok := parseUUIDParam(c, "quoteId")
	if !ok {
		response.BadRequest(c, "некорректный ID предложения")
		return
	}

	rejected, err := h.rejectQuoteUC.Execute(c.Request.Context(), jobID, quoteID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToQuoteResponse(rejected))
}

func (h *QuoteHandler) ListJobQuotes(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, ok := parseUUIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "некорректный ID заявки")
		return
	}

	quotes, err := h.listJobQuotesUC.Execute(c.Request.Context(), jobID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToQuoteListResponse(quotes))
}

func (h *QuoteHandler) ListMyQuotes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	quotes, err := h.listMyQuotesUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToQuoteListResponse(quotes))
}
