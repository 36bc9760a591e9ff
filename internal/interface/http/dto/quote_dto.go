package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
)

type SubmitQuoteRequest struct {
	JobID             string           `json:"job_id" binding:"required"`
	Price             decimal.Decimal  `json:"price"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount"`
	Description       string           `json:"description" binding:"required"`
	EstimatedDuration string           `json:"estimated_duration" binding:"required"`
	AvailableDate     string           `json:"available_date" binding:"required"`
}

type SubmitQuoteResponse struct {
	QuoteID uuid.UUID `json:"quote_id"`
}

type QuoteResponse struct {
	ID                uuid.UUID        `json:"id"`
	JobID             uuid.UUID        `json:"job_id"`
	TradespersonID    uuid.UUID        `json:"tradesperson_id"`
	Price             decimal.Decimal  `json:"price"`
	DepositAmount     *decimal.Decimal `json:"deposit_amount"`
	Description       string           `json:"description"`
	EstimatedDuration string           `json:"estimated_duration"`
	AvailableFrom     time.Time        `json:"available_date"`
	Status            string           `json:"status"`
	CheckoutStatus    *string          `json:"checkout_status"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func ToQuoteResponse(quote *entity.Quote) QuoteResponse {
	return QuoteResponse{
		ID:                quote.ID,
		JobID:             quote.JobID,
		TradespersonID:    quote.TradespersonID,
		Price:             quote.Price,
		DepositAmount:     quote.DepositAmount,
		Description:       quote.Description,
		EstimatedDuration: quote.EstimatedDuration,
		AvailableFrom:     quote.AvailableFrom,
		Status:            string(quote.Status),
		CheckoutStatus:    quote.CheckoutStatus,
		CreatedAt:         quote.CreatedAt,
		UpdatedAt:         quote.UpdatedAt,
	}
}

func ToQuoteListResponse(quotes []*entity.Quote) []QuoteResponse {
	result := make([]QuoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		result = append(result, ToQuoteResponse(quote))
	}
	return result
}
