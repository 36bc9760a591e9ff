package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
)

type CreateJobRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Urgency     string           `json:"urgency"`
	Location    string           `json:"location" binding:"required"`
	Budget      *decimal.Decimal `json:"budget"`
	ScheduledAt *string          `json:"scheduled_at"`
}

type JobResponse struct {
	ID              uuid.UUID        `json:"id"`
	CustomerID      uuid.UUID        `json:"customer_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Urgency         string           `json:"urgency"`
	Location        string           `json:"location"`
	Budget          *decimal.Decimal `json:"budget"`
	Status          string           `json:"status"`
	PaymentStatus   string           `json:"payment_status"`
	TradespersonID  *uuid.UUID       `json:"tradesperson_id"`
	AcceptedQuoteID *uuid.UUID       `json:"accepted_quote_id"`
	ScheduledAt     *time.Time       `json:"scheduled_at"`
	AssignedAt      *time.Time       `json:"assigned_at"`
	CompletedAt     *time.Time       `json:"completed_at"`
	CancelledAt     *time.Time       `json:"cancelled_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func ToJobResponse(job *entity.Job) JobResponse {
	return JobResponse{
		ID:              job.ID,
		CustomerID:      job.CustomerID,
		Title:           job.Title,
		Description:     job.Description,
		Urgency:         string(job.Urgency),
		Location:        job.Location,
		Budget:          job.Budget,
		Status:          string(job.Status),
		PaymentStatus:   string(job.PaymentStatus),
		TradespersonID:  job.TradespersonID,
		AcceptedQuoteID: job.AcceptedQuoteID,
		ScheduledAt:     job.ScheduledAt,
		AssignedAt:      job.AssignedAt,
		CompletedAt:     job.CompletedAt,
		CancelledAt:     job.CancelledAt,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

func ToJobListResponse(jobs []*entity.Job) []JobResponse {
	result := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		result = append(result, ToJobResponse(job))
	}
	return result
}

// ParseTime принимает RFC3339 или дату в формате YYYY-MM-DD.
func ParseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ParseOptionalTime возвращает nil для пустого значения.
func ParseOptionalTime(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := ParseTime(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
