package entity

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent: запись журнала обработанных событий платёжного провайдера.
type PaymentEvent struct {
	EventID       string
	JobID         *uuid.UUID
	EventType     string
	RecordedAt    time.Time
	LastSeenAt    time.Time
	DeliveryCount int
}

func NewPaymentEvent(eventID, eventType string, jobID *uuid.UUID) *PaymentEvent {
	now := time.Now().UTC()
	return &PaymentEvent{
		EventID:       eventID,
		JobID:         jobID,
		EventType:     eventType,
		RecordedAt:    now,
		LastSeenAt:    now,
		DeliveryCount: 1,
	}
}
