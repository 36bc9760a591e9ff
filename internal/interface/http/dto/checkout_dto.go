package dto

type CreateCheckoutRequest struct {
	JobID       string `json:"job_id" binding:"required"`
	QuoteID     string `json:"quote_id" binding:"required"`
	PaymentType string `json:"payment_type" binding:"required"`
	Mode        string `json:"mode"`
}

type WebhookReceivedResponse struct {
	Received bool `json:"received"`
}
