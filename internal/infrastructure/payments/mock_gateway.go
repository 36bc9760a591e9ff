package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

// MockGateway заменяет Stripe при локальном запуске (PAYMENT_GATEWAY_MOCK=true).
// Сессии хранятся в памяти и сразу считаются оплаченными.
type MockGateway struct {
	mu       sync.Mutex
	baseURL  string
	sessions map[string]*repository.CheckoutSession
	byKey    map[string]string
}

var _ repository.PaymentGateway = (*MockGateway)(nil)

func NewMockGateway(baseURL string) *MockGateway {
	logger.Log.Warn("payments: включён mock-режим платёжного шлюза")
	return &MockGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: make(map[string]*repository.CheckoutSession),
		byKey:    make(map[string]string),
	}
}

func (g *MockGateway) CreateCheckoutSession(_ context.Context, req repository.CheckoutSessionRequest) (*repository.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		cp := *g.sessions[id]
		return &cp, nil
	}

	id := "cs_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	session := &repository.CheckoutSession{
		ID:                  id,
		URL:                 fmt.Sprintf("%s/mock-checkout/%s", g.baseURL, id),
		PaymentStatus:       "paid",
		PaymentIntentID:     "pi_mock_" + id[len("cs_mock_"):],
		PaymentIntentStatus: mockIntentStatus(req),
		AmountTotal:         req.AmountMinor,
		Metadata:            req.Metadata,
	}
	g.sessions[id] = session
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}

	logger.Log.WithFields(logrus.Fields{
		"session_id":   id,
		"amount_minor": req.AmountMinor,
		"currency":     req.Currency,
	}).Info("payments: mock-сессия оплаты создана")

	cp := *session
	return &cp, nil
}

func mockIntentStatus(req repository.CheckoutSessionRequest) string {
	if captureMethod(req.CaptureMode) == "manual" {
		return "requires_capture"
	}
	return "succeeded"
}

func (g *MockGateway) RetrieveCheckoutSession(_ context.Context, sessionID string) (*repository.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	session, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("mock: сессия %s не найдена", sessionID)
	}
	cp := *session
	return &cp, nil
}

func (g *MockGateway) RetrieveAccount(_ context.Context, accountID string) (*repository.ConnectedAccount, error) {
	return &repository.ConnectedAccount{ID: accountID, ChargesEnabled: true}, nil
}

func (g *MockGateway) CapturePayment(_ context.Context, paymentIntentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, session := range g.sessions {
		if session.PaymentIntentID == paymentIntentID {
			session.PaymentIntentStatus = "succeeded"
		}
	}
	logger.Log.WithField("payment_intent_id", paymentIntentID).Info("payments: mock-списание выполнено")
	return nil
}
