package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

var ErrMissingStripeSecretKey = errors.New("payments: не задан STRIPE_SECRET_KEY")

const defaultGatewayTimeout = 10 * time.Second

type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
	// APIURL переопределяет адрес API (используется в тестах).
	APIURL string
}

// StripeGateway: клиент Stripe Connect. Повторы запросов отключены: повтор решает
// вызывающая сторона, а идемпотентность обеспечивает ключ запроса.
type StripeGateway struct {
	sc         *client.API
	successURL string
	cancelURL  string
}

var _ repository.PaymentGateway = (*StripeGateway)(nil)

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingStripeSecretKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Log,
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	logger.Log.Info("payments: клиент Stripe инициализирован")
	return &StripeGateway{
		sc:         client.New(cfg.SecretKey, backends),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req repository.CheckoutSessionRequest) (*repository.CheckoutSession, error) {
	intentData := &stripe.CheckoutSessionPaymentIntentDataParams{
		CaptureMethod: stripe.String(captureMethod(req.CaptureMode)),
		TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripe.String(req.DestinationAccountID),
		},
		Metadata: req.Metadata,
	}
	if req.ApplicationFeeMinor > 0 {
		intentData.ApplicationFeeAmount = stripe.Int64(req.ApplicationFeeMinor)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: intentData,
	}
	params.Context = ctx
	params.Metadata = req.Metadata
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: создание сессии оплаты: %w", err)
	}
	return toCheckoutSession(session), nil
}

func (g *StripeGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	params.AddExpand("line_items")

	session, err := g.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: получение сессии %s: %w", sessionID, err)
	}
	return toCheckoutSession(session), nil
}

func (g *StripeGateway) RetrieveAccount(ctx context.Context, accountID string) (*repository.ConnectedAccount, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := g.sc.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: получение аккаунта %s: %w", accountID, err)
	}
	return &repository.ConnectedAccount{ID: account.ID, ChargesEnabled: account.ChargesEnabled}, nil
}

// CapturePayment: если платёж уже списан, Stripe отвечает payment_intent_unexpected_state,
// тогда статус перепроверяется и успешный платёж ошибкой не считается.
func (g *StripeGateway) CapturePayment(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	_, err := g.sc.PaymentIntents.Capture(paymentIntentID, params)
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
		getParams := &stripe.PaymentIntentParams{}
		getParams.Context = ctx
		pi, getErr := g.sc.PaymentIntents.Get(paymentIntentID, getParams)
		if getErr == nil && pi.Status == stripe.PaymentIntentStatusSucceeded {
			return nil
		}
	}
	return fmt.Errorf("stripe: списание платежа %s: %w", paymentIntentID, err)
}

func captureMethod(mode valueobject.CaptureMode) string {
	if mode == valueobject.CaptureModeManual {
		return string(stripe.PaymentIntentCaptureMethodManual)
	}
	return string(stripe.PaymentIntentCaptureMethodAutomatic)
}

func toCheckoutSession(s *stripe.CheckoutSession) *repository.CheckoutSession {
	out := &repository.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
		out.PaymentIntentStatus = string(s.PaymentIntent.Status)
	}
	return out
}
