package webhook_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const validSignature = "t=1,v1=ok"

// stubVerifier принимает только validSignature и декодирует тело как GatewayEvent.
type stubVerifier struct{}

func (stubVerifier) VerifyEvent(payload []byte, signature string) (*repository.GatewayEvent, error) {
	if signature != validSignature {
		return nil, apperror.ErrInvalidSignature
	}
	var event repository.GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "некорректное тело события")
	}
	return &event, nil
}

type mockJobRepository struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]entity.Job
	writes int
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[uuid.UUID]entity.Job)}
}

func (m *mockJobRepository) get(id uuid.UUID) entity.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

func (m *mockJobRepository) Create(ctx context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobRepository) Update(ctx context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.jobs[job.ID]
	if !ok {
		return apperror.ErrJobNotFound
	}
	if stored.Version != job.Version {
		return apperror.ErrConcurrentUpdate
	}
	job.Version++
	m.jobs[job.ID] = *job
	m.writes++
	return nil
}

func (m *mockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return &j, nil
	}
	return nil, apperror.ErrJobNotFound
}

func (m *mockJobRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Job, error) {
	return nil, nil
}

func (m *mockJobRepository) AssignQuote(ctx context.Context, job *entity.Job, quote *entity.Quote) error {
	return m.Update(ctx, job)
}

type mockQuoteRepository struct {
	quotes      map[uuid.UUID]*entity.Quote
	annotations map[uuid.UUID]repository.CheckoutAnnotation
}

func newMockQuoteRepository() *mockQuoteRepository {
	return &mockQuoteRepository{
		quotes:      make(map[uuid.UUID]*entity.Quote),
		annotations: make(map[uuid.UUID]repository.CheckoutAnnotation),
	}
}

func (m *mockQuoteRepository) Create(ctx context.Context, q *entity.Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func (m *mockQuoteRepository) UpdateStatus(ctx context.Context, q *entity.Quote) error {
	m.quotes[q.ID] = q
	return nil
}

func (m *mockQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Quote, error) {
	if q, ok := m.quotes[id]; ok {
		return q, nil
	}
	return nil, apperror.ErrQuoteNotFound
}

func (m *mockQuoteRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Quote, error) {
	return nil, nil
}

func (m *mockQuoteRepository) FindByTradespersonID(ctx context.Context, tradespersonID uuid.UUID) ([]*entity.Quote, error) {
	return nil, nil
}

func (m *mockQuoteRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Quote, error) {
	for _, q := range m.quotes {
		if q.PaymentIntentID != nil && *q.PaymentIntentID == paymentIntentID {
			return q, nil
		}
	}
	return nil, apperror.ErrQuoteNotFound
}

func (m *mockQuoteRepository) CountByTradespersonSince(ctx context.Context, tradespersonID uuid.UUID, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockQuoteRepository) AnnotateCheckout(ctx context.Context, quoteID uuid.UUID, annotation repository.CheckoutAnnotation) error {
	m.annotations[quoteID] = annotation
	if q, ok := m.quotes[quoteID]; ok && annotation.PaymentIntentID != "" {
		pi := annotation.PaymentIntentID
		q.PaymentIntentID = &pi
	}
	return nil
}

type memoryEventLedger struct {
	events map[string]*entity.PaymentEvent
}

func newMemoryEventLedger() *memoryEventLedger {
	return &memoryEventLedger{events: make(map[string]*entity.PaymentEvent)}
}

func (m *memoryEventLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *memoryEventLedger) Touch(ctx context.Context, eventID string) error {
	if e, ok := m.events[eventID]; ok {
		e.DeliveryCount++
		e.LastSeenAt = time.Now()
	}
	return nil
}

func (m *memoryEventLedger) Record(ctx context.Context, event *entity.PaymentEvent) error {
	if _, ok := m.events[event.EventID]; ok {
		return m.Touch(ctx, event.EventID)
	}
	m.events[event.EventID] = event
	return nil
}

type stubGateway struct {
	sessions map[string]*repository.CheckoutSession
	fetches  int
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, req repository.CheckoutSessionRequest) (*repository.CheckoutSession, error) {
	return nil, nil
}

func (s *stubGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	s.fetches++
	if session, ok := s.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, apperror.New(apperror.ErrCodeNotFound, "сессия не найдена")
}

func (s *stubGateway) RetrieveAccount(ctx context.Context, accountID string) (*repository.ConnectedAccount, error) {
	return nil, nil
}

func (s *stubGateway) CapturePayment(ctx context.Context, paymentIntentID string) error {
	return nil
}
