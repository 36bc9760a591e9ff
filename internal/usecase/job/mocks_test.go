package job_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type mockJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]entity.Job
	// conflicts: сколько следующих записей завершатся ошибкой compare-and-set.
	conflicts int
	writes    int
	quoteRepo *mockQuoteRepository
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[uuid.UUID]entity.Job)}
}

func (m *mockJobRepository) put(job *entity.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
}

func (m *mockJobRepository) get(id uuid.UUID) entity.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id]
}

func (m *mockJobRepository) Create(ctx context.Context, job *entity.Job) error {
	m.put(job)
	return nil
}

func (m *mockJobRepository) Update(ctx context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return apperror.ErrConcurrentUpdate
	}
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*entity.Job
	for _, j := range m.jobs {
		if j.CustomerID == customerID {
			j := j
			result = append(result, &j)
		}
	}
	return result, nil
}

func (m *mockJobRepository) AssignQuote(ctx context.Context, job *entity.Job, quote *entity.Quote) error {
	if err := m.Update(ctx, job); err != nil {
		return err
	}
	if m.quoteRepo != nil {
		cp := *quote
		m.quoteRepo.quotes[quote.ID] = &cp
	}
	return nil
}

type mockQuoteRepository struct {
	quotes map[uuid.UUID]*entity.Quote
}

func newMockQuoteRepository() *mockQuoteRepository {
	return &mockQuoteRepository{quotes: make(map[uuid.UUID]*entity.Quote)}
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
		cp := *q
		return &cp, nil
	}
	return nil, apperror.ErrQuoteNotFound
}

func (m *mockQuoteRepository) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Quote, error) {
	var result []*entity.Quote
	for _, q := range m.quotes {
		if q.JobID == jobID {
			result = append(result, q)
		}
	}
	return result, nil
}

func (m *mockQuoteRepository) FindByTradespersonID(ctx context.Context, tradespersonID uuid.UUID) ([]*entity.Quote, error) {
	return nil, nil
}

func (m *mockQuoteRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Quote, error) {
	return nil, apperror.ErrQuoteNotFound
}

func (m *mockQuoteRepository) CountByTradespersonSince(ctx context.Context, tradespersonID uuid.UUID, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockQuoteRepository) AnnotateCheckout(ctx context.Context, quoteID uuid.UUID, annotation repository.CheckoutAnnotation) error {
	return nil
}

type notification struct {
	userID uuid.UUID
	event  string
}

type mockNotifier struct {
	sent []notification
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	m.sent = append(m.sent, notification{userID: userID, event: event})
}

type mockGateway struct {
	captured   []string
	captureErr error
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req repository.CheckoutSessionRequest) (*repository.CheckoutSession, error) {
	return nil, nil
}

func (m *mockGateway) RetrieveCheckoutSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	return nil, nil
}

func (m *mockGateway) RetrieveAccount(ctx context.Context, accountID string) (*repository.ConnectedAccount, error) {
	return nil, nil
}

func (m *mockGateway) CapturePayment(ctx context.Context, paymentIntentID string) error {
	if m.captureErr != nil {
		return m.captureErr
	}
	m.captured = append(m.captured, paymentIntentID)
	return nil
}

func createTestJob(customerID uuid.UUID) *entity.Job {
	return &entity.Job{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Title:       "Leaking kitchen tap",
		Description: "Tap drips constantly",
		Urgency:     valueobject.UrgencySoon,
		Location:    "SW1A 1AA",
		Status:      valueobject.JobStatusOpen,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func createTestQuote(jobID uuid.UUID, price, deposit int64) *entity.Quote {
	q := &entity.Quote{
		ID:                uuid.New(),
		JobID:             jobID,
		TradespersonID:    uuid.New(),
		Price:             decimal.NewFromInt(price),
		Description:       "Replace washer",
		EstimatedDuration: "2 hours",
		AvailableFrom:     time.Now(),
		Status:            valueobject.QuoteStatusPending,
		CreatedAt:         time.Now(),
	}
	if deposit > 0 {
		d := decimal.NewFromInt(deposit)
		q.DepositAmount = &d
	}
	return q
}

// assignedJob возвращает заявку с уже принятым предложением.
func assignedJob(jobRepo *mockJobRepository, quoteRepo *mockQuoteRepository, price, deposit int64) (*entity.Job, *entity.Quote) {
	job := createTestJob(uuid.New())
	quote := createTestQuote(job.ID, price, deposit)
	_, _ = job.AcceptQuote(quote)
	jobRepo.put(job)
	quoteRepo.quotes[quote.ID] = quote
	return job, quote
}
