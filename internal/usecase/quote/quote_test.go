package quote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/quote"
)

func init() {
	logger.Silence()
}

type mockQuoteRepository struct {
	quotes   map[uuid.UUID]*entity.Quote
	countErr error
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
	var result []*entity.Quote
	for _, q := range m.quotes {
		if q.TradespersonID == tradespersonID {
			result = append(result, q)
		}
	}
	return result, nil
}

func (m *mockQuoteRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Quote, error) {
	return nil, apperror.ErrQuoteNotFound
}

func (m *mockQuoteRepository) CountByTradespersonSince(ctx context.Context, tradespersonID uuid.UUID, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	count := 0
	for _, q := range m.quotes {
		if q.TradespersonID == tradespersonID && !q.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockQuoteRepository) AnnotateCheckout(ctx context.Context, quoteID uuid.UUID, annotation repository.CheckoutAnnotation) error {
	return nil
}

type mockJobRepository struct {
	jobs map[uuid.UUID]*entity.Job
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (m *mockJobRepository) Create(ctx context.Context, j *entity.Job) error {
	m.jobs[j.ID] = j
	return nil
}

func (m *mockJobRepository) Update(ctx context.Context, j *entity.Job) error {
	m.jobs[j.ID] = j
	return nil
}

func (m *mockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, apperror.ErrJobNotFound
}

func (m *mockJobRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Job, error) {
	return nil, nil
}

func (m *mockJobRepository) AssignQuote(ctx context.Context, j *entity.Job, q *entity.Quote) error {
	return nil
}

type mockTradespersonRepository struct {
	profiles map[uuid.UUID]*entity.Tradesperson
}

func (m *mockTradespersonRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Tradesperson, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, apperror.ErrTradespersonNotFound
}

type mockNotifier struct {
	events []string
}

func (m *mockNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	m.events = append(m.events, event)
}

type fixture struct {
	quotes   *mockQuoteRepository
	jobs     *mockJobRepository
	profiles *mockTradespersonRepository
	notifier *mockNotifier
	submit   *quote.SubmitQuoteUseCase
}

func newFixture(policy valueobject.TierPolicy) *fixture {
	f := &fixture{
		quotes:   newMockQuoteRepository(),
		jobs:     newMockJobRepository(),
		profiles: &mockTradespersonRepository{profiles: make(map[uuid.UUID]*entity.Tradesperson)},
		notifier: &mockNotifier{},
	}
	f.submit = quote.NewSubmitQuoteUseCase(f.quotes, f.jobs, f.profiles, policy, f.notifier)
	return f
}

func (f *fixture) openJob() *entity.Job {
	j := &entity.Job{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Title:      "Fence repair",
		Status:     valueobject.JobStatusOpen,
	}
	f.jobs.jobs[j.ID] = j
	return j
}

func (f *fixture) withTier(userID uuid.UUID, tier valueobject.Tier) {
	f.profiles.profiles[userID] = &entity.Tradesperson{UserID: userID, Tier: tier}
}

func submitInput(jobID, tradespersonID uuid.UUID) quote.SubmitQuoteInput {
	deposit := decimal.NewFromInt(50)
	return quote.SubmitQuoteInput{
		TradespersonID:    tradespersonID,
		JobID:             jobID,
		Price:             decimal.NewFromInt(200),
		DepositAmount:     &deposit,
		Description:       "Replace three panels",
		EstimatedDuration: "1 day",
		AvailableFrom:     time.Now().Add(24 * time.Hour),
	}
}

func TestSubmitQuote_Success(t *testing.T) {
	f := newFixture(nil)
	job := f.openJob()
	tradespersonID := uuid.New()

	q, err := f.submit.Execute(context.Background(), submitInput(job.ID, tradespersonID))
	require.NoError(t, err)

	assert.Equal(t, valueobject.QuoteStatusPending, q.Status)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(200)))
	assert.True(t, q.RequiresDeposit())
	assert.Equal(t, valueobject.JobStatusOpen, f.jobs.jobs[job.ID].Status, "предложение не меняет статус заявки")
	assert.Equal(t, []string{quote.EventQuoteSubmitted}, f.notifier.events)
}

func TestSubmitQuote_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *quote.SubmitQuoteInput)
		code   apperror.ErrorCode
	}{
		{
			name:   "zero price",
			mutate: func(in *quote.SubmitQuoteInput) { in.Price = decimal.Zero },
			code:   apperror.ErrCodeInvalidAmount,
		},
		{
			name: "deposit equal to price",
			mutate: func(in *quote.SubmitQuoteInput) {
				d := in.Price
				in.DepositAmount = &d
			},
			code: apperror.ErrCodeInvalidAmount,
		},
		{
			name: "negative deposit",
			mutate: func(in *quote.SubmitQuoteInput) {
				d := decimal.NewFromInt(-1)
				in.DepositAmount = &d
			},
			code: apperror.ErrCodeInvalidAmount,
		},
		{
			name:   "empty description",
			mutate: func(in *quote.SubmitQuoteInput) { in.Description = "  " },
			code:   apperror.ErrCodeValidation,
		},
		{
			name:   "missing availability",
			mutate: func(in *quote.SubmitQuoteInput) { in.AvailableFrom = time.Time{} },
			code:   apperror.ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			job := f.openJob()
			in := submitInput(job.ID, uuid.New())
			tt.mutate(&in)

			_, err := f.submit.Execute(context.Background(), in)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tt.code), "ожидался код %s, получено %v", tt.code, err)
			assert.Empty(t, f.quotes.quotes)
		})
	}
}

func TestSubmitQuote_JobNotFound(t *testing.T) {
	f := newFixture(nil)

	_, err := f.submit.Execute(context.Background(), submitInput(uuid.New(), uuid.New()))
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmitQuote_JobNotOpen(t *testing.T) {
	for _, status := range []valueobject.JobStatus{
		valueobject.JobStatusAssigned,
		valueobject.JobStatusInProgress,
		valueobject.JobStatusCompleted,
		valueobject.JobStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(nil)
			job := f.openJob()
			job.Status = status

			_, err := f.submit.Execute(context.Background(), submitInput(job.ID, uuid.New()))
			assert.True(t, apperror.HasCode(err, apperror.ErrCodeJobNotOpen))
		})
	}
}

func TestSubmitQuote_QuotedJobStillAcceptsQuotes(t *testing.T) {
	f := newFixture(nil)
	job := f.openJob()
	job.Status = valueobject.JobStatusQuoted

	_, err := f.submit.Execute(context.Background(), submitInput(job.ID, uuid.New()))
	assert.NoError(t, err)
}

func TestSubmitQuote_OwnJob(t *testing.T) {
	f := newFixture(nil)
	job := f.openJob()

	_, err := f.submit.Execute(context.Background(), submitInput(job.ID, job.CustomerID))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeBadRequest))
}

func TestSubmitQuote_QuotaBoundary(t *testing.T) {
	f := newFixture(valueobject.TierPolicy{valueobject.TierBasic: 5})
	tradespersonID := uuid.New()
	f.withTier(tradespersonID, valueobject.TierBasic)

	for i := 0; i < 5; i++ {
		job := f.openJob()
		_, err := f.submit.Execute(context.Background(), submitInput(job.ID, tradespersonID))
		require.NoError(t, err, "предложение %d должно пройти", i+1)
	}

	job := f.openJob()
	_, err := f.submit.Execute(context.Background(), submitInput(job.ID, tradespersonID))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeQuotaExceeded))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 5, appErr.Details["used"])
	assert.Equal(t, 5, appErr.Details["limit"])
	assert.Equal(t, "basic", appErr.Details["tier"])
	assert.Len(t, f.quotes.quotes, 5)
}

func TestSubmitQuote_UnlimitedTierNeverExceeds(t *testing.T) {
	f := newFixture(valueobject.TierPolicy{valueobject.TierBasic: 5})
	tradespersonID := uuid.New()
	f.withTier(tradespersonID, valueobject.TierPro)

	for i := 0; i < 20; i++ {
		job := f.openJob()
		_, err := f.submit.Execute(context.Background(), submitInput(job.ID, tradespersonID))
		require.NoError(t, err)
	}
	assert.Len(t, f.quotes.quotes, 20)
}

func TestSubmitQuote_MissingProfileIsBasic(t *testing.T) {
	f := newFixture(valueobject.TierPolicy{valueobject.TierBasic: 1})
	tradespersonID := uuid.New()

	_, err := f.submit.Execute(context.Background(), submitInput(f.openJob().ID, tradespersonID))
	require.NoError(t, err)

	_, err = f.submit.Execute(context.Background(), submitInput(f.openJob().ID, tradespersonID))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeQuotaExceeded))
}

func TestSubmitQuote_PreviousMonthNotCounted(t *testing.T) {
	f := newFixture(valueobject.TierPolicy{valueobject.TierBasic: 1})
	tradespersonID := uuid.New()

	old := &entity.Quote{
		ID:             uuid.New(),
		JobID:          uuid.New(),
		TradespersonID: tradespersonID,
		CreatedAt:      time.Date(2026, time.September, 30, 23, 59, 0, 0, time.UTC),
	}
	f.quotes.quotes[old.ID] = old
	f.submit.WithClock(func() time.Time { return time.Date(2026, time.October, 1, 0, 0, 1, 0, time.UTC) })

	_, err := f.submit.Execute(context.Background(), submitInput(f.openJob().ID, tradespersonID))
	assert.NoError(t, err)
}

func TestSubmitQuote_CountFailure(t *testing.T) {
	f := newFixture(nil)
	f.quotes.countErr = errors.New("connection reset")

	_, err := f.submit.Execute(context.Background(), submitInput(f.openJob().ID, uuid.New()))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeDatabaseError))
	assert.Empty(t, f.quotes.quotes)
}

func TestGetQuota(t *testing.T) {
	quotes := newMockQuoteRepository()
	profiles := &mockTradespersonRepository{profiles: make(map[uuid.UUID]*entity.Tradesperson)}
	uc := quote.NewGetQuotaUseCase(quotes, profiles, valueobject.TierPolicy{valueobject.TierBasic: 5})

	tradespersonID := uuid.New()
	for i := 0; i < 2; i++ {
		q := &entity.Quote{ID: uuid.New(), TradespersonID: tradespersonID, CreatedAt: time.Now()}
		quotes.quotes[q.ID] = q
	}

	usage, err := uc.Execute(context.Background(), tradespersonID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TierBasic, usage.Tier)
	assert.Equal(t, 2, usage.Used)
	require.NotNil(t, usage.Limit)
	assert.Equal(t, 5, *usage.Limit)
	require.NotNil(t, usage.Remaining)
	assert.Equal(t, 3, *usage.Remaining)

	profiles.profiles[tradespersonID] = &entity.Tradesperson{UserID: tradespersonID, Tier: valueobject.TierBusiness}
	usage, err = uc.Execute(context.Background(), tradespersonID)
	require.NoError(t, err)
	assert.Nil(t, usage.Limit)
	assert.Nil(t, usage.Remaining)
}

func TestWithdrawQuote(t *testing.T) {
	quotes := newMockQuoteRepository()
	uc := quote.NewWithdrawQuoteUseCase(quotes)

	q := &entity.Quote{ID: uuid.New(), TradespersonID: uuid.New(), Status: valueobject.QuoteStatusPending}
	quotes.quotes[q.ID] = q

	_, err := uc.Execute(context.Background(), q.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	result, err := uc.Execute(context.Background(), q.ID, q.TradespersonID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.QuoteStatusWithdrawn, result.Status)

	// повторный отзыв не является ошибкой
	_, err = uc.Execute(context.Background(), q.ID, q.TradespersonID)
	assert.NoError(t, err)
}

func TestWithdrawQuote_AcceptedCannotBeWithdrawn(t *testing.T) {
	quotes := newMockQuoteRepository()
	uc := quote.NewWithdrawQuoteUseCase(quotes)

	q := &entity.Quote{ID: uuid.New(), TradespersonID: uuid.New(), Status: valueobject.QuoteStatusAccepted}
	quotes.quotes[q.ID] = q

	_, err := uc.Execute(context.Background(), q.ID, q.TradespersonID)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, valueobject.QuoteStatusAccepted, quotes.quotes[q.ID].Status)
}

func TestRejectQuote(t *testing.T) {
	f := newFixture(nil)
	job := f.openJob()
	uc := quote.NewRejectQuoteUseCase(f.quotes, f.jobs)

	q := &entity.Quote{ID: uuid.New(), JobID: job.ID, TradespersonID: uuid.New(), Status: valueobject.QuoteStatusPending}
	f.quotes.quotes[q.ID] = q

	_, err := uc.Execute(context.Background(), job.ID, q.ID, valueobject.Actor{ID: uuid.New(), Role: valueobject.RoleCustomer})
	assert.True(t, apperror.IsForbidden(err))

	result, err := uc.Execute(context.Background(), job.ID, q.ID, valueobject.Actor{ID: job.CustomerID, Role: valueobject.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, valueobject.QuoteStatusRejected, result.Status)
}

func TestListJobQuotes_OwnerOrAdmin(t *testing.T) {
	f := newFixture(nil)
	job := f.openJob()
	uc := quote.NewListJobQuotesUseCase(f.quotes, f.jobs)

	_, err := f.submit.Execute(context.Background(), submitInput(job.ID, uuid.New()))
	require.NoError(t, err)

	list, err := uc.Execute(context.Background(), job.ID, valueobject.Actor{ID: job.CustomerID, Role: valueobject.RoleCustomer})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = uc.Execute(context.Background(), job.ID, valueobject.Actor{ID: uuid.New(), Role: valueobject.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = uc.Execute(context.Background(), job.ID, valueobject.Actor{ID: uuid.New(), Role: valueobject.RoleTradesperson})
	assert.True(t, apperror.IsForbidden(err))
}
