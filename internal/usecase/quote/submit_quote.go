package quote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const EventQuoteSubmitted = "quote_submitted"

type SubmitQuoteInput struct {
	TradespersonID    uuid.UUID
	JobID             uuid.UUID
	Price             decimal.Decimal
	DepositAmount     *decimal.Decimal
	Description       string
	EstimatedDuration string
	AvailableFrom     time.Time
}

type SubmitQuoteUseCase struct {
	quoteRepo        repository.QuoteRepository
	jobRepo          repository.JobRepository
	tradespersonRepo repository.TradespersonRepository
	quota            *quotaChecker
	notifier         repository.Notifier
}

func NewSubmitQuoteUseCase(
	quoteRepo repository.QuoteRepository,
	jobRepo repository.JobRepository,
	tradespersonRepo repository.TradespersonRepository,
	policy valueobject.TierPolicy,
	notifier repository.Notifier,
) *SubmitQuoteUseCase {
	return &SubmitQuoteUseCase{
		quoteRepo:        quoteRepo,
		jobRepo:          jobRepo,
		tradespersonRepo: tradespersonRepo,
		quota:            newQuotaChecker(quoteRepo, tradespersonRepo, policy),
		notifier:         notifier,
	}
}

// WithClock подменяет источник времени для подсчёта месячного лимита.
func (uc *SubmitQuoteUseCase) WithClock(now func() time.Time) *SubmitQuoteUseCase {
	uc.quota.now = now
	return uc
}

func (uc *SubmitQuoteUseCase) Execute(ctx context.Context, input SubmitQuoteInput) (*entity.Quote, error) {
	job, err := uc.jobRepo.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.AcceptsQuotes() {
		return nil, apperror.ErrJobNotOpen
	}

	if job.IsOwnedBy(input.TradespersonID) {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя отправить предложение на собственную заявку")
	}

	quote, err := entity.NewQuote(
		input.JobID,
		input.TradespersonID,
		input.Price,
		input.DepositAmount,
		input.Description,
		input.EstimatedDuration,
		input.AvailableFrom,
	)
	if err != nil {
		return nil, err
	}

	usage, err := uc.quota.usage(ctx, input.TradespersonID)
	if err != nil {
		return nil, err
	}
	if usage.exhausted() {
		logger.Log.WithFields(logrus.Fields{
			"tradesperson_id": input.TradespersonID,
			"tier":            usage.Tier,
			"used":            usage.Used,
			"limit":           *usage.Limit,
		}).Info("quote: лимит предложений исчерпан")
		return nil, apperror.QuotaExceeded(usage.Used, *usage.Limit, string(usage.Tier))
	}

	if err := uc.quoteRepo.Create(ctx, quote); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать предложение")
	}

	logger.Log.WithFields(logrus.Fields{
		"quote_id":        quote.ID,
		"job_id":          job.ID,
		"tradesperson_id": input.TradespersonID,
	}).Info("quote: предложение создано")

	if uc.notifier != nil {
		uc.notifier.Notify(ctx, job.CustomerID, EventQuoteSubmitted, map[string]any{
			"job_id":   job.ID,
			"quote_id": quote.ID,
		})
	}

	return quote, nil
}
