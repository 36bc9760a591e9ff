package quote

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type WithdrawQuoteUseCase struct {
	quoteRepo repository.QuoteRepository
}

func NewWithdrawQuoteUseCase(quoteRepo repository.QuoteRepository) *WithdrawQuoteUseCase {
	return &WithdrawQuoteUseCase{quoteRepo: quoteRepo}
}

func (uc *WithdrawQuoteUseCase) Execute(ctx context.Context, quoteID, tradespersonID uuid.UUID) (*entity.Quote, error) {
	quote, err := uc.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if !quote.IsOwnedBy(tradespersonID) {
		return nil, apperror.ErrForbidden
	}
	if quote.Status == valueobject.QuoteStatusWithdrawn {
		return quote, nil
	}

	if err := quote.Withdraw(); err != nil {
		return nil, err
	}
	if err := uc.quoteRepo.UpdateStatus(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

type RejectQuoteUseCase struct {
	quoteRepo repository.QuoteRepository
	jobRepo   repository.JobRepository
}

func NewRejectQuoteUseCase(quoteRepo repository.QuoteRepository, jobRepo repository.JobRepository) *RejectQuoteUseCase {
	return &RejectQuoteUseCase{
		quoteRepo: quoteRepo,
		jobRepo:   jobRepo,
	}
}

func (uc *RejectQuoteUseCase) Execute(ctx context.Context, jobID, quoteID uuid.UUID, actor valueobject.Actor) (*entity.Quote, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	quote, err := uc.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.JobID != job.ID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "предложение относится к другой заявке")
	}
	if quote.Status == valueobject.QuoteStatusRejected {
		return quote, nil
	}

	if err := quote.Reject(); err != nil {
		return nil, err
	}
	if err := uc.quoteRepo.UpdateStatus(ctx, quote); err != nil {
		return nil, err
	}
	return quote, nil
}

type ListJobQuotesUseCase struct {
	quoteRepo repository.QuoteRepository
	jobRepo   repository.JobRepository
}

func NewListJobQuotesUseCase(quoteRepo repository.QuoteRepository, jobRepo repository.JobRepository) *ListJobQuotesUseCase {
	return &ListJobQuotesUseCase{
		quoteRepo: quoteRepo,
		jobRepo:   jobRepo,
	}
}

// Execute: предложения по заявке видят её владелец и администратор.
func (uc *ListJobQuotesUseCase) Execute(ctx context.Context, jobID uuid.UUID, actor valueobject.Actor) ([]*entity.Quote, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	return uc.quoteRepo.FindByJobID(ctx, jobID)
}

type ListMyQuotesUseCase struct {
	quoteRepo repository.QuoteRepository
}

func NewListMyQuotesUseCase(quoteRepo repository.QuoteRepository) *ListMyQuotesUseCase {
	return &ListMyQuotesUseCase{quoteRepo: quoteRepo}
}

func (uc *ListMyQuotesUseCase) Execute(ctx context.Context, tradespersonID uuid.UUID) ([]*entity.Quote, error) {
	return uc.quoteRepo.FindByTradespersonID(ctx, tradespersonID)
}
