package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const EventQuoteAccepted = "quote_accepted"

type AcceptQuoteUseCase struct {
	jobRepo   repository.JobRepository
	quoteRepo repository.QuoteRepository
	notifier  repository.Notifier
}

func NewAcceptQuoteUseCase(jobRepo repository.JobRepository, quoteRepo repository.QuoteRepository, notifier repository.Notifier) *AcceptQuoteUseCase {
	return &AcceptQuoteUseCase{
		jobRepo:   jobRepo,
		quoteRepo: quoteRepo,
		notifier:  notifier,
	}
}

// Execute принимает предложение. Повторное принятие того же предложения ничего не меняет.
func (uc *AcceptQuoteUseCase) Execute(ctx context.Context, jobID, quoteID uuid.UUID, actor valueobject.Actor) (*entity.Job, error) {
	for attempt := 1; ; attempt++ {
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

		changed, err := job.AcceptQuote(quote)
		if err != nil {
			return nil, err
		}
		if !changed {
			return job, nil
		}

		err = uc.jobRepo.AssignQuote(ctx, job, quote)
		if err == nil {
			logger.Log.WithFields(logrus.Fields{
				"job_id":          job.ID,
				"quote_id":        quote.ID,
				"tradesperson_id": quote.TradespersonID,
			}).Info("job: предложение принято")

			if uc.notifier != nil {
				uc.notifier.Notify(ctx, quote.TradespersonID, EventQuoteAccepted, map[string]any{
					"job_id":   job.ID,
					"quote_id": quote.ID,
				})
			}
			return job, nil
		}
		if !apperror.IsConcurrentUpdate(err) || attempt >= maxWriteAttempts {
			return nil, err
		}
	}
}
