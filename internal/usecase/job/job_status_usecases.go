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

type CancelJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewCancelJobUseCase(jobRepo repository.JobRepository) *CancelJobUseCase {
	return &CancelJobUseCase{jobRepo: jobRepo}
}

// Execute отменяет заявку. Статус оплаты не трогается: возврат задатка идёт отдельно.
func (uc *CancelJobUseCase) Execute(ctx context.Context, jobID uuid.UUID, actor valueobject.Actor) (*entity.Job, error) {
	job, _, err := mutateJob(ctx, uc.jobRepo, jobID, func(job *entity.Job) (bool, error) {
		if !job.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
			return false, apperror.ErrForbidden
		}
		if err := job.Cancel(); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

type StartWorkUseCase struct {
	jobRepo repository.JobRepository
}

func NewStartWorkUseCase(jobRepo repository.JobRepository) *StartWorkUseCase {
	return &StartWorkUseCase{jobRepo: jobRepo}
}

func (uc *StartWorkUseCase) Execute(ctx context.Context, jobID uuid.UUID, actor valueobject.Actor) (*entity.Job, error) {
	job, _, err := mutateJob(ctx, uc.jobRepo, jobID, func(job *entity.Job) (bool, error) {
		if !job.IsAssignedTo(actor.ID) && !actor.IsAdmin() {
			return false, apperror.ErrForbidden
		}
		if job.Status == valueobject.JobStatusInProgress {
			return false, nil
		}
		if err := job.StartWork(); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

type CompleteJobUseCase struct {
	jobRepo repository.JobRepository
	gateway repository.PaymentGateway
}

func NewCompleteJobUseCase(jobRepo repository.JobRepository, gateway repository.PaymentGateway) *CompleteJobUseCase {
	return &CompleteJobUseCase{
		jobRepo: jobRepo,
		gateway: gateway,
	}
}

// Execute завершает заявку. Заблокированный задаток списывается до смены статуса,
// поэтому ошибка списания оставляет заявку без изменений.
func (uc *CompleteJobUseCase) Execute(ctx context.Context, jobID uuid.UUID, actor valueobject.Actor) (*entity.Job, error) {
	current, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !current.IsOwnedBy(actor.ID) && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if current.Status == valueobject.JobStatusCompleted {
		return current, nil
	}
	if current.AssignedAt == nil || !current.Status.CanTransitionTo(valueobject.JobStatusCompleted) {
		return nil, apperror.InvalidTransition("завершить можно только назначенную заявку, текущий статус: %s", current.Status)
	}

	if current.NeedsDepositCapture() && uc.gateway != nil {
		if err := uc.gateway.CapturePayment(ctx, *current.DepositPaymentIntentID); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"job_id":            current.ID,
				"payment_intent_id": *current.DepositPaymentIntentID,
				"error":             err.Error(),
			}).Error("job: не удалось списать задаток при завершении")
			return nil, apperror.Wrap(err, apperror.ErrCodeGateway, apperror.ErrGateway.Message)
		}
	}

	job, _, err := mutateJob(ctx, uc.jobRepo, jobID, func(job *entity.Job) (bool, error) {
		if job.Status == valueobject.JobStatusCompleted {
			return false, nil
		}
		if err := job.Complete(); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
