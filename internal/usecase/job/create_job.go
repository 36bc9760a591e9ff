package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type CreateJobInput struct {
	CustomerID  uuid.UUID
	Title       string
	Description string
	Urgency     string
	Location    string
	Budget      *decimal.Decimal
	ScheduledAt *time.Time
}

type CreateJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewCreateJobUseCase(jobRepo repository.JobRepository) *CreateJobUseCase {
	return &CreateJobUseCase{jobRepo: jobRepo}
}

func (uc *CreateJobUseCase) Execute(ctx context.Context, input CreateJobInput) (*entity.Job, error) {
	urgency, err := valueobject.NewUrgency(input.Urgency)
	if err != nil {
		return nil, err
	}

	job, err := entity.NewJob(
		input.CustomerID,
		input.Title,
		input.Description,
		urgency,
		input.Location,
		input.Budget,
		input.ScheduledAt,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.jobRepo.Create(ctx, job); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}

	return job, nil
}

type GetJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewGetJobUseCase(jobRepo repository.JobRepository) *GetJobUseCase {
	return &GetJobUseCase{jobRepo: jobRepo}
}

func (uc *GetJobUseCase) Execute(ctx context.Context, jobID uuid.UUID) (*entity.Job, error) {
	return uc.jobRepo.FindByID(ctx, jobID)
}

type ListMyJobsUseCase struct {
	jobRepo repository.JobRepository
}

func NewListMyJobsUseCase(jobRepo repository.JobRepository) *ListMyJobsUseCase {
	return &ListMyJobsUseCase{jobRepo: jobRepo}
}

func (uc *ListMyJobsUseCase) Execute(ctx context.Context, customerID uuid.UUID) ([]*entity.Job, error) {
	return uc.jobRepo.FindByCustomerID(ctx, customerID)
}
