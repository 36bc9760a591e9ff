package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
)

// JobRepository хранит заявки. Update и AssignQuote выполняют compare-and-set по Version:
// если запись изменилась после чтения, возвращается apperror.ErrConcurrentUpdate.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Job, error)
	// AssignQuote атомарно сохраняет назначенную заявку и принятое предложение.
	AssignQuote(ctx context.Context, job *entity.Job, quote *entity.Quote) error
}

type TradespersonRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Tradesperson, error)
}
