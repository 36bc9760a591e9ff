package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const maxWriteAttempts = 3

// mutateJob читает актуальную заявку, применяет переход и сохраняет её через compare-and-set.
// При проигранной гонке заявка перечитывается и переход проверяется заново.
func mutateJob(ctx context.Context, jobRepo repository.JobRepository, jobID uuid.UUID, apply func(job *entity.Job) (bool, error)) (*entity.Job, bool, error) {
	for attempt := 1; ; attempt++ {
		job, err := jobRepo.FindByID(ctx, jobID)
		if err != nil {
			return nil, false, err
		}

		changed, err := apply(job)
		if err != nil {
			return job, false, err
		}
		if !changed {
			return job, false, nil
		}

		err = jobRepo.Update(ctx, job)
		if err == nil {
			return job, true, nil
		}
		if !apperror.IsConcurrentUpdate(err) || attempt >= maxWriteAttempts {
			return nil, false, err
		}

		logger.Log.WithFields(logrus.Fields{
			"job_id":  jobID,
			"attempt": attempt,
		}).Debug("job: запись проиграла гонку, перечитываем заявку")
	}
}
