package job_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/trades-marketplace/internal/usecase/job"
)

func TestMarkDepositPaid_Idempotent(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	notifier := &mockNotifier{}
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, notifier)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)

	first, err := uc.MarkDepositPaid(context.Background(), j.ID, "evt_1", "pi_1")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, valueobject.PaymentStatusDepositPaid, first.Job.PaymentStatus)

	second, err := uc.MarkDepositPaid(context.Background(), j.ID, "evt_2", "pi_1")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, jobRepo.writes)

	// заказчик и мастер получают уведомление только о реальном изменении
	assert.Len(t, notifier.sent, 2)
}

func TestMarkDepositPaid_AfterFullyPaidIsNoop(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)
	j.PaymentStatus = valueobject.PaymentStatusFullyPaid
	jobRepo.put(j)

	change, err := uc.MarkDepositPaid(context.Background(), j.ID, "evt_late", "pi_1")
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Equal(t, valueobject.PaymentStatusFullyPaid, jobRepo.get(j.ID).PaymentStatus)
}

func TestMarkFullyPaid_RequiresDepositWhenQuoteHasOne(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 500, 100)

	_, err := uc.MarkFullyPaid(context.Background(), j.ID, "evt_final", "pi_final")
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, valueobject.PaymentStatusNone, jobRepo.get(j.ID).PaymentStatus)
}

func TestMarkFullyPaid_WithoutDepositSkipsDepositPhase(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 500, 0)
	j.PaymentStatus = valueobject.PaymentStatusPendingDeposit
	jobRepo.put(j)

	change, err := uc.MarkFullyPaid(context.Background(), j.ID, "evt_final", "pi_final")
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Equal(t, valueobject.PaymentStatusFullyPaid, change.Job.PaymentStatus)
	require.NotNil(t, change.Job.FinalPaymentIntentID)
	assert.Equal(t, "pi_final", *change.Job.FinalPaymentIntentID)
}

func TestMarkFailed_DoesNotCancelJob(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)

	change, err := uc.MarkFailed(context.Background(), j.ID, "evt_fail", valueobject.PaymentTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusDepositFailed, change.Job.PaymentStatus)
	assert.Equal(t, valueobject.JobStatusAssigned, change.Job.Status)

	// повторная оплата после неудачи допустима
	change, err = uc.MarkDepositPaid(context.Background(), j.ID, "evt_retry", "pi_2")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusDepositPaid, change.Job.PaymentStatus)
}

func TestMarkFailed_AfterPaymentIsNoop(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)
	j.PaymentStatus = valueobject.PaymentStatusDepositPaid
	jobRepo.put(j)

	change, err := uc.MarkFailed(context.Background(), j.ID, "evt_fail", valueobject.PaymentTypeDeposit)
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Equal(t, valueobject.PaymentStatusDepositPaid, jobRepo.get(j.ID).PaymentStatus)
}

func TestMarkRefunded(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)

	_, err := uc.MarkRefunded(context.Background(), j.ID, "evt_early_refund")
	assert.True(t, apperror.IsInvalidTransition(err), "возврат до оплаты должен отклоняться")

	_, err = uc.MarkDepositPaid(context.Background(), j.ID, "evt_paid", "pi_1")
	require.NoError(t, err)

	change, err := uc.MarkRefunded(context.Background(), j.ID, "evt_refund")
	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusRefunded, change.Job.PaymentStatus)

	change, err = uc.MarkDepositPaid(context.Background(), j.ID, "evt_replayed", "pi_1")
	require.NoError(t, err)
	assert.False(t, change.Changed)
	assert.Equal(t, valueobject.PaymentStatusRefunded, jobRepo.get(j.ID).PaymentStatus)
}

func TestMarkPaymentCanceled_UnpaidIsNoop(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)

	change, err := uc.MarkPaymentCanceled(context.Background(), j.ID, "evt_cancel")
	require.NoError(t, err)
	assert.False(t, change.Changed)
}

func TestPaymentLattice_NeverDecreases(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)
	ctx := context.Background()

	j, _ := assignedJob(jobRepo, quoteRepo, 500, 100)

	steps := []func() (*job.PaymentChange, error){
		func() (*job.PaymentChange, error) {
			return uc.MarkPending(ctx, j.ID, "e1", valueobject.PaymentTypeDeposit)
		},
		func() (*job.PaymentChange, error) { return uc.MarkDepositPaid(ctx, j.ID, "e2", "pi_d") },
		func() (*job.PaymentChange, error) {
			return uc.MarkPending(ctx, j.ID, "e3", valueobject.PaymentTypeDeposit)
		},
		func() (*job.PaymentChange, error) {
			return uc.MarkFailed(ctx, j.ID, "e4", valueobject.PaymentTypeDeposit)
		},
		func() (*job.PaymentChange, error) {
			return uc.MarkPending(ctx, j.ID, "e5", valueobject.PaymentTypeFinal)
		},
		func() (*job.PaymentChange, error) { return uc.MarkFullyPaid(ctx, j.ID, "e6", "pi_f") },
		func() (*job.PaymentChange, error) {
			return uc.MarkPending(ctx, j.ID, "e7", valueobject.PaymentTypeDeposit)
		},
		func() (*job.PaymentChange, error) {
			return uc.MarkFailed(ctx, j.ID, "e8", valueobject.PaymentTypeFinal)
		},
	}

	rank := 0
	for i, step := range steps {
		change, err := step()
		require.NoError(t, err, "шаг %d", i)
		current := change.Job.PaymentStatus.Rank()
		assert.GreaterOrEqual(t, current, rank, "шаг %d понизил статус до %q", i, change.Job.PaymentStatus)
		rank = current
	}
	assert.Equal(t, valueobject.PaymentStatusFullyPaid, jobRepo.get(j.ID).PaymentStatus)
}

func TestPaymentState_FinalFailureBeforeRequiredDeposit(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)
	ctx := context.Background()

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)

	_, err := uc.MarkFailed(ctx, j.ID, "evt_final_failed", valueobject.PaymentTypeFinal)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Equal(t, valueobject.PaymentStatusNone, jobRepo.get(j.ID).PaymentStatus)

	_, err = uc.MarkFullyPaid(ctx, j.ID, "evt_final", "pi_final")
	assert.True(t, apperror.IsInvalidTransition(err))

	change, err := uc.MarkDepositPaid(ctx, j.ID, "evt_deposit", "pi_dep")
	require.NoError(t, err)
	assert.True(t, change.Changed)
	require.NotNil(t, jobRepo.get(j.ID).DepositPaymentIntentID)
	assert.Equal(t, "pi_dep", *jobRepo.get(j.ID).DepositPaymentIntentID)
}

func TestPaymentState_ConvergesUnderConcurrentWrites(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)
	jobRepo.conflicts = 2

	change, err := uc.MarkDepositPaid(context.Background(), j.ID, "evt_1", "pi_1")
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Equal(t, 1, jobRepo.writes)
}

func TestPaymentState_GivesUpAfterRepeatedConflicts(t *testing.T) {
	jobRepo := newMockJobRepository()
	quoteRepo := newMockQuoteRepository()
	uc := job.NewPaymentStateUseCase(jobRepo, quoteRepo, nil)

	j, _ := assignedJob(jobRepo, quoteRepo, 200, 50)
	jobRepo.conflicts = 10

	_, err := uc.MarkDepositPaid(context.Background(), j.ID, "evt_1", "pi_1")
	assert.True(t, apperror.IsConcurrentUpdate(err))
}
