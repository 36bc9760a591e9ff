package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const CheckoutStatusCreated = "created"

type Settings struct {
	Currency       string
	FeeBasisPoints int64
	IdempotencyTTL time.Duration
}

type CreateCheckoutInput struct {
	JobID          uuid.UUID
	QuoteID        uuid.UUID
	PaymentType    string
	Mode           string
	Actor          valueobject.Actor
	IdempotencyKey string
}

type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type CreateCheckoutUseCase struct {
	jobRepo          repository.JobRepository
	quoteRepo        repository.QuoteRepository
	tradespersonRepo repository.TradespersonRepository
	gateway          repository.PaymentGateway
	idempotency      repository.IdempotencyStore
	settings         Settings
}

func NewCreateCheckoutUseCase(
	jobRepo repository.JobRepository,
	quoteRepo repository.QuoteRepository,
	tradespersonRepo repository.TradespersonRepository,
	gateway repository.PaymentGateway,
	idempotency repository.IdempotencyStore,
	settings Settings,
) *CreateCheckoutUseCase {
	if settings.IdempotencyTTL <= 0 {
		settings.IdempotencyTTL = 24 * time.Hour
	}
	return &CreateCheckoutUseCase{
		jobRepo:          jobRepo,
		quoteRepo:        quoteRepo,
		tradespersonRepo: tradespersonRepo,
		gateway:          gateway,
		idempotency:      idempotency,
		settings:         settings,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, input CreateCheckoutInput) (*CheckoutResult, error) {
	paymentType, err := valueobject.NewPaymentType(input.PaymentType)
	if err != nil {
		return nil, err
	}

	cacheKey := uc.cacheKey(input, paymentType)
	if cached := uc.cached(ctx, cacheKey); cached != nil {
		return cached, nil
	}
	captureMode, err := valueobject.CaptureModeFromRequest(input.Mode, paymentType)
	if err != nil {
		return nil, err
	}

	job, err := uc.jobRepo.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	quote, err := uc.quoteRepo.FindByID(ctx, input.QuoteID)
	if err != nil {
		return nil, err
	}

	if !job.IsOwnedBy(input.Actor.ID) && !input.Actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if quote.JobID != job.ID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "предложение относится к другой заявке")
	}
	if !quote.IsAccepted() || job.AcceptedQuoteID == nil || *job.AcceptedQuoteID != quote.ID {
		return nil, apperror.ErrQuoteNotAccepted
	}

	if err := checkEligibility(job, quote, paymentType); err != nil {
		return nil, err
	}

	payable, err := ComputePayable(quote, paymentType, uc.settings.Currency, uc.settings.FeeBasisPoints)
	if err != nil {
		return nil, err
	}

	accountID, err := uc.payeeAccount(ctx, quote.TradespersonID)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"job_id":       job.ID,
		"quote_id":     quote.ID,
		"payment_type": paymentType,
		"amount_minor": payable.AmountMinor,
		"fee_minor":    payable.FeeMinor,
	}

	session, err := uc.gateway.CreateCheckoutSession(ctx, repository.CheckoutSessionRequest{
		AmountMinor:          payable.AmountMinor,
		Currency:             payable.Amount.Currency,
		DestinationAccountID: accountID,
		ApplicationFeeMinor:  payable.FeeMinor,
		CaptureMode:          captureMode,
		Description:          describe(job, paymentType),
		Metadata: map[string]string{
			repository.MetadataJobID:          job.ID.String(),
			repository.MetadataQuoteID:        quote.ID.String(),
			repository.MetadataTradespersonID: quote.TradespersonID.String(),
			repository.MetadataCustomerID:     job.CustomerID.String(),
			repository.MetadataPaymentType:    string(paymentType),
		},
		IdempotencyKey: idempotencyKeyFor(input, paymentType),
	})
	if err != nil {
		logger.Log.WithFields(fields).WithError(err).Error("checkout: не удалось создать платёжную сессию")
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, apperror.ErrGateway.Message)
	}

	fields["session_id"] = session.ID
	logger.Log.WithFields(fields).Info("checkout: платёжная сессия создана")

	if err := uc.quoteRepo.AnnotateCheckout(ctx, quote.ID, repository.CheckoutAnnotation{
		SessionID: session.ID,
		Status:    CheckoutStatusCreated,
	}); err != nil {
		logger.Log.WithFields(fields).WithError(err).Warn("checkout: не удалось сохранить сессию в предложении")
	}

	result := &CheckoutResult{URL: session.URL, SessionID: session.ID}
	uc.remember(ctx, cacheKey, result)
	return result, nil
}

// checkEligibility: задаток оплачивается после назначения исполнителя и до его оплаты,
// остаток только по завершённой заявке.
func checkEligibility(job *entity.Job, quote *entity.Quote, paymentType valueobject.PaymentType) error {
	switch paymentType {
	case valueobject.PaymentTypeDeposit:
		if job.Status != valueobject.JobStatusAssigned && job.Status != valueobject.JobStatusInProgress {
			return apperror.InvalidTransition("задаток можно оплатить только после назначения исполнителя, статус заявки: %s", job.Status)
		}
		if job.PaymentStatus.Rank() >= valueobject.PaymentStatusDepositPaid.Rank() {
			return apperror.InvalidTransition("задаток уже оплачен, статус оплаты: %s", job.PaymentStatus)
		}
	case valueobject.PaymentTypeFinal:
		if job.Status != valueobject.JobStatusCompleted {
			return apperror.InvalidTransition("остаток можно оплатить только после завершения работ, статус заявки: %s", job.Status)
		}
		if job.PaymentStatus.IsFullyPaid() || job.PaymentStatus.IsTerminal() {
			return apperror.InvalidTransition("оплата по заявке уже закрыта, статус оплаты: %s", job.PaymentStatus)
		}
		if quote.RequiresDeposit() && !job.PaymentStatus.HasPaidDeposit() {
			return apperror.InvalidTransition("сначала необходимо оплатить задаток")
		}
	}
	return nil
}

func (uc *CreateCheckoutUseCase) payeeAccount(ctx context.Context, tradespersonID uuid.UUID) (string, error) {
	profile, err := uc.tradespersonRepo.FindByUserID(ctx, tradespersonID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", apperror.ErrPayeeNotOnboarded
		}
		return "", err
	}
	if !profile.HasPayoutAccount() {
		return "", apperror.ErrPayeeNotOnboarded
	}

	account, err := uc.gateway.RetrieveAccount(ctx, *profile.PayoutAccountID)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"tradesperson_id": tradespersonID,
		}).WithError(err).Error("checkout: не удалось проверить платёжный аккаунт мастера")
		return "", apperror.Wrap(err, apperror.ErrCodeGateway, apperror.ErrGateway.Message)
	}
	if !account.ChargesEnabled {
		return "", apperror.ErrPayeeNotOnboarded
	}
	return account.ID, nil
}

// cacheKey привязан к заявке, предложению и этапу оплаты: тот же ключ для другого этапа
// создаёт новую сессию.
func (uc *CreateCheckoutUseCase) cacheKey(input CreateCheckoutInput, paymentType valueobject.PaymentType) string {
	if input.IdempotencyKey == "" || uc.idempotency == nil {
		return ""
	}
	return fmt.Sprintf("checkout:%s:%s:%s:%s:%s", input.Actor.ID, input.IdempotencyKey, input.JobID, input.QuoteID, paymentType)
}

// cached: ошибки хранилища не мешают созданию сессии, ключ всё равно уходит провайдеру.
func (uc *CreateCheckoutUseCase) cached(ctx context.Context, key string) *CheckoutResult {
	if key == "" {
		return nil
	}
	var result CheckoutResult
	found, err := uc.idempotency.Get(ctx, key, &result)
	if err != nil {
		logger.Log.WithField("key", key).WithError(err).Warn("checkout: хранилище идемпотентности недоступно")
		return nil
	}
	if !found {
		return nil
	}
	logger.Log.WithField("key", key).Info("checkout: повторный запрос, возвращаем сохранённую сессию")
	return &result
}

func (uc *CreateCheckoutUseCase) remember(ctx context.Context, key string, result *CheckoutResult) {
	if key == "" {
		return
	}
	if err := uc.idempotency.Set(ctx, key, result, uc.settings.IdempotencyTTL); err != nil {
		logger.Log.WithField("key", key).WithError(err).Warn("checkout: не удалось сохранить результат по ключу идемпотентности")
	}
}

func idempotencyKeyFor(input CreateCheckoutInput, paymentType valueobject.PaymentType) string {
	if input.IdempotencyKey == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", input.IdempotencyKey, input.JobID, paymentType)
}

func describe(job *entity.Job, paymentType valueobject.PaymentType) string {
	if paymentType == valueobject.PaymentTypeDeposit {
		return fmt.Sprintf("Задаток по заявке «%s»", job.Title)
	}
	return fmt.Sprintf("Оплата остатка по заявке «%s»", job.Title)
}
