package quote

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// QuotaUsage: использование месячного лимита. Limit и Remaining равны nil для безлимитного тарифа.
type QuotaUsage struct {
	Tier        valueobject.Tier `json:"tier"`
	Used        int              `json:"used"`
	Limit       *int             `json:"limit"`
	Remaining   *int             `json:"remaining"`
	PeriodStart time.Time        `json:"period_start"`
}

func (u QuotaUsage) exhausted() bool {
	return u.Limit != nil && u.Used >= *u.Limit
}

type quotaChecker struct {
	quoteRepo        repository.QuoteRepository
	tradespersonRepo repository.TradespersonRepository
	policy           valueobject.TierPolicy
	now              func() time.Time
}

func newQuotaChecker(quoteRepo repository.QuoteRepository, tradespersonRepo repository.TradespersonRepository, policy valueobject.TierPolicy) *quotaChecker {
	if policy == nil {
		policy = valueobject.DefaultTierPolicy()
	}
	return &quotaChecker{
		quoteRepo:        quoteRepo,
		tradespersonRepo: tradespersonRepo,
		policy:           policy,
		now:              time.Now,
	}
}

// tier берётся только из профиля мастера; без профиля действует базовый тариф.
func (c *quotaChecker) tier(ctx context.Context, tradespersonID uuid.UUID) (valueobject.Tier, error) {
	profile, err := c.tradespersonRepo.FindByUserID(ctx, tradespersonID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return valueobject.TierBasic, nil
		}
		return "", err
	}
	if profile.Tier == "" {
		return valueobject.TierBasic, nil
	}
	return profile.Tier, nil
}

func (c *quotaChecker) usage(ctx context.Context, tradespersonID uuid.UUID) (QuotaUsage, error) {
	tier, err := c.tier(ctx, tradespersonID)
	if err != nil {
		return QuotaUsage{}, err
	}

	since := valueobject.StartOfMonth(c.now())
	usage := QuotaUsage{Tier: tier, PeriodStart: since}

	limit, capped := c.policy.MonthlyLimit(tier)
	if !capped {
		return usage, nil
	}

	used, err := c.quoteRepo.CountByTradespersonSince(ctx, tradespersonID, since)
	if err != nil {
		return QuotaUsage{}, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать предложения за месяц")
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	usage.Used = used
	usage.Limit = &limit
	usage.Remaining = &remaining
	return usage, nil
}

type GetQuotaUseCase struct {
	quota *quotaChecker
}

func NewGetQuotaUseCase(quoteRepo repository.QuoteRepository, tradespersonRepo repository.TradespersonRepository, policy valueobject.TierPolicy) *GetQuotaUseCase {
	return &GetQuotaUseCase{quota: newQuotaChecker(quoteRepo, tradespersonRepo, policy)}
}

func (uc *GetQuotaUseCase) Execute(ctx context.Context, tradespersonID uuid.UUID) (QuotaUsage, error) {
	return uc.quota.usage(ctx, tradespersonID)
}
