package valueobject

import (
	"time"

	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type Tier string

const (
	TierBasic    Tier = "basic"
	TierPro      Tier = "pro"
	TierBusiness Tier = "business"
)

func NewTier(value string) (Tier, error) {
	switch t := Tier(value); t {
	case TierBasic, TierPro, TierBusiness:
		return t, nil
	case "":
		return TierBasic, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "неизвестный тариф")
}

// TierPolicy задаёт месячный лимит предложений по тарифам.
// Тариф без записи или с лимитом 0 считается безлимитным.
type TierPolicy map[Tier]int

func DefaultTierPolicy() TierPolicy {
	return TierPolicy{
		TierBasic: 5,
	}
}

// MonthlyLimit возвращает лимит и признак его наличия.
func (p TierPolicy) MonthlyLimit(tier Tier) (int, bool) {
	limit, ok := p[tier]
	if !ok || limit <= 0 {
		return 0, false
	}
	return limit, true
}

// StartOfMonth возвращает начало текущего календарного месяца в UTC.
func StartOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
