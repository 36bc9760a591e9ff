package entity

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
)

// Tradesperson: серверная часть профиля мастера: тариф и платёжный субаккаунт.
type Tradesperson struct {
	UserID          uuid.UUID
	Tier            valueobject.Tier
	PayoutAccountID *string
}

func (t *Tradesperson) HasPayoutAccount() bool {
	return t.PayoutAccountID != nil && *t.PayoutAccountID != ""
}
