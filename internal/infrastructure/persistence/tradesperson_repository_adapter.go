package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type TradespersonRepositoryAdapter struct {
	db *sqlx.DB
}

func NewTradespersonRepositoryAdapter(db *sqlx.DB) *TradespersonRepositoryAdapter {
	return &TradespersonRepositoryAdapter{db: db}
}

func (r *TradespersonRepositoryAdapter) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Tradesperson, error) {
	var row struct {
		UserID          uuid.UUID `db:"user_id"`
		Tier            string    `db:"tier"`
		PayoutAccountID *string   `db:"payout_account_id"`
	}
	query := `SELECT user_id, tier, payout_account_id FROM tradespersons WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrTradespersonNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить профиль мастера")
	}

	// Неизвестный тариф в базе трактуется как базовый, чтобы не снять лимит случайно.
	tier, err := valueobject.NewTier(row.Tier)
	if err != nil {
		tier = valueobject.TierBasic
	}
	return &entity.Tradesperson{
		UserID:          row.UserID,
		Tier:            tier,
		PayoutAccountID: row.PayoutAccountID,
	}, nil
}
