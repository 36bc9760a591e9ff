package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

type QuoteRepositoryAdapter struct {
	db *sqlx.DB
}

func NewQuoteRepositoryAdapter(db *sqlx.DB) *QuoteRepositoryAdapter {
	return &QuoteRepositoryAdapter{db: db}
}

const quoteColumns = `
	id, job_id, tradesperson_id, price, deposit_amount, description, estimated_duration,
	available_from, status, checkout_session_id, checkout_status, payment_intent_id,
	created_at, updated_at`

func (r *QuoteRepositoryAdapter) Create(ctx context.Context, quote *entity.Quote) error {
	query := `
		INSERT INTO quotes (id, job_id, tradesperson_id, price, deposit_amount, description,
			estimated_duration, available_from, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		quote.ID, quote.JobID, quote.TradespersonID, quote.Price, nullDecimal(quote.DepositAmount),
		quote.Description, quote.EstimatedDuration, quote.AvailableFrom, string(quote.Status),
		quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать предложение")
	}
	return nil
}

// UpdateStatus меняет статус только у ожидающего предложения; принятое предложение неизменно.
func (r *QuoteRepositoryAdapter) UpdateStatus(ctx context.Context, quote *entity.Quote) error {
	query := `UPDATE quotes SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, quote.ID, string(quote.Status), quote.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить предложение")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.InvalidTransition("предложение уже не ожидает решения")
	}
	return nil
}

func (r *QuoteRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Quote, error) {
	var row quoteRow
	query := `SELECT` + quoteColumns + ` FROM quotes WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrQuoteNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *QuoteRepositoryAdapter) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Quote, error) {
	return r.selectQuotes(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE job_id = $1 ORDER BY created_at DESC`, jobID)
}

func (r *QuoteRepositoryAdapter) FindByTradespersonID(ctx context.Context, tradespersonID uuid.UUID) ([]*entity.Quote, error) {
	return r.selectQuotes(ctx, `SELECT`+quoteColumns+` FROM quotes WHERE tradesperson_id = $1 ORDER BY created_at DESC`, tradespersonID)
}

func (r *QuoteRepositoryAdapter) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*entity.Quote, error) {
	var row quoteRow
	query := `SELECT` + quoteColumns + ` FROM quotes WHERE payment_intent_id = $1 ORDER BY updated_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, paymentIntentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrQuoteNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return row.toEntity(), nil
}

func (r *QuoteRepositoryAdapter) CountByTradespersonSince(ctx context.Context, tradespersonID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM quotes WHERE tradesperson_id = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, tradespersonID, since); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать предложения")
	}
	return count, nil
}

// AnnotateCheckout не затирает уже известные значения пустыми.
func (r *QuoteRepositoryAdapter) AnnotateCheckout(ctx context.Context, quoteID uuid.UUID, annotation repository.CheckoutAnnotation) error {
	query := `
		UPDATE quotes
		SET checkout_session_id = COALESCE(NULLIF($2, ''), checkout_session_id),
		    checkout_status = COALESCE(NULLIF($3, ''), checkout_status),
		    payment_intent_id = COALESCE(NULLIF($4, ''), payment_intent_id),
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, quoteID, annotation.SessionID, annotation.Status, annotation.PaymentIntentID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить данные оплаты предложения")
	}
	return nil
}

func (r *QuoteRepositoryAdapter) selectQuotes(ctx context.Context, query string, args ...any) ([]*entity.Quote, error) {
	var rows []quoteRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	result := make([]*entity.Quote, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type quoteRow struct {
	ID                uuid.UUID           `db:"id"`
	JobID             uuid.UUID           `db:"job_id"`
	TradespersonID    uuid.UUID           `db:"tradesperson_id"`
	Price             decimal.Decimal     `db:"price"`
	DepositAmount     decimal.NullDecimal `db:"deposit_amount"`
	Description       string              `db:"description"`
	EstimatedDuration string              `db:"estimated_duration"`
	AvailableFrom     time.Time           `db:"available_from"`
	Status            string              `db:"status"`
	CheckoutSessionID *string             `db:"checkout_session_id"`
	CheckoutStatus    *string             `db:"checkout_status"`
	PaymentIntentID   *string             `db:"payment_intent_id"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

func (r *quoteRow) toEntity() *entity.Quote {
	status, _ := valueobject.NewQuoteStatus(r.Status)
	return &entity.Quote{
		ID:                r.ID,
		JobID:             r.JobID,
		TradespersonID:    r.TradespersonID,
		Price:             r.Price,
		DepositAmount:     decimalPtr(r.DepositAmount),
		Description:       r.Description,
		EstimatedDuration: r.EstimatedDuration,
		AvailableFrom:     r.AvailableFrom,
		Status:            status,
		CheckoutSessionID: r.CheckoutSessionID,
		CheckoutStatus:    r.CheckoutStatus,
		PaymentIntentID:   r.PaymentIntentID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
