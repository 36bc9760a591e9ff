package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// uniqueViolation: код ошибки PostgreSQL при нарушении уникального индекса.
const uniqueViolation = "23505"

type JobRepositoryAdapter struct {
	db *sqlx.DB
}

func NewJobRepositoryAdapter(db *sqlx.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{db: db}
}

const jobColumns = `
	id, customer_id, title, description, urgency, location, budget, status,
	tradesperson_id, accepted_quote_id, payment_status, deposit_payment_intent_id,
	final_payment_intent_id, version, created_at, updated_at, scheduled_at,
	assigned_at, completed_at, cancelled_at`

func (r *JobRepositoryAdapter) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (id, customer_id, title, description, urgency, location, budget, status,
			payment_status, version, created_at, updated_at, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.CustomerID, job.Title, job.Description, string(job.Urgency), job.Location,
		nullDecimal(job.Budget), string(job.Status), string(job.PaymentStatus), job.Version,
		job.CreatedAt, job.UpdatedAt, job.ScheduledAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать заявку")
	}
	return nil
}

// Update сохраняет заявку, только если её версия не изменилась с момента чтения.
func (r *JobRepositoryAdapter) Update(ctx context.Context, job *entity.Job) error {
	if err := updateJob(ctx, r.db, job); err != nil {
		return err
	}
	job.Version++
	return nil
}

// AssignQuote в одной транзакции назначает заявку и принимает предложение.
func (r *JobRepositoryAdapter) AssignQuote(ctx context.Context, job *entity.Job, quote *entity.Quote) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}
	defer tx.Rollback()

	if err := updateJob(ctx, tx, job); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE quotes SET status = $3, updated_at = $4
		WHERE id = $1 AND job_id = $2 AND status = 'pending'
	`, quote.ID, job.ID, string(quote.Status), quote.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperror.ErrAlreadyAssigned
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось принять предложение")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.ErrConcurrentUpdate
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать транзакцию")
	}
	job.Version++
	return nil
}

func updateJob(ctx context.Context, exec sqlx.ExecerContext, job *entity.Job) error {
	query := `
		UPDATE jobs
		SET title = $3, description = $4, urgency = $5, location = $6, budget = $7,
		    status = $8, tradesperson_id = $9, accepted_quote_id = $10, payment_status = $11,
		    deposit_payment_intent_id = $12, final_payment_intent_id = $13,
		    scheduled_at = $14, assigned_at = $15, completed_at = $16, cancelled_at = $17,
		    updated_at = $18, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := exec.ExecContext(ctx, query,
		job.ID, job.Version, job.Title, job.Description, string(job.Urgency), job.Location,
		nullDecimal(job.Budget), string(job.Status), job.TradespersonID, job.AcceptedQuoteID,
		string(job.PaymentStatus), job.DepositPaymentIntentID, job.FinalPaymentIntentID,
		job.ScheduledAt, job.AssignedAt, job.CompletedAt, job.CancelledAt, job.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить заявку")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить заявку")
	}
	if n == 0 {
		return apperror.ErrConcurrentUpdate
	}
	return nil
}

func (r *JobRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var row jobRow
	query := `SELECT` + jobColumns + ` FROM jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявку")
	}
	return row.toEntity(), nil
}

func (r *JobRepositoryAdapter) FindByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*entity.Job, error) {
	var rows []jobRow
	query := `SELECT` + jobColumns + ` FROM jobs WHERE customer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, customerID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить заявки")
	}
	result := make([]*entity.Job, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type jobRow struct {
	ID                     uuid.UUID           `db:"id"`
	CustomerID             uuid.UUID           `db:"customer_id"`
	Title                  string              `db:"title"`
	Description            string              `db:"description"`
	Urgency                string              `db:"urgency"`
	Location               string              `db:"location"`
	Budget                 decimal.NullDecimal `db:"budget"`
	Status                 string              `db:"status"`
	TradespersonID         *uuid.UUID          `db:"tradesperson_id"`
	AcceptedQuoteID        *uuid.UUID          `db:"accepted_quote_id"`
	PaymentStatus          string              `db:"payment_status"`
	DepositPaymentIntentID *string             `db:"deposit_payment_intent_id"`
	FinalPaymentIntentID   *string             `db:"final_payment_intent_id"`
	Version                int                 `db:"version"`
	CreatedAt              time.Time           `db:"created_at"`
	UpdatedAt              time.Time           `db:"updated_at"`
	ScheduledAt            *time.Time          `db:"scheduled_at"`
	AssignedAt             *time.Time          `db:"assigned_at"`
	CompletedAt            *time.Time          `db:"completed_at"`
	CancelledAt            *time.Time          `db:"cancelled_at"`
}

func (r *jobRow) toEntity() *entity.Job {
	status, _ := valueobject.NewJobStatus(r.Status)
	urgency, _ := valueobject.NewUrgency(r.Urgency)
	paymentStatus, _ := valueobject.NewPaymentStatus(r.PaymentStatus)
	return &entity.Job{
		ID:                     r.ID,
		CustomerID:             r.CustomerID,
		Title:                  r.Title,
		Description:            r.Description,
		Urgency:                urgency,
		Location:               r.Location,
		Budget:                 decimalPtr(r.Budget),
		Status:                 status,
		TradespersonID:         r.TradespersonID,
		AcceptedQuoteID:        r.AcceptedQuoteID,
		PaymentStatus:          paymentStatus,
		DepositPaymentIntentID: r.DepositPaymentIntentID,
		FinalPaymentIntentID:   r.FinalPaymentIntentID,
		Version:                r.Version,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
		ScheduledAt:            r.ScheduledAt,
		AssignedAt:             r.AssignedAt,
		CompletedAt:            r.CompletedAt,
		CancelledAt:            r.CancelledAt,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
