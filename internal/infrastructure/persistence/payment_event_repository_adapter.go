package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

// PaymentEventRepositoryAdapter: журнал событий провайдера в PostgreSQL.
type PaymentEventRepositoryAdapter struct {
	db *sqlx.DB
}

func NewPaymentEventRepositoryAdapter(db *sqlx.DB) *PaymentEventRepositoryAdapter {
	return &PaymentEventRepositoryAdapter{db: db}
}

func (r *PaymentEventRepositoryAdapter) Exists(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM payment_events WHERE event_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, eventID); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить журнал событий")
	}
	return exists, nil
}

func (r *PaymentEventRepositoryAdapter) Touch(ctx context.Context, eventID string) error {
	query := `
		UPDATE payment_events
		SET last_seen_at = NOW(), delivery_count = delivery_count + 1
		WHERE event_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить журнал событий")
	}
	return nil
}

// Record: атомарный upsert: параллельные доставки одного события дают одну запись.
func (r *PaymentEventRepositoryAdapter) Record(ctx context.Context, event *entity.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (event_id, job_id, event_type, recorded_at, last_seen_at, delivery_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (event_id) DO UPDATE
		SET last_seen_at = EXCLUDED.last_seen_at,
		    delivery_count = payment_events.delivery_count + 1
	`
	_, err := r.db.ExecContext(ctx, query, event.EventID, event.JobID, event.EventType, event.RecordedAt, event.LastSeenAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать событие в журнал")
	}
	return nil
}
