package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/domain/repository"
	"github.com/ignatzorin/trades-marketplace/internal/goroutine"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

const publishTimeout = 5 * time.Second

// Broadcaster доставляет событие в открытые WebSocket-подключения пользователя.
type Broadcaster interface {
	Send(userID uuid.UUID, event string, data any) error
}

// Publisher отправляет событие во внешний брокер.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, event string, data any) error
}

// Fanout рассылает уведомления по всем подключённым каналам в фоне.
// Любой канал может быть nil.
type Fanout struct {
	hub       Broadcaster
	publisher Publisher
}

var _ repository.Notifier = (*Fanout)(nil)

func NewFanout(hub Broadcaster, publisher Publisher) *Fanout {
	return &Fanout{hub: hub, publisher: publisher}
}

// Notify не блокирует вызывающего и не возвращает ошибок.
func (f *Fanout) Notify(ctx context.Context, userID uuid.UUID, event string, data any) {
	// Запрос может завершиться раньше доставки
	detached := context.WithoutCancel(ctx)

	goroutine.Go("notification.fanout", func() {
		log := logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		})

		if f.hub != nil {
			if err := f.hub.Send(userID, event, data); err != nil {
				log.WithError(err).Warn("notification: не удалось отправить в WebSocket")
			}
		}

		if f.publisher != nil {
			pubCtx, cancel := context.WithTimeout(detached, publishTimeout)
			defer cancel()
			if err := f.publisher.Publish(pubCtx, userID, event, data); err != nil {
				log.WithError(err).Warn("notification: не удалось опубликовать событие")
			}
		}
	})
}
