package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

const (
	DefaultExchange   = "trades.events"
	routingKeyPrefix  = "notification."
	defaultRetries    = 3
	defaultRetryDelay = time.Second
)

// Channel: часть amqp.Channel, нужная издателю.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Config: параметры подключения к RabbitMQ.
type Config struct {
	URL           string
	Exchange      string
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
}

// Envelope: сообщение о доменном событии для внешних потребителей (почта, аналитика).
type Envelope struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	UserID     uuid.UUID `json:"user_id"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher публикует уведомления в topic-exchange.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
}

// Dial подключается к брокеру с повторами и объявляет exchange.
func Dial(cfg Config) (*Publisher, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetries
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultRetryDelay
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 10 * time.Second
	}

	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err = amqp.DialConfig(cfg.URL, amqp.Config{Heartbeat: heartbeat, Locale: "en_US"})
		if err == nil {
			break
		}
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
		}).Warn("messaging: не удалось подключиться к RabbitMQ")
		if attempt < attempts {
			time.Sleep(interval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: нет подключения к RabbitMQ после %d попыток: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("messaging: не удалось открыть канал: %w", err)
	}

	publisher, err := NewPublisher(ch, cfg.Exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	logger.Log.WithField("exchange", publisher.exchange).Info("messaging: подключение к RabbitMQ установлено")
	return publisher, nil
}

// NewPublisher объявляет durable topic-exchange на готовом канале.
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("messaging: не удалось объявить exchange: %w", err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

// Publish отправляет событие с ключом notification.<event>.
func (p *Publisher) Publish(ctx context.Context, userID uuid.UUID, event string, data any) error {
	envelope := Envelope{
		ID:         uuid.NewString(),
		Event:      event,
		UserID:     userID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("messaging: не удалось сериализовать событие: %w", err)
	}

	// amqp.Channel не предназначен для параллельной публикации
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,             // exchange
		routingKeyPrefix+event, // routing key
		false,                  // mandatory
		false,                  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    envelope.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    envelope.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("messaging: не удалось опубликовать %s: %w", event, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		logger.Log.WithError(err).Warn("messaging: ошибка закрытия канала")
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
