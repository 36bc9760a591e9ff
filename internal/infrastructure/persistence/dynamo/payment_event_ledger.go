package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignatzorin/trades-marketplace/internal/domain/entity"
	"github.com/ignatzorin/trades-marketplace/internal/pkg/apperror"
)

const DefaultPaymentEventsTable = "payment_events"

// API: подмножество клиента DynamoDB, которое использует журнал.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// PaymentEventLedger хранит журнал событий провайдера в DynamoDB.
//
// Таблица: PK event_id (string).
type PaymentEventLedger struct {
	ddb       API
	tableName string
	now       func() time.Time
}

func NewPaymentEventLedger(ddb API, tableName string) *PaymentEventLedger {
	if tableName == "" {
		tableName = DefaultPaymentEventsTable
	}
	return &PaymentEventLedger{ddb: ddb, tableName: tableName, now: time.Now}
}

func (l *PaymentEventLedger) key(eventID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"event_id": &types.AttributeValueMemberS{Value: eventID},
	}
}

func (l *PaymentEventLedger) Exists(ctx context.Context, eventID string) (bool, error) {
	out, err := l.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(l.tableName),
		Key:                  l.key(eventID),
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("event_id"),
	})
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить журнал событий")
	}
	return len(out.Item) > 0, nil
}

// Touch обновляет только существующую запись; отсутствие записи не ошибка.
func (l *PaymentEventLedger) Touch(ctx context.Context, eventID string) error {
	values, err := attributevalue.MarshalMap(map[string]any{
		":now": l.now().UTC().Format(time.RFC3339Nano),
		":one": 1,
	})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подготовить запрос к журналу")
	}

	_, err = l.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(l.tableName),
		Key:                       l.key(eventID),
		UpdateExpression:          aws.String("SET last_seen_at = :now ADD delivery_count :one"),
		ConditionExpression:       aws.String("attribute_exists(event_id)"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить журнал событий")
	}
	return nil
}

// Record: один UpdateItem: первая доставка создаёт запись, повторная только
// обновляет last_seen_at и счётчик. recorded_at и event_type не перезаписываются.
func (l *PaymentEventLedger) Record(ctx context.Context, event *entity.PaymentEvent) error {
	update := "SET event_type = if_not_exists(event_type, :type), " +
		"recorded_at = if_not_exists(recorded_at, :recorded), last_seen_at = :now"
	raw := map[string]any{
		":type":     event.EventType,
		":recorded": event.RecordedAt.UTC().Format(time.RFC3339Nano),
		":now":      event.LastSeenAt.UTC().Format(time.RFC3339Nano),
		":one":      1,
	}
	if event.JobID != nil {
		update += ", job_id = if_not_exists(job_id, :job)"
		raw[":job"] = event.JobID.String()
	}
	update += " ADD delivery_count :one"

	values, err := attributevalue.MarshalMap(raw)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подготовить запрос к журналу")
	}

	_, err = l.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(l.tableName),
		Key:                       l.key(event.EventID),
		UpdateExpression:          aws.String(update),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать событие в журнал")
	}
	return nil
}
