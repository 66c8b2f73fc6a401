package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Type string // Тип события

const (
	RequestCreated   Type = "request.created"
	RequestUpdated   Type = "request.updated"
	RequestCancelled Type = "request.cancelled"
	RequestExpired   Type = "request.expired"
	RequestStarted   Type = "request.started"
	RequestCompleted Type = "request.completed"
	RequestDeleted   Type = "request.deleted"
	BidCreated       Type = "bid.created"
	BidUpdated       Type = "bid.updated"
	BidWithdrawn     Type = "bid.withdrawn"
	BidDeleted       Type = "bid.deleted"
	BidAccepted      Type = "bid.accepted"
)

// Event - изменение заявки или предложения, отправляемое после фиксации транзакции.
type Event struct {
	Type      Type      `json:"type"`
	RequestID string    `json:"requestId"`
	BidID     string    `json:"bidId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Status    string    `json:"status,omitempty"`
	TsUnixMs  int64     `json:"tsUnixMs"`
	At        time.Time `json:"-"`
}

// Publisher отправляет события во внешнюю шину.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NewWriter создает writer для списка брокеров через запятую.
// Короткий BatchTimeout не дает одиночному событию ждать заполнения пачки.
func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
}

// MessageWriter - часть kafka.Writer, нужная издателю.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в Kafka с ключом по ID заявки,
// поэтому события одной заявки попадают в одну партицию.
type KafkaPublisher struct {
	Writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.TsUnixMs = e.At.UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.RequestID),
		Value: b,
		Time:  e.At,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// LogPublisher только пишет события в лог. Используется без Kafka.
type LogPublisher struct {
	Log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{Log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.Log.Debug("event",
		zap.String("type", string(e.Type)),
		zap.String("request_id", e.RequestID),
		zap.String("bid_id", e.BidID),
		zap.String("status", e.Status),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
