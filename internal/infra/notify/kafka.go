package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka publishes notifications as JSON events keyed by session.
// Delivery is best effort; failures are logged and dropped.
type Kafka struct {
	writer  messageWriter
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafka(writer messageWriter, log zerolog.Logger) *Kafka {
	return &Kafka{
		writer:  writer,
		log:     log.With().Str("component", "notify.kafka").Logger(),
		timeout: 3 * time.Second,
		now:     time.Now,
	}
}

func (k *Kafka) Error(ctx context.Context, message string) {
	n := newNotification(ctx, message, k.now())
	payload, err := json.Marshal(n)
	if err != nil {
		k.log.Error().Err(err).Msg("marshal notification")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Session),
		Value: payload,
		Time:  n.At,
	}); err != nil {
		k.log.Error().Err(err).Str("session", n.Session).Msg("publish notification")
	}
}
