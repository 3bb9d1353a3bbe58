package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"delivery-dispatch/internal/ports/notify"
)

// envelope is the wire format for driver notifications. Keyed by driver so a
// single driver's events stay ordered within a partition.
type envelope struct {
	DriverID int64           `json:"driver_id"`
	Event    string          `json:"event"`
	SentAt   time.Time       `json:"sent_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Notifier publishes driver notifications to a Kafka topic. It implements
// notify.Emitter.
type Notifier struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

var _ notify.Emitter = (*Notifier)(nil)

// NewNotifier creates a Kafka-backed notifier. Returns (nil, nil) when the
// notification topic is not configured; callers fall back to notify.Nop.
func NewNotifier(brokers []string, topic string) (*Notifier, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Notifier{
		producer: producer,
		topic:    topic,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Emit publishes one event for a driver. Delivery failures are returned to the
// caller, which treats them as non-fatal.
func (n *Notifier) Emit(_ context.Context, driverID int64, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(envelope{
		DriverID: driverID,
		Event:    event,
		SentAt:   n.now(),
		Payload:  body,
	})
	if err != nil {
		return err
	}

	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(driverID, 10)),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.producer.Close()
}
