package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Kafka topics consumed by the notification service.
const (
	TopicOrderCreated = "order.created"
	TopicOrderStatus  = "order.status_changed"
)

// NotificationPublisher is the boundary to the notification collaborator.
// Publishing is fire-and-forget and best-effort: it runs after the core
// transaction commits and a failure to publish never rolls anything back.
type NotificationPublisher interface {
	Publish(topic string, event map[string]interface{})
	Close() error
}

// KafkaPublisher publishes notification events through an async Kafka
// producer. Send errors are logged in a background goroutine.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
}

// NewKafkaPublisher connects an async producer to the given brokers.
func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	go func() {
		for sendErr := range producer.Errors() {
			log.Printf("failed to publish notification event: %v", sendErr)
		}
	}()

	return &KafkaPublisher{producer: producer}, nil
}

// Publish enqueues the event, stamped with a unique event id and timestamp.
func (p *KafkaPublisher) Publish(topic string, event map[string]interface{}) {
	event["event_id"] = uuid.New().String()
	event["emitted_at"] = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to encode notification event for %s: %v", topic, err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
}

// Close shuts the producer down, flushing buffered messages.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops every event. Used when no brokers are configured and
// as the default in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, map[string]interface{}) {}
func (NoopPublisher) Close() error                           { return nil }

// RecordingPublisher captures published events for test assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// RecordedEvent is one captured publish call.
type RecordedEvent struct {
	Topic string
	Event map[string]interface{}
}

// NewRecordingPublisher creates an empty recording publisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(topic string, event map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, RecordedEvent{Topic: topic, Event: event})
}

func (p *RecordingPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []RecordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RecordedEvent, len(p.events))
	copy(out, p.events)
	return out
}
