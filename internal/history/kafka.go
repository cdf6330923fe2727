package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

// Change kinds published for each history mutation.
const (
	ChangeRecorded      = "recorded"
	ChangeStatusUpdated = "status_updated"
)

// Change is the message published for each history mutation.
type Change struct {
	Kind   string         `json:"kind"`
	Hash   string         `json:"hash"`
	Status types.TxStatus `json:"status"`
	Record *Record        `json:"record,omitempty"`
	At     time.Time      `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits history changes to a topic keyed by tx hash.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not provided")
	}

	if topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}

	return newKafkaPublisher(writer, logger), nil
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish writes one change.
func (p *KafkaPublisher) Publish(ctx context.Context, change Change) error {
	value, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(change.Hash),
		Value: value,
		Time:  change.At,
	}

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	p.logger.Debug("history-change-published",
		zap.String("kind", change.Kind),
		zap.String("tx-hash", change.Hash))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Publisher emits history changes.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
	Close() error
}

// PublishingStore persists through an inner Store and then publishes each
// change. Publish failures are logged; the inner store stays authoritative.
type PublishingStore struct {
	Store
	publisher Publisher
	logger    *zap.Logger
}

// NewPublishingStore decorates inner with publisher.
func NewPublishingStore(inner Store, publisher Publisher, logger *zap.Logger) *PublishingStore {
	return &PublishingStore{Store: inner, publisher: publisher, logger: logger}
}

// Record stores rec and publishes a recorded change.
func (s *PublishingStore) Record(ctx context.Context, rec *Record) error {
	err := s.Store.Record(ctx, rec)
	if err != nil {
		return err
	}

	cp := *rec
	s.publish(ctx, Change{
		Kind:   ChangeRecorded,
		Hash:   rec.Hash,
		Status: rec.Status,
		Record: &cp,
		At:     time.Now().UTC(),
	})
	return nil
}

// UpdateStatus updates and publishes a status change.
func (s *PublishingStore) UpdateStatus(ctx context.Context, hash string, status types.TxStatus) error {
	err := s.Store.UpdateStatus(ctx, hash, status)
	if err != nil {
		return err
	}

	s.publish(ctx, Change{
		Kind:   ChangeStatusUpdated,
		Hash:   hash,
		Status: status,
		At:     time.Now().UTC(),
	})
	return nil
}

// Close closes the publisher and the inner store.
func (s *PublishingStore) Close() error {
	pubErr := s.publisher.Close()
	storeErr := s.Store.Close()
	return errors.Join(pubErr, storeErr)
}

func (s *PublishingStore) publish(ctx context.Context, change Change) {
	err := s.publisher.Publish(ctx, change)
	if err != nil {
		PublishErrorsTotal.Inc()
		s.logger.Warn("history-publish-failed",
			zap.String("tx-hash", change.Hash),
			zap.Error(err))
	}
}
