package repository

import (
	"context"
	"errors"

	"github.com/gurubamal/iimcat-sub002/internal/domain/models"
	domrepo "github.com/gurubamal/iimcat-sub002/internal/domain/repository"
	pkgkafka "github.com/gurubamal/iimcat-sub002/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// DecisionEvent is the wire shape on the decisions topic.
type DecisionEvent struct {
	RunID    string               `json:"run_id"`
	Decision models.BoostDecision `json:"decision"`
}

var _ domrepo.DecisionSink = (*KafkaDecisionPublisher)(nil)

// KafkaDecisionPublisher streams decisions to learning consumers, keyed by ticker.
type KafkaDecisionPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Append(ctx context.Context, runID string, decisions []models.BoostDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(decisions))
	for i, d := range decisions {
		msgs[i] = pkgkafka.Message{
			Key:     []byte(d.Ticker),
			Value:   DecisionEvent{RunID: runID, Decision: d},
			Headers: map[string]string{"run_id": runID},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.DecisionSink = MultiSink(nil)

// MultiSink appends to every sink and reports all failures.
type MultiSink []domrepo.DecisionSink

func (m MultiSink) Append(ctx context.Context, runID string, decisions []models.BoostDecision) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, runID, decisions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
