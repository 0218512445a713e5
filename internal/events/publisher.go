// Package events publishes history changes to Kafka so downstream consumers can react
// to archived exercise time without polling the store.
package events

import (
	"alcyxob/exercise-tracker/internal/domain"
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// TypeHistoryArchived is the event type of a newly written history record.
const TypeHistoryArchived = "exercise.history.archived"

// Publisher delivers events about archived history.
type Publisher interface {
	PublishArchived(ctx context.Context, record domain.HistoryRecord) error
	Close() error
}

// ArchivedEvent is the message payload of TypeHistoryArchived.
type ArchivedEvent struct {
	Type            string    `json:"type"`
	RecordID        string    `json:"recordId"`
	ExerciseID      string    `json:"exerciseId"`
	MemberID        string    `json:"memberId"`
	DurationSeconds int64     `json:"durationSeconds"`
	Day             time.Time `json:"day"`
	ArchivedAt      time.Time `json:"archivedAt"`
}

// NewArchivedEvent builds the payload for record.
func NewArchivedEvent(record domain.HistoryRecord) ArchivedEvent {
	return ArchivedEvent{
		Type:            TypeHistoryArchived,
		RecordID:        record.ID.Hex(),
		ExerciseID:      record.ExerciseID.Hex(),
		MemberID:        record.MemberID.Hex(),
		DurationSeconds: int64(record.Duration / time.Second),
		Day:             record.Day,
		ArchivedAt:      record.CreatedAt,
	}
}

// message keys by member so one member's events stay ordered within a partition.
func message(record domain.HistoryRecord) (kafka.Message, error) {
	value, err := json.Marshal(NewArchivedEvent(record))
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(record.MemberID.Hex()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeHistoryArchived)},
		},
		Time: record.CreatedAt,
	}, nil
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// PublishArchived writes one event and waits for the acknowledgement.
func (p *KafkaPublisher) PublishArchived(ctx context.Context, record domain.HistoryRecord) error {
	msg, err := message(record)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishArchived(context.Context, domain.HistoryRecord) error { return nil }
func (NoopPublisher) Close() error                                                 { return nil }
