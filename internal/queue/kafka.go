package queue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

const flushTimeoutMs = 5000

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

var _ Publisher = (*Kafka)(nil)

// Kafka publishes events as JSON messages keyed by quote id.
type Kafka struct {
	producer *kafka.Producer
	topic    string
}

func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if cfg.Brokers == "" || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, err
	}

	return &Kafka{producer: producer, topic: cfg.Topic}, nil
}

// Publish waits for the delivery report of the message. When ctx is done
// first, Publish returns ctx.Err() but the message stays queued in the
// producer and may still be delivered; consumers must tolerate duplicates
// of an event reported as failed.
func (k *Kafka) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            event.Key(),
		Value:          value,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(event.Type)}},
	}, delivery)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return errors.New("unexpected kafka delivery event")
		}
		if msg.TopicPartition.Error != nil {
			return msg.TopicPartition.Error
		}
		logrus.Debugf("published %s for quote %d to %s", event.Type, event.QuoteID, k.topic)
		return nil
	}
}

func (k *Kafka) Close() error {
	if remaining := k.producer.Flush(flushTimeoutMs); remaining > 0 {
		logrus.Warnf("kafka producer closed with %d undelivered events", remaining)
	}
	k.producer.Close()
	return nil
}
