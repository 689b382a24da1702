package sightings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

const flushTimeout = 10 * time.Second

type KafkaConfig struct {
	BootstrapServers string
	Topic            string
	Acks             string
	LingerMS         int
}

// producer is the subset of *kafka.Producer the publisher uses.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaPublisher forwards sightings as JSON messages to a topic.
type KafkaPublisher struct {
	producer     producer
	topic        string
	log          logrus.FieldLogger
	deliveryChan chan kafka.Event

	sent   atomic.Int64
	acked  atomic.Int64
	failed atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewKafkaPublisher(cfg KafkaConfig, log logrus.FieldLogger) (*KafkaPublisher, error) {
	acks := cfg.Acks
	if acks == "" {
		acks = "all"
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"acks":              acks,
		"linger.ms":         cfg.LingerMS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return newKafkaPublisher(p, cfg.Topic, log), nil
}

func newKafkaPublisher(p producer, topic string, log logrus.FieldLogger) *KafkaPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	kp := &KafkaPublisher{
		producer:     p,
		topic:        topic,
		log:          log.WithFields(logrus.Fields{"component": "kafka-publisher", "topic": topic}),
		deliveryChan: make(chan kafka.Event, 256),
		ctx:          ctx,
		cancel:       cancel,
	}
	kp.wg.Add(1)
	go kp.handleDeliveryReports()
	return kp
}

func (kp *KafkaPublisher) handleDeliveryReports() {
	defer kp.wg.Done()

	for {
		select {
		case <-kp.ctx.Done():
			return
		case e := <-kp.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				kp.failed.Add(1)
				kp.log.WithError(m.TopicPartition.Error).Warn("sighting delivery failed")
				continue
			}
			kp.acked.Add(1)
		}
	}
}

// Publish queues one sighting for delivery.
func (kp *KafkaPublisher) Publish(s Sighting) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize sighting: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &kp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(s.ID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "category", Value: []byte(s.Category.String())},
		},
	}
	if err := kp.producer.Produce(msg, kp.deliveryChan); err != nil {
		kp.failed.Add(1)
		return fmt.Errorf("produce sighting %s: %w", s.ID, err)
	}
	kp.sent.Add(1)
	return nil
}

// Run publishes sightings from the channel until ctx is done or it closes.
func (kp *KafkaPublisher) Run(ctx context.Context, sightings <-chan Sighting) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-sightings:
			if !ok {
				return
			}
			if err := kp.Publish(s); err != nil {
				kp.log.WithError(err).Error("publish failed")
			}
		}
	}
}

func (kp *KafkaPublisher) GetMetrics() map[string]int64 {
	return map[string]int64{
		"messages_sent":   kp.sent.Load(),
		"messages_acked":  kp.acked.Load(),
		"messages_failed": kp.failed.Load(),
	}
}

// Close flushes outstanding messages and shuts the producer down.
func (kp *KafkaPublisher) Close() {
	kp.once.Do(func() {
		if remaining := kp.producer.Flush(int(flushTimeout.Milliseconds())); remaining > 0 {
			kp.log.WithField("remaining", remaining).Warn("messages left unflushed")
		}
		kp.cancel()
		kp.wg.Wait()
		kp.producer.Close()
	})
}
