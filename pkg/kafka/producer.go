package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

var (
	errNoBrokers = errors.New("at least one kafka broker is required")
	errClosed    = errors.New("kafka producer closed")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes outbox events to Kafka. Topics are chosen per message.
type Producer struct {
	writer  messageWriter
	brokers []string
	prefix  string
	closed  atomic.Bool
}

func NewProducer(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errNoBrokers
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Transport: &kafka.Transport{
			Dial: (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		},
	}
	if logg != nil {
		writer.ErrorLogger = kafka.LoggerFunc(func(msg string, args ...any) {
			logg.Warn(ctx, "kafka writer: "+fmt.Sprintf(msg, args...))
		})
		logg.Info(logg.WithField(ctx, "brokers", brokers), "kafka producer initialized")
	}

	return newProducer(writer, brokers, cfg.TopicPrefix), nil
}

func newProducer(w messageWriter, brokers []string, prefix string) *Producer {
	return &Producer{writer: w, brokers: brokers, prefix: prefix}
}

// TopicName applies the configured prefix.
func (p *Producer) TopicName(topic string) string {
	return p.prefix + topic
}

// Publish writes one keyed message synchronously. Messages sharing a key land on
// the same partition, which keeps one aggregate's events in order.
func (p *Producer) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	if p.closed.Load() {
		return errClosed
	}
	headers := make([]kafka.Header, 0, len(attrs))
	for k, v := range attrs {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	msg := kafka.Message{
		Topic:   p.TopicName(topic),
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
