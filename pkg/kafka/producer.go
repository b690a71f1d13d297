package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafka_config "lodgeworks/pkg/kafka/config"
	"lodgeworks/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

// ProducerMiddleware intercepts a publish; call next to continue the chain.
type ProducerMiddleware func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error

// Producer writes one topic, with an optional dead letter topic for
// messages the broker rejected. Keys are resource or booking ids, so the
// hash balancer keeps per-resource ordering.
type Producer struct {
	writer     *kafka.Writer
	dlqWriter  *kafka.Writer
	topic      string
	log        *logger.Logger
	middleware []ProducerMiddleware

	mu     sync.RWMutex
	closed bool
}

func NewProducer(cfg *kafka_config.Config, log *logger.Logger, topic, dlqTopic string) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	p := &Producer{
		writer: newWriter(cfg, log, topic, writerOptions{
			requiredAcks: acksFor(cfg.ProducerRequireAcks),
			maxAttempts:  cfg.ProducerMaxAttempts,
			batchTimeout: cfg.ProducerBatchTimeout,
			async:        cfg.ProducerAsync,
		}),
		topic: topic,
		log:   log,
	}

	if dlqTopic != "" {
		// Dead letters are written with full acks regardless of the main
		// writer's tuning.
		p.dlqWriter = newWriter(cfg, log, dlqTopic, writerOptions{
			requiredAcks: kafka.RequireAll,
			maxAttempts:  3,
		})
	}
	return p, nil
}

type writerOptions struct {
	requiredAcks kafka.RequiredAcks
	maxAttempts  int
	batchTimeout time.Duration
	async        bool
}

func newWriter(cfg *kafka_config.Config, log *logger.Logger, topic string, opts writerOptions) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: opts.requiredAcks,
		Compression:  compressionFor(cfg.ProducerCompression),
		MaxAttempts:  opts.maxAttempts,
		BatchTimeout: opts.batchTimeout,
		Async:        opts.async,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("Kafka writer error", "topic", topic, "detail", fmt.Sprintf(msg, args...))
		}),
	}
}

func compressionFor(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Gzip
	case "lz4":
		return compress.Lz4
	case "zstd":
		return compress.Zstd
	default:
		return compress.Snappy
	}
}

func acksFor(n int) kafka.RequiredAcks {
	switch n {
	case 0:
		return kafka.RequireNone
	case 1:
		return kafka.RequireOne
	default:
		return kafka.RequireAll
	}
}

// Use appends middleware. Register everything before the first Publish; the
// chain is read without locking on the hot path.
func (p *Producer) Use(middleware ProducerMiddleware) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.middleware = append(p.middleware, middleware)
}

func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if p.isClosed() {
		return ErrProducerClosed
	}
	if msg.Key == "" {
		return ErrEmptyKey
	}
	if len(msg.Value) == 0 {
		return ErrEmptyValue
	}

	handler := p.write
	for i := len(p.middleware) - 1; i >= 0; i-- {
		middleware := p.middleware[i]
		next := handler
		handler = func(ctx context.Context, m Message) error {
			return middleware(ctx, m, next)
		}
	}
	return handler(ctx, msg)
}

// PublishBatch writes the valid subset of messages in one call. Entries
// without a key or value are dropped silently; an all-invalid batch errors.
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	if p.isClosed() {
		return ErrProducerClosed
	}

	batch := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Key == "" || len(msg.Value) == 0 {
			continue
		}
		batch = append(batch, toKafkaMessage(msg))
	}
	if len(batch) == 0 {
		return ErrInvalidMessage
	}
	return p.writer.WriteMessages(ctx, batch...)
}

func (p *Producer) write(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, toKafkaMessage(msg))
	if err == nil {
		return nil
	}
	if p.dlqWriter != nil {
		if dlqErr := p.sendToDLQ(ctx, msg, err); dlqErr != nil {
			return fmt.Errorf("dead letter write failed: %v (original error: %v)", dlqErr, err)
		}
	}
	return err
}

func (p *Producer) sendToDLQ(ctx context.Context, msg Message, cause error) error {
	dead := toKafkaMessage(msg)
	dead.Time = time.Now()
	dead.Headers = append(dead.Headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(p.topic)},
		kafka.Header{Key: "dlq-error", Value: []byte(cause.Error())},
		kafka.Header{Key: "dlq-timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
	)
	return p.dlqWriter.WriteMessages(ctx, dead)
}

func (p *Producer) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.writer.Close()
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); err == nil {
			err = dlqErr
		}
	}
	return err
}

func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}

func toKafkaMessage(msg Message) kafka.Message {
	out := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  msg.Timestamp,
	}
	for k, v := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}
