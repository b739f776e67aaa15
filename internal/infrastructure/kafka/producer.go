package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

const (
	// AttemptHeader - номер попытки обработки события в сообщении повторной доставки
	AttemptHeader = "x-delivery-attempt"
	// NotBeforeHeader - unix-время в миллисекундах, раньше которого повтор не обрабатывается
	NotBeforeHeader = "x-not-before"
)

// MessageWriter - часть kafka.Writer, которой пользуется Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует события каталога и повторные доставки событий хранилища.
// Топик задаётся в каждом сообщении, поэтому писатель создаётся без Topic.
type Producer struct {
	writer MessageWriter
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return NewProducerWithWriter(writer, logger, cfg)
}

func NewProducerWithWriter(writer MessageWriter, logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}
}

// WriteRawMessage публикует событие outbox в топик событий каталога.
func (p *Producer) WriteRawMessage(ctx context.Context, req *usecase.WriteRawMessageReq) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.cfg.OutboxTopic,
		Key:   []byte(req.Key),
		Value: req.Payload,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Redeliver кладёт событие в топик повторной доставки с номером следующей попытки
// и временем, раньше которого его не нужно обрабатывать.
func (p *Producer) Redeliver(ctx context.Context, key string, payload []byte, attempt int, notBefore time.Time) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.cfg.RedeliveryTopic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: AttemptHeader, Value: []byte(strconv.Itoa(attempt))},
			{Key: NotBeforeHeader, Value: []byte(strconv.FormatInt(notBefore.UnixMilli(), 10))},
		},
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// EnsureTopics создаёт входной топик, топик повторной доставки и топик событий каталога.
func (p *Producer) EnsureTopics(timeout time.Duration) error {
	for _, topic := range []string{p.cfg.Topic, p.cfg.RedeliveryTopic, p.cfg.OutboxTopic} {
		if err := p.ensureTopic(topic, timeout); err != nil {
			return err
		}
	}

	return nil
}

func (p *Producer) ensureTopic(topic string, timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
