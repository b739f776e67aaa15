package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/domain"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/jitter"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
)

// MessageReader - часть kafka.Reader с ручным коммитом смещений.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Redeliverer interface {
	Redeliver(ctx context.Context, key string, payload []byte, attempt int, notBefore time.Time) error
}

// Consumer читает уведомления хранилища из входного топика и топика повторной доставки
// и прогоняет каждое событие через пайплайн обогащения.
type Consumer struct {
	reader      MessageReader
	uc          usecase.EnrichmentUC
	redeliverer Redeliverer
	maxAttempts int
	// redelivery задаёт паузу перед каждой следующей попыткой
	redelivery  jitter.Backoff
	now         func() time.Time
	wait        func(ctx context.Context, d time.Duration) bool
	logger      logger.Logger
}

// NewReader создаёт читателя группы для входного топика и топика повторной доставки.
func NewReader(cfg *cfg.KafkaCfg) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    []string{cfg.Topic, cfg.RedeliveryTopic},
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0, // синхронный коммит после каждого сообщения
	})
}

func NewConsumer(reader MessageReader, uc usecase.EnrichmentUC, redeliverer Redeliverer,
	maxAttempts int, logger logger.Logger) *Consumer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Consumer{
		reader:      reader,
		uc:          uc,
		redeliverer: redeliverer,
		maxAttempts: maxAttempts,
		redelivery:  jitter.Backoff{Base: 2 * time.Second, Max: 30 * time.Second, Jitter: jitter.DefaultJitter},
		now:         time.Now,
		wait:        sleep,
		logger:      logger,
	}
}

// Run блокируется до отмены ctx. Смещение коммитится после обработки сообщения,
// неудачные события к этому моменту уже переотправлены.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Infof("Kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Infof("Kafka consumer stopped")
				return nil
			}
			return e.Wrap(whereami.WhereAmI(), err)
		}

		// Пока повтор ждёт своего времени, смещение не коммитится
		if !c.waitNotBefore(ctx, msg) {
			c.logger.Infof("Kafka consumer stopped")
			return nil
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Errorf(err, "failed to commit offset %d of %s/%d", msg.Offset, msg.Topic, msg.Partition)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	events, err := domain.DecodeStorageEvents(msg.Value)
	if err != nil {
		c.logger.Warnf("dropping undecodable message %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		return
	}

	attempt := deliveryAttempt(msg)
	for _, event := range events {
		res := c.uc.Process(ctx, event)
		switch {
		case res.Status == http.StatusOK:
			c.logger.Infof("processed %s/%s as %s", event.Bucket, event.ObjectKey, res.ID)
		case res.Status < http.StatusInternalServerError:
			c.logger.Warnf("dropping invalid event %s/%s: %s", event.Bucket, event.ObjectKey, res.Message)
		default:
			c.retry(ctx, msg, event, attempt, res)
		}
	}
}

func (c *Consumer) retry(ctx context.Context, msg kafka.Message, event domain.StorageEvent, attempt int, res usecase.Result) {
	if attempt >= c.maxAttempts {
		c.logger.Errorf(errors.New(res.Message), "giving up on %s/%s after %d attempts", event.Bucket, event.ObjectKey, attempt)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Errorf(err, "failed to encode %s/%s for redelivery", event.Bucket, event.ObjectKey)
		return
	}

	// Ключ сохраняется, чтобы повтор попадал в ту же партицию
	key := string(msg.Key)
	if key == "" {
		key = event.Bucket + "/" + event.ObjectKey
	}

	notBefore := c.now().Add(c.redelivery.Next(attempt - 1))
	if err := c.redeliverer.Redeliver(ctx, key, payload, attempt+1, notBefore); err != nil {
		c.logger.Errorf(err, "failed to redeliver %s/%s", event.Bucket, event.ObjectKey)
		return
	}
	c.logger.Warnf("event %s/%s failed (%s), scheduled attempt %d not before %s",
		event.Bucket, event.ObjectKey, res.Message, attempt+1, notBefore.Format(time.RFC3339))
}

// waitNotBefore ждёт времени из NotBeforeHeader. Возвращает false, если ctx завершился раньше.
func (c *Consumer) waitNotBefore(ctx context.Context, msg kafka.Message) bool {
	notBefore, ok := notBeforeTime(msg)
	if !ok {
		return true
	}

	d := notBefore.Sub(c.now())
	if d <= 0 {
		return true
	}

	return c.wait(ctx, d)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// deliveryAttempt возвращает номер текущей попытки; у первой доставки заголовка нет.
func deliveryAttempt(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key != AttemptHeader {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
			return n
		}
	}

	return 1
}

func notBeforeTime(msg kafka.Message) (time.Time, bool) {
	for _, h := range msg.Headers {
		if h.Key != NotBeforeHeader {
			continue
		}
		if ms, err := strconv.ParseInt(string(h.Value), 10, 64); err == nil && ms > 0 {
			return time.UnixMilli(ms), true
		}
	}

	return time.Time{}, false
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
