package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
)

const (
	handlerRetries   = 5
	handlerRetryBase = 200 * time.Millisecond
)

// KafkaConfig параметры подключения к Kafka
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string // у каждого процесса-потребителя своя группа
}

// KafkaPublisher публикует объявления в топик Kafka
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher создает писателя; ключ сообщения определяет партицию
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish синхронно записывает сообщение
func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: []byte(msg.Value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Key, err)
	}
	return nil
}

// Close закрывает писателя
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaSubscriber читает объявления в составе группы потребителей
type KafkaSubscriber struct {
	reader *kafka.Reader
	logger *slog.Logger
}

// NewKafkaSubscriber создает читателя группы cfg.GroupID
func NewKafkaSubscriber(cfg KafkaConfig, logger *slog.Logger) *KafkaSubscriber {
	logger = logger.With(slog.String("component", "bus"), slog.String("topic", cfg.Topic))
	return &KafkaSubscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			StartOffset: kafka.FirstOffset,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Warn(fmt.Sprintf(msg, args...))
			}),
		}),
		logger: logger,
	}
}

// Subscribe обрабатывает сообщения до отмены ctx. Смещение фиксируется
// после обработки; неудачная обработка повторяется с backoff, затем
// сообщение пропускается с записью в журнал.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, handler Handler) error {
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		msg := Message{Key: string(m.Key), Value: string(m.Value)}
		backoff := retry.WithMaxRetries(handlerRetries, retry.NewExponential(handlerRetryBase))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := handler(ctx, msg); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.ErrorContext(ctx, "dropping announcement after retries",
				slog.String("key", msg.Key),
				slog.String("value", msg.Value),
				slog.Int64("offset", m.Offset),
				slog.Any("error", err),
			)
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to commit offset: %w", err)
		}
	}
}

// Close закрывает читателя
func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}
