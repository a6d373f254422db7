package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"finance-tracker/internal/domain"
)

// ApprovalHandler procesa un evento de aprobacion.
type ApprovalHandler interface {
	MaterializeProfile(ctx context.Context, event domain.UserApprovedEvent) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer lee eventos de aprobacion y los entrega al handler.
type KafkaConsumer struct {
	reader   messageReader
	handler  ApprovalHandler
	logger   *zap.Logger
	attempts int
	backoff  time.Duration
}

func NewKafkaConsumer(brokers []string, topic, groupID string, handler ApprovalHandler, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &KafkaConsumer{
		reader:   reader,
		handler:  handler,
		logger:   logger,
		attempts: 3,
		backoff:  time.Second,
	}
}

// Listen consume hasta que ctx se cancela. Los mensajes malformados se
// descartan; si el handler falla se reintenta con espera y, agotados los
// intentos, el evento se registra y se descarta.
func (kc *KafkaConsumer) Listen(ctx context.Context) error {
	for {
		msg, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			kc.logger.Warn("kafka fetch failed", zap.Error(err))
			if !sleep(ctx, kc.backoff) {
				return nil
			}
			continue
		}

		var event domain.UserApprovedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			kc.logger.Warn("discarding malformed approval event", zap.Error(err), zap.Int64("offset", msg.Offset))
			kc.commit(ctx, msg)
			continue
		}

		if err := kc.handle(ctx, event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			kc.logger.Error("materialize profile failed", zap.String("user_id", event.UserID), zap.Error(err))
		}
		kc.commit(ctx, msg)
	}
}

func (kc *KafkaConsumer) handle(ctx context.Context, event domain.UserApprovedEvent) error {
	var err error
	for attempt := 1; attempt <= kc.attempts; attempt++ {
		if err = kc.handler.MaterializeProfile(ctx, event); err == nil {
			return nil
		}
		if attempt < kc.attempts && !sleep(ctx, kc.backoff*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (kc *KafkaConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := kc.reader.CommitMessages(ctx, msg); err != nil {
		kc.logger.Warn("kafka commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
	}
}

func (kc *KafkaConsumer) Close() error {
	return kc.reader.Close()
}
