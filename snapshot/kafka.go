package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// ChangeEvent is published on the change topic after every policy write.
type ChangeEvent struct {
	Kind    string    `json:"kind"`
	Subject string    `json:"subject"`
	Change  string    `json:"change"`
	At      time.Time `json:"at"`
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaFeed carries policy change notifications between instances sharing a
// policy store.
type KafkaFeed struct {
	reader kafkaReader
	writer kafkaWriter
}

func NewKafkaFeed(cfg KafkaConfig) (*KafkaFeed, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic required")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, fmt.Errorf("kafka group id required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        500 * time.Millisecond,
	})
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaFeed{reader: r, writer: w}, nil
}

// Publish sends one change event.
func (f *KafkaFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	if f == nil || f.writer == nil {
		return fmt.Errorf("kafka feed not initialized")
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Kind + ":" + ev.Subject), Value: value})
}

// HandlePolicyChanged forwards EventBus policy changes to the topic.
func (f *KafkaFeed) HandlePolicyChanged(ctx context.Context, event util.Event) error {
	ev, ok := event.Payload.(ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected policy change payload %T", event.Payload)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return f.Publish(ctx, ev)
}

// Listen calls notify for every change event read from the topic until ctx
// is done. Read errors back off and retry.
func (f *KafkaFeed) Listen(ctx context.Context, notify func()) {
	if f == nil || f.reader == nil {
		return
	}
	backoff := 500 * time.Millisecond
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("Kafka policy change read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 10*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 500 * time.Millisecond

		var ev ChangeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Warn("Ignoring malformed policy change event", zap.Error(err))
			continue
		}
		logger.Debug("Policy change received from Kafka",
			zap.String("kind", ev.Kind),
			zap.String("subject", ev.Subject))
		notify()
	}
}

func (f *KafkaFeed) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if f.reader != nil {
		errs = append(errs, f.reader.Close())
	}
	if f.writer != nil {
		errs = append(errs, f.writer.Close())
	}
	return errors.Join(errs...)
}
