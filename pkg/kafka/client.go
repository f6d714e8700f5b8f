package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Client wraps Kafka operations.
type Client struct {
	brokers []string
	writer  *kafkago.Writer
	log     *zap.Logger
}

// NewClient returns a Client for the given brokers. The shared writer routes
// each message by its own topic.
func NewClient(brokers []string, log *zap.Logger) *Client {
	return &Client{
		brokers: brokers,
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Balancer:     &kafkago.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		log: log.With(zap.String("component", "kafka")),
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	for attempt := 1; attempt <= 20; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Info("kafka not ready, retrying", zap.Int("attempt", attempt), zap.Int("max", 20))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		conn.Close()
		if err != nil {
			c.log.Info("topic creation returned (may already exist)", zap.Error(err))
		}
		c.log.Info("kafka topics ensured", zap.Strings("topics", topics))
		return nil
	}
	return fmt.Errorf("kafka: could not connect after 20 attempts")
}

// Publish sends a JSON-serialised message to a topic. Messages with the same
// key land on the same partition, so events for one ride stay ordered.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
}

// Subscribe starts a background goroutine that reads from a topic until ctx
// is cancelled.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	log := c.log.With(zap.String("topic", topic), zap.String("group", groupID))

	go func() {
		defer r.Close()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("read error", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if err := handler(msg.Value); err != nil {
				log.Warn("handler error", zap.Error(err))
			}
		}
	}()
}

// Close flushes and closes the shared writer.
func (c *Client) Close() error { return c.writer.Close() }
