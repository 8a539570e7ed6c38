package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Queue is implemented by the Redis and in-process queues.
type Queue interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
	RegisterJob(job Job)
	Start() error
	Stop(ctx context.Context) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int           // number of workers
	QueueSize  int           // buffer of the in-process queue
	RetryLimit int           // number of maximum retries
	RetryDelay time.Duration // time delay between retries
}

func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
}

// Message represents a message in the queue.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
