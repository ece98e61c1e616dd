package kafka

import (
	"context"
	"time"
)

// ProducerMessage is a message to publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is a consumed message.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.  A non-nil error triggers
// the consumer's retry and dead letter handling.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchItemError reports a failed message of a batch.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarizes PublishBatch.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// TopicConfig describes a topic to create.
type TopicConfig struct {
	Name              string            `json:"name"`
	NumPartitions     int               `json:"partitions,omitempty"`
	ReplicationFactor int               `json:"replication_factor,omitempty"`
	RetentionMs       int64             `json:"retention_ms,omitempty"`
	CleanupPolicy     string            `json:"cleanup_policy,omitempty"`
	MaxMessageBytes   int               `json:"max_message_bytes,omitempty"`
	Configs           map[string]string `json:"configs,omitempty"`
}

//Personal.AI order the ending
