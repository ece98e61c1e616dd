package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
	"github.com/turtacn/KeyIP-PatentDoc/pkg/errors"
)

type mockKafkaConn struct {
	createFunc func(topics ...kafka.TopicConfig) error
	readFunc   func(topics ...string) ([]kafka.Partition, error)
	closeFunc  func() error
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if m.createFunc != nil {
		return m.createFunc(topics...)
	}
	return nil
}

func (m *mockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readFunc != nil {
		return m.readFunc(topics...)
	}
	return nil, nil
}

func (m *mockKafkaConn) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestTopicManager(mock ConnInterface) *TopicManager {
	return &TopicManager{conn: mock, logger: testutil.NewMockLogger()}
}

func TestDefaultTopics(t *testing.T) {
	defaults := DefaultTopics()
	require.Len(t, defaults, 3)
	names := make([]string, len(defaults))
	for i, d := range defaults {
		names[i] = d.Name
	}
	assert.ElementsMatch(t, []string{TopicRawDocuments, TopicDocumentMatched, TopicDeadLetterRaw}, names)
	assert.Equal(t, 8<<20, defaults[0].MaxMessageBytes)
}

func TestCreateTopic_ConfigEntries(t *testing.T) {
	var got kafka.TopicConfig
	mock := &mockKafkaConn{
		createFunc: func(topics ...kafka.TopicConfig) error {
			require.Len(t, topics, 1)
			got = topics[0]
			return nil
		},
	}
	m := newTestTopicManager(mock)
	err := m.CreateTopic(context.Background(), TopicConfig{
		Name: "test", NumPartitions: 2, ReplicationFactor: 1, RetentionMs: 1000, CleanupPolicy: "delete",
	})
	require.NoError(t, err)
	assert.Equal(t, "test", got.Topic)
	assert.Equal(t, 2, got.NumPartitions)
	assert.Contains(t, got.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: "1000"})
	assert.Contains(t, got.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: "delete"})
}

func TestCreateTopic_Validation(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{})
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{NumPartitions: 1, ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", ReplicationFactor: 1}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1}))
}

func TestCreateTopic_AlreadyExists(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return kafka.TopicAlreadyExists },
	})
	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))
}

func TestCreateTopic_Failure(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{
		createFunc: func(...kafka.TopicConfig) error { return stderrors.New("not controller") },
		readFunc: func(...string) ([]kafka.Partition, error) {
			return nil, kafka.UnknownTopicOrPartition
		},
	})
	err := m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageQueueError))
}

func TestListTopics_Deduplicates(t *testing.T) {
	m := newTestTopicManager(&mockKafkaConn{
		readFunc: func(...string) ([]kafka.Partition, error) {
			return []kafka.Partition{{Topic: "a", ID: 0}, {Topic: "a", ID: 1}, {Topic: "b", ID: 0}}, nil
		},
	})
	topics, err := m.ListTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, topics)
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope(EventDocumentMatched, "patentdoc", DocumentMatchedPayload{DocumentID: "US10524282B2"})
	require.NoError(t, err)
	env.TraceID = "trace-1"

	msg, err := env.ToMessage(TopicDocumentMatched, []byte("US10524282B2"))
	require.NoError(t, err)
	assert.Equal(t, EventDocumentMatched, msg.Headers[HeaderEventType])
	assert.Equal(t, "trace-1", msg.Headers[HeaderTraceID])
	assert.Equal(t, "US10524282B2", string(msg.Key))

	decoded, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var payload DocumentMatchedPayload
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, "US10524282B2", payload.DocumentID)
}

func TestMessageToEventEnvelope_Invalid(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = MessageToEventEnvelope(&Message{Value: []byte("{")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

//Personal.AI order the ending
