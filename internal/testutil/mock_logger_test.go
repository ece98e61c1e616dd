package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-PatentDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-PatentDoc/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)
	assert.Equal(t, "value", messages[0].Field("key"))

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildSharesStoreAndCarriesFields(t *testing.T) {
	logger := testutil.NewMockLogger()

	child := logger.With(logging.DocID("US7000000B1"))
	child.Warn("invalid date", logging.String(logging.KeyField, "date-publ"))

	ctx := logging.ContextWithFields(context.Background(), logging.String(logging.KeyRunID, "r1"))
	logger.WithContext(ctx).Info("done")

	warns := logger.MessagesAt("warn")
	require.Len(t, warns, 1)
	assert.Equal(t, "US7000000B1", warns[0].Field(logging.KeyDocID))
	assert.Equal(t, "date-publ", warns[0].Field(logging.KeyField))

	infos := logger.MessagesAt("info")
	require.Len(t, infos, 1)
	assert.Equal(t, "r1", infos[0].Field(logging.KeyRunID))
	assert.Nil(t, infos[0].Field(logging.KeyDocID))
}

//Personal.AI order the ending
