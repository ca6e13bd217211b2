package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPubSub_Unreachable(t *testing.T) {
	_, err := NewPubSub("127.0.0.1:1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestProcessedNotification_JSON(t *testing.T) {
	data, err := json.Marshal(&ProcessedNotification{
		MessageID:  "m1",
		Queue:      "work-items",
		Action:     "ack",
		Attempts:   1,
		DurationMs: 10000,
		Timestamp:  1700000000,
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"message_id":"m1","queue":"work-items","action":"ack","attempts":1,"duration_ms":10000,"timestamp":1700000000}`, string(data))
}
