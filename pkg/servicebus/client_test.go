package servicebus

import (
	"context"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azpoc/backendapi/internal/framework"
)

const testConnectionString = "Endpoint=sb://backendapi-test.servicebus.windows.net/;SharedAccessKeyName=RootManageSharedAccessKey;SharedAccessKey=c2VjcmV0"

func TestNewClient_RequiresConnectionString(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)
}

func TestNewClient_RejectsMalformedConnectionString(t *testing.T) {
	_, err := NewClient("not-a-connection-string")
	require.Error(t, err)
}

func TestSettle_RejectsForeignMessages(t *testing.T) {
	c, err := NewClient(testConnectionString)
	require.NoError(t, err)

	ctx := context.Background()
	msg := &framework.Message{ID: "m1", Queue: "work-items", Raw: "not a service bus message"}

	assert.ErrorIs(t, c.Ack(ctx, msg), ErrUnexpectedRaw)
	assert.ErrorIs(t, c.Release(ctx, msg), ErrUnexpectedRaw)
	assert.ErrorIs(t, c.Bury(ctx, msg, "poison"), ErrUnexpectedRaw)

	_, err = c.RenewLock(ctx, msg)
	assert.ErrorIs(t, err, ErrUnexpectedRaw)
}

func TestSettle_RequiresReceivingReceiver(t *testing.T) {
	c, err := NewClient(testConnectionString)
	require.NoError(t, err)

	msg := &framework.Message{ID: "m1", Queue: "never-consumed", Raw: &azservicebus.ReceivedMessage{MessageID: "m1"}}
	assert.ErrorIs(t, c.Ack(context.Background(), msg), ErrReceiverNotFound)

	_, err = c.RenewLock(context.Background(), msg)
	assert.ErrorIs(t, err, ErrReceiverNotFound)
}

func TestConsume_CancelledContext(t *testing.T) {
	c, err := NewClient(testConnectionString)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg, err := c.Consume(ctx, "work-items", time.Second, 0)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToMessage(t *testing.T) {
	lockedUntil := time.Now().Add(time.Minute)
	raw := &azservicebus.ReceivedMessage{
		MessageID:             "42",
		Body:                  []byte("payload"),
		DeliveryCount:         3,
		LockedUntil:           &lockedUntil,
		ApplicationProperties: map[string]any{"tenant": "contoso"},
	}

	msg := toMessage("work-items", raw)

	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, "work-items", msg.Queue)
	assert.Equal(t, []byte("payload"), msg.Data)
	assert.Equal(t, 3, msg.Attempts)
	assert.Equal(t, lockedUntil, msg.Extra["locked_until"])
	assert.Equal(t, lockedUntil, msg.LockedUntil)
	assert.Equal(t, "contoso", msg.Extra["tenant"])
	assert.Same(t, raw, msg.Raw)
}

func TestToMessage_WithoutLock(t *testing.T) {
	msg := toMessage("work-items", &azservicebus.ReceivedMessage{MessageID: "7"})
	assert.True(t, msg.LockedUntil.IsZero())
}
