package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockSend(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := NewMock(WithClock(func() time.Time { return now }))

	receipt, err := client.Send(context.Background(), Message{
		Channel:  "#customer-success",
		DirectTo: "@jane.park",
		Text:     "Expansion opportunity detected",
		Fields:   []Field{{Label: "Score", Value: "92/100"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "#customer-success", receipt.Channel)
	assert.Equal(t, "@jane.park", receipt.DirectTo)
	assert.Equal(t, now, receipt.SentAt)
	assert.True(t, receipt.Synthesized)
}

func TestMockSendRequiresRecipient(t *testing.T) {
	_, err := NewMock().Send(context.Background(), Message{Text: "orphaned"})
	assert.Error(t, err)
}

func TestMockSendRateLimitHonorsCancellation(t *testing.T) {
	// A tiny limit forces the second send to wait; a cancelled context must
	// surface instead of blocking.
	client := NewMock(WithRateLimit(0.001))

	_, err := client.Send(context.Background(), Message{Channel: "#x"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Send(ctx, Message{Channel: "#x"})
	assert.Error(t, err)
}
