// Package notify abstracts the chat-notification side effect of the
// workflows. The mock client records the notification locally instead of
// posting it anywhere.
package notify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Field is one label/value pair rendered in the notification body.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Message is a notification to a channel and optionally a direct recipient.
type Message struct {
	Channel  string  `json:"channel"`
	DirectTo string  `json:"direct_to,omitempty"`
	Text     string  `json:"text"`
	Fields   []Field `json:"fields,omitempty"`
	LinkText string  `json:"link_text,omitempty"`
}

// Receipt confirms delivery. Synthesized is true when no message actually
// left the process.
type Receipt struct {
	Channel     string    `json:"channel"`
	DirectTo    string    `json:"direct_to,omitempty"`
	SentAt      time.Time `json:"sent_at"`
	Synthesized bool      `json:"synthesized"`
}

// Client sends notifications.
type Client interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

type mockClient struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// MockOption configures the mock client.
type MockOption func(*mockClient)

// WithRateLimit sets a per-second send limit. A burst equal to the integer
// portion of rps is allowed.
func WithRateLimit(rps float64) MockOption {
	return func(c *mockClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithClock overrides the mock's clock, for deterministic tests.
func WithClock(now func() time.Time) MockOption {
	return func(c *mockClient) { c.now = now }
}

// NewMock returns a Client that synthesizes receipts without network calls.
func NewMock(opts ...MockOption) Client {
	c := &mockClient{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *mockClient) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notify: rate limit")
		}
	}
	if msg.Channel == "" && msg.DirectTo == "" {
		return nil, eris.New("notify: message needs a channel or direct recipient")
	}

	return &Receipt{
		Channel:     msg.Channel,
		DirectTo:    msg.DirectTo,
		SentAt:      c.now().UTC(),
		Synthesized: true,
	}, nil
}
