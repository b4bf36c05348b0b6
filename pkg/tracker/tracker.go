// Package tracker abstracts the issue-tracker side effect of the at-risk
// workflow. The mock client synthesizes records locally; a real Jira-style
// integration would implement the same one-method interface.
package tracker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// IssueRequest describes the issue to create.
type IssueRequest struct {
	Project     string   `json:"project"`
	Type        string   `json:"type"`
	Priority    string   `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels"`
	Assignee    string   `json:"assignee"`
}

// Issue is the created record. Synthesized is true for mock-created issues
// so downstream consumers can always tell them apart from real ones.
type Issue struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Labels      []string  `json:"labels"`
	Assignee    string    `json:"assignee"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	Synthesized bool      `json:"synthesized"`
}

// Client creates issues in the tracker.
type Client interface {
	CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error)
}

type mockClient struct {
	baseURL string
	project string
	now     func() time.Time
	issueN  func() int
}

// MockOption configures the mock client.
type MockOption func(*mockClient)

// WithClock overrides the mock's clock, for deterministic tests.
func WithClock(now func() time.Time) MockOption {
	return func(c *mockClient) { c.now = now }
}

// WithIssueNumber overrides the mock's issue-number source.
func WithIssueNumber(n func() int) MockOption {
	return func(c *mockClient) { c.issueN = n }
}

// NewMock returns a Client that synthesizes issues without any network calls.
func NewMock(baseURL, project string, opts ...MockOption) Client {
	c := &mockClient{
		baseURL: baseURL,
		project: project,
		now:     time.Now,
		issueN:  func() int { return 1000 + rand.IntN(9000) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *mockClient) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	project := req.Project
	if project == "" {
		project = c.project
	}
	id := fmt.Sprintf("%s-%d", project, c.issueN())

	return &Issue{
		ID:          id,
		Project:     project,
		Type:        req.Type,
		Priority:    req.Priority,
		Status:      "Open",
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
		Assignee:    req.Assignee,
		URL:         fmt.Sprintf("%s/browse/%s", c.baseURL, id),
		CreatedAt:   c.now().UTC(),
		Synthesized: true,
	}, nil
}
