// Package api talks to the MediMate chat backend.
package api

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"go.uber.org/zap"

	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/session"
)

// Client sends enriched prompts to the backend chat endpoint
type Client struct {
	httpClient tls_client.HttpClient
	endpoint   string
	session    session.Provider
	logger     *zap.Logger
	timeout    time.Duration
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the TLS client, mainly for tests
func WithHTTPClient(hc tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSession attaches the session cookie of p to every request
func WithSession(p session.Provider) ClientOption {
	return func(c *Client) {
		c.session = p
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeout sets the transport timeout. Callers should still bound each
// request with a context deadline.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client for the given chat endpoint URL
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("chat endpoint cannot be empty")
	}

	client := &Client{
		endpoint: endpoint,
		logger:   zap.NewNop(),
		timeout:  models.DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// Chrome profile so the request passes the same edge checks as the web app
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Endpoint returns the chat endpoint URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Timeout returns the transport timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Close releases idle connections. Send fails afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
