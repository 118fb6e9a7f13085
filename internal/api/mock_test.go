package api

import (
	"io"
	"net/url"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/bogdanfinn/tls-client/bandwidth"

	"github.com/diogo/medimate/internal/session"
)

// MockResponseBody is a ReadCloser that serves fixed data
type MockResponseBody struct {
	data   []byte
	pos    int
	closed bool
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	m.closed = true
	return nil
}

// MockHttpClient is a tls_client.HttpClient that returns a canned response
// and records what was sent.
type MockHttpClient struct {
	Response *fhttp.Response
	Err      error

	// BlockUntilDone makes Do wait for the request context to end
	BlockUntilDone bool

	mu          sync.Mutex
	Calls       int
	LastRequest *fhttp.Request
	LastBody    []byte
	IdleClosed  bool
}

// GetCookies implements the tls_client.HttpClient interface
func (m *MockHttpClient) GetCookies(u *url.URL) []*fhttp.Cookie {
	return nil
}

// SetCookies implements the tls_client.HttpClient interface
func (m *MockHttpClient) SetCookies(u *url.URL, cookies []*fhttp.Cookie) {}

// SetCookieJar implements the tls_client.HttpClient interface
func (m *MockHttpClient) SetCookieJar(jar fhttp.CookieJar) {}

// GetCookieJar implements the tls_client.HttpClient interface
func (m *MockHttpClient) GetCookieJar() fhttp.CookieJar {
	return nil
}

// SetProxy implements the tls_client.HttpClient interface
func (m *MockHttpClient) SetProxy(proxyUrl string) error {
	return nil
}

// GetProxy implements the tls_client.HttpClient interface
func (m *MockHttpClient) GetProxy() string {
	return ""
}

// SetFollowRedirect implements the tls_client.HttpClient interface
func (m *MockHttpClient) SetFollowRedirect(followRedirect bool) {}

// GetFollowRedirect implements the tls_client.HttpClient interface
func (m *MockHttpClient) GetFollowRedirect() bool {
	return false
}

// CloseIdleConnections implements the tls_client.HttpClient interface
func (m *MockHttpClient) CloseIdleConnections() {
	m.mu.Lock()
	m.IdleClosed = true
	m.mu.Unlock()
}

// Do implements the tls_client.HttpClient interface
func (m *MockHttpClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.mu.Lock()
	m.Calls++
	m.LastRequest = req
	if req.Body != nil {
		m.LastBody, _ = io.ReadAll(req.Body)
	}
	m.mu.Unlock()

	if m.BlockUntilDone {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	return m.Response, m.Err
}

// Get implements the tls_client.HttpClient interface
func (m *MockHttpClient) Get(url string) (*fhttp.Response, error) {
	return m.Response, m.Err
}

// Head implements the tls_client.HttpClient interface
func (m *MockHttpClient) Head(url string) (*fhttp.Response, error) {
	return m.Response, m.Err
}

// Post implements the tls_client.HttpClient interface
func (m *MockHttpClient) Post(url, contentType string, body io.Reader) (*fhttp.Response, error) {
	return m.Response, m.Err
}

// GetBandwidthTracker implements the tls_client.HttpClient interface
func (m *MockHttpClient) GetBandwidthTracker() bandwidth.BandwidthTracker {
	return nil
}

// NewMockHttpClient creates a MockHttpClient answering with body and statusCode
func NewMockHttpClient(body []byte, statusCode int) *MockHttpClient {
	return &MockHttpClient{
		Response: &fhttp.Response{
			StatusCode: statusCode,
			Body:       NewMockResponseBody(body),
			Header:     make(fhttp.Header),
		},
	}
}

// NewMockHttpClientWithError creates a MockHttpClient whose Do fails with err
func NewMockHttpClientWithError(err error) *MockHttpClient {
	return &MockHttpClient{Err: err}
}

// staticSession is a session.Provider with a fixed token
type staticSession struct {
	token string
}

func (s staticSession) Token() string { return s.token }

func (s staticSession) CurrentUser() (session.Identity, bool) {
	return session.Identity{DisplayName: "Test"}, s.token != ""
}

func (s staticSession) SignOut() error { return nil }
