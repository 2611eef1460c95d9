package mock

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/tarmac-project/consulkv/httpclient"
)

// MockClient implements httpclient.Client with configurable responses and
// call recording for tests. It never performs network I/O.
//
// revive:disable:exported // Name mirrors package for discoverability; stutter is acceptable here.
type MockClient struct {
	mu sync.Mutex

	// responses maps "METHOD URL" keys to predefined responses.
	responses map[string]*Response

	// DefaultResponse is returned when no method/URL-specific response exists.
	DefaultResponse *Response

	// Calls records each request observed by the mock client.
	Calls []Call
}

// revive:enable:exported

// Response describes a synthetic HTTP response used by the mock.
type Response struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int
	// Body is the raw payload returned to callers. Empty means a nil Body.
	Body []byte
	// Header holds headers to include in the response.
	Header http.Header
	// Error, when set, is returned instead of a successful response.
	Error error
}

// Call captures a single request issued through the mock.
type Call struct {
	// Method is the HTTP method used.
	Method string
	// URL is the requested URL string, query included.
	URL string
	// Body contains the request body, if provided.
	Body []byte
	// Header holds request headers passed by the caller.
	Header http.Header
}

// Config controls construction of a MockClient.
type Config struct {
	// DefaultResponse is used when no specific response has been configured.
	// Nil means 200 with a JSON true body, the shape of a Consul write result.
	DefaultResponse *Response
}

// New creates a new mock HTTP client.
func New(config Config) *MockClient {
	defaultResp := config.DefaultResponse
	if defaultResp == nil {
		defaultResp = &Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`true`),
		}
	}
	if defaultResp.Header == nil {
		defaultResp.Header = make(http.Header)
	}

	return &MockClient{
		responses:       make(map[string]*Response),
		DefaultResponse: defaultResp,
		Calls:           []Call{},
	}
}

// Compile-time check: ensure MockClient implements the httpclient.Client interface.
var _ httpclient.Client = (*MockClient)(nil)

// On starts configuration of a response for a given method and full URL.
func (m *MockClient) On(method, url string) *ResponseBuilder {
	return &ResponseBuilder{client: m, key: method + " " + url}
}

// CallCount returns the number of recorded requests.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Get records and returns the configured response for a GET request.
func (m *MockClient) Get(url string) (*httpclient.Response, error) {
	return m.record(http.MethodGet, url, nil, nil)
}

// Post records and returns the configured response for a POST request.
func (m *MockClient) Post(url, contentType string, body io.Reader) (*httpclient.Response, error) {
	return m.record(http.MethodPost, url, http.Header{"Content-Type": []string{contentType}}, body)
}

// Put records and returns the configured response for a PUT request.
func (m *MockClient) Put(url, contentType string, body io.Reader) (*httpclient.Response, error) {
	return m.record(http.MethodPut, url, http.Header{"Content-Type": []string{contentType}}, body)
}

// Delete records and returns the configured response for a DELETE request.
func (m *MockClient) Delete(url string) (*httpclient.Response, error) {
	return m.record(http.MethodDelete, url, nil, nil)
}

// Do records and returns the configured response for an arbitrary request.
func (m *MockClient) Do(req *httpclient.Request) (*httpclient.Response, error) {
	if req == nil {
		return nil, httpclient.ErrNilRequest
	}
	if req.URL == nil {
		return nil, httpclient.ErrInvalidURL
	}
	var body io.Reader
	if req.Body != nil {
		defer func() { _ = req.Body.Close() }()
		body = req.Body
	}
	return m.record(req.Method, req.URL.String(), req.Header, body)
}

func (m *MockClient) record(method, url string, header http.Header, body io.Reader) (*httpclient.Response, error) {
	var bodyBytes []byte
	if body != nil {
		b, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		bodyBytes = b
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, Call{
		Method: method,
		URL:    url,
		Body:   bodyBytes,
		Header: header.Clone(),
	})
	resp, ok := m.responses[method+" "+url]
	if !ok {
		resp = m.DefaultResponse
	}
	m.mu.Unlock()

	if resp.Error != nil {
		return nil, resp.Error
	}
	return toResponse(resp), nil
}

// toResponse converts a mock Response into an httpclient.Response with copied headers.
func toResponse(r *Response) *httpclient.Response {
	resp := &httpclient.Response{
		Status:     http.StatusText(r.StatusCode),
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	if len(r.Body) > 0 {
		resp.Body = io.NopCloser(bytes.NewReader(r.Body))
	}
	return resp
}

// ResponseBuilder helps configure a response for a specific method and URL.
type ResponseBuilder struct {
	client *MockClient
	key    string
}

// Return sets the response for the configured method and URL.
func (r *ResponseBuilder) Return(response *Response) *MockClient {
	if response.Header == nil {
		response.Header = make(http.Header)
	}

	r.client.mu.Lock()
	r.client.responses[r.key] = response
	r.client.mu.Unlock()
	return r.client
}

// ReturnBody is a shortcut for a 200 response with the given body.
func (r *ResponseBuilder) ReturnBody(body string) *MockClient {
	return r.Return(&Response{StatusCode: http.StatusOK, Body: []byte(body)})
}

// ReturnError configures an error response for the configured method and URL.
func (r *ResponseBuilder) ReturnError(err error) *MockClient {
	return r.Return(&Response{Error: err})
}
