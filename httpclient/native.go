package httpclient

import (
	"bytes"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds a native request when NativeConfig.HTTPClient is nil.
const DefaultTimeout = 30 * time.Second

// NativeConfig configures a NativeClient for programs that run outside a
// Tarmac host.
type NativeConfig struct {
	// HTTPClient is used as is when set. Otherwise a client with
	// DefaultTimeout and a traced clone of http.DefaultTransport is built.
	HTTPClient *http.Client
	// InsecureSkipVerify disables TLS verification on the built client.
	InsecureSkipVerify bool
	// DisableTracing skips the otelhttp transport wrapper on the built client.
	DisableTracing bool
}

// NativeClient implements Client on top of net/http.
type NativeClient struct {
	hc *http.Client
}

var _ Client = (*NativeClient)(nil)

// NewNative creates a NativeClient.
func NewNative(config NativeConfig) *NativeClient {
	if config.HTTPClient != nil {
		return &NativeClient{hc: config.HTTPClient}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if config.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for dev agents
	}

	var rt http.RoundTripper = transport
	if !config.DisableTracing {
		rt = otelhttp.NewTransport(transport)
	}

	return &NativeClient{hc: &http.Client{Transport: rt, Timeout: DefaultTimeout}}
}

// Get issues a GET to the specified URL and returns the response.
func (c *NativeClient) Get(urlStr string) (*Response, error) {
	return c.send(http.MethodGet, urlStr, "", nil)
}

// Post issues a POST to the URL with the provided contentType and body.
func (c *NativeClient) Post(urlStr, contentType string, body io.Reader) (*Response, error) {
	return c.send(http.MethodPost, urlStr, contentType, body)
}

// Put issues a PUT to the URL with the provided contentType and body.
func (c *NativeClient) Put(urlStr, contentType string, body io.Reader) (*Response, error) {
	return c.send(http.MethodPut, urlStr, contentType, body)
}

// Delete issues a DELETE to the specified URL.
func (c *NativeClient) Delete(urlStr string) (*Response, error) {
	return c.send(http.MethodDelete, urlStr, "", nil)
}

func (c *NativeClient) send(method, urlStr, contentType string, body io.Reader) (*Response, error) {
	req, err := shortcut(method, urlStr, contentType, body)
	if err != nil {
		return &Response{}, err
	}
	return c.Do(req)
}

// Do sends req and buffers the response body so callers see the same
// Response shape as the host transport.
func (c *NativeClient) Do(req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return &Response{}, err
	}

	bodyBytes, err := readRequestBody(req)
	if err != nil {
		return &Response{}, err
	}

	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}
	httpReq, err := http.NewRequest(req.Method, req.URL.String(), body)
	if err != nil {
		return &Response{}, errors.Join(ErrMarshalRequest, err)
	}
	for key, values := range req.Header {
		httpReq.Header[key] = append([]string(nil), values...)
	}

	httpResp, err := c.hc.Do(httpReq)
	if err != nil {
		return &Response{}, errors.Join(ErrRequestFailed, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &Response{}, errors.Join(ErrReadBody, err)
	}

	out := &Response{
		Status:     http.StatusText(httpResp.StatusCode),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
	}
	if len(respBody) > 0 {
		out.Body = io.NopCloser(bytes.NewReader(respBody))
	}

	return out, nil
}
