package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	consulkv "github.com/tarmac-project/consulkv"
	"github.com/tarmac-project/consulkv/httpclient"
)

var (
	// ErrUnexpectedStatus is matched by every *StatusError.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrDecodeResponse indicates a response body or header that could not be decoded.
	ErrDecodeResponse = errors.New("failed to decode response")

	// ErrNilTransport is returned by Do when the Requester has no transport.
	ErrNilTransport = errors.New("transport is nil")
)

// Doer executes a single HTTP exchange. httpclient.Client satisfies it.
type Doer interface {
	Do(req *httpclient.Request) (*httpclient.Response, error)
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Body is the response body, which Consul uses for the error text.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected response code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected response code: %d (%s)", e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Config configures a Requester.
type Config struct {
	// SDKConfig provides the address, scheme, datacenter and token defaults.
	// Empty Address and Scheme fall back to the consulkv defaults.
	SDKConfig consulkv.RuntimeConfig

	// HTTPClient executes requests. When nil, the host-backed
	// httpclient.HTTPClient is used.
	HTTPClient Doer
}

// Requester sends requests to the Consul HTTP API.
type Requester struct {
	runtime consulkv.RuntimeConfig
	doer    Doer
}

// New creates a Requester from config.
func New(config Config) (*Requester, error) {
	runtime := config.SDKConfig
	if runtime.Address == "" {
		runtime.Address = consulkv.DefaultAddress
	}
	if runtime.Scheme == "" {
		runtime.Scheme = consulkv.DefaultScheme
	}
	if runtime.Namespace == "" {
		runtime.Namespace = consulkv.DefaultNamespace
	}

	doer := config.HTTPClient
	if doer == nil {
		hc, err := httpclient.New(httpclient.Config{SDKConfig: runtime})
		if err != nil {
			return nil, err
		}
		doer = hc
	}

	return &Requester{runtime: runtime, doer: doer}, nil
}

// Get issues a GET for path. A 404 is reported as a nil body with no error
// so callers can treat it as "nothing stored".
func (r *Requester) Get(path string, params url.Values, opts *QueryOptions) ([]byte, *QueryMeta, error) {
	params = r.defaults(params)
	header := r.header()
	opts.apply(params, header)

	start := time.Now()
	resp, err := r.Do(http.MethodGet, path, params, header, nil)
	meta := &QueryMeta{RequestTime: time.Since(start)}
	if err != nil {
		return nil, meta, err
	}
	defer closeBody(resp)

	if err := parseQueryMeta(resp.Header, meta); err != nil {
		return nil, meta, errors.Join(ErrDecodeResponse, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, meta, nil
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, meta, err
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, meta, err
	}

	return body, meta, nil
}

// Put issues a PUT for path with body and decodes the boolean result.
func (r *Requester) Put(path string, params url.Values, body []byte, opts *WriteOptions) (bool, *WriteMeta, error) {
	return r.write(http.MethodPut, path, params, body, opts)
}

// Delete issues a DELETE for path and decodes the boolean result.
func (r *Requester) Delete(path string, params url.Values, opts *WriteOptions) (bool, *WriteMeta, error) {
	return r.write(http.MethodDelete, path, params, nil, opts)
}

func (r *Requester) write(method, path string, params url.Values, body []byte, opts *WriteOptions) (bool, *WriteMeta, error) {
	params = r.defaults(params)
	header := r.header()
	opts.apply(params, header)
	if len(body) > 0 {
		header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.Do(method, path, params, header, body)
	meta := &WriteMeta{RequestTime: time.Since(start)}
	if err != nil {
		return false, meta, err
	}
	defer closeBody(resp)

	raw, err := readBody(resp)
	if err != nil {
		return false, meta, err
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return false, meta, err
	}

	var ok bool
	if err := json.Unmarshal(bytes.TrimSpace(raw), &ok); err != nil {
		return false, meta, errors.Join(ErrDecodeResponse, err)
	}
	return ok, meta, nil
}

// Do builds the request URL from the configured address and sends it
// through the transport. params are encoded in sorted key order.
func (r *Requester) Do(method, path string, params url.Values, header http.Header, body []byte) (*httpclient.Response, error) {
	if r.doer == nil {
		return nil, ErrNilTransport
	}

	// Build the URL; each path segment is escaped by url.URL
	u := r.runtime.BaseURL()
	u.Path = path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req := &httpclient.Request{
		Method: method,
		URL:    u,
		Header: header,
	}
	if len(body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	resp, err := r.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// defaults copies params and adds the configured datacenter.
func (r *Requester) defaults(params url.Values) url.Values {
	out := make(url.Values, len(params)+1)
	for k, v := range params {
		out[k] = append([]string(nil), v...)
	}
	if r.runtime.Datacenter != "" {
		out.Set("dc", r.runtime.Datacenter)
	}
	return out
}

func (r *Requester) header() http.Header {
	header := make(http.Header)
	if r.runtime.Token != "" {
		header.Set(headerToken, r.runtime.Token)
	}
	return header
}

func checkStatus(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &StatusError{Code: code, Body: string(bytes.TrimSpace(body))}
}

func readBody(resp *httpclient.Response) ([]byte, error) {
	if resp.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(httpclient.ErrReadBody, err)
	}
	return b, nil
}

func closeBody(resp *httpclient.Response) {
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}
