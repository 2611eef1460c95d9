package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	consulkv "github.com/tarmac-project/consulkv"
	"github.com/tarmac-project/consulkv/httpclient"
	"github.com/tarmac-project/consulkv/logging"
	"github.com/tarmac-project/consulkv/metrics"
	"github.com/tarmac-project/consulkv/request"
)

const (
	pathPrefix = "/v1/kv/"

	opGet     = "get"
	opPut     = "put"
	opDelete  = "delete"
	opAcquire = "acquire"
	opRelease = "release"

	locksHeldMetric = "consulkv_kv_locks_held"
)

// Config configures a typed KV client.
type Config struct {
	// SDKConfig provides the Consul address, scheme and default datacenter and token.
	SDKConfig consulkv.RuntimeConfig

	// HTTPClient carries requests to Consul. When nil the Tarmac host
	// httpclient capability is used.
	HTTPClient httpclient.Client

	// Logger receives diagnostics. Defaults to logging.Noop.
	Logger logging.Client

	// Metrics receives per-operation counters and timings. Defaults to metrics.Noop.
	Metrics metrics.Client
}

// Client is a typed Consul KV client whose values are JSON documents of type T.
type Client[T any] struct {
	req       *request.Requester
	log       logging.Client
	ops       map[string]*opMetrics
	locksHeld metrics.Gauge
}

type opMetrics struct {
	total   metrics.Counter
	errors  metrics.Counter
	seconds metrics.Histogram
}

// Ensure Client satisfies the KV interface at compile time.
var _ KV[struct{}] = (*Client[struct{}])(nil)

// New creates a typed client from config.
func New[T any](config Config) (*Client[T], error) {
	req, err := request.New(request.Config{SDKConfig: config.SDKConfig, HTTPClient: config.HTTPClient})
	if err != nil {
		return nil, err
	}

	c := &Client[T]{
		req: req,
		log: config.Logger,
		ops: make(map[string]*opMetrics),
	}
	if c.log == nil {
		c.log = logging.Noop()
	}

	m := config.Metrics
	if m == nil {
		m = metrics.Noop()
	}
	for _, op := range []string{opGet, opPut, opDelete, opAcquire, opRelease} {
		om, err := newOpMetrics(m, op)
		if err != nil {
			return nil, err
		}
		c.ops[op] = om
	}
	c.locksHeld, err = m.NewGauge(locksHeldMetric)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func newOpMetrics(m metrics.Client, op string) (*opMetrics, error) {
	prefix := "consulkv_kv_" + op
	total, err := m.NewCounter(prefix + "_total")
	if err != nil {
		return nil, err
	}
	errs, err := m.NewCounter(prefix + "_errors_total")
	if err != nil {
		return nil, err
	}
	seconds, err := m.NewHistogram(prefix + "_seconds")
	if err != nil {
		return nil, err
	}
	return &opMetrics{total: total, errors: errs, seconds: seconds}, nil
}

// Get reads key and decodes its value. A missing key returns a nil Pair
// with the query metadata and no error. If Consul returns several records
// the first one is used.
func (c *Client[T]) Get(key string, opts *request.QueryOptions) (pair *Pair[T], meta *request.QueryMeta, err error) {
	defer c.observe(opGet, time.Now(), &err)

	key, err = normalizeKey(key)
	if err != nil {
		return nil, nil, err
	}

	body, meta, err := c.req.Get(pathPrefix+key, nil, opts)
	if err != nil {
		return nil, meta, err
	}
	if len(body) == 0 {
		return nil, meta, nil
	}

	var records []wireRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, meta, errors.Join(request.ErrDecodeResponse, err)
	}

	switch len(records) {
	case 0:
		return nil, meta, nil
	case 1:
	default:
		c.log.Warn("multiple records returned for key, using the first", "key", key, "records", len(records))
	}

	pair, err = decode[T](records[0])
	if err != nil {
		return nil, meta, err
	}
	return pair, meta, nil
}

// Put stores pair.Value as JSON under pair.Key. Non-zero Flags are stored
// alongside. The returned boolean is the store's answer.
func (c *Client[T]) Put(pair *Pair[T], opts *request.WriteOptions) (ok bool, meta *request.WriteMeta, err error) {
	defer c.observe(opPut, time.Now(), &err)

	if pair == nil {
		return false, nil, ErrInvalidKey
	}
	key, err := normalizeKey(pair.Key)
	if err != nil {
		return false, nil, err
	}
	if pair.Value == nil {
		return false, nil, ErrInvalidValue
	}

	body, err := encode(pair.Value)
	if err != nil {
		return false, nil, err
	}

	return c.req.Put(pathPrefix+key, flagParams(pair.Flags), body, opts)
}

// Delete removes key. Consul reports true even when the key did not exist.
func (c *Client[T]) Delete(key string, opts *request.WriteOptions) (ok bool, meta *request.WriteMeta, err error) {
	defer c.observe(opDelete, time.Now(), &err)

	key, err = normalizeKey(key)
	if err != nil {
		return false, nil, err
	}

	return c.req.Delete(pathPrefix+key, nil, opts)
}

// Acquire attempts to take the lock on pair.Key for pair.Session and, when
// pair.Value is set, writes it in the same request. A false result means
// another session holds the lock; it is not retried.
func (c *Client[T]) Acquire(pair *Pair[T], opts *request.WriteOptions) (ok bool, meta *request.WriteMeta, err error) {
	defer c.observe(opAcquire, time.Now(), &err)

	ok, meta, err = c.lock(opAcquire, pair, opts)
	if err != nil {
		return false, meta, err
	}
	if !ok {
		c.log.Debug("lock not acquired", "key", pair.Key, "session", pair.Session)
		return false, meta, nil
	}

	c.locksHeld.Inc()
	return true, meta, nil
}

// Release gives up the lock on pair.Key held by pair.Session. The lock
// index is kept by Consul; only the session owner can release.
func (c *Client[T]) Release(pair *Pair[T], opts *request.WriteOptions) (ok bool, meta *request.WriteMeta, err error) {
	defer c.observe(opRelease, time.Now(), &err)

	ok, meta, err = c.lock(opRelease, pair, opts)
	if err != nil {
		return false, meta, err
	}
	if ok {
		c.locksHeld.Dec()
	}
	return ok, meta, nil
}

// lock sends an acquire or release PUT. The session is checked before
// anything else so no request is built without one.
func (c *Client[T]) lock(op string, pair *Pair[T], opts *request.WriteOptions) (bool, *request.WriteMeta, error) {
	if pair == nil || pair.Session == "" {
		return false, nil, fmt.Errorf("%w to %s lock", ErrSessionRequired, op)
	}

	key, err := normalizeKey(pair.Key)
	if err != nil {
		return false, nil, err
	}

	var body []byte
	if pair.Value != nil {
		body, err = encode(pair.Value)
		if err != nil {
			return false, nil, err
		}
	}

	params := flagParams(pair.Flags)
	params.Set(op, pair.Session)

	return c.req.Put(pathPrefix+key, params, body, opts)
}

// observe records the call count, error count and duration of op.
func (c *Client[T]) observe(op string, start time.Time, err *error) {
	m := c.ops[op]
	m.total.Inc()
	if *err != nil {
		m.errors.Inc()
	}
	m.seconds.Observe(time.Since(start).Seconds())
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	return key, nil
}

// flagParams returns the flags query parameter, omitted when zero.
func flagParams(flags uint64) url.Values {
	params := make(url.Values)
	if flags != 0 {
		params.Set("flags", strconv.FormatUint(flags, 10))
	}
	return params
}

func encode[T any](value *T) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Join(ErrEncodeValue, err)
	}
	return b, nil
}
