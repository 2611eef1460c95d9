package mock

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tarmac-project/consulkv/kv"
	"github.com/tarmac-project/consulkv/request"
)

// Operation names used for per-call configuration and call history.
const (
	OpGet     = "GET"
	OpPut     = "PUT"
	OpDelete  = "DELETE"
	OpAcquire = "ACQUIRE"
	OpRelease = "RELEASE"
)

// Config configures the mock client.
type Config[T any] struct {
	// Seed pre-populates the store. Each key gets its own index.
	Seed map[string]*T
}

// Response describes a configured outcome for one operation and key.
type Response[T any] struct {
	// Pair is returned by GET. Nil reports a missing key.
	Pair *kv.Pair[T]
	// OK is returned by PUT, DELETE, ACQUIRE and RELEASE.
	OK bool
	// Err is returned instead of a result when set.
	Err error
}

// Call records an operation performed against the mock.
type Call struct {
	Op      string
	Key     string
	Session string
	Flags   uint64
}

// Client implements kv.KV in memory.
type Client[T any] struct {
	mu        sync.Mutex
	index     uint64
	store     map[string]*kv.Pair[T]
	responses map[string]Response[T]
	calls     []Call
}

var _ kv.KV[struct{}] = (*Client[struct{}])(nil)

// New creates a mock client.
func New[T any](cfg Config[T]) *Client[T] {
	m := &Client[T]{
		store:     make(map[string]*kv.Pair[T]),
		responses: make(map[string]Response[T]),
	}
	for key, v := range cfg.Seed {
		m.write(key, v, 0)
	}
	return m
}

// ResponseBuilder configures the response for one operation and key.
type ResponseBuilder[T any] struct {
	m   *Client[T]
	key string
}

// ReturnPair sets the pair returned by GET.
func (b *ResponseBuilder[T]) ReturnPair(p *kv.Pair[T]) *Client[T] {
	return b.set(func(r *Response[T]) { r.Pair = p })
}

// ReturnResult sets the boolean returned by a write.
func (b *ResponseBuilder[T]) ReturnResult(ok bool) *Client[T] {
	return b.set(func(r *Response[T]) { r.OK = ok })
}

// ReturnError sets the error returned by the operation.
func (b *ResponseBuilder[T]) ReturnError(err error) *Client[T] {
	return b.set(func(r *Response[T]) { r.Err = err })
}

func (b *ResponseBuilder[T]) set(fn func(*Response[T])) *Client[T] {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()

	r := b.m.responses[b.key]
	fn(&r)
	b.m.responses[b.key] = r
	return b.m
}

// OnGet configures a GET response for key.
func (m *Client[T]) OnGet(key string) *ResponseBuilder[T] { return m.on(OpGet, key) }

// OnPut configures a PUT response for key.
func (m *Client[T]) OnPut(key string) *ResponseBuilder[T] { return m.on(OpPut, key) }

// OnDelete configures a DELETE response for key.
func (m *Client[T]) OnDelete(key string) *ResponseBuilder[T] { return m.on(OpDelete, key) }

// OnAcquire configures an ACQUIRE response for key.
func (m *Client[T]) OnAcquire(key string) *ResponseBuilder[T] { return m.on(OpAcquire, key) }

// OnRelease configures a RELEASE response for key.
func (m *Client[T]) OnRelease(key string) *ResponseBuilder[T] { return m.on(OpRelease, key) }

func (m *Client[T]) on(op, key string) *ResponseBuilder[T] {
	return &ResponseBuilder[T]{m: m, key: op + " " + strings.TrimPrefix(key, "/")}
}

// History returns a copy of the recorded calls.
func (m *Client[T]) History() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Get implements kv.KV.
func (m *Client[T]) Get(key string, _ *request.QueryOptions) (*kv.Pair[T], *request.QueryMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.begin(OpGet, key, "", 0)
	if err != nil {
		return nil, nil, err
	}
	meta := &request.QueryMeta{LastIndex: m.index, KnownLeader: true}

	if r, ok := m.responses[OpGet+" "+key]; ok {
		return r.Pair, meta, r.Err
	}

	p, ok := m.store[key]
	if !ok {
		return nil, meta, nil
	}
	out := *p
	return &out, meta, nil
}

// Put implements kv.KV.
func (m *Client[T]) Put(pair *kv.Pair[T], _ *request.WriteOptions) (bool, *request.WriteMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pair == nil {
		return false, nil, kv.ErrInvalidKey
	}
	key, err := m.begin(OpPut, pair.Key, "", pair.Flags)
	if err != nil {
		return false, nil, err
	}
	if pair.Value == nil {
		return false, nil, kv.ErrInvalidValue
	}

	if r, ok := m.responses[OpPut+" "+key]; ok {
		return r.OK, &request.WriteMeta{}, r.Err
	}

	m.write(key, pair.Value, pair.Flags)
	return true, &request.WriteMeta{}, nil
}

// Delete implements kv.KV. Deleting a missing key reports true.
func (m *Client[T]) Delete(key string, _ *request.WriteOptions) (bool, *request.WriteMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.begin(OpDelete, key, "", 0)
	if err != nil {
		return false, nil, err
	}

	if r, ok := m.responses[OpDelete+" "+key]; ok {
		return r.OK, &request.WriteMeta{}, r.Err
	}

	delete(m.store, key)
	m.index++
	return true, &request.WriteMeta{}, nil
}

// Acquire implements kv.KV.
func (m *Client[T]) Acquire(pair *kv.Pair[T], _ *request.WriteOptions) (bool, *request.WriteMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.beginLock(OpAcquire, pair)
	if err != nil {
		return false, nil, err
	}

	if r, ok := m.responses[OpAcquire+" "+key]; ok {
		return r.OK, &request.WriteMeta{}, r.Err
	}

	if p, ok := m.store[key]; ok && p.Session != "" && p.Session != pair.Session {
		return false, &request.WriteMeta{}, nil
	}

	p := m.write(key, pair.Value, pair.Flags)
	if p.Session != pair.Session {
		p.Session = pair.Session
		p.LockIndex++
	}
	return true, &request.WriteMeta{}, nil
}

// Release implements kv.KV.
func (m *Client[T]) Release(pair *kv.Pair[T], _ *request.WriteOptions) (bool, *request.WriteMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.beginLock(OpRelease, pair)
	if err != nil {
		return false, nil, err
	}

	if r, ok := m.responses[OpRelease+" "+key]; ok {
		return r.OK, &request.WriteMeta{}, r.Err
	}

	if p, ok := m.store[key]; !ok || p.Session != pair.Session {
		return false, &request.WriteMeta{}, nil
	}

	p := m.write(key, pair.Value, pair.Flags)
	p.Session = ""
	return true, &request.WriteMeta{}, nil
}

// begin records the call and validates key. Caller holds mu.
func (m *Client[T]) begin(op, key, session string, flags uint64) (string, error) {
	m.calls = append(m.calls, Call{Op: op, Key: key, Session: session, Flags: flags})

	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", kv.ErrInvalidKey
	}
	return key, nil
}

// beginLock applies the session check before the key check, as kv.Client
// does. Caller holds mu.
func (m *Client[T]) beginLock(op string, pair *kv.Pair[T]) (string, error) {
	if pair == nil || pair.Session == "" {
		m.calls = append(m.calls, Call{Op: op})
		if pair != nil {
			m.calls[len(m.calls)-1].Key = pair.Key
		}
		return "", fmt.Errorf("%w to %s lock", kv.ErrSessionRequired, strings.ToLower(op))
	}
	return m.begin(op, pair.Key, pair.Session, pair.Flags)
}

// write creates or updates key and advances the index. Caller holds mu.
func (m *Client[T]) write(key string, value *T, flags uint64) *kv.Pair[T] {
	m.index++
	p, ok := m.store[key]
	if !ok {
		p = &kv.Pair[T]{Key: key, CreateIndex: m.index}
		m.store[key] = p
	}
	p.ModifyIndex = m.index
	p.Flags = flags
	p.Value = value
	return p
}
