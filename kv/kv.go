package kv

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tarmac-project/consulkv/request"
)

var (
	// ErrInvalidKey is returned when a key is empty after trimming a leading "/".
	ErrInvalidKey = errors.New("key is invalid")

	// ErrInvalidValue is returned when Put is called without a value.
	ErrInvalidValue = errors.New("value is invalid")

	// ErrSessionRequired is returned by Acquire and Release when the pair has no session.
	ErrSessionRequired = errors.New("session required")

	// ErrDecodeValue wraps failures turning a stored value back into T.
	ErrDecodeValue = errors.New("failed to decode value")

	// ErrEncodeValue wraps failures serializing a value to JSON.
	ErrEncodeValue = errors.New("failed to encode value")
)

// KV is the typed key/value API. Client satisfies it, and kv/mock provides
// an in-memory implementation for application tests.
type KV[T any] interface {
	// Get reads key. A missing key returns a nil Pair and no error.
	Get(key string, opts *request.QueryOptions) (*Pair[T], *request.QueryMeta, error)

	// Put writes pair.Value under pair.Key.
	Put(pair *Pair[T], opts *request.WriteOptions) (bool, *request.WriteMeta, error)

	// Delete removes key. Deleting a missing key reports true.
	Delete(key string, opts *request.WriteOptions) (bool, *request.WriteMeta, error)

	// Acquire takes the lock on pair.Key for pair.Session.
	Acquire(pair *Pair[T], opts *request.WriteOptions) (bool, *request.WriteMeta, error)

	// Release gives up the lock on pair.Key held by pair.Session.
	Release(pair *Pair[T], opts *request.WriteOptions) (bool, *request.WriteMeta, error)
}

// Pair is a stored key with its decoded value and store metadata.
//
// Index fields are assigned by Consul and are zero on pairs the caller
// builds for writes. Value is shared by reference and never modified by
// this package.
type Pair[T any] struct {
	Key         string
	CreateIndex uint64
	ModifyIndex uint64
	LockIndex   uint64
	Flags       uint64
	Value       *T
	Session     string
}

// Locked reports whether a session holds the lock on the pair.
func (p *Pair[T]) Locked() bool { return p != nil && p.Session != "" }

// wireRecord is one element of the JSON array returned by GET /v1/kv.
type wireRecord struct {
	Key         string `json:"Key"`
	CreateIndex uint64 `json:"CreateIndex"`
	ModifyIndex uint64 `json:"ModifyIndex"`
	LockIndex   uint64 `json:"LockIndex"`
	Flags       uint64 `json:"Flags"`
	Value       string `json:"Value"`
	Session     string `json:"Session"`
}

// decode converts a wire record into a typed Pair. The value must be
// base64 of UTF-8 JSON; an empty value is not valid JSON and fails.
func decode[T any](rec wireRecord) (*Pair[T], error) {
	raw, err := base64.StdEncoding.DecodeString(rec.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrDecodeValue, rec.Key, err)
	}

	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: key %q: value is not valid UTF-8", ErrDecodeValue, rec.Key)
	}

	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrDecodeValue, rec.Key, err)
	}

	return &Pair[T]{
		Key:         rec.Key,
		CreateIndex: rec.CreateIndex,
		ModifyIndex: rec.ModifyIndex,
		LockIndex:   rec.LockIndex,
		Flags:       rec.Flags,
		Value:       value,
		Session:     rec.Session,
	}, nil
}
