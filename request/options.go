package request

import (
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	headerToken       = "X-Consul-Token"
	headerIndex       = "X-Consul-Index"
	headerLastContact = "X-Consul-LastContact"
	headerKnownLeader = "X-Consul-KnownLeader"
)

// QueryOptions tune a read request. A nil *QueryOptions uses the client defaults.
type QueryOptions struct {
	// Datacenter overrides the configured datacenter.
	Datacenter string

	// Token overrides the configured ACL token.
	Token string

	// AllowStale lets any server answer, not only the leader.
	AllowStale bool

	// RequireConsistent forces a leader round-trip before answering.
	RequireConsistent bool

	// WaitIndex turns the read into a blocking query that returns once the
	// index moves past this value.
	WaitIndex uint64

	// WaitTime bounds a blocking query.
	WaitTime time.Duration
}

// WriteOptions tune a write request. A nil *WriteOptions uses the client defaults.
type WriteOptions struct {
	// Datacenter overrides the configured datacenter.
	Datacenter string

	// Token overrides the configured ACL token.
	Token string
}

// QueryMeta carries the metadata Consul returns with a read.
type QueryMeta struct {
	// LastIndex is the X-Consul-Index value, usable as the next WaitIndex.
	LastIndex uint64

	// LastContact is the time since the answering server last heard from the leader.
	LastContact time.Duration

	// KnownLeader reports whether a leader was known when the read was served.
	KnownLeader bool

	// RequestTime is the wall time spent in the transport.
	RequestTime time.Duration
}

// WriteMeta carries the metadata of a write.
type WriteMeta struct {
	// RequestTime is the wall time spent in the transport.
	RequestTime time.Duration
}

func (o *QueryOptions) apply(params url.Values, header http.Header) {
	if o == nil {
		return
	}
	if o.Datacenter != "" {
		params.Set("dc", o.Datacenter)
	}
	if o.Token != "" {
		header.Set(headerToken, o.Token)
	}
	if o.AllowStale {
		params.Set("stale", "")
	}
	if o.RequireConsistent {
		params.Set("consistent", "")
	}
	if o.WaitIndex != 0 {
		params.Set("index", strconv.FormatUint(o.WaitIndex, 10))
	}
	if o.WaitTime != 0 {
		params.Set("wait", strconv.FormatInt(o.WaitTime.Milliseconds(), 10)+"ms")
	}
}

func (o *WriteOptions) apply(params url.Values, header http.Header) {
	if o == nil {
		return
	}
	if o.Datacenter != "" {
		params.Set("dc", o.Datacenter)
	}
	if o.Token != "" {
		header.Set(headerToken, o.Token)
	}
}

// parseQueryMeta reads the Consul metadata headers. Missing headers leave
// the zero value in place.
func parseQueryMeta(header http.Header, meta *QueryMeta) error {
	if v := header.Get(headerIndex); v != "" {
		index, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		meta.LastIndex = index
	}

	if v := header.Get(headerLastContact); v != "" {
		ms, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		meta.LastContact = time.Duration(ms) * time.Millisecond
	}

	meta.KnownLeader = header.Get(headerKnownLeader) == "true"
	return nil
}
