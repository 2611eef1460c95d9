package consulkv

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	// DefaultNamespace is used when no explicit namespace is provided.
	DefaultNamespace = "tarmac"

	// DefaultAddress is the local Consul agent HTTP address.
	DefaultAddress = "127.0.0.1:8500"

	// DefaultScheme is used when Config.Scheme is empty.
	DefaultScheme = "http"
)

// Config provides connection settings shared by the capability clients.
type Config struct {
	// Address is the host:port of the Consul HTTP API. If empty,
	// DefaultAddress is used. A scheme prefix ("https://") is accepted and
	// overrides Scheme.
	Address string

	// Scheme is either "http" or "https". If empty, DefaultScheme is used.
	Scheme string

	// Datacenter is sent as the dc parameter when set. Per-call options win.
	Datacenter string

	// Token is sent as the X-Consul-Token header when set. Per-call options win.
	Token string

	// Namespace controls the function namespace to use for host callbacks.
	// If empty, DefaultNamespace is used.
	Namespace string

	// Handler is optionally registered as the WebAssembly entry point when
	// the client runs inside a Tarmac function.
	Handler func([]byte) ([]byte, error)
}

// RuntimeConfig carries the resolved configuration used during creation of
// SDK components.
type RuntimeConfig struct {
	// Address is the host:port of the Consul HTTP API.
	Address string

	// Scheme is "http" or "https".
	Scheme string

	// Datacenter is the default datacenter, possibly empty.
	Datacenter string

	// Token is the default ACL token, possibly empty.
	Token string

	// Namespace is the function namespace used to scope host interactions.
	Namespace string
}

// SDK represents an initialized runtime configuration.
type SDK struct {
	// runtime holds the current runtime configuration snapshot.
	runtime RuntimeConfig
}

// New resolves the configuration and, when a Handler is provided, registers
// it with waPC.
func New(config Config) (*SDK, error) {
	cfg, err := NewRuntimeConfig(config)
	if err != nil {
		return nil, err
	}

	if config.Handler != nil {
		wapc.RegisterFunction("handler", config.Handler)
	}

	return &SDK{runtime: cfg}, nil
}

// Config returns the current runtime configuration snapshot.
func (s *SDK) Config() RuntimeConfig { return s.runtime }

// NewRuntimeConfig applies defaults to config and validates the address and scheme.
func NewRuntimeConfig(config Config) (RuntimeConfig, error) {
	// Create runtime configuration with defaults
	cfg := RuntimeConfig{
		Address:    DefaultAddress,
		Scheme:     DefaultScheme,
		Datacenter: config.Datacenter,
		Token:      config.Token,
		Namespace:  DefaultNamespace,
	}

	// Override defaults with provided configuration
	if config.Namespace != "" {
		cfg.Namespace = config.Namespace
	}
	if config.Scheme != "" {
		cfg.Scheme = strings.ToLower(config.Scheme)
	}
	if addr := strings.TrimSpace(config.Address); addr != "" {
		if scheme, rest, ok := strings.Cut(addr, "://"); ok {
			cfg.Scheme = strings.ToLower(scheme)
			addr = rest
		}
		cfg.Address = strings.TrimSuffix(addr, "/")
	}

	if cfg.Scheme != "http" && cfg.Scheme != "https" {
		return RuntimeConfig{}, fmt.Errorf("%w: %q", ErrInvalidScheme, cfg.Scheme)
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return RuntimeConfig{}, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, cfg.Address, err)
	}

	return cfg, nil
}

// BaseURL returns the scheme and address as a URL without a path.
func (c RuntimeConfig) BaseURL() *url.URL {
	return &url.URL{Scheme: c.Scheme, Host: c.Address}
}
