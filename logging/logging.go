package logging

import (
	"fmt"
	"strings"

	consulkv "github.com/tarmac-project/consulkv"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const capabilityName = "logging"

// Client exposes leveled, structured logging. keyvals are alternating key
// and value pairs.
type Client interface {
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Trace(message string, keyvals ...any)
}

// Config controls how a host Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig consulkv.RuntimeConfig

	// HostCall overrides the waPC host function used for logging operations.
	HostCall func(string, string, string, []byte) ([]byte, error)
}

// client implements Client using the configured host call entrypoint.
type client struct {
	runtime  consulkv.RuntimeConfig
	hostCall func(string, string, string, []byte) ([]byte, error)
}

// New creates a Client that emits logs through the host logging capability.
func New(cfg Config) (Client, error) {
	runtimeCfg := cfg.SDKConfig
	if runtimeCfg.Namespace == "" {
		runtimeCfg.Namespace = consulkv.DefaultNamespace
	}

	hostCall := cfg.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &client{
		runtime:  runtimeCfg,
		hostCall: hostCall,
	}, nil
}

func (c *client) Info(message string, keyvals ...any)  { c.log("Info", message, keyvals) }
func (c *client) Warn(message string, keyvals ...any)  { c.log("Warn", message, keyvals) }
func (c *client) Error(message string, keyvals ...any) { c.log("Error", message, keyvals) }
func (c *client) Debug(message string, keyvals ...any) { c.log("Debug", message, keyvals) }
func (c *client) Trace(message string, keyvals ...any) { c.log("Trace", message, keyvals) }

// log is best effort; host failures are dropped.
func (c *client) log(fn string, message string, keyvals []any) {
	_, _ = c.hostCall(c.runtime.Namespace, capabilityName, fn, []byte(Format(message, keyvals...)))
}

// Format renders message followed by key=value pairs. A trailing key without
// a value is rendered with the value MISSING.
func Format(message string, keyvals ...any) string {
	if len(keyvals) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString(message)
	for i := 0; i < len(keyvals); i += 2 {
		var val any = "MISSING"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		s := fmt.Sprint(val)
		if strings.ContainsAny(s, " \t\n\"=") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(&b, " %v=%s", keyvals[i], s)
	}
	return b.String()
}
