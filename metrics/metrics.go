package metrics

import (
	"errors"
	"regexp"

	consulkv "github.com/tarmac-project/consulkv"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const (
	capabilityName = "metrics"
	fnCounter      = "counter"
	fnGauge        = "gauge"
	fnHistogram    = "histogram"
	actionInc      = "inc"
	actionDec      = "dec"
)

var (
	// ErrInvalidMetricName indicates a metric name that does not match the supported format.
	ErrInvalidMetricName = errors.New("metric name is invalid")

	// isMetricNameValid validates metric names using the same pattern as tarmac callback validation.
	isMetricNameValid = regexp.MustCompile(`^[a-zA-Z0-9_:][a-zA-Z0-9_:]*$`)
)

// HostCall defines the waPC host function signature used by metrics operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Counter is a monotonically increasing metric.
type Counter interface {
	Inc()
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	Inc()
	Dec()
}

// Histogram records observed values, typically durations in seconds.
type Histogram interface {
	Observe(value float64)
}

// Client creates named metric handles.
type Client interface {
	// NewCounter creates a named counter metric handle.
	NewCounter(name string) (Counter, error)

	// NewGauge creates a named gauge metric handle.
	NewGauge(name string) (Gauge, error)

	// NewHistogram creates a named histogram metric handle.
	NewHistogram(name string) (Histogram, error)
}

// Config controls how a HostMetrics instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig consulkv.RuntimeConfig

	// HostCall overrides the waPC host function used for metrics operations.
	HostCall HostCall
}

// HostMetrics reports metrics through the Tarmac host metrics capability.
type HostMetrics struct {
	runtime  consulkv.RuntimeConfig
	hostCall HostCall
}

type hostCounter struct {
	name      string
	namespace string
	hostCall  HostCall
}

type hostGauge struct {
	name      string
	namespace string
	hostCall  HostCall
}

type hostHistogram struct {
	name      string
	namespace string
	hostCall  HostCall
}

// Ensure HostMetrics satisfies the Client interface at compile time.
var _ Client = (*HostMetrics)(nil)

// New creates a host metrics client with namespace defaults and optional host-call override.
func New(config Config) (*HostMetrics, error) {
	runtime := config.SDKConfig
	if runtime.Namespace == "" {
		runtime.Namespace = consulkv.DefaultNamespace
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &HostMetrics{runtime: runtime, hostCall: hostCall}, nil
}

// NewCounter creates a named counter metric handle.
func (c *HostMetrics) NewCounter(name string) (Counter, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}

	return &hostCounter{name: name, namespace: c.runtime.Namespace, hostCall: c.hostCall}, nil
}

// Inc increments the counter by one.
func (c *hostCounter) Inc() {
	payload, err := (&proto.MetricsCounter{Name: c.name}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = c.hostCall(c.namespace, capabilityName, fnCounter, payload)
}

// NewGauge creates a named gauge metric handle.
func (c *HostMetrics) NewGauge(name string) (Gauge, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}

	return &hostGauge{name: name, namespace: c.runtime.Namespace, hostCall: c.hostCall}, nil
}

func (g *hostGauge) Inc() { g.emit(actionInc) }
func (g *hostGauge) Dec() { g.emit(actionDec) }

// emit sends a gauge action update to the host runtime as a best-effort call.
func (g *hostGauge) emit(action string) {
	payload, err := (&proto.MetricsGauge{Name: g.name, Action: action}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = g.hostCall(g.namespace, capabilityName, fnGauge, payload)
}

// NewHistogram creates a named histogram metric handle.
func (c *HostMetrics) NewHistogram(name string) (Histogram, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}

	return &hostHistogram{name: name, namespace: c.runtime.Namespace, hostCall: c.hostCall}, nil
}

// Observe records a value for the histogram.
func (h *hostHistogram) Observe(value float64) {
	payload, err := (&proto.MetricsHistogram{Name: h.name, Value: value}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.namespace, capabilityName, fnHistogram, payload)
}

type noop struct{}

// Noop returns a Client whose handles discard every update. Names are still validated.
func Noop() Client { return noop{} }

func (noop) NewCounter(name string) (Counter, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	return noopHandle{}, nil
}

func (noop) NewGauge(name string) (Gauge, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	return noopHandle{}, nil
}

func (noop) NewHistogram(name string) (Histogram, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	return noopHandle{}, nil
}

type noopHandle struct{}

func (noopHandle) Inc()            {}
func (noopHandle) Dec()            {}
func (noopHandle) Observe(float64) {}
