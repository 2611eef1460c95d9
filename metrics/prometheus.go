package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrMetricTypeConflict is returned when name is already registered as a different metric type.
var ErrMetricTypeConflict = errors.New("metric registered with a different type")

// PromMetrics registers metric handles with a Prometheus registry.
type PromMetrics struct {
	reg prometheus.Registerer
}

var _ Client = (*PromMetrics)(nil)

// NewPrometheus creates a Client backed by reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *PromMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PromMetrics{reg: reg}
}

// NewCounter registers a counter, or returns the one already registered under name.
func (p *PromMetrics) NewCounter(name string) (Counter, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "Counter " + name + "."})
	existing, err := register(p.reg, c)
	if err != nil {
		return nil, err
	}
	out, ok := existing.(prometheus.Counter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetricTypeConflict, name)
	}
	return out, nil
}

// NewGauge registers a gauge, or returns the one already registered under name.
func (p *PromMetrics) NewGauge(name string) (Gauge, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: "Gauge " + name + "."})
	existing, err := register(p.reg, g)
	if err != nil {
		return nil, err
	}
	out, ok := existing.(prometheus.Gauge)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetricTypeConflict, name)
	}
	return out, nil
}

// NewHistogram registers a histogram with the default buckets, or returns
// the one already registered under name.
func (p *PromMetrics) NewHistogram(name string) (Histogram, error) {
	if !isMetricNameValid.MatchString(name) {
		return nil, ErrInvalidMetricName
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Histogram " + name + ".",
		Buckets: prometheus.DefBuckets,
	})
	existing, err := register(p.reg, h)
	if err != nil {
		return nil, err
	}
	out, ok := existing.(prometheus.Histogram)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMetricTypeConflict, name)
	}
	return out, nil
}

// register returns c, or the collector of the same shape already registered.
func register(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector, nil
	}
	return nil, err
}
