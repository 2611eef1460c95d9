package metrics

import (
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	consulkv "github.com/tarmac-project/consulkv"
	"github.com/tarmac-project/consulkv/hostmock"
	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
)

func TestNew(t *testing.T) {
	t.Parallel()

	customHostCall := func(string, string, string, []byte) ([]byte, error) {
		return nil, nil
	}

	tt := []struct {
		name        string
		namespace   string
		hostCall    HostCall
		wantNS      string
		wantHostPtr uintptr
	}{
		{
			name:      "custom namespace",
			namespace: "custom",
			wantNS:    "custom",
		},
		{
			name:        "default namespace with override",
			hostCall:    customHostCall,
			wantNS:      consulkv.DefaultNamespace,
			wantHostPtr: reflect.ValueOf(customHostCall).Pointer(),
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(Config{SDKConfig: consulkv.RuntimeConfig{Namespace: tc.namespace}, HostCall: tc.hostCall})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			if c.runtime.Namespace != tc.wantNS {
				t.Fatalf("namespace mismatch: want %q, got %q", tc.wantNS, c.runtime.Namespace)
			}

			if tc.wantHostPtr != 0 {
				if got := reflect.ValueOf(c.hostCall).Pointer(); got != tc.wantHostPtr {
					t.Fatalf("hostcall pointer mismatch: want %v, got %v", tc.wantHostPtr, got)
				}
			}
		})
	}
}

func TestMetricConstructors(t *testing.T) {
	t.Parallel()

	host, err := New(Config{
		HostCall: func(string, string, string, []byte) ([]byte, error) {
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	clients := map[string]Client{
		"host":       host,
		"prometheus": NewPrometheus(prometheus.NewRegistry()),
		"noop":       Noop(),
	}

	tt := []struct {
		name       string
		build      func(Client, string) error
		metricName string
		wantErr    error
	}{
		{
			name: "counter valid",
			build: func(c Client, name string) error {
				_, callErr := c.NewCounter(name)
				return callErr
			},
			metricName: "consulkv_kv_get_total",
		},
		{
			name: "gauge valid",
			build: func(c Client, name string) error {
				_, callErr := c.NewGauge(name)
				return callErr
			},
			metricName: "consulkv_kv_locks_held",
		},
		{
			name: "histogram valid",
			build: func(c Client, name string) error {
				_, callErr := c.NewHistogram(name)
				return callErr
			},
			metricName: "consulkv_kv_get_seconds",
		},
		{
			name: "counter empty name",
			build: func(c Client, name string) error {
				_, callErr := c.NewCounter(name)
				return callErr
			},
			metricName: "",
			wantErr:    ErrInvalidMetricName,
		},
		{
			name: "gauge whitespace name",
			build: func(c Client, name string) error {
				_, callErr := c.NewGauge(name)
				return callErr
			},
			metricName: " \n\t ",
			wantErr:    ErrInvalidMetricName,
		},
		{
			name: "histogram dashed name",
			build: func(c Client, name string) error {
				_, callErr := c.NewHistogram(name)
				return callErr
			},
			metricName: "kv-get-seconds",
			wantErr:    ErrInvalidMetricName,
		},
	}

	for clientName, c := range clients {
		for _, tc := range tt {
			t.Run(clientName+"/"+tc.name, func(t *testing.T) {
				gotErr := tc.build(c, tc.metricName)
				if !errors.Is(gotErr, tc.wantErr) {
					t.Fatalf("unexpected error: want %v got %v", tc.wantErr, gotErr)
				}
			})
		}
	}
}

func TestHostPayloads(t *testing.T) {
	t.Parallel()

	mock, err := hostmock.New(hostmock.Config{ExpectedNamespace: "fn", ExpectedCapability: capabilityName})
	if err != nil {
		t.Fatalf("failed to create hostmock: %v", err)
	}
	c, err := New(Config{SDKConfig: consulkv.RuntimeConfig{Namespace: "fn"}, HostCall: mock.HostCall})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	counter, _ := c.NewCounter("consulkv_kv_put_total")
	gauge, _ := c.NewGauge("consulkv_kv_locks_held")
	histogram, _ := c.NewHistogram("consulkv_kv_put_seconds")

	counter.Inc()
	gauge.Inc()
	gauge.Dec()
	histogram.Observe(42.5)

	calls := mock.Calls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 host calls, got %d", len(calls))
	}

	var cnt proto.MetricsCounter
	if err := cnt.UnmarshalVT(calls[0].Payload); err != nil || cnt.GetName() != "consulkv_kv_put_total" {
		t.Fatalf("counter payload mismatch: %v %q", err, cnt.GetName())
	}
	if calls[0].Function != fnCounter {
		t.Fatalf("counter function mismatch: %s", calls[0].Function)
	}

	for i, wantAction := range []string{actionInc, actionDec} {
		var g proto.MetricsGauge
		if err := g.UnmarshalVT(calls[i+1].Payload); err != nil {
			t.Fatalf("gauge payload: %v", err)
		}
		if g.GetName() != "consulkv_kv_locks_held" || g.GetAction() != wantAction || calls[i+1].Function != fnGauge {
			t.Fatalf("gauge call %d mismatch: %q %q", i, g.GetName(), g.GetAction())
		}
	}

	var h proto.MetricsHistogram
	if err := h.UnmarshalVT(calls[3].Payload); err != nil || h.GetValue() != 42.5 || calls[3].Function != fnHistogram {
		t.Fatalf("histogram payload mismatch: %v %v", err, h.GetValue())
	}
}

func TestHostFailureIgnored(t *testing.T) {
	t.Parallel()

	mock, _ := hostmock.New(hostmock.Config{Fail: true, Error: errors.New("host failure should not panic")})
	c, _ := New(Config{HostCall: mock.HostCall})

	counter, err := c.NewCounter("requests_total")
	if err != nil {
		t.Fatalf("NewCounter returned error: %v", err)
	}
	counter.Inc()

	if len(mock.Calls()) != 1 {
		t.Fatalf("expected one attempted host call")
	}
}

func TestPrometheus(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	counter, err := p.NewCounter("consulkv_kv_delete_total")
	if err != nil {
		t.Fatalf("NewCounter returned error: %v", err)
	}
	counter.Inc()
	counter.Inc()

	t.Run("re-register returns existing", func(t *testing.T) {
		again, err := p.NewCounter("consulkv_kv_delete_total")
		if err != nil {
			t.Fatalf("NewCounter returned error: %v", err)
		}
		again.Inc()
		if got := testutil.ToFloat64(counter.(prometheus.Counter)); got != 3 {
			t.Fatalf("expected shared counter value 3, got %v", got)
		}
	})

	t.Run("gauge", func(t *testing.T) {
		gauge, err := p.NewGauge("consulkv_kv_locks_held")
		if err != nil {
			t.Fatalf("NewGauge returned error: %v", err)
		}
		gauge.Inc()
		gauge.Inc()
		gauge.Dec()
		if got := testutil.ToFloat64(gauge.(prometheus.Gauge)); got != 1 {
			t.Fatalf("expected gauge 1, got %v", got)
		}
	})

	t.Run("histogram", func(t *testing.T) {
		histogram, err := p.NewHistogram("consulkv_kv_delete_seconds")
		if err != nil {
			t.Fatalf("NewHistogram returned error: %v", err)
		}
		histogram.Observe(0.01)
		if got := testutil.CollectAndCount(histogram.(prometheus.Histogram)); got != 1 {
			t.Fatalf("expected 1 collected metric, got %d", got)
		}
	})

	t.Run("type conflict", func(t *testing.T) {
		if _, err := p.NewGauge("consulkv_kv_delete_total"); err == nil {
			t.Fatalf("expected an error registering a gauge over a counter name")
		}
	})
}
