package consulkv

import (
	"errors"
	"testing"
)

type testCase struct {
	name    string
	cfg     Config
	wantErr error
	want    RuntimeConfig
}

func TestNewRuntimeConfig(t *testing.T) {
	testCases := []testCase{
		{
			name: "Defaults",
			cfg:  Config{},
			want: RuntimeConfig{Address: DefaultAddress, Scheme: DefaultScheme, Namespace: DefaultNamespace},
		},
		{
			name: "Custom Values",
			cfg:  Config{Address: "consul.service:8501", Scheme: "HTTPS", Datacenter: "dc2", Token: "secret", Namespace: "fn"},
			want: RuntimeConfig{Address: "consul.service:8501", Scheme: "https", Datacenter: "dc2", Token: "secret", Namespace: "fn"},
		},
		{
			name: "Scheme In Address",
			cfg:  Config{Address: "https://10.0.0.1:8501/", Scheme: "http"},
			want: RuntimeConfig{Address: "10.0.0.1:8501", Scheme: "https", Namespace: DefaultNamespace},
		},
		{
			name:    "Invalid Scheme",
			cfg:     Config{Scheme: "ftp"},
			wantErr: ErrInvalidScheme,
		},
		{
			name:    "Missing Port",
			cfg:     Config{Address: "consul.service"},
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewRuntimeConfig(tc.cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if err != nil {
				return
			}
			if got != tc.want {
				t.Errorf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestSDK_Behavior(t *testing.T) {
	s1, err := New(Config{Namespace: "one"})
	if err != nil {
		t.Fatalf("first New returned error: %v", err)
	}
	s2, err := New(Config{Namespace: "two", Address: "consul:8500"})
	if err != nil {
		t.Fatalf("second New returned error: %v", err)
	}

	t.Run("Config_Immutability", func(t *testing.T) {
		got := s1.Config()
		got.Namespace = "mutated"
		if s1.Config().Namespace != "one" {
			t.Fatalf("expected SDK namespace to remain 'one', got %q", s1.Config().Namespace)
		}
	})

	t.Run("InstancesIsolation", func(t *testing.T) {
		if s1.Config().Address != DefaultAddress || s2.Config().Address != "consul:8500" {
			t.Fatalf("expected addresses %q and %q, got %q and %q",
				DefaultAddress, "consul:8500", s1.Config().Address, s2.Config().Address)
		}
	})

	t.Run("BaseURL", func(t *testing.T) {
		if got := s2.Config().BaseURL().String(); got != "http://consul:8500" {
			t.Fatalf("expected base URL http://consul:8500, got %q", got)
		}
	})
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(Config{Scheme: "gopher"}); !errors.Is(err, ErrInvalidScheme) {
		t.Fatalf("expected ErrInvalidScheme, got %v", err)
	}
}
