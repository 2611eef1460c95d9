package httpclient

import (
	"bytes"
	"io"
	"testing"

	consulkv "github.com/tarmac-project/consulkv"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	proto "github.com/tarmac-project/protobuf-go/sdk/http"
	pb "google.golang.org/protobuf/proto"
)

// okBenchResponse returns a small, valid protobuf response for happy-path benches.
func okBenchResponse() []byte {
	resp := &proto.HTTPClientResponse{
		Status:  &sdkproto.Status{Status: "OK", Code: 200},
		Code:    200,
		Headers: map[string]*proto.Header{"X-Consul-Index": {Values: []string{"12"}}},
		Body:    []byte(`[{"Key":"bench","Value":"eyJ4IjoxfQ=="}]`),
	}
	b, _ := pb.Marshal(resp)
	return b
}

func BenchmarkHTTPClient(b *testing.B) {
	// hostmock records every payload, so use a bare host function here.
	resp := okBenchResponse()
	hostCall := func(ns, capability, fn string, _ []byte) ([]byte, error) {
		if ns != consulkv.DefaultNamespace || capability != "httpclient" || fn != "call" {
			b.Fatalf("unexpected route %s/%s/%s", ns, capability, fn)
		}
		return resp, nil
	}
	c, err := New(Config{HostCall: hostCall})
	if err != nil {
		b.Fatalf("client: %v", err)
	}

	small := []byte(`{"x":1}`)
	large := bytes.Repeat([]byte("a"), 64*1024)

	tt := []struct {
		name    string
		method  string
		url     string
		payload []byte
	}{
		{"GET", "GET", "http://127.0.0.1:8500/v1/kv/bench", nil},
		{"PUT/small", "PUT", "http://127.0.0.1:8500/v1/kv/bench?flags=5", small},
		{"PUT/large", "PUT", "http://127.0.0.1:8500/v1/kv/bench", large},
		{"DELETE", "DELETE", "http://127.0.0.1:8500/v1/kv/bench", nil},
	}

	for _, tc := range tt {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				var body io.Reader
				if tc.payload != nil {
					body = bytes.NewReader(tc.payload)
				}
				req, reqErr := NewRequest(tc.method, tc.url, body)
				if reqErr != nil {
					b.Fatalf("new request: %v", reqErr)
				}
				r, runErr := c.Do(req)
				if runErr != nil {
					b.Fatalf("%s failed: %v", tc.name, runErr)
				}
				if r.Body != nil {
					_, _ = io.Copy(io.Discard, r.Body)
					_ = r.Body.Close()
				}
			}
		})
	}
}
