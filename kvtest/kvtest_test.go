package kvtest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func do(t *testing.T, method, url, body string) (int, http.Header, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, resp.Header, strings.TrimSpace(string(b))
}

func TestPutGetDelete(t *testing.T) {
	srv := New(t)
	base := srv.URL() + "/v1/kv/"

	if code, _, body := do(t, http.MethodPut, base+"app/config?flags=5", `{"a":1}`); code != http.StatusOK || body != "true" {
		t.Fatalf("put failed: %d %s", code, body)
	}

	code, header, body := do(t, http.MethodGet, base+"app/config", "")
	if code != http.StatusOK {
		t.Fatalf("get failed: %d", code)
	}
	if header.Get("X-Consul-Index") != "1" {
		t.Fatalf("expected index 1, got %q", header.Get("X-Consul-Index"))
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		t.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Key != "app/config" || e.Flags != 5 || string(e.Value) != `{"a":1}` || e.CreateIndex != 1 || e.ModifyIndex != 1 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !strings.Contains(body, `"Value":"eyJhIjoxfQ=="`) {
		t.Fatalf("expected base64 value on the wire, got %s", body)
	}

	// Updating keeps CreateIndex and advances ModifyIndex
	do(t, http.MethodPut, base+"app/config", `{"a":2}`)
	e, _ = srv.Entry("app/config")
	if e.CreateIndex != 1 || e.ModifyIndex != 2 || e.Flags != 0 {
		t.Fatalf("unexpected entry after update: %+v", e)
	}

	for i := 0; i < 2; i++ {
		if code, _, body := do(t, http.MethodDelete, base+"app/config", ""); code != http.StatusOK || body != "true" {
			t.Fatalf("delete %d failed: %d %s", i, code, body)
		}
	}

	if code, _, _ := do(t, http.MethodGet, base+"app/config", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestLocks(t *testing.T) {
	srv := New(t)
	base := srv.URL() + "/v1/kv/lock/a"
	s1 := srv.NewSession()
	s2 := srv.NewSession()

	steps := []struct {
		name  string
		query string
		want  string
	}{
		{name: "s1 acquires", query: "?acquire=" + s1, want: "true"},
		{name: "s1 re-acquires", query: "?acquire=" + s1, want: "true"},
		{name: "s2 blocked", query: "?acquire=" + s2, want: "false"},
		{name: "s2 cannot release", query: "?release=" + s2, want: "false"},
		{name: "s1 releases", query: "?release=" + s1, want: "true"},
		{name: "s2 acquires", query: "?acquire=" + s2, want: "true"},
	}

	for _, step := range steps {
		if _, _, got := do(t, http.MethodPut, base+step.query, ""); got != step.want {
			t.Fatalf("%s: want %s, got %s", step.name, step.want, got)
		}
	}

	e, ok := srv.Entry("lock/a")
	if !ok {
		t.Fatalf("lock entry missing")
	}
	if e.Session != s2 || e.LockIndex != 2 {
		t.Fatalf("unexpected lock state: %+v", e)
	}

	srv.DestroySession(s2)
	e, _ = srv.Entry("lock/a")
	if e.Session != "" {
		t.Fatalf("expected lock released with session, got %q", e.Session)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := New(t)

	code, _, _ := do(t, http.MethodPut, srv.URL()+"/v1/kv/lock/a?acquire=nope", "")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown session, got %d", code)
	}
}

func TestInvalidFlags(t *testing.T) {
	srv := New(t)

	code, _, _ := do(t, http.MethodPut, srv.URL()+"/v1/kv/k?flags=x", "1")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid flags, got %d", code)
	}
}

func TestRuntimeConfig(t *testing.T) {
	srv := New(t)
	rt := srv.RuntimeConfig()

	if rt.Scheme != "http" || rt.Address == "" || !strings.HasSuffix(srv.URL(), rt.Address) {
		t.Fatalf("unexpected runtime config: %+v", rt)
	}

	if NewUnstarted().URL() != "" {
		t.Fatalf("expected empty URL for an unstarted server")
	}
}
