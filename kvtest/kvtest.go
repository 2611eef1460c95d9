package kvtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	consulkv "github.com/tarmac-project/consulkv"
)

// Entry is a stored key as Consul reports it. Value is base64 encoded when
// serialized.
type Entry struct {
	Key         string `json:"Key"`
	CreateIndex uint64 `json:"CreateIndex"`
	ModifyIndex uint64 `json:"ModifyIndex"`
	LockIndex   uint64 `json:"LockIndex"`
	Flags       uint64 `json:"Flags"`
	Value       []byte `json:"Value"`
	Session     string `json:"Session,omitempty"`
}

// Server is an in-memory fake of the Consul KV endpoints.
type Server struct {
	mu       sync.Mutex
	index    uint64
	entries  map[string]*Entry
	sessions map[string]struct{}

	router *chi.Mux
	srv    *httptest.Server
}

// New starts a fake server and closes it when tb finishes.
func New(tb testing.TB) *Server {
	tb.Helper()

	s := NewUnstarted()
	s.srv = httptest.NewServer(s.router)
	tb.Cleanup(s.srv.Close)
	return s
}

// NewUnstarted returns a server that is not listening. Use Handler to
// mount it.
func NewUnstarted() *Server {
	s := &Server{
		entries:  make(map[string]*Entry),
		sessions: make(map[string]struct{}),
	}

	r := chi.NewRouter()
	r.Get("/v1/kv/*", s.handleGet)
	r.Put("/v1/kv/*", s.handlePut)
	r.Delete("/v1/kv/*", s.handleDelete)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving /v1/kv.
func (s *Server) Handler() http.Handler { return s.router }

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.srv == nil {
		return ""
	}
	return s.srv.URL
}

// RuntimeConfig returns a configuration pointing at the started server.
func (s *Server) RuntimeConfig() consulkv.RuntimeConfig {
	u, _ := url.Parse(s.URL())
	return consulkv.RuntimeConfig{
		Address:   u.Host,
		Scheme:    u.Scheme,
		Namespace: consulkv.DefaultNamespace,
	}
}

// NewSession registers and returns a new session id.
func (s *Server) NewSession() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = struct{}{}
	s.mu.Unlock()

	return id
}

// DestroySession invalidates id and releases every lock it holds, as
// Consul does when a session expires.
func (s *Server) DestroySession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	for _, e := range s.entries {
		if e.Session == id {
			e.Session = ""
			e.ModifyIndex = s.next()
		}
	}
}

// Set stores raw bytes under key without any encoding checks. Tests use it
// to seed values the typed client would never write.
func (s *Server) Set(key string, value []byte, flags uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, value, flags)
}

// Entry returns a copy of the stored entry for key.
func (s *Server) Entry(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Value = append([]byte(nil), e.Value...)
	return out, true
}

// Index returns the current store index.
func (s *Server) Index() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)

	s.mu.Lock()
	e, ok := s.entries[key]
	var out Entry
	if ok {
		out = *e
	}
	index := s.index
	s.mu.Unlock()

	setMeta(w, index)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode([]Entry{out})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)
	query := r.URL.Query()

	var flags uint64
	if v := query.Get("flags"); v != "" {
		f, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid flags %q", v), http.StatusBadRequest)
			return
		}
		flags = f
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		body = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ok bool
	switch {
	case query.Has("acquire"):
		session := query.Get("acquire")
		if _, known := s.sessions[session]; !known {
			http.Error(w, fmt.Sprintf("invalid session %q", session), http.StatusInternalServerError)
			return
		}
		ok = s.acquire(key, session, body, flags)
	case query.Has("release"):
		ok = s.release(key, query.Get("release"), body, flags)
	default:
		s.put(key, body, flags)
		ok = true
	}

	writeBool(w, s.index, ok)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)

	s.mu.Lock()
	delete(s.entries, key)
	index := s.next()
	s.mu.Unlock()

	writeBool(w, index, true)
}

// put creates or updates key. Caller holds mu.
func (s *Server) put(key string, value []byte, flags uint64) *Entry {
	index := s.next()
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{Key: key, CreateIndex: index}
		s.entries[key] = e
	}
	e.ModifyIndex = index
	e.Flags = flags
	e.Value = append([]byte(nil), value...)
	return e
}

// acquire takes the lock for session. Re-acquiring a lock already held by
// session succeeds without bumping LockIndex. Caller holds mu.
func (s *Server) acquire(key, session string, value []byte, flags uint64) bool {
	if e, ok := s.entries[key]; ok && e.Session != "" && e.Session != session {
		return false
	}

	e := s.put(key, value, flags)
	if e.Session != session {
		e.Session = session
		e.LockIndex++
	}
	return true
}

// release drops the lock when session holds it. Caller holds mu.
func (s *Server) release(key, session string, value []byte, flags uint64) bool {
	e, ok := s.entries[key]
	if !ok || e.Session != session {
		return false
	}

	e = s.put(key, value, flags)
	e.Session = ""
	return true
}

// next advances the store index. Caller holds mu.
func (s *Server) next() uint64 {
	s.index++
	return s.index
}

// keyParam returns the decoded key matched by the wildcard route.
func keyParam(r *http.Request) string {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return key
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func setMeta(w http.ResponseWriter, index uint64) {
	w.Header().Set("X-Consul-Index", strconv.FormatUint(index, 10))
	w.Header().Set("X-Consul-KnownLeader", "true")
	w.Header().Set("X-Consul-LastContact", "0")
}

func writeBool(w http.ResponseWriter, index uint64, ok bool) {
	setMeta(w, index)
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintln(w, strconv.FormatBool(ok))
}
