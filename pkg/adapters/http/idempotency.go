package http

import (
	"bytes"
	"net/http"
	"sync"
	"time"
)

// HeaderIdempotencyKey marks a write request that may be retried safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay is set on responses served from the cache.
const HeaderIdempotentReplay = "Idempotent-Replayed"

// DefaultIdempotencyTTL is how long a response is kept for replay.
const DefaultIdempotencyTTL = 24 * time.Hour

type cachedResponse struct {
	done    chan struct{}
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// idempotencyCache remembers responses by path and Idempotency-Key.
// A duplicate arriving while the first request is in flight waits for it.
type idempotencyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*cachedResponse
}

func newIdempotencyCache(ttl time.Duration) *idempotencyCache {
	return &idempotencyCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cachedResponse),
	}
}

// begin returns the entry for key and whether the caller owns it.
func (c *idempotencyCache) begin(key string) (*cachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(c.entries, k)
		}
	}

	if e, ok := c.entries[key]; ok {
		return e, false
	}
	e := &cachedResponse{done: make(chan struct{})}
	c.entries[key] = e
	return e, true
}

func (c *idempotencyCache) finish(key string, e *cachedResponse, rec *responseRecorder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	// Server errors are not cached so the client can retry.
	if rec.status >= 500 {
		delete(c.entries, key)
	} else {
		e.status = rec.status
		e.header = rec.header.Clone()
		e.body = rec.body.Bytes()
		e.expires = c.now().Add(c.ttl)
	}
	close(e.done)
}

// idempotent wraps a write handler with Idempotency-Key replay.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderIdempotencyKey)
		if key == "" {
			next(w, r)
			return
		}
		cacheKey := r.URL.Path + "\x00" + key

		for {
			entry, owner := s.idempotency.begin(cacheKey)
			if owner {
				s.serveOwned(w, r, next, cacheKey, entry)
				return
			}

			select {
			case <-r.Context().Done():
				return
			case <-entry.done:
			}
			if entry.status == 0 {
				// The first attempt failed and was evicted; run again.
				continue
			}
			s.logger.Debug("replaying idempotent response", "path", r.URL.Path, "key", key)
			for k, v := range entry.header {
				w.Header()[k] = v
			}
			w.Header().Set(HeaderIdempotentReplay, "true")
			w.WriteHeader(entry.status)
			_, _ = w.Write(entry.body)
			return
		}
	}
}

// serveOwned runs next for the request that owns entry. The entry is always
// released, and evicted if next panics, so waiting duplicates never hang.
func (s *Server) serveOwned(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, key string, entry *cachedResponse) {
	rec := newResponseRecorder()
	completed := false
	defer func() {
		if !completed {
			rec.status = http.StatusInternalServerError
			s.idempotency.finish(key, entry, rec)
		}
	}()

	next(rec, r)
	completed = true
	s.idempotency.finish(key, entry, rec)
	rec.flushTo(w)
}

type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header)}
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func (r *responseRecorder) flushTo(w http.ResponseWriter) {
	for k, v := range r.header {
		w.Header()[k] = v
	}
	if r.status == 0 {
		r.status = http.StatusOK
	}
	w.WriteHeader(r.status)
	_, _ = w.Write(r.body.Bytes())
}
