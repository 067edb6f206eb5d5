package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultRateWindowLimit is the advisory hourly request ceiling.
const DefaultRateWindowLimit = 60

// rateWindowSweepThreshold bounds map growth from ephemeral client keys;
// once exceeded, entries from past windows are dropped on the next record.
const rateWindowSweepThreshold = 10000

// RateWindowTracker counts requests per client key in fixed hourly windows
// and reports the X-RateLimit-* header values. It is purely advisory: it
// never rejects a request.
//
// State is held in process memory only; each replica of the service keeps
// its own independent view.
type RateWindowTracker struct {
	limit int

	mu      sync.Mutex
	windows map[string]windowEntry
}

type windowEntry struct {
	start time.Time
	count int
}

// NewRateWindowTracker builds a tracker with the given hourly ceiling.
func NewRateWindowTracker(limit int) *RateWindowTracker {
	if limit <= 0 {
		limit = DefaultRateWindowLimit
	}
	return &RateWindowTracker{
		limit:   limit,
		windows: make(map[string]windowEntry),
	}
}

// Limit returns the configured ceiling.
func (t *RateWindowTracker) Limit() int { return t.limit }

// Record accounts one request for key at the given instant and returns the
// window's running count plus its reset instant (top of the next hour).
//
// The read-compare-replace happens under one lock acquisition, so two
// concurrent requests for the same key cannot both observe the stale count.
func (t *RateWindowTracker) Record(key string, now time.Time) (count int, reset time.Time) {
	windowStart := now.Truncate(time.Hour)

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.windows[key]
	if !ok || !entry.start.Equal(windowStart) {
		// First request of a new window replaces the stale entry outright.
		entry = windowEntry{start: windowStart, count: 1}
	} else {
		entry.count++
	}
	t.windows[key] = entry

	if len(t.windows) > rateWindowSweepThreshold {
		t.sweepLocked(windowStart)
	}

	return entry.count, windowStart.Add(time.Hour)
}

// Remaining converts a running count into the advertised remaining quota.
func (t *RateWindowTracker) Remaining(count int) int {
	return max(t.limit-count, 0)
}

func (t *RateWindowTracker) sweepLocked(current time.Time) {
	for key, entry := range t.windows {
		if !entry.start.Equal(current) {
			delete(t.windows, key)
		}
	}
}

// Middleware records every request and stamps the rate headers on the
// response before the handler runs, so they appear even on error paths.
func (t *RateWindowTracker) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, reset := t.Record(ClientKey(r), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(t.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(t.Remaining(count)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey derives the rate-accounting key for a request: the first
// X-Forwarded-For entry when present, else the transport peer address,
// else a shared "unknown" bucket.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return "unknown"
}
