package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter names used across the service.
const (
	HTTPRequests     = "http_requests"
	HTTPServerErrors = "http_errors"
	ProductsCreated  = "products_created"
	ProductsUpdated  = "products_updated"
	ProductsDeleted  = "products_deleted"
	Uploads          = "uploads"
	UploadFailures   = "upload_failures"
	RateLimited      = "rate_limited"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry hands out named counters and remembers when the process started.
// A nil *Registry is valid and discards everything.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	started  time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*Counter),
		started:  time.Now(),
	}
}

// Counter returns the counter with the given name, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	if r == nil {
		return &Counter{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[name]
	if !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) Uptime() time.Duration {
	if r == nil {
		return 0
	}
	return time.Since(r.started)
}

// Snapshot copies the current value of every counter.
func (r *Registry) Snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	if r == nil {
		return out
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, c := range r.counters {
		out[name] = c.Load()
	}
	return out
}

func (r *Registry) Names() []string {
	snap := r.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
