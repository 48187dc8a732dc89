// Package health probes the service's wired backends for the health endpoint.
package health

import (
	"context"
	"sync"
	"time"
)

const defaultProbeTimeout = 5 * time.Second

// Status is the outcome of probing one backend. Name and Latency are filled
// in by the registry; checkers only report Healthy and an optional Detail.
type Status struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Detail  string        `json:"detail,omitempty"`
	Latency time.Duration `json:"-"`
}

// Checker probes a single backend. It must honor ctx: the registry caps each
// probe's runtime so one stalled backend cannot eat the request deadline.
type Checker func(ctx context.Context) Status

// Registry holds named backend probes and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	timeout  time.Duration
	checkers []namedChecker
}

type namedChecker struct {
	name  string
	check Checker
}

// NewRegistry creates a registry applying the given per-probe timeout.
// A non-positive timeout falls back to 5 seconds.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &Registry{timeout: timeout}
}

// Register adds a named backend probe.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers = append(r.checkers, namedChecker{name: name, check: check})
	r.mu.Unlock()
}

// CheckAll probes every registered backend and returns the aggregate health
// plus per-backend results with measured probe latency.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	checkers := make([]namedChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	healthy = true
	statuses = make([]Status, len(checkers))

	for i, nc := range checkers {
		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		st := nc.check(probeCtx)
		cancel()

		st.Name = nc.name
		st.Latency = time.Since(start)
		if !st.Healthy {
			healthy = false
		}
		statuses[i] = st
	}

	return healthy, statuses
}
