package subprocess

import "sync"

// Registry tracks supervisors between Start and Close so that a
// host's top-level shutdown path can terminate any child processes
// that are still running. It replaces the implicit process-exit hook a
// supervisor might otherwise rely on: the host owns the registry and
// decides when to drain it.
//
// The registry is safe for concurrent use; a host typically closes it
// from a signal-handling goroutine while the supervision loop runs
// elsewhere.
type Registry struct {
	mu      sync.Mutex
	members map[string]*Supervisor
}

// NewRegistry constructs an empty registry, for callers that want
// cleanup scoped more narrowly than the package registry.
func NewRegistry() *Registry {
	return &Registry{members: map[string]*Supervisor{}}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the package-level registry, which
// supervisors join by default when they start.
func DefaultRegistry() *Registry { return defaultRegistry }

// Add registers a supervisor. Supervisors call this on themselves
// when they start.
func (r *Registry) Add(s *Supervisor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[s.ID()] = s
}

// Remove deregisters a supervisor by id; unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, id)
}

// Len returns the number of currently registered supervisors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// Close closes every still-registered supervisor, running the kill
// protocol against any child processes that have not exited.
func (r *Registry) Close() {
	r.mu.Lock()
	members := make([]*Supervisor, 0, len(r.members))
	for _, s := range r.members {
		members = append(members, s)
	}
	r.mu.Unlock()

	// Supervisor.Close removes the member from the registry, so
	// closing happens outside the lock.
	for _, s := range members {
		s.Close()
	}
}
