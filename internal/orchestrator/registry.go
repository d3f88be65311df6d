package orchestrator

import (
	"sync"

	"driveaudit/pkg/domain"
)

// Registry tracks which jobs this process is currently driving. It is a
// best-effort, single-process guard against double-driving one job; it is
// NOT a distributed lock. Two separate process instances can still resume
// the same job concurrently after independent restarts, which at worst
// duplicates per-account scan records without corrupting job state.
type Registry struct {
	mu     sync.Mutex
	active map[domain.JobID]struct{}
}

// NewRegistry creates an empty active-job registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[domain.JobID]struct{})}
}

// TryAcquire registers the job as actively driven by this process. It
// returns false when another driving loop already holds the registration.
func (r *Registry) TryAcquire(id domain.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}

	return true
}

// Release removes the job's registration. Releasing an unregistered job is
// a no-op.
func (r *Registry) Release(id domain.JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// Active reports whether this process currently drives the job.
func (r *Registry) Active(id domain.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[id]

	return ok
}
