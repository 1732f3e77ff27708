package provider

import (
	"sync"

	"github.com/miladsoleymani/brokerbridge/core"
)

// registry maps instance ids to their running workers.
//
// Every key present has a live worker: removal and cancellation happen in the
// same critical section, so an id is never advertised after its worker was
// cancelled. The mutex is only held for map bookkeeping.
type registry struct {
	mu      sync.Mutex
	workers map[core.InstanceID]*worker
	closed  bool
}

func newRegistry() *registry {
	return &registry{workers: make(map[core.InstanceID]*worker)}
}

func (r *registry) insert(w *worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return core.ErrProviderClosed
	}
	if _, ok := r.workers[w.id]; ok {
		return core.ErrDuplicateInstance
	}
	r.workers[w.id] = w
	return nil
}

// remove deletes id and cancels its worker.
func (r *registry) remove(id core.InstanceID) (*worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return nil, false
	}
	delete(r.workers, id)
	w.cancel()
	return w, true
}

// evict removes w only if it is still the worker registered under its id.
func (r *registry) evict(w *worker) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers[w.id] != w {
		return false
	}
	delete(r.workers, w.id)
	w.cancel()
	return true
}

// drain closes the registry, cancels every worker and returns them.
func (r *registry) drain() []*worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	out := make([]*worker, 0, len(r.workers))
	for id, w := range r.workers {
		delete(r.workers, id)
		w.cancel()
		out = append(out, w)
	}
	return out
}

func (r *registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *registry) contains(id core.InstanceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.workers[id]
	return ok
}

func (r *registry) ids() []core.InstanceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.InstanceID, 0, len(r.workers))
	for id := range r.workers {
		out = append(out, id)
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}
