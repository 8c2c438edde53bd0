package base

import (
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
)

// registry tracks the live workers of a server transport.
//
// Only the accept loop inserts, reaps and drains, so the registry itself never
// blocks on a worker it does not own. closeAll may run concurrently from the
// shutdown path; it takes no worker locks.
type registry struct {
	workers *xsync.MapOf[uint64, *worker]
}

func newRegistry() *registry {
	return &registry{
		workers: xsync.NewMapOf[uint64, *worker](),
	}
}

// insert adds a worker that has just been spawned
func (r *registry) insert(w *worker) {
	r.workers.Store(w.id, w)
}

// reap joins and removes every worker that has completed.
// Workers still running are left untouched. It returns the number of reclaimed workers.
func (r *registry) reap() int {
	n := 0
	for _, w := range r.ordered() {
		if !w.isCompleted() {
			continue
		}
		w.join()
		r.workers.Delete(w.id)
		n++
	}
	workersReclaimed.Add(n)
	return n
}

// drain cancels every worker that has not completed, then joins and removes all of them
func (r *registry) drain() int {
	workers := r.ordered()
	for _, w := range workers {
		w.cancel()
	}
	for _, w := range workers {
		w.join()
		r.workers.Delete(w.id)
	}
	workersReclaimed.Add(len(workers))
	return len(workers)
}

// closeAll closes the socket of every registered worker
func (r *registry) closeAll() {
	r.workers.Range(func(_ uint64, w *worker) bool {
		_ = w.conn.Close()
		return true
	})
}

func (r *registry) size() int {
	return r.workers.Size()
}

// ordered returns the registered workers in spawn order
func (r *registry) ordered() []*worker {
	workers := make([]*worker, 0, r.workers.Size())
	r.workers.Range(func(_ uint64, w *worker) bool {
		workers = append(workers, w)
		return true
	})
	sort.Slice(workers, func(i, j int) bool {
		return workers[i].id < workers[j].id
	})
	return workers
}
