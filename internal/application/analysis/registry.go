package analysis

import (
	"sync"

	domain "github.com/lexpacte/lexpacte/internal/domain/analysis"
)

// Registry keeps the in-memory state of analysis runs. Completed results
// are persisted by the pipeline; the registry only covers the lifetime of
// the process.
type Registry struct {
	mu   sync.RWMutex
	runs map[domain.RunID]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[domain.RunID]*Run)}
}

func (r *Registry) Add(run *Run) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
}

func (r *Registry) Get(id domain.RunID) (*Run, bool) {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()
	return run, ok
}

func (r *Registry) Remove(id domain.RunID) {
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()
}
