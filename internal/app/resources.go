package app

import (
	"sync"

	"service-courier-match/internal/logx"
)

type closer struct {
	name string
	fn   func() error
}

// resources collects the clients opened by providers so that the runners
// close them in reverse order.
type resources struct {
	mu      sync.Mutex
	closers []closer
}

func newResources() *resources { return &resources{} }

func (r *resources) add(name string, fn func() error) {
	if r == nil || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

func (r *resources) closeAll(logger logx.Logger) {
	if r == nil {
		return
	}
	r.mu.Lock()
	cs := r.closers
	r.closers = nil
	r.mu.Unlock()

	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].fn(); err != nil {
			logger.Error(cs[i].name+" close error", logx.Err(err))
		}
	}
}
