package sink

import "sync"

// pathLocks hands out one mutex per artifact path so concurrent workers that
// target the same artifact serialize their appends.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
