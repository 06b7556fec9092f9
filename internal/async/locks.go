package async

import "sync"

// PropertyLocks serializes work per property id within one process. Entries are
// dropped once nobody holds or waits for them.
type PropertyLocks struct {
	mu    sync.Mutex
	locks map[string]*propertyLock
}

type propertyLock struct {
	mu   sync.Mutex
	refs int
}

func NewPropertyLocks() *PropertyLocks {
	return &PropertyLocks{locks: map[string]*propertyLock{}}
}

// Lock blocks until id is free and returns the matching unlock.
func (p *PropertyLocks) Lock(id string) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &propertyLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			p.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(p.locks, id)
			}
			p.mu.Unlock()
		})
	}
}

// Len reports how many ids are currently held or awaited.
func (p *PropertyLocks) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
