package lock

import (
	"context"
	"sync"
)

var _ Locker = (*Local)(nil)

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	keys map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]*slot)}
}

func (l *Local) Lock(ctx context.Context, keys ...string) (Unlock, error) {
	keys = sortKeys(keys)

	held := make([]string, 0, len(keys))
	for _, key := range keys {
		s := l.acquire(key)
		select {
		case s.sem <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.release(key, false)
			l.unlock(held)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.unlock(held)
		})
	}, nil
}

func (l *Local) unlock(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.release(keys[i], true)
	}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.keys[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	return s
}

func (l *Local) release(key string, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.keys[key]
	if held {
		<-s.sem
	}
	s.refs--
	if s.refs == 0 {
		delete(l.keys, key)
	}
}
