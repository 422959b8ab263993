package common

import (
	"errors"
	"sync"
)

// ErrReentrantCall is returned when an operation re-enters a scope that is
// still mid-flight for the same account.
var ErrReentrantCall = errors.New("reentrant call")

// Locks tracks in-flight operation scopes keyed by module and account. The
// custody hand-off to the token ledger is the only suspension point an
// operation observes, so holding the scope across the whole operation
// excludes re-entry through that hand-off.
type Locks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewLocks() *Locks {
	return &Locks{active: make(map[string]struct{})}
}

// Acquire marks the (module, account) scope as in-flight and returns the
// release for it. A nil receiver grants the scope unconditionally.
func (l *Locks) Acquire(module string, account [20]byte) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	key := module + "/" + string(account[:])
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.active[key]; held {
		return nil, ErrReentrantCall
	}
	l.active[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, key)
			l.mu.Unlock()
		})
	}, nil
}
