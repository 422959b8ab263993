package common

import (
	"errors"
	"sync"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a mutable PauseView backed by a set of module names. The zero
// value is not usable; construct with NewPauses.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauses() *Pauses {
	return &Pauses{paused: make(map[string]bool)}
}

// SetPaused toggles the pause flag for a module.
func (p *Pauses) SetPaused(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused[module] = paused
}

// IsPaused implements PauseView.
func (p *Pauses) IsPaused(module string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}
