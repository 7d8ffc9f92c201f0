package dispatch

import "sync"

// Cooldown is the shared timestamp of the last accepted action. Readers may
// call Active from any goroutine; acceptance is serialized so exactly one
// caller wins inside a window.
type Cooldown struct {
	mu     sync.Mutex
	lastMs int64
	set    bool
}

// NewCooldown returns a Cooldown with no accepted action.
func NewCooldown() *Cooldown {
	return &Cooldown{}
}

// Active reports whether fewer than windowMs have elapsed between the last
// accepted action and nowMs. A nowMs earlier than the last action also
// counts as active.
func (c *Cooldown) Active(nowMs, windowMs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked(nowMs, windowMs)
}

// Last returns the timestamp of the last accepted action.
func (c *Cooldown) Last() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMs, c.set
}

// TryAcquire records nowMs as the last action if the window has elapsed and
// commit succeeds. commit runs under the cooldown lock and may be nil.
func (c *Cooldown) TryAcquire(nowMs, windowMs int64, commit func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeLocked(nowMs, windowMs) {
		return false
	}
	if commit != nil && !commit() {
		return false
	}
	c.lastMs = nowMs
	c.set = true
	return true
}

// exclusive runs fn while no acquisition is in progress.
func (c *Cooldown) exclusive(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func (c *Cooldown) activeLocked(nowMs, windowMs int64) bool {
	return c.set && nowMs-c.lastMs < windowMs
}
