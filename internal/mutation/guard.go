package mutation

import (
	"sync"
	"time"
)

// Guard is the per-control state of one button: whether it is submitting,
// the boolean it toggles, and the transient error banner.
type Guard struct {
	bannerErr  error
	timer      *time.Timer
	status     bool
	submitting bool
	mu         sync.Mutex
}

// NewGuard creates an idle guard with the given initial status.
func NewGuard(status bool) *Guard {
	return &Guard{status: status}
}

// Status returns the flag this control toggles.
func (g *Guard) Status() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// SetStatus syncs the flag from rendered state. Ignored while submitting so
// an optimistic write cannot flip the control under its own activation.
func (g *Guard) SetStatus(status bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.submitting {
		g.status = status
	}
}

// Submitting reports whether a mutation is in flight.
func (g *Guard) Submitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitting
}

// Banner returns the error currently shown to the user, or nil once the
// banner has cleared itself.
func (g *Guard) Banner() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bannerErr
}

// begin moves the guard to submitting. It reports false if it already was.
func (g *Guard) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.submitting {
		return false
	}
	g.submitting = true
	return true
}

// finish returns the guard to idle, flipping status on success.
func (g *Guard) finish(succeeded bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.submitting = false
	if succeeded {
		g.status = !g.status
	}
}

// showBanner displays err for d, replacing any banner already shown.
func (g *Guard) showBanner(err error, d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}

	g.bannerErr = err
	g.timer = time.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		if g.bannerErr == err {
			g.bannerErr = nil
			g.timer = nil
		}
	})
}
