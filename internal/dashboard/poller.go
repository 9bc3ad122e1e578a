package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultPollInterval = 5 * time.Second
	MinPollInterval     = 3 * time.Second
	MaxPollInterval     = 10 * time.Second
)

// ClampInterval keeps a poll interval within the supported range. Zero
// selects the default.
func ClampInterval(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultPollInterval
	case d < MinPollInterval:
		return MinPollInterval
	case d > MaxPollInterval:
		return MaxPollInterval
	}
	return d
}

// Poller runs tick on a fixed interval while visible. Ticks never overlap:
// a tick that comes due while the previous one is still running is skipped.
type Poller struct {
	interval time.Duration
	tick     func(context.Context)

	visible  atomic.Bool
	inFlight atomic.Bool
	wake     chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a visible poller. The interval is clamped with ClampInterval.
func NewPoller(interval time.Duration, tick func(context.Context)) *Poller {
	p := &Poller{
		interval: ClampInterval(interval),
		tick:     tick,
		wake:     make(chan struct{}, 1),
	}
	p.visible.Store(true)
	return p
}

// Interval returns the effective interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// SetVisible pauses polling while hidden. Becoming visible again triggers an
// immediate tick and restarts the interval.
func (p *Poller) SetVisible(v bool) {
	if p.visible.Swap(v) == v {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Visible reports the current visibility.
func (p *Poller) Visible() bool { return p.visible.Load() }

// Run blocks until ctx is cancelled, then waits for an in-flight tick to return.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		p.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
			if p.visible.Load() {
				p.fire(ctx)
				ticker.Reset(p.interval)
			}
		case <-ticker.C:
			if p.visible.Load() {
				p.fire(ctx)
			}
		}
	}
}

// TriggerNow runs a tick immediately unless one is already running. It
// reports whether a tick was started.
func (p *Poller) TriggerNow(ctx context.Context) bool {
	return p.fire(ctx)
}

func (p *Poller) fire(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.tick(ctx)
	}()
	return true
}
