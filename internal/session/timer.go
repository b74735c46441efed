package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Countdown drives an exam's remaining time. It counts down one step per
// tick from durationMinutes*60 and invokes the expiry callback exactly once
// when the remaining seconds reach zero. Stop halts ticking and suppresses
// the callback if it has not fired yet, so a manual submit never races a
// late expiry into a second finalize.
type Countdown struct {
	remaining atomic.Int64
	interval  time.Duration
	onExpire  func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type CountdownOption func(*Countdown)

// WithTickInterval shrinks the tick period. Tests use it to run a full exam
// clock in milliseconds; production keeps the one-second default.
func WithTickInterval(d time.Duration) CountdownOption {
	return func(c *Countdown) { c.interval = d }
}

func NewCountdown(durationMinutes int, onExpire func(), opts ...CountdownOption) *Countdown {
	c := &Countdown{
		interval: time.Second,
		onExpire: onExpire,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.remaining.Store(int64(durationMinutes) * 60)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the tick loop. It returns immediately.
func (c *Countdown) Start() {
	go c.run()
}

func (c *Countdown) run() {
	defer close(c.done)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if c.remaining.Add(-1) > 0 {
				continue
			}
			// Expiry wins the stop race at most once: the loop exits right
			// after, and Stop after this point only closes the channel.
			select {
			case <-c.stop:
			default:
				c.onExpire()
			}
			return
		}
	}
}

// Remaining returns the seconds left on the clock, never below zero.
func (c *Countdown) Remaining() int {
	if v := c.remaining.Load(); v > 0 {
		return int(v)
	}
	return 0
}

// Stop halts the countdown. It is idempotent and safe to call from the
// expiry callback itself.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once the tick loop has exited, after Stop or expiry.
func (c *Countdown) Done() <-chan struct{} { return c.done }
