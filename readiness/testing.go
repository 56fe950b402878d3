package readiness

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FakeClock is a Clock for tests. After advances the clock by the requested
// duration and fires immediately, so retry loops run without real delays.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// Waits returns every duration passed to After, in order.
func (c *FakeClock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// ErrConnectionRefused is the failure ScriptedProber reports before it turns ready.
var ErrConnectionRefused = errors.New("connection refused")

// ScriptedProber fails a fixed number of probes and then succeeds. It records
// the clock time of every probe and the highest number of concurrent probes.
type ScriptedProber struct {
	Failures int
	Clock    Clock

	mu          sync.Mutex
	probes      []time.Time
	inFlight    int
	maxInFlight int
}

func (p *ScriptedProber) Probe(ctx context.Context, address string) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	var now time.Time
	if p.Clock != nil {
		now = p.Clock.Now()
	}
	p.probes = append(p.probes, now)
	n := len(p.probes)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if p.Failures < 0 || n <= p.Failures {
		return &TransportError{Address: address, Err: ErrConnectionRefused}
	}
	return nil
}

// Probes returns the clock time of every probe issued so far.
func (p *ScriptedProber) Probes() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.probes...)
}

// MaxInFlight returns the highest number of probes that overlapped.
func (p *ScriptedProber) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxInFlight
}
