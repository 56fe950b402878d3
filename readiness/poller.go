// Package readiness waits for the backend's HTTP endpoint to answer.
//
// The poller issues one probe at a time against a fixed address. A transport
// failure schedules the next probe after a fixed interval; there is no retry
// limit and no backoff because the backend's start-up time is unknown. The
// first answered probe ends the wait.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

const (
	// DefaultInterval is the delay between a failed probe and the next one.
	DefaultInterval = 500 * time.Millisecond
	// DefaultAddress is where the backend serves its UI.
	DefaultAddress = "http://localhost:8080"

	defaultProbeTimeout = 2 * time.Second
)

// ErrTimeout is returned by Wait when a timeout was configured and elapsed.
var ErrTimeout = errors.New("backend did not become ready in time")

// Outcome is the result of one probe.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeNetworkError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeNetworkError:
		return "network-error"
	default:
		return "unknown"
	}
}

// Attempt describes one probe cycle.
type Attempt struct {
	Address   string
	Number    int
	Outcome   Outcome
	NextRetry time.Duration // zero unless Outcome is OutcomeNetworkError
}

// Config holds configuration options for the Poller.
type Config struct {
	Prober    Prober        // Optional, defaults to an HTTPProber.
	Clock     Clock         // Optional, defaults to SystemClock.
	Interval  time.Duration // Optional, defaults to 500ms.
	Timeout   time.Duration // Optional, zero waits forever.
	Logger    *slog.Logger  // Optional, defaults to slog.Default().
	OnAttempt func(Attempt) // Optional, called after every probe.
}

// Poller repeatedly probes an address until it answers.
type Poller struct {
	prober    Prober
	clock     Clock
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	onAttempt func(Attempt)
}

// NewPoller creates a Poller, filling in defaults for unset fields.
func NewPoller(config Config) *Poller {
	prober := config.Prober
	if prober == nil {
		prober = NewHTTPProber(defaultProbeTimeout)
	}
	clock := config.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		prober:    prober,
		clock:     clock,
		interval:  interval,
		timeout:   config.Timeout,
		logger:    logger.With("component", "ReadinessPoller"),
		onAttempt: config.OnAttempt,
	}
}

// Interval returns the delay between probes.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Wait probes address until it answers, returning nil exactly when a probe
// succeeded. The next probe is scheduled only after the previous one has
// returned. Cancelling ctx stops the loop without issuing further probes.
func (p *Poller) Wait(ctx context.Context, address string) error {
	if err := validateAddress(address); err != nil {
		return err
	}

	start := p.clock.Now()
	for number := 1; ; number++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt := Attempt{Address: address, Number: number, Outcome: OutcomePending}
		err := p.prober.Probe(ctx, address)
		if err == nil {
			attempt.Outcome = OutcomeSuccess
			p.report(attempt)
			p.logger.Info("Backend is ready", "address", address, "attempts", number)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt.Outcome = OutcomeNetworkError
		attempt.NextRetry = p.interval
		p.report(attempt)
		p.logger.Debug("Backend is not ready", "address", address, "attempt", number, "retryIn", p.interval, "error", err)

		if p.timeout > 0 && p.clock.Now().Sub(start) >= p.timeout {
			return fmt.Errorf("%w: %d probes of %s over %s", ErrTimeout, number, address, p.timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

// Start runs Wait in the background. The returned channel receives exactly
// one value: nil once the address answered, or the reason polling stopped.
func (p *Poller) Start(ctx context.Context, address string) <-chan error {
	result := make(chan error, 1)
	go func() {
		result <- p.Wait(ctx, address)
	}()
	return result
}

func (p *Poller) report(attempt Attempt) {
	if p.onAttempt != nil {
		p.onAttempt(attempt)
	}
}

func validateAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid readiness address %q: %w", address, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid readiness address %q: want http(s)://host[:port]", address)
	}
	return nil
}
