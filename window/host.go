// Package window presents the backend's UI once it is reachable.
//
// A Host starts hidden, or shows nothing but a loading indicator, and is
// revealed exactly once after the readiness poller saw the backend answer.
// Closing it is the launcher's shutdown trigger.
package window

import (
	"context"
	"errors"
)

// Visibility is the window's presentation state.
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	default:
		return "unknown"
	}
}

// ErrNotOpen is returned when a host is revealed before it was opened.
var ErrNotOpen = errors.New("window host is not open")

// Host is the UI shell around the backend.
type Host interface {
	// Open creates the UI in the Hidden state.
	Open(ctx context.Context) error
	// Reveal navigates to address and makes the UI visible. Only the first
	// call has any effect.
	Reveal(address string) error
	// Done is closed once the user closed every window, or the UI failed.
	Done() <-chan struct{}
	// Err reports why the UI stopped after Done closed. It is nil when the
	// user closed it.
	Err() error
	// Close tears the UI down.
	Close() error
}

// ProgressReporter is implemented by hosts that can show readiness progress
// while hidden.
type ProgressReporter interface {
	ReportProgress(attempt int)
}
