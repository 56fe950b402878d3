package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Prober performs a single readiness check against an address.
type Prober interface {
	// Probe returns nil when the address answered at all. Only failures to
	// get any response are errors.
	Probe(ctx context.Context, address string) error
}

// TransportError reports that a probe got no HTTP response: connection
// refused, timeout, DNS failure and the like. It is expected while the
// backend boots.
type TransportError struct {
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("readiness probe for %s failed: %v", e.Address, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPProber implements Prober using HTTP GET requests. Any status code counts
// as success; the body is discarded unread.
type HTTPProber struct {
	client         *http.Client
	requestTimeout time.Duration // Timeout for a single probe request
}

// NewHTTPProber creates a new HTTPProber.
// requestTimeout bounds each probe request; zero means no client timeout.
func NewHTTPProber(requestTimeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		requestTimeout: requestTimeout,
	}
}

// Probe issues a GET to address with no body.
func (h *HTTPProber) Probe(ctx context.Context, address string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return fmt.Errorf("failed to create readiness request for %s: %w", address, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &TransportError{Address: address, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return nil
}
