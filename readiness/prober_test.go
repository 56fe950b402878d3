package readiness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPProberAnyStatusIsReady(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		var gotMethod string
		var gotBody int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotBody = r.ContentLength
			w.WriteHeader(status)
			w.Write([]byte("not parsed"))
		}))

		err := NewHTTPProber(time.Second).Probe(context.Background(), server.URL)
		server.Close()

		if err != nil {
			t.Errorf("status %d: expected ready, got %v", status, err)
		}
		if gotMethod != http.MethodGet {
			t.Errorf("status %d: method = %s, want GET", status, gotMethod)
		}
		if gotBody > 0 {
			t.Errorf("status %d: request carried a %d byte body", status, gotBody)
		}
	}
}

func TestHTTPProberTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	address := server.URL
	server.Close()

	err := NewHTTPProber(time.Second).Probe(context.Background(), address)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
	if transportErr.Address != address {
		t.Errorf("Address = %q, want %q", transportErr.Address, address)
	}
}

func TestPollerAgainstLateServer(t *testing.T) {
	// Reserve an address, then start serving on it after a few probes.
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	address := "http://" + server.Listener.Addr().String()
	defer server.Close()

	clock := NewFakeClock(time.Unix(0, 0))
	probes := 0
	prober := proberFunc(func(ctx context.Context, addr string) error {
		probes++
		if probes == 3 {
			server.Start()
		}
		return NewHTTPProber(200*time.Millisecond).Probe(ctx, addr)
	})

	poller := NewPoller(Config{Prober: prober, Clock: clock, Logger: discardLogger()})
	if err := poller.Wait(context.Background(), address); err != nil {
		t.Fatalf("Wait returned %v", err)
	}
	if probes != 3 {
		t.Errorf("Expected ready on probe 3, got %d probes", probes)
	}
}

type proberFunc func(ctx context.Context, address string) error

func (f proberFunc) Probe(ctx context.Context, address string) error {
	return f(ctx, address)
}
