package geocode

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSelectsImplementation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantNop bool
	}{
		{"none provider", Config{Provider: "none", Endpoint: DefaultEndpoint}, true},
		{"empty endpoint", Config{Provider: "nominatim"}, true},
		{"unknown provider", Config{Provider: "carrier-pigeon", Endpoint: DefaultEndpoint}, true},
		{"nominatim", Config{Provider: "Nominatim", Endpoint: DefaultEndpoint}, false},
		{"default provider", Config{Endpoint: DefaultEndpoint}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, isNop := New(tt.cfg, nil).(Nop)
			if isNop != tt.wantNop {
				t.Errorf("New(%+v) nop = %v, want %v", tt.cfg, isNop, tt.wantNop)
			}
		})
	}
}

func TestNewWarnsWhenDisabled(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantWarn bool
	}{
		{"none provider", Config{Provider: ProviderNone, Endpoint: DefaultEndpoint}, true},
		{"empty endpoint", Config{Provider: ProviderNominatim}, true},
		{"unknown provider", Config{Provider: "carrier-pigeon", Endpoint: DefaultEndpoint}, true},
		{"nominatim", Config{Provider: ProviderNominatim, Endpoint: DefaultEndpoint}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
			New(tt.cfg, logger)
			if got := buf.Len() > 0; got != tt.wantWarn {
				t.Errorf("warned = %v, want %v (log %q)", got, tt.wantWarn, buf.String())
			}
		})
	}
}

func TestNominatimUsesSharedClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"Somewhere"}`))
	}))
	defer srv.Close()

	var calls atomic.Int32
	shared := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return http.DefaultTransport.RoundTrip(r)
	})}
	g := NewNominatim(Config{HTTPClient: shared, Endpoint: srv.URL}, nil)
	if p := g.Reverse(context.Background(), 1, 2); p == nil || p.Address != "Somewhere" {
		t.Fatalf("Reverse = %+v", p)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("shared client calls = %d, want 1", n)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNopReverse(t *testing.T) {
	if p := (Nop{}).Reverse(context.Background(), 1, 2); p != nil {
		t.Errorf("Nop.Reverse = %+v, want nil", p)
	}
}

func TestNominatimReverse(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q, want /reverse", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("format") != "jsonv2" || q.Get("lat") != "40.44615" || q.Get("lon") != "-79.98227" || q.Get("accept-language") != "en" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "geo-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Pittsburgh, Pennsylvania, United States","address":{"city":"Pittsburgh"}}`))
	}))
	defer srv.Close()

	g := NewNominatim(Config{Endpoint: srv.URL + "/", UserAgent: "geo-test"}, nil)
	p := g.Reverse(context.Background(), 40.44615, -79.98227)
	if p == nil {
		t.Fatal("Reverse returned nil")
	}
	if p.Address != "Pittsburgh, Pennsylvania, United States" {
		t.Errorf("Address = %q", p.Address)
	}
	if _, ok := p.Raw["address"].(map[string]any); !ok {
		t.Errorf("Raw missing address: %#v", p.Raw)
	}

	// Same coordinates after rounding are served from memory.
	if again := g.Reverse(context.Background(), 40.446150001, -79.982270001); again != p {
		t.Errorf("second lookup = %+v, want cached result", again)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestNominatimFailuresYieldNil(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) }},
		{"geocoder error", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"error":"Unable to geocode"}`)) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := NewNominatim(Config{Endpoint: srv.URL, Timeout: 100 * time.Millisecond}, nil)
			if p := g.Reverse(context.Background(), 1, 2); p != nil {
				t.Errorf("Reverse = %+v, want nil", p)
			}
		})
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey(1.000004, -2.5); got != "1.00000,-2.50000" {
		t.Errorf("cacheKey = %q", got)
	}
}
