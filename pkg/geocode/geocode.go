// Package geocode turns coordinates into human-readable places.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Provider names accepted by New.
const (
	ProviderNone      = "none"
	ProviderNominatim = "nominatim"
)

// Defaults for the Nominatim provider.
const (
	DefaultEndpoint  = "https://nominatim.openstreetmap.org"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "instaprobe/1.0 (profile metadata research)"

	cacheSize    = 4096
	cacheTTL     = 24 * time.Hour
	maxBodyBytes = 1 << 20
)

// Geocoder resolves coordinates to a place. A nil result means no place
// could be determined; implementations never return errors.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) *profile.Place
}

// Config selects and configures a Geocoder.
type Config struct {
	HTTPClient *http.Client
	Provider   string
	Endpoint   string
	UserAgent  string
	Timeout    time.Duration
}

// New returns the Geocoder described by cfg. Provider "none" or an empty
// endpoint yields Nop.
func New(cfg Config, logger *slog.Logger) Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderNominatim
	}
	if provider == ProviderNone || cfg.Endpoint == "" {
		logger.Warn("reverse geocoding unavailable, places will be null", "provider", provider)
		return Nop{}
	}
	if provider != ProviderNominatim {
		logger.Warn("unknown geocode provider, geocoding disabled", "provider", provider)
		return Nop{}
	}
	return NewNominatim(cfg, logger)
}

// Nop never resolves anything.
type Nop struct{}

// Reverse always returns nil.
func (Nop) Reverse(context.Context, float64, float64) *profile.Place { return nil }

// Nominatim queries an OpenStreetMap Nominatim server.
type Nominatim struct {
	client    *http.Client
	cache     *otter.Cache[string, *profile.Place]
	logger    *slog.Logger
	endpoint  string
	userAgent string
	timeout   time.Duration
}

// NewNominatim creates a Nominatim geocoder. Zero fields in cfg take the
// package defaults.
func NewNominatim(cfg Config, logger *slog.Logger) *Nominatim {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Nominatim{
		client:    cfg.HTTPClient,
		logger:    logger,
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		cache: otter.Must(&otter.Options[string, *profile.Place]{
			MaximumSize:      cacheSize,
			ExpiryCalculator: otter.ExpiryWriting[string, *profile.Place](cacheTTL),
		}),
	}
	if n.client == nil {
		n.client = &http.Client{}
	}
	if n.endpoint == "" {
		n.endpoint = DefaultEndpoint
	}
	if n.userAgent == "" {
		n.userAgent = DefaultUserAgent
	}
	if n.timeout <= 0 {
		n.timeout = DefaultTimeout
	}
	return n
}

// cacheKey rounds to 5 decimals (about a metre).
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// Reverse looks up the place at lat/lon. Failures are logged and yield nil.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) *profile.Place {
	key := cacheKey(lat, lon)
	if p, ok := n.cache.GetIfPresent(key); ok {
		n.logger.Debug("geocode cache hit", "coords", key)
		return p
	}

	p, err := n.lookup(ctx, lat, lon)
	if err != nil {
		n.logger.Warn("reverse geocoding failed", "coords", key, "error", err)
		return nil
	}
	n.cache.Set(key, p)
	return p
}

func (n *Nominatim) lookup(ctx context.Context, lat, lon float64) (*profile.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("accept-language", "en")
	reqURL := n.endpoint + "/reverse?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // error irrelevant after read

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if msg, ok := raw["error"].(string); ok {
		return nil, fmt.Errorf("geocoder error: %s", msg)
	}
	address, _ := raw["display_name"].(string)
	return &profile.Place{Address: address, Raw: raw}, nil
}
