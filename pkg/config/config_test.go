package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/instaprobe/pkg/geocode"
	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
)

func TestDefaults(t *testing.T) {
	cfg, err := Resolve(New())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := &Config{
		ImagesDir: "insta_images",
		UserAgent: httpcache.UserAgent,
		MaxPosts:  12,
		Delay:     500 * time.Millisecond,
		Timeout:   15 * time.Second,
		Retries:   3,
		Cache:     Cache{Enabled: true, TTL: time.Hour, Dir: DefaultCacheDir()},
		Geocode: Geocode{
			Provider:  geocode.ProviderNominatim,
			Endpoint:  geocode.DefaultEndpoint,
			UserAgent: geocode.DefaultUserAgent,
			Timeout:   10 * time.Second,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `images_dir: /tmp/pics
max_posts: 99
delay: 2s
cache:
  enabled: false
geocode:
  provider: none
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INSTAPROBE_DELAY", "750ms")
	t.Setenv("INSTAPROBE_GEOCODE_TIMEOUT", "3s")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ImagesDir != "/tmp/pics" {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.MaxPosts != 50 {
		t.Errorf("MaxPosts = %d, want clamped 50", cfg.MaxPosts)
	}
	if cfg.Delay != 750*time.Millisecond {
		t.Errorf("Delay = %v, env should override file", cfg.Delay)
	}
	if cfg.Geocode.Timeout != 3*time.Second || cfg.Geocode.Provider != geocode.ProviderNone {
		t.Errorf("Geocode = %+v", cfg.Geocode)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false from file")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load accepted a missing explicit config file")
	}
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{KeyRetries, -1},
		{KeyDelay, "-1s"},
		{KeyTimeout, "0s"},
		{KeyCacheTTL, "0s"},
		{KeyImagesDir, ""},
		{KeyGeocodeProvider, "google"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := New()
			v.Set(tt.key, tt.value)
			if _, err := Resolve(v); !errors.Is(err, ErrInvalid) {
				t.Errorf("Resolve with %s=%v: err = %v, want ErrInvalid", tt.key, tt.value, err)
			}
		})
	}
}

func TestGeocodeConfig(t *testing.T) {
	g := Geocode{Provider: "nominatim", Endpoint: "http://geo", UserAgent: "ua", Timeout: time.Second}
	want := geocode.Config{Provider: "nominatim", Endpoint: "http://geo", UserAgent: "ua", Timeout: time.Second}
	if diff := cmp.Diff(want, g.GeocodeConfig()); diff != "" {
		t.Errorf("GeocodeConfig mismatch (-want +got):\n%s", diff)
	}
}
