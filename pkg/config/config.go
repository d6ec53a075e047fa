// Package config loads instaprobe settings from defaults, a YAML file,
// INSTAPROBE_* environment variables and command-line flags, in increasing
// priority.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/codeGROOVE-dev/instaprobe/pkg/geocode"
	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
	"github.com/codeGROOVE-dev/instaprobe/pkg/normalize"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "INSTAPROBE"

// Keys.
const (
	KeyImagesDir        = "images_dir"
	KeyMaxPosts         = "max_posts"
	KeyDelay            = "delay"
	KeyTimeout          = "timeout"
	KeyRetries          = "retries"
	KeyUserAgent        = "user_agent"
	KeyCacheEnabled     = "cache.enabled"
	KeyCacheTTL         = "cache.ttl"
	KeyCacheDir         = "cache.dir"
	KeyGeocodeProvider  = "geocode.provider"
	KeyGeocodeEndpoint  = "geocode.endpoint"
	KeyGeocodeTimeout   = "geocode.timeout"
	KeyGeocodeUserAgent = "geocode.user_agent"
)

// ErrInvalid marks a configuration value that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved configuration.
type Config struct {
	ImagesDir string
	UserAgent string
	Cache     Cache
	Geocode   Geocode
	MaxPosts  int
	Delay     time.Duration
	Timeout   time.Duration
	Retries   uint
}

// Cache configures the on-disk page cache.
type Cache struct {
	Dir     string
	TTL     time.Duration
	Enabled bool
}

// Geocode configures reverse geocoding.
type Geocode struct {
	Provider  string
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// GeocodeConfig converts the settings for geocode.New.
func (g Geocode) GeocodeConfig() geocode.Config {
	return geocode.Config{
		Provider:  g.Provider,
		Endpoint:  g.Endpoint,
		UserAgent: g.UserAgent,
		Timeout:   g.Timeout,
	}
}

// DefaultConfigFile is $XDG_CONFIG_HOME/instaprobe/config.yaml.
func DefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "instaprobe", "config.yaml")
}

// DefaultCacheDir is $XDG_CACHE_HOME/instaprobe.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, "instaprobe")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyImagesDir, "insta_images")
	v.SetDefault(KeyMaxPosts, normalize.DefaultMaxPosts)
	v.SetDefault(KeyDelay, 500*time.Millisecond)
	v.SetDefault(KeyTimeout, httpcache.DefaultTimeout)
	v.SetDefault(KeyRetries, httpcache.DefaultRetries)
	v.SetDefault(KeyUserAgent, httpcache.UserAgent)
	v.SetDefault(KeyCacheEnabled, true)
	v.SetDefault(KeyCacheTTL, time.Hour)
	v.SetDefault(KeyCacheDir, DefaultCacheDir())
	v.SetDefault(KeyGeocodeProvider, geocode.ProviderNominatim)
	v.SetDefault(KeyGeocodeEndpoint, geocode.DefaultEndpoint)
	v.SetDefault(KeyGeocodeTimeout, geocode.DefaultTimeout)
	v.SetDefault(KeyGeocodeUserAgent, geocode.DefaultUserAgent)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v and resolves the configuration. An explicit file
// must exist; when file is empty the default location is used if present.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.AddConfigPath(filepath.Dir(DefaultConfigFile()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return Resolve(v)
}

// Resolve builds a Config from v and validates it.
func Resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ImagesDir: v.GetString(KeyImagesDir),
		UserAgent: v.GetString(KeyUserAgent),
		MaxPosts:  v.GetInt(KeyMaxPosts),
		Delay:     v.GetDuration(KeyDelay),
		Timeout:   v.GetDuration(KeyTimeout),
		Cache: Cache{
			Enabled: v.GetBool(KeyCacheEnabled),
			TTL:     v.GetDuration(KeyCacheTTL),
			Dir:     v.GetString(KeyCacheDir),
		},
		Geocode: Geocode{
			Provider:  strings.ToLower(v.GetString(KeyGeocodeProvider)),
			Endpoint:  v.GetString(KeyGeocodeEndpoint),
			UserAgent: v.GetString(KeyGeocodeUserAgent),
			Timeout:   v.GetDuration(KeyGeocodeTimeout),
		},
	}

	retries := v.GetInt(KeyRetries)
	switch {
	case retries < 0:
		return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyRetries)
	case cfg.Delay < 0:
		return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyDelay)
	case cfg.Timeout <= 0:
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyTimeout)
	case cfg.Cache.Enabled && cfg.Cache.TTL <= 0:
		return nil, fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyCacheTTL)
	case cfg.ImagesDir == "":
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalid, KeyImagesDir)
	}
	switch cfg.Geocode.Provider {
	case geocode.ProviderNominatim, geocode.ProviderNone:
	default:
		return nil, fmt.Errorf("%w: unknown %s %q", ErrInvalid, KeyGeocodeProvider, cfg.Geocode.Provider)
	}
	cfg.Retries = uint(retries)
	cfg.MaxPosts = normalize.ClampMaxPosts(cfg.MaxPosts)
	return cfg, nil
}
