// Package analyze runs a full profile analysis: fetch, extraction,
// normalization and per-post enrichment.
//
// Basic usage:
//
//	p, err := analyze.Run(ctx, "someone",
//	    analyze.WithDownloadImages("insta_images"),
//	    analyze.WithEXIFGeolocate(),
//	    analyze.WithJSONOut("someone.json"))
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/codeGROOVE-dev/instaprobe/pkg/download"
	"github.com/codeGROOVE-dev/instaprobe/pkg/entities"
	"github.com/codeGROOVE-dev/instaprobe/pkg/exifmeta"
	"github.com/codeGROOVE-dev/instaprobe/pkg/geocode"
	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
	"github.com/codeGROOVE-dev/instaprobe/pkg/instagram"
	"github.com/codeGROOVE-dev/instaprobe/pkg/normalize"
	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
	"github.com/codeGROOVE-dev/instaprobe/pkg/report"
)

// DefaultPoliteDelay is the pause between per-post network operations.
const DefaultPoliteDelay = 500 * time.Millisecond

// Option configures a Run call.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	http        *httpcache.Client
	geocoder    geocode.Geocoder
	igOpts      []instagram.Option
	imagesDir   string
	jsonOut     string
	maxPosts    int
	delay       time.Duration
	download    bool
	exif        bool
	apiFallback bool
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithHTTPClient sets the shared HTTP session.
func WithHTTPClient(client *httpcache.Client) Option {
	return func(c *config) { c.http = client }
}

// WithGeocoder sets the reverse geocoder used for GPS-tagged images.
func WithGeocoder(g geocode.Geocoder) Option {
	return func(c *config) { c.geocoder = g }
}

// WithMaxPosts caps the number of posts (see normalize.ClampMaxPosts).
func WithMaxPosts(n int) Option {
	return func(c *config) { c.maxPosts = n }
}

// WithDownloadImages saves post images under dir.
func WithDownloadImages(dir string) Option {
	return func(c *config) {
		c.download = true
		c.imagesDir = dir
	}
}

// WithEXIFGeolocate reads EXIF from post images and reverse geocodes GPS tags.
func WithEXIFGeolocate() Option {
	return func(c *config) { c.exif = true }
}

// WithJSONOut writes the resulting profile to path.
func WithJSONOut(path string) Option {
	return func(c *config) { c.jsonOut = path }
}

// WithPoliteDelay sets the pause between per-post network operations.
// Zero or negative disables it.
func WithPoliteDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// WithAPIFallback tries the anonymous profile API when page extraction fails.
func WithAPIFallback() Option {
	return func(c *config) { c.apiFallback = true }
}

// WithInstagramOptions passes extra options to the Instagram client.
func WithInstagramOptions(opts ...instagram.Option) Option {
	return func(c *config) { c.igOpts = append(c.igOpts, opts...) }
}

// Run analyzes the profile of username. It fails only when the page cannot be
// fetched or no profile record can be extracted; per-post enrichment failures
// are logged and leave the affected fields unset or null.
func Run(ctx context.Context, username string, opts ...Option) (*profile.Profile, error) {
	cfg := &config{
		logger:    slog.Default(),
		maxPosts:  normalize.DefaultMaxPosts,
		delay:     DefaultPoliteDelay,
		imagesDir: "insta_images",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.http == nil {
		cfg.http = httpcache.NewClient(httpcache.WithLogger(cfg.logger))
	}
	if cfg.geocoder == nil {
		cfg.geocoder = geocode.Nop{}
	}

	username, err := instagram.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	igOpts := append([]instagram.Option{
		instagram.WithHTTPClient(cfg.http),
		instagram.WithLogger(cfg.logger),
		instagram.WithAPIFallback(cfg.apiFallback),
	}, cfg.igOpts...)
	ig, err := instagram.New(ctx, igOpts...)
	if err != nil {
		return nil, fmt.Errorf("create instagram client: %w", err)
	}

	p, err := ig.FetchProfile(ctx, username, cfg.maxPosts)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", username, err)
	}
	p.FetchedAt = time.Now().UTC()
	p.BioEntities = entities.Extract(p.Bio)

	e := &enricher{cfg: cfg, username: username, limiter: newLimiter(cfg.delay)}
	if err := e.posts(ctx, p.RecentPosts); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", username, err)
	}

	if cfg.jsonOut != "" {
		if err := report.WriteFile(cfg.jsonOut, report.JSON{}, p); err != nil {
			cfg.logger.Warn("failed to write JSON output", "path", cfg.jsonOut, "error", err)
		} else {
			cfg.logger.Info("saved profile JSON", "path", cfg.jsonOut)
		}
	}
	return p, nil
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// enricher adds per-post entities, downloads, EXIF and places.
type enricher struct {
	cfg      *config
	limiter  *rate.Limiter
	username string
	dirErr   error
	dirReady bool
}

func (e *enricher) posts(ctx context.Context, posts []*profile.Post) error {
	for i, post := range posts {
		post.CaptionEntities = entities.Extract(post.Caption)
		if post.ImageURL == nil {
			continue
		}

		var data []byte
		if e.cfg.download {
			data = e.download(ctx, post, i+1)
			if err := e.pause(ctx); err != nil {
				return err
			}
		}
		if e.cfg.exif {
			if data == nil {
				var err error
				data, err = download.Fetch(ctx, e.cfg.http, *post.ImageURL)
				if err != nil {
					e.cfg.logger.Warn("failed to fetch image for EXIF", "shortcode", post.Shortcode, "url", *post.ImageURL, "error", err)
					post.EXIF = exifmeta.Metadata{}
				}
				if err := e.pause(ctx); err != nil {
					return err
				}
			}
			if data != nil {
				e.geolocate(ctx, post, data)
			}
		}
	}
	return nil
}

// download saves the post image and records the outcome in DownloadedTo.
func (e *enricher) download(ctx context.Context, post *profile.Post, index int) []byte {
	if !e.dirReady {
		e.dirReady = true
		e.dirErr = download.EnsureDir(e.cfg.imagesDir)
		if e.dirErr != nil {
			e.cfg.logger.Warn("cannot create images directory", "dir", e.cfg.imagesDir, "error", e.dirErr)
		}
	}
	if e.dirErr != nil {
		post.DownloadedTo = profile.None[string]()
		return nil
	}

	dest := download.Path(e.cfg.imagesDir, e.username, post.Shortcode, index)
	data, err := download.Image(ctx, e.cfg.http, *post.ImageURL, dest)
	if err != nil {
		e.cfg.logger.Warn("failed to download image", "shortcode", post.Shortcode, "url", *post.ImageURL, "error", err)
		post.DownloadedTo = profile.None[string]()
		return nil
	}
	e.cfg.logger.Debug("saved image", "shortcode", post.Shortcode, "path", dest)
	post.DownloadedTo = profile.Some(dest)
	return data
}

func (e *enricher) geolocate(ctx context.Context, post *profile.Post, data []byte) {
	md := exifmeta.NewReader(e.cfg.logger).Read(data)
	post.EXIF = md
	c, ok := md.LatLon()
	if !ok {
		return
	}
	post.GPS = &c
	if place := e.cfg.geocoder.Reverse(ctx, c.Lat, c.Lon); place != nil {
		post.ReverseGeocode = profile.Some(*place)
	} else {
		post.ReverseGeocode = profile.None[profile.Place]()
	}
}

func (e *enricher) pause(ctx context.Context) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("polite delay: %w", err)
	}
	return nil
}
