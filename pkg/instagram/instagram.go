// Package instagram fetches public Instagram profile pages and turns them into
// canonical profiles.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/instaprobe/pkg/htmlutil"
	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
	"github.com/codeGROOVE-dev/instaprobe/pkg/jsontree"
	"github.com/codeGROOVE-dev/instaprobe/pkg/locator"
	"github.com/codeGROOVE-dev/instaprobe/pkg/normalize"
	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Default endpoints.
const (
	DefaultBaseURL = "https://www.instagram.com"
	DefaultAPIURL  = "https://i.instagram.com/api/v1/users/web_profile_info/"

	// SourceAPI marks profiles built from the anonymous profile API.
	SourceAPI = "web_profile_info"

	appID = "936619743392459"
)

// ErrInvalidUsername is returned for input that names no profile.
var ErrInvalidUsername = errors.New("invalid instagram username")

var (
	usernamePattern = regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9_.]+)`)
	handlePattern   = regexp.MustCompile(`^[A-Za-z0-9_.]{1,30}$`)
)

// Non-profile first path segments.
var systemPaths = map[string]bool{
	"p": true, "reel": true, "reels": true, "stories": true,
	"explore": true, "direct": true, "accounts": true,
	"about": true, "legal": true, "privacy": true,
	"terms": true, "api": true, "developer": true, "tv": true,
}

func extractUsername(urlStr string) string {
	matches := usernamePattern.FindStringSubmatch(urlStr)
	if len(matches) < 2 {
		return ""
	}
	username := matches[1]
	if systemPaths[strings.ToLower(username)] {
		return ""
	}
	return username
}

// NormalizeUsername reduces "@handle", a profile URL or a bare handle to the
// username.
func NormalizeUsername(input string) (string, error) {
	s := strings.TrimSpace(input)
	if strings.Contains(strings.ToLower(s), "instagram.com/") {
		s = extractUsername(s)
	} else {
		s = strings.TrimPrefix(s, "@")
	}
	if !handlePattern.MatchString(s) || systemPaths[strings.ToLower(s)] {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, input)
	}
	return s, nil
}

// Client fetches Instagram profiles.
type Client struct {
	http        *httpcache.Client
	logger      *slog.Logger
	baseURL     string
	apiURL      string
	apiFallback bool
}

// Option configures a Client.
type Option func(*config)

type config struct {
	http        *httpcache.Client
	logger      *slog.Logger
	baseURL     string
	apiURL      string
	apiFallback bool
}

// WithHTTPClient sets the shared HTTP session.
func WithHTTPClient(c *httpcache.Client) Option {
	return func(cfg *config) { cfg.http = c }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the profile page host.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithAPIURL overrides the anonymous profile API endpoint.
func WithAPIURL(u string) Option {
	return func(c *config) { c.apiURL = u }
}

// WithAPIFallback enables the anonymous API when page extraction fails.
func WithAPIFallback(enabled bool) Option {
	return func(c *config) { c.apiFallback = enabled }
}

// New creates an Instagram client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{
		logger:  slog.Default(),
		baseURL: DefaultBaseURL,
		apiURL:  DefaultAPIURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.http == nil {
		cfg.http = httpcache.NewClient(httpcache.WithLogger(cfg.logger))
	}

	return &Client{
		http:        cfg.http,
		logger:      cfg.logger,
		baseURL:     cfg.baseURL,
		apiURL:      cfg.apiURL,
		apiFallback: cfg.apiFallback,
	}, nil
}

// ProfileURL returns the public page URL for username.
func (c *Client) ProfileURL(username string) string {
	return c.baseURL + "/" + url.PathEscape(username) + "/"
}

// FetchPage retrieves the profile page. A 404 maps to profile.ErrProfileNotFound
// and any other failure to profile.ErrFetchFailed.
func (c *Client) FetchPage(ctx context.Context, username string) (*httpcache.Response, error) {
	pageURL := c.ProfileURL(username)
	c.logger.InfoContext(ctx, "fetching instagram profile", "url", pageURL, "username", username)

	resp, err := c.http.GetCached(ctx, pageURL, nil, func(r *httpcache.Response) bool {
		return !htmlutil.IsLoginWall(r.URL)
	})
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
		}
		return nil, fmt.Errorf("%w: %w", profile.ErrFetchFailed, err)
	}
	return resp, nil
}

// FetchProfile fetches and normalizes a profile. Posts are capped at maxPosts
// (see normalize.ClampMaxPosts).
func (c *Client) FetchProfile(ctx context.Context, username string, maxPosts int) (*profile.Profile, error) {
	resp, err := c.FetchPage(ctx, username)
	if err != nil {
		return nil, err
	}

	user, source, err := c.locate(resp, username)
	if err != nil {
		if !c.apiFallback || errors.Is(err, profile.ErrProfileNotFound) {
			return nil, err
		}
		c.logger.InfoContext(ctx, "page extraction failed, trying profile API", "username", username, "error", err)
		user, err = c.fetchAPIUser(ctx, username)
		if err != nil {
			return nil, err
		}
		source = SourceAPI
	}

	p := normalize.Normalize(user, normalize.Options{MaxPosts: maxPosts})
	p.Source = source
	c.logger.Debug("parsed instagram profile",
		"username", p.Username,
		"source", source,
		"followers", p.Followers,
		"posts", len(p.RecentPosts),
	)
	return p, nil
}

func (c *Client) locate(resp *httpcache.Response, username string) (*jsontree.Node, string, error) {
	if htmlutil.IsLoginWall(resp.URL) {
		return nil, "", fmt.Errorf("%w: redirected to login wall (%s)", profile.ErrFetchFailed, resp.URL)
	}
	res, err := locator.New(locator.WithLogger(c.logger)).Locate(resp.Body)
	if err == nil {
		return res.User, string(res.Strategy), nil
	}
	// A located record wins over the title, which is user-controlled.
	if page, perr := htmlutil.Parse(resp.Body); perr == nil && htmlutil.IsNotFound(page.Title()) {
		return nil, "", fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
	}
	return nil, "", fmt.Errorf("extract profile %s: %w", username, err)
}

// fetchAPIUser returns data.user from the anonymous profile API.
func (c *Client) fetchAPIUser(ctx context.Context, username string) (*jsontree.Node, error) {
	apiURL := c.apiURL + "?username=" + url.QueryEscape(username)
	resp, err := c.http.Get(ctx, apiURL, http.Header{"X-Ig-App-Id": {appID}})
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
		}
		return nil, fmt.Errorf("%w: profile API: %w", profile.ErrFetchFailed, err)
	}

	root, err := jsontree.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: profile API response: %w", profile.ErrExtractionFailed, err)
	}
	user := root.At("data", "user")
	if !user.IsObject() {
		return nil, fmt.Errorf("%w: profile API returned no user", profile.ErrExtractionFailed)
	}
	return user, nil
}
