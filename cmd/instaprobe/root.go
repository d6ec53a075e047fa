package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codeGROOVE-dev/instaprobe/pkg/analyze"
	"github.com/codeGROOVE-dev/instaprobe/pkg/config"
	"github.com/codeGROOVE-dev/instaprobe/pkg/geocode"
	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
	"github.com/codeGROOVE-dev/instaprobe/pkg/instagram"
	"github.com/codeGROOVE-dev/instaprobe/pkg/report"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries a process exit code through cobra.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error   { return &exitError{err: err, code: exitUsage} }
func failureError(err error) error { return &exitError{err: err, code: exitFailure} }

type options struct {
	configFile     string
	jsonOut        string
	markdownOut    string
	yamlOut        string
	baseURL        string
	verbose        bool
	downloadImages bool
	exifGeolocate  bool
	noCache        bool
	apiFallback    bool
	noColor        bool
}

// run executes the command line and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err) //nolint:errcheck // nothing to do if stderr fails
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage // flag and argument errors from cobra
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	v := config.New()

	cmd := &cobra.Command{
		Use:   "instaprobe [username]",
		Short: "Collect public metadata from an Instagram profile",
		Long: `instaprobe fetches a public Instagram profile page, extracts the embedded
profile record and reports the profile, its recent posts and contact signals
found in the bio and captions. Optionally it saves post images and reads
their EXIF GPS tags.

The username may be a bare handle, an @handle or a profile URL. When it is
omitted you are prompted for it.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), v, opts, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&opts.downloadImages, "download-images", false, "save post images")
	f.String("images-dir", "insta_images", "target directory for saved images")
	f.BoolVar(&opts.exifGeolocate, "exif-geolocate", false, "read EXIF from post images and reverse geocode GPS tags")
	f.StringVar(&opts.jsonOut, "json-out", "", "write the profile as JSON to this file")
	f.Int("max-posts", 12, "number of recent posts to analyze (1-50)")
	f.StringVar(&opts.markdownOut, "markdown-out", "", "write a markdown report to this file")
	f.StringVar(&opts.yamlOut, "yaml-out", "", "write a YAML report to this file")
	f.Duration("delay", analyze.DefaultPoliteDelay, "pause between per-post requests")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the on-disk page cache")
	f.Duration("cache-ttl", time.Hour, "page cache time-to-live")
	f.BoolVar(&opts.apiFallback, "api-fallback", false, "try the anonymous profile API when page extraction fails")
	f.BoolVar(&opts.noColor, "no-color", false, "disable coloured output")
	f.StringVar(&opts.configFile, "config", "", "config file (default "+config.DefaultConfigFile()+")")
	f.StringVar(&opts.baseURL, "base-url", instagram.DefaultBaseURL, "Instagram base URL")
	_ = f.MarkHidden("base-url") //nolint:errcheck // flag exists

	_ = v.BindPFlag(config.KeyImagesDir, f.Lookup("images-dir")) //nolint:errcheck // flag exists
	_ = v.BindPFlag(config.KeyMaxPosts, f.Lookup("max-posts"))   //nolint:errcheck // flag exists
	_ = v.BindPFlag(config.KeyDelay, f.Lookup("delay"))          //nolint:errcheck // flag exists
	_ = v.BindPFlag(config.KeyCacheTTL, f.Lookup("cache-ttl"))   //nolint:errcheck // flag exists
	return cmd
}

func execute(ctx context.Context, v *viper.Viper, opts *options, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	if opts.noCache {
		v.Set(config.KeyCacheEnabled, false)
	}
	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return usageError(err)
	}

	input := ""
	if len(args) > 0 {
		input = args[0]
	} else {
		var ok bool
		input, ok = prompt(ctx, stdin, stdout)
		if !ok {
			fmt.Fprintln(stdout, "\nExiting.") //nolint:errcheck // best effort
			return nil
		}
		if input == "" {
			fmt.Fprintln(stdout, "No username provided. Exiting.") //nolint:errcheck // best effort
			return nil
		}
	}
	username, err := instagram.NormalizeUsername(input)
	if err != nil {
		return usageError(err)
	}

	client, closeCache := newHTTPClient(cfg, logger)
	defer closeCache()

	runOpts := []analyze.Option{
		analyze.WithLogger(logger),
		analyze.WithHTTPClient(client),
		analyze.WithMaxPosts(cfg.MaxPosts),
		analyze.WithPoliteDelay(cfg.Delay),
		analyze.WithInstagramOptions(instagram.WithBaseURL(opts.baseURL)),
	}
	if opts.downloadImages {
		runOpts = append(runOpts, analyze.WithDownloadImages(cfg.ImagesDir))
	}
	if opts.exifGeolocate {
		gcfg := cfg.Geocode.GeocodeConfig()
		gcfg.HTTPClient = client.HTTPClient()
		runOpts = append(runOpts, analyze.WithEXIFGeolocate(), analyze.WithGeocoder(geocode.New(gcfg, logger)))
	}
	if opts.jsonOut != "" {
		runOpts = append(runOpts, analyze.WithJSONOut(opts.jsonOut))
	}
	if opts.apiFallback {
		runOpts = append(runOpts, analyze.WithAPIFallback())
	}

	p, err := analyze.Run(ctx, username, runOpts...)
	if err != nil {
		return failureError(fmt.Errorf("analysis failed or user not available: %w", err))
	}

	if err := (report.Console{NoColor: opts.noColor || color.NoColor}).Write(stdout, p); err != nil {
		return failureError(fmt.Errorf("print report: %w", err))
	}
	outputs := []struct {
		wr   report.Writer
		path string
	}{
		{report.Markdown{}, opts.markdownOut},
		{report.YAML{}, opts.yamlOut},
	}
	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := report.WriteFile(out.path, out.wr, p); err != nil {
			logger.Warn("failed to write report", "path", out.path, "error", err)
		} else {
			logger.Info("saved report", "path", out.path)
		}
	}
	st := client.Stats()
	logger.Debug("page cache", "hits", st.Hits, "misses", st.Misses)
	return nil
}

// newHTTPClient builds the shared session. A cache that cannot be opened is
// skipped with a warning.
func newHTTPClient(cfg *config.Config, logger *slog.Logger) (*httpcache.Client, func()) {
	opts := []httpcache.Option{
		httpcache.WithLogger(logger),
		httpcache.WithTimeout(cfg.Timeout),
		httpcache.WithRetries(cfg.Retries),
		httpcache.WithUserAgent(cfg.UserAgent),
	}
	closeCache := func() {}
	if cfg.Cache.Enabled {
		cache, err := httpcache.NewWithPath(cfg.Cache.TTL, cfg.Cache.Dir)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			logger.Debug("HTTP cache initialized", "dir", cfg.Cache.Dir, "ttl", cfg.Cache.TTL.String())
			opts = append(opts, httpcache.WithCache(cache))
			closeCache = func() {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}
		}
	}
	return httpcache.NewClient(opts...), closeCache
}
