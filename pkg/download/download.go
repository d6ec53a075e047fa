// Package download saves post images to disk.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/codeGROOVE-dev/instaprobe/pkg/httpcache"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Path returns <dir>/<username>_<shortcode>.jpg, using the 1-based index when
// the shortcode is empty.
func Path(dir, username, shortcode string, index int) string {
	suffix := shortcode
	if suffix == "" {
		suffix = strconv.Itoa(index)
	}
	name := unsafeChars.ReplaceAllString(username+"_"+suffix, "_") + ".jpg"
	return filepath.Join(dir, name)
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create images directory: %w", err)
	}
	return nil
}

// Fetch returns the bytes at imageURL.
func Fetch(ctx context.Context, client *httpcache.Client, imageURL string) ([]byte, error) {
	resp, err := client.Get(ctx, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	return resp.Body, nil
}

// Save writes data to dest atomically.
func Save(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // removed after rename; best effort otherwise

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename image: %w", err)
	}
	return nil
}

// Image fetches imageURL and saves it to dest, returning the bytes.
func Image(ctx context.Context, client *httpcache.Client, imageURL, dest string) ([]byte, error) {
	data, err := Fetch(ctx, client, imageURL)
	if err != nil {
		return nil, err
	}
	if err := Save(dest, data); err != nil {
		return nil, err
	}
	return data, nil
}
