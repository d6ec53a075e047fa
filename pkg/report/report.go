// Package report renders profiles as console text, JSON, YAML and Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Writer renders a profile.
type Writer interface {
	Write(w io.Writer, p *profile.Profile) error
}

// WriteFile renders p into path, creating parent directories.
func WriteFile(path string, wr Writer, p *profile.Profile) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := wr.Write(f, p); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// JSON writes indented UTF-8 JSON without HTML escaping.
type JSON struct{}

// Write implements Writer.
func (JSON) Write(w io.Writer, p *profile.Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAML writes the profile as a YAML document.
type YAML struct{}

// Write implements Writer.
func (YAML) Write(w io.Writer, p *profile.Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush yaml: %w", err)
	}
	return nil
}

// formatEntities renders the non-empty entity lists on one line.
func formatEntities(e profile.EntitySet) string {
	if e.Empty() {
		return "none"
	}
	var parts []string
	add := func(name string, vs []string) {
		if len(vs) > 0 {
			parts = append(parts, name+": "+strings.Join(vs, ", "))
		}
	}
	add("emails", e.Emails)
	add("phones", e.Phones)
	add("urls", e.URLs)
	add("hashtags", e.Hashtags)
	add("mentions", e.Mentions)
	return strings.Join(parts, "; ")
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
