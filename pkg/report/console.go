package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// CaptionRunes is how much of a caption the console shows.
const CaptionRunes = 180

// Console prints a human-readable summary.
type Console struct {
	NoColor bool
}

type palette struct {
	heading, label, value *color.Color
}

func (c Console) palette() palette {
	p := palette{
		heading: color.New(color.FgCyan, color.Bold),
		label:   color.New(color.FgHiBlack),
		value:   color.New(color.Reset),
	}
	if c.NoColor {
		for _, col := range []*color.Color{p.heading, p.label, p.value} {
			col.DisableColor()
		}
	}
	return p
}

// Write implements Writer.
func (c Console) Write(w io.Writer, p *profile.Profile) error {
	if p == nil {
		_, err := fmt.Fprintln(w, "No profile data.")
		return err
	}
	pal := c.palette()
	cw := &consoleWriter{w: w, pal: pal}

	cw.heading("--------- PROFILE ---------")
	cw.field("", "Username", p.Username)
	cw.field("", "Full name", p.FullName)
	cw.field("", "Bio", p.Bio)
	cw.field("", "Followers", fmt.Sprintf("%d  Following: %d  Posts: %d", p.Followers, p.Following, p.Posts))
	cw.field("", "Profile pic", orNone(p.ProfilePicURL))
	cw.field("", "External", orNone(p.ExternalURL))
	if p.IsVerified || p.IsPrivate {
		cw.field("", "Flags", flags(p))
	}
	cw.field("", "Bio entities", formatEntities(p.BioEntities))
	cw.println("")
	cw.heading("Recent posts:")
	for _, post := range p.RecentPosts {
		cw.field("  - ", "shortcode", orNone(post.Shortcode))
		cw.field("    ", "type", string(post.Type))
		image := ""
		if post.ImageURL != nil {
			image = *post.ImageURL
		}
		cw.field("    ", "image", orNone(image))
		cw.field("    ", "caption", truncate(post.Caption, CaptionRunes))
		cw.field("    ", "caption_entities", formatEntities(post.CaptionEntities))
		if post.DownloadedTo != nil {
			if post.DownloadedTo.Valid() {
				cw.field("    ", "downloaded_to", *post.DownloadedTo.Value)
			} else {
				cw.field("    ", "downloaded_to", "failed")
			}
		}
		if post.GPS != nil {
			cw.field("    ", "gps", fmt.Sprintf("%.6f, %.6f", post.GPS.Lat, post.GPS.Lon))
			if post.ReverseGeocode.Valid() {
				cw.field("    ", "place", post.ReverseGeocode.Value.Address)
			}
		}
		cw.println("")
	}
	return cw.err
}

func flags(p *profile.Profile) string {
	switch {
	case p.IsVerified && p.IsPrivate:
		return "verified, private"
	case p.IsVerified:
		return "verified"
	default:
		return "private"
	}
}

// consoleWriter keeps the first write error.
type consoleWriter struct {
	w   io.Writer
	err error
	pal palette
}

func (cw *consoleWriter) println(s string) {
	if cw.err != nil {
		return
	}
	_, cw.err = fmt.Fprintln(cw.w, s)
}

func (cw *consoleWriter) heading(s string) {
	cw.println(cw.pal.heading.Sprint(s))
}

func (cw *consoleWriter) field(indent, label, value string) {
	cw.println(indent + cw.pal.label.Sprint(label+":") + " " + cw.pal.value.Sprint(value))
}
