package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// Markdown writes a shareable report.
type Markdown struct{}

// Write implements Writer.
func (Markdown) Write(w io.Writer, p *profile.Profile) error {
	md := markdown.NewMarkdown(w)

	md.H1("Instagram profile: @" + p.Username)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Full name", cell(p.FullName)},
			{"Followers", strconv.FormatInt(p.Followers, 10)},
			{"Following", strconv.FormatInt(p.Following, 10)},
			{"Posts", strconv.FormatInt(p.Posts, 10)},
			{"Verified", strconv.FormatBool(p.IsVerified)},
			{"Private", strconv.FormatBool(p.IsPrivate)},
			{"External URL", cell(p.ExternalURL)},
			{"Profile picture", cell(p.ProfilePicURL)},
			{"Source", cell(p.Source)},
		},
	})
	md.PlainText("")

	md.H2("Bio")
	md.PlainText("")
	if p.Bio == "" {
		md.PlainText("_(empty)_")
	} else {
		md.PlainText(p.Bio)
	}
	md.PlainText("")
	writeEntities(md, p.BioEntities)

	md.H2("Recent posts")
	md.PlainText("")
	if len(p.RecentPosts) == 0 {
		md.PlainText("No posts found.")
		md.PlainText("")
	}
	for i, post := range p.RecentPosts {
		writePost(md, i+1, post)
	}

	if located := locatedPosts(p.RecentPosts); len(located) > 0 {
		md.H2("Locations")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Post", "Latitude", "Longitude", "Place"},
			Rows:   located,
		})
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("build markdown: %w", err)
	}
	return nil
}

func writePost(md *markdown.Markdown, index int, post *profile.Post) {
	title := post.Shortcode
	if title == "" {
		title = "post " + strconv.Itoa(index)
	}
	md.H3(fmt.Sprintf("%d. %s (%s)", index, title, post.Type))
	md.PlainText("")

	var items []string
	if post.ImageURL != nil {
		items = append(items, "Image: "+*post.ImageURL)
	}
	if post.DownloadedTo != nil {
		if post.DownloadedTo.Valid() {
			items = append(items, "Saved to: `"+*post.DownloadedTo.Value+"`")
		} else {
			items = append(items, "Saved to: download failed")
		}
	}
	if len(items) > 0 {
		md.BulletList(items...)
		md.PlainText("")
	}
	if post.Caption != "" {
		md.Blockquote(post.Caption)
		md.PlainText("")
	}
	writeEntities(md, post.CaptionEntities)
}

func writeEntities(md *markdown.Markdown, e profile.EntitySet) {
	if e.Empty() {
		return
	}
	var items []string
	add := func(name string, vs []string) {
		if len(vs) > 0 {
			items = append(items, name+": "+strings.Join(vs, ", "))
		}
	}
	add("Emails", e.Emails)
	add("Phones", e.Phones)
	add("URLs", e.URLs)
	add("Hashtags", e.Hashtags)
	add("Mentions", e.Mentions)
	md.BulletList(items...)
	md.PlainText("")
}

func locatedPosts(posts []*profile.Post) [][]string {
	var rows [][]string
	for i, post := range posts {
		if post.GPS == nil {
			continue
		}
		place := "unknown"
		if post.ReverseGeocode.Valid() {
			place = cell(post.ReverseGeocode.Value.Address)
		}
		name := post.Shortcode
		if name == "" {
			name = strconv.Itoa(i + 1)
		}
		rows = append(rows, []string{
			name,
			strconv.FormatFloat(post.GPS.Lat, 'f', 6, 64),
			strconv.FormatFloat(post.GPS.Lon, 'f', 6, 64),
			place,
		})
	}
	return rows
}

// cell keeps table cells on one line.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
