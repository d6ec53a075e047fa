// Package entities extracts contact and entity signals from free text.
package entities

import (
	"regexp"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/codeGROOVE-dev/instaprobe/pkg/profile"
)

// The phone pattern is loose on purpose: over-matching digit runs is
// acceptable for a signal.
var (
	emailPattern   = regexp.MustCompile(`(?i)[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?(?:\(?\d{2,4}\)?[-.\s]?)?\d{3,4}[-.\s]?\d{3,4}`)
	urlPattern     = regexp.MustCompile(`https?://[^\s)>\]]+`)
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{M}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._]+)`)
)

// Extract returns the emails, phone numbers, URLs, hashtags and mentions in
// text. Hashtags and mentions are returned without their '#'/'@' prefix.
// Every list is sorted, deduplicated and non-nil.
func Extract(text string) profile.EntitySet {
	if text == "" {
		return empty()
	}
	text = norm.NFC.String(text)

	return profile.EntitySet{
		Emails:   uniqueSorted(emailPattern.FindAllString(text, -1)),
		Phones:   uniqueSorted(phonePattern.FindAllString(text, -1)),
		URLs:     uniqueSorted(urlPattern.FindAllString(text, -1)),
		Hashtags: uniqueSorted(submatches(hashtagPattern, text)),
		Mentions: uniqueSorted(submatches(mentionPattern, text)),
	}
}

func empty() profile.EntitySet {
	return profile.EntitySet{
		Emails:   []string{},
		Phones:   []string{},
		URLs:     []string{},
		Hashtags: []string{},
		Mentions: []string{},
	}
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	out = append(out, in...)
	slices.Sort(out)
	return slices.Compact(out)
}
