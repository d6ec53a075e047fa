// Package htmlutil provides HTML queries used when scraping profile pages.
package htmlutil

import (
	"strings"
)

// notFoundPatterns are phrases Instagram and similar sites serve with a 200
// status when the profile does not exist.
var notFoundPatterns = []string{
	"page not found",
	"sorry, this page isn't available",
	"sorry, this page isn&#39;t available",
	"the link you followed may be broken",
	"user not found",
	"profile not found",
	"this account has been suspended",
	"account not found",
}

// IsNotFound detects soft "page not found" responses in a page title or text.
func IsNotFound(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range notFoundPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsLoginWall reports whether a final response URL is a login redirect.
func IsLoginWall(finalURL string) bool {
	lower := strings.ToLower(finalURL)
	return strings.Contains(lower, "/accounts/login") || strings.Contains(lower, "/challenge/")
}
