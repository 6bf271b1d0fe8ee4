package shared

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Longest profile description printed in full
const MaxDescriptionLen = 256

func GetHostName(rawUrl string) (string, error) {
	var parsedUrl *url.URL
	var urlError error
	parsedUrl, urlError = url.Parse(rawUrl)
	if urlError != nil {
		return "", fmt.Errorf("Failed to parse URL '%s': %v", rawUrl, urlError)
	}
	if parsedUrl.Host == "" {
		return "", fmt.Errorf("URL has no host: '%s'", rawUrl)
	}
	return parsedUrl.Hostname(), nil
}

// HostMatchesDomains reports whether host contains any of the domain suffixes.
// Containment rather than suffix match mirrors how the image CDNs are addressed (wx1.sinaimg.cn etc.).
func HostMatchesDomains(host string, domains []string) bool {
	host = strings.ToLower(host)
	for _, domain := range domains {
		if domain != "" && strings.Contains(host, domain) {
			return true
		}
	}
	return false
}

// TruncateWithEllipsis cuts text to at most maxLen runes, backing up to the last space if there is one.
func TruncateWithEllipsis(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	lastSpaceIx := -1
	count := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			lastSpaceIx = i
		}
		if count == maxLen {
			if lastSpaceIx < 0 {
				lastSpaceIx = i
			}
			return text[:lastSpaceIx] + "…"
		}
		count++
	}
	// If here, string is shorter or equal to maxLen
	return text
}
