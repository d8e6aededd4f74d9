// Package links extracts and validates media URLs from chat messages.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Extract returns the first http or https URL found in text.
func Extract(text string) (string, bool) {
	match := urlPattern.FindString(text)
	if match == "" {
		return "", false
	}
	// Messages often end links with punctuation that is not part of the URL.
	match = strings.TrimRight(match, ").,!?")
	return match, true
}

// Canonicalize normalizes a raw URL for queueing and cache lookups: scheme and
// host are lowercased and the fragment is dropped. Query parameters are kept
// because several platforms address videos through them.
func Canonicalize(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed.String(), nil
}

// Allowed reports whether the URL's host belongs to one of the allowed
// domains. Hosts match when equal to a domain or when they are a subdomain of
// it, so www.youtube.com and m.youtube.com both match youtube.com while
// youtube.com.evil.example does not.
func Allowed(raw string, domains []string) bool {
	host := hostOf(raw)
	if host == "" {
		return false
	}
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// SourceHost returns the URL's host with any www. prefix removed, suitable for
// queue records and log fields. Returns "unknown" when the URL does not parse.
func SourceHost(raw string) string {
	host := strings.TrimPrefix(hostOf(raw), "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

func hostOf(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
