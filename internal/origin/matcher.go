// Package origin decides whether a request origin satisfies a tenant's
// allowed-origin patterns. Matching is pure and safe under unlimited
// concurrency; malformed input never panics, it simply fails to match.
package origin

import (
	"net/url"
	"regexp"
	"strings"
)

const wildcardLabel = "[a-zA-Z0-9-]+"

// Normalize reduces a raw origin or URL to a lower-cased scheme+host string.
// Path, query, port-less trailing slashes and fragments are dropped. An empty
// or unparseable value normalizes to "".
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	return parsed.Scheme + "://" + parsed.Host
}

// Matches reports whether requestOrigin satisfies any of the allowed patterns.
// A pattern matches when one of:
//  1. it equals the normalized origin exactly;
//  2. it contains a single "*" label ("https://*.example.com") and the origin
//     hostname substitutes exactly one DNS label for the wildcard;
//  3. it has no wildcard and the origin hostname is a strict subdomain of the
//     pattern hostname ("https://a.example.com" for "https://example.com").
func Matches(requestOrigin string, allowed []string) bool {
	normalized := Normalize(requestOrigin)
	if normalized == "" {
		return false
	}

	for _, pattern := range allowed {
		if matchesPattern(normalized, pattern) {
			return true
		}
	}
	return false
}

func matchesPattern(normalizedOrigin, rawPattern string) bool {
	pattern := strings.TrimSpace(strings.ToLower(rawPattern))
	if pattern == "" {
		return false
	}

	if strings.Contains(pattern, "*") {
		return matchesWildcard(normalizedOrigin, pattern)
	}

	normalizedPattern := Normalize(pattern)
	if normalizedPattern == "" {
		return false
	}
	if normalizedOrigin == normalizedPattern {
		return true
	}
	return matchesImplicitSubdomain(normalizedOrigin, normalizedPattern)
}

func matchesWildcard(normalizedOrigin, pattern string) bool {
	if strings.Count(pattern, "*") != 1 {
		return false
	}

	// Anchored; "*" stands for exactly one DNS label.
	escaped := regexp.QuoteMeta(pattern)
	expr := "^" + strings.Replace(escaped, `\*`, wildcardLabel, 1) + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(normalizedOrigin)
}

func matchesImplicitSubdomain(normalizedOrigin, normalizedPattern string) bool {
	originURL, err := url.Parse(normalizedOrigin)
	if err != nil {
		return false
	}
	patternURL, err := url.Parse(normalizedPattern)
	if err != nil {
		return false
	}
	if originURL.Scheme != patternURL.Scheme {
		return false
	}

	originHost := originURL.Hostname()
	patternHost := patternURL.Hostname()
	if originHost == "" || patternHost == "" {
		return false
	}

	// Strict subdomain only; "acme.com.evil.com" must not match "acme.com".
	return strings.HasSuffix(originHost, "."+patternHost)
}
