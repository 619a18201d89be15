package analyzer

import (
	"net/url"
	"strings"

	"github.com/seo-optimizer/insights/errs"
)

const (
	msgURLRequired = "Website URL is required"
	msgURLInvalid  = "Invalid URL format. Please enter a valid website address (e.g., https://example.com)."
	msgURLScheme   = "Only http and https URLs are supported."
)

// Target is a normalized website address.
type Target struct {
	// URL is the address sent upstream: trimmed, scheme made explicit.
	URL string
	// Key is the lower-cased URL used as the cache key.
	Key string
}

// NormalizeURL trims raw, prepends "https://" when no scheme is present and
// validates the result. Normalizing a normalized URL returns it unchanged.
func NormalizeURL(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, errs.Invalid(msgURLRequired)
	}

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(lower, "://") {
			return Target{}, errs.Invalid(msgURLScheme)
		}
		s = "https://" + s
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return Target{}, &errs.AppError{Kind: errs.InvalidInput, Message: msgURLInvalid, Cause: err}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return Target{}, errs.Invalid(msgURLScheme)
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, " \t") {
		return Target{}, errs.Invalid(msgURLInvalid)
	}

	return Target{URL: s, Key: strings.ToLower(s)}, nil
}
