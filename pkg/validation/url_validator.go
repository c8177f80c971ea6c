package validation

import (
	"net"
	"net/url"
	"strings"

	apperrors "go-trustshield/internal/errors"
)

// ValidateServiceURL checks the analysis service base address: an absolute
// http(s) URL with a host and no query or fragment.
func ValidateServiceURL(raw string) error {
	u, err := parseWebURL(raw)
	if err != nil {
		return err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return apperrors.NewValidationError("Service URL must not carry a query or fragment", nil)
	}
	return nil
}

// NormalizeTarget trims a user-typed scan target and prefixes https:// when no
// scheme was given. It does not reject anything; see ValidateTarget.
func NormalizeTarget(raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		return ""
	}
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	return target
}

// ValidateTarget normalizes a scan target and checks that it names a web host:
// a dotted domain, localhost, or an IP address.
func ValidateTarget(raw string) (string, error) {
	target := NormalizeTarget(raw)
	u, err := parseWebURL(target)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host != "localhost" && net.ParseIP(host) == nil && !isDottedHost(host) {
		err := apperrors.NewValidationError("Scan target is not a web address", nil)
		err.Details = host
		return "", err
	}
	return target, nil
}

func parseWebURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}
	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if u.Hostname() == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}
	return u, nil
}

// isDottedHost requires at least two non-empty labels
func isDottedHost(host string) bool {
	labels := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
