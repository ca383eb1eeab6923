package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// NormalizeSubdomain trims whitespace, lowercases the value, and ensures it is a
// DNS-label-safe tenant subdomain.
func NormalizeSubdomain(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("subdomain is required")
	}

	normalized := strings.ToLower(trimmed)
	if !subdomainPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid subdomain %q: must be 2-63 lowercase letters, digits or hyphens", input)
	}

	return normalized, nil
}
