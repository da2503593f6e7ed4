// Package scan orchestrates probes against a target domain and assembles
// the final report.
package scan

import (
	"net/url"
	"strings"
)

// ResolveTarget normalizes user input into a canonical hostname. It accepts
// a bare domain, a URL with scheme/path/port, or an email address, and
// returns the lowercased host. Invalid input yields *InvalidTargetError.
//
//	user@example.com          -> example.com
//	https://Example.com/a?q=1 -> example.com
//	example.com:8080          -> example.com
func ResolveTarget(raw string) (string, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return "", &InvalidTargetError{Input: raw, Reason: "empty target"}
	}

	// Email address: keep the domain part.
	if at := strings.LastIndex(input, "@"); at >= 0 {
		input = input[at+1:]
	}

	parsed, err := url.Parse(input)
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") {
		parsed, err = url.Parse("http://" + input)
		if err != nil {
			return "", &InvalidTargetError{Input: raw, Reason: "unparseable target"}
		}
	}

	host := parsed.Hostname()
	if host == "" {
		// Manual fallback for inputs url.Parse cannot place a host in.
		host = strings.TrimPrefix(strings.TrimPrefix(input, "http://"), "https://")
		host = strings.Split(host, "/")[0]
		host = strings.Split(host, ":")[0]
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if !validHostname(host) {
		return "", &InvalidTargetError{Input: raw, Reason: "not a valid hostname"}
	}
	return host, nil
}

// validHostname performs a light syntactic check: non-empty dot-separated
// labels of letters, digits, and hyphens.
func validHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z':
			case r >= '0' && r <= '9':
			case r == '-':
			default:
				return false
			}
		}
	}
	return true
}
