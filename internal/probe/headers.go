package probe

import (
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Header quality tiers. Each tier earns a fraction of the header's weight.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityFair      = "Fair"
	QualityPoor      = "Poor"
)

var qualityMultipliers = map[string]float64{
	QualityExcellent: 1.0,
	QualityGood:      0.8,
	QualityFair:      0.6,
	QualityPoor:      0.4,
}

// headerSpec defines one security header to check.
type headerSpec struct {
	name           string
	weight         int // 0 means informational only
	quality        func(value string) string
	recommendation string
}

// securityHeaderSpecs is the fixed header set. The six weighted headers sum
// to 80 points, normalized to a 0-100 score; the remaining headers are
// assessed for hardening advice but carry no weight.
var securityHeaderSpecs = []headerSpec{
	{
		name:           "Strict-Transport-Security",
		weight:         20,
		quality:        qualityHSTS,
		recommendation: `Add "Strict-Transport-Security: max-age=31536000; includeSubDomains; preload"`,
	},
	{
		name:           "Content-Security-Policy",
		weight:         20,
		quality:        qualityCSP,
		recommendation: "Implement a strict Content-Security-Policy appropriate for your application",
	},
	{
		name:           "X-Frame-Options",
		weight:         10,
		quality:        qualityXFrameOptions,
		recommendation: `Add "X-Frame-Options: DENY" or "SAMEORIGIN"`,
	},
	{
		name:           "X-Content-Type-Options",
		weight:         10,
		quality:        qualityXContentTypeOptions,
		recommendation: `Add "X-Content-Type-Options: nosniff"`,
	},
	{
		name:           "Referrer-Policy",
		weight:         10,
		quality:        qualityReferrerPolicy,
		recommendation: `Add "Referrer-Policy: strict-origin-when-cross-origin" or "no-referrer"`,
	},
	{
		name:           "Permissions-Policy",
		weight:         10,
		quality:        qualityPermissionsPolicy,
		recommendation: `Add a Permissions-Policy restricting browser features (e.g. "geolocation=(), microphone=()")`,
	},
	{
		name:           "Cross-Origin-Resource-Policy",
		weight:         0,
		quality:        qualitySameOriginValue,
		recommendation: `Add "Cross-Origin-Resource-Policy: same-origin"`,
	},
	{
		name:           "Cross-Origin-Opener-Policy",
		weight:         0,
		quality:        qualitySameOriginValue,
		recommendation: `Add "Cross-Origin-Opener-Policy: same-origin"`,
	},
	{
		name:           "Cross-Origin-Embedder-Policy",
		weight:         0,
		quality:        qualityCOEP,
		recommendation: `Add "Cross-Origin-Embedder-Policy: require-corp"`,
	},
	{
		name:           "X-XSS-Protection",
		weight:         0,
		quality:        qualityXXSSProtection,
		recommendation: "X-XSS-Protection is deprecated; prefer a strong Content-Security-Policy",
	},
}

// informationDisclosureHeaders expose server internals and should be removed.
var informationDisclosureHeaders = []string{
	"Server",
	"X-Powered-By",
	"X-AspNet-Version",
	"X-AspNetMvc-Version",
}

// HeaderStatus records the evaluation of one security header.
type HeaderStatus struct {
	Present        bool   `json:"present"`
	Value          string `json:"value,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Weight         int    `json:"weight"`
	Recommendation string `json:"recommendation,omitempty"`
}

// HeaderResult is the security-headers payload of the web probe.
type HeaderResult struct {
	Headers  map[string]HeaderStatus `json:"headers"`
	Missing  []string                `json:"missing"`
	Warnings []string                `json:"warnings,omitempty"`
	Score    int                     `json:"score"`
	Severity Severity                `json:"severity"`
	Error    string                  `json:"error,omitempty"`
}

// AnalyzeSecurityHeaders scores HTTP response headers against the weighted
// header set. Each present header earns its quality multiplier times its
// weight; the sum is normalized to 0-100.
func AnalyzeSecurityHeaders(headers http.Header) *HeaderResult {
	result := &HeaderResult{
		Headers: make(map[string]HeaderStatus, len(securityHeaderSpecs)),
		Missing: []string{},
	}

	earned := 0.0
	maxScore := 0
	for _, spec := range securityHeaderSpecs {
		maxScore += spec.weight

		value := headers.Get(spec.name)
		status := HeaderStatus{Weight: spec.weight}
		if value == "" {
			status.Recommendation = spec.recommendation
			if spec.weight > 0 {
				result.Missing = append(result.Missing, spec.name)
			}
		} else {
			status.Present = true
			status.Value = value
			status.Quality = spec.quality(value)
			earned += float64(spec.weight) * qualityMultipliers[status.Quality]
			if status.Quality == QualityPoor || status.Quality == QualityFair {
				status.Recommendation = spec.recommendation
			}
		}
		result.Headers[spec.name] = status
	}

	if maxScore > 0 {
		result.Score = int(math.Round(earned / float64(maxScore) * 100))
	}
	result.Severity = HeaderScoreSeverity(result.Score)

	checkDeprecatedHeaders(headers, result)
	checkInformationDisclosure(headers, result)
	return result
}

// HeaderScoreSeverity maps a 0-100 header score to a severity.
func HeaderScoreSeverity(score int) Severity {
	switch {
	case score >= 80:
		return SeverityLow
	case score >= 50:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

var hstsMaxAgePattern = regexp.MustCompile(`max-age=(\d+)`)

func qualityHSTS(value string) string {
	value = strings.ToLower(value)
	if strings.Contains(value, "max-age=31536000") && strings.Contains(value, "includesubdomains") {
		return QualityExcellent
	}
	if m := hstsMaxAgePattern.FindStringSubmatch(value); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age >= 15768000 {
			return QualityGood
		}
		return QualityFair
	}
	return QualityPoor
}

func qualityCSP(value string) string {
	value = strings.ToLower(value)
	if strings.Contains(value, "unsafe-inline") || strings.Contains(value, "unsafe-eval") {
		return QualityPoor
	}
	if strings.Contains(value, "default-src 'none'") || strings.Contains(value, "script-src 'self'") {
		return QualityExcellent
	}
	if strings.Contains(value, "default-src 'self'") {
		return QualityGood
	}
	return QualityFair
}

func qualityXFrameOptions(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DENY":
		return QualityExcellent
	case "SAMEORIGIN":
		return QualityGood
	default:
		return QualityFair
	}
}

func qualityXContentTypeOptions(value string) string {
	if strings.EqualFold(strings.TrimSpace(value), "nosniff") {
		return QualityExcellent
	}
	return QualityFair
}

func qualityReferrerPolicy(value string) string {
	value = strings.ToLower(value)
	secure := []string{"no-referrer", "strict-origin", "strict-origin-when-cross-origin", "same-origin"}
	for _, policy := range secure {
		if strings.Contains(value, policy) {
			return QualityExcellent
		}
	}
	if strings.Contains(value, "origin") {
		return QualityGood
	}
	return QualityFair
}

func qualityPermissionsPolicy(value string) string {
	if len(value) >= 10 {
		return QualityExcellent
	}
	return QualityGood
}

func qualitySameOriginValue(value string) string {
	if strings.Contains(strings.ToLower(value), "same-origin") {
		return QualityExcellent
	}
	return QualityFair
}

func qualityCOEP(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "require-corp" || value == "credentialless" {
		return QualityExcellent
	}
	return QualityFair
}

func qualityXXSSProtection(value string) string {
	if strings.Contains(value, "1; mode=block") {
		return QualityGood
	}
	if strings.Contains(value, "1") {
		return QualityFair
	}
	return QualityPoor
}

func checkDeprecatedHeaders(headers http.Header, result *HeaderResult) {
	if xss := headers.Get("X-XSS-Protection"); xss != "" && xss != "0" {
		result.Warnings = append(result.Warnings,
			"X-XSS-Protection is deprecated and may introduce vulnerabilities in older browsers. Set to '0' or remove it.")
	}
	if headers.Get("Expect-CT") != "" {
		result.Warnings = append(result.Warnings, "Expect-CT is deprecated. Remove this header.")
	}
	if headers.Get("Public-Key-Pins") != "" {
		result.Warnings = append(result.Warnings,
			"Public-Key-Pins (HPKP) is deprecated and dangerous. Remove this header immediately.")
	}
}

func checkInformationDisclosure(headers http.Header, result *HeaderResult) {
	for _, name := range informationDisclosureHeaders {
		if value := headers.Get(name); value != "" {
			result.Warnings = append(result.Warnings,
				name+" header exposes server information: '"+value+"'. Consider removing or obfuscating.")
		}
	}
}
