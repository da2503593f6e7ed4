package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// hostLookuper is the DNS surface the system probe needs.
type hostLookuper interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// SystemResult aggregates DNS health and fingerprinting data.
type SystemResult struct {
	Addresses    []string `json:"addresses"`
	ResolveError string   `json:"resolve_error,omitempty"`
	DNSSEC       bool     `json:"dnssec_validated"`
	Technologies []string `json:"technologies,omitempty"`
	ServerHeader string   `json:"server_header,omitempty"`
	PoweredBy    string   `json:"powered_by,omitempty"`
}

// SystemProbe checks DNS health and fingerprints the server stack from
// response headers and page content gathered by the web probe.
type SystemProbe struct {
	Timeout time.Duration

	// Resolver overrides DNS resolution, used by tests.
	Resolver hostLookuper

	// Headers and Body feed technology detection, typically wired from
	// the web probe's response. Both may be empty.
	Headers http.Header
	Body    string
}

func (s *SystemProbe) Name() string { return "probe system" }

func (s *SystemProbe) resolver() hostLookuper {
	if s.Resolver != nil {
		return s.Resolver
	}
	return &net.Resolver{PreferGo: true}
}

func (s *SystemProbe) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 10 * time.Second
}

func (s *SystemProbe) Probe(ctx context.Context, host string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	result := Result{
		Category:  CategorySystem,
		CheckedAt: time.Now().UTC(),
		Severity:  SeverityInfo,
	}

	system := &SystemResult{}
	result.System = system

	addrs, err := s.resolver().LookupHost(ctx, host)
	if err != nil {
		system.ResolveError = err.Error()
		result.Findings = append(result.Findings, Finding{
			Category:    CategorySystem,
			Severity:    SeverityMedium,
			Title:       "DNS resolution failed",
			Description: fmt.Sprintf("A record lookup for %s failed: %v", host, err),
			Remediation: "Verify the domain's DNS configuration with its registrar.",
		})
	} else {
		system.Addresses = addrs
	}

	// DNSSEC validation is not performed; recorded as an informational
	// note so reports show the gap.
	result.Findings = append(result.Findings, Finding{
		Category:    CategorySystem,
		Severity:    SeverityInfo,
		Title:       "DNSSEC not validated",
		Description: "DNSSEC validation was not performed during this scan.",
		Remediation: "Consider enabling DNSSEC for the zone to protect against DNS spoofing.",
	})

	if s.Headers != nil {
		system.ServerHeader = s.Headers.Get("Server")
		system.PoweredBy = s.Headers.Get("X-Powered-By")
		system.Technologies = DetectTechnologies(s.Headers, s.Body)

		if system.ServerHeader != "" {
			result.Findings = append(result.Findings, Finding{
				Category:    CategorySystem,
				Severity:    SeverityInfo,
				Title:       "Server software disclosed",
				Description: fmt.Sprintf("Server header reports %q.", system.ServerHeader),
				Remediation: "Remove or genericize the Server header to reduce fingerprinting.",
			})
		}
		if system.PoweredBy != "" {
			result.Findings = append(result.Findings, Finding{
				Category:    CategorySystem,
				Severity:    SeverityInfo,
				Title:       "Application platform disclosed",
				Description: fmt.Sprintf("X-Powered-By header reports %q.", system.PoweredBy),
				Remediation: "Remove the X-Powered-By header.",
			})
		}
	}

	for _, f := range result.Findings {
		result.Severity = MaxSeverity(result.Severity, f.Severity)
	}
	return result
}

// DetectTechnologies fingerprints the server stack from response headers
// and a lowercased body snippet. Best effort; an empty slice simply means
// nothing recognizable was seen.
func DetectTechnologies(headers http.Header, body string) []string {
	var technologies []string
	add := func(name string) {
		for _, t := range technologies {
			if t == name {
				return
			}
		}
		technologies = append(technologies, name)
	}

	server := strings.ToLower(headers.Get("Server"))
	if strings.Contains(server, "apache") {
		add("Apache Web Server")
	}
	if strings.Contains(server, "nginx") {
		add("Nginx Web Server")
	}
	if strings.Contains(server, "cloudflare") {
		add("Cloudflare CDN")
	}
	if strings.Contains(server, "iis") {
		add("Microsoft IIS")
	}

	poweredBy := strings.ToLower(headers.Get("X-Powered-By"))
	if strings.Contains(poweredBy, "php") {
		add("PHP")
	}
	if strings.Contains(poweredBy, "asp.net") {
		add("ASP.NET")
	}
	if strings.Contains(poweredBy, "express") {
		add("Express (Node.js)")
	}

	content := strings.ToLower(body)
	if content != "" {
		if strings.Contains(content, "react") {
			add("React")
		}
		if strings.Contains(content, "angular") {
			add("Angular")
		}
		if strings.Contains(content, "vue") {
			add("Vue.js")
		}
		if strings.Contains(content, "bootstrap") {
			add("Bootstrap")
		}
		if strings.Contains(content, "jquery") {
			add("jQuery")
		}
		if strings.Contains(content, "wp-content") || strings.Contains(content, "wordpress") {
			add("WordPress")
		}
	}

	return technologies
}
