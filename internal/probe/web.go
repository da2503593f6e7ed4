package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// sensitivePaths are probed for accidental exposure. A 200 response on any
// of these is a finding; /.env and /wp-config.php rank High because they
// commonly leak credentials.
var sensitivePaths = []string{
	"/admin",
	"/.env",
	"/config",
	"/backup",
	"/database",
	"/phpinfo.php",
	"/info.php",
	"/.git/config",
	"/wp-config.php",
}

var highRiskPaths = map[string]bool{
	"/.env":          true,
	"/wp-config.php": true,
}

// ExposedPath records a sensitive path that returned HTTP 200.
type ExposedPath struct {
	Path       string   `json:"path"`
	URL        string   `json:"url"`
	StatusCode int      `json:"status_code"`
	Severity   Severity `json:"severity"`
}

// ContentResult is the sensitive-content payload of the web probe.
type ContentResult struct {
	ExposedPaths []ExposedPath `json:"exposed_paths"`
	CheckedPaths int           `json:"checked_paths"`
	Error        string        `json:"error,omitempty"`
}

// RedirectResult reports whether plain HTTP redirects to HTTPS.
type RedirectResult struct {
	Redirects  bool   `json:"redirects"`
	StatusCode int    `json:"status_code,omitempty"`
	Location   string `json:"location,omitempty"`
	Error      string `json:"error,omitempty"`
}

// WebResult aggregates the web probe sub-checks. Each sub-check fails
// independently; a nil pointer means the check was skipped.
type WebResult struct {
	SSLCertificate   *CertificateResult `json:"ssl_certificate,omitempty"`
	SecurityHeaders  *HeaderResult      `json:"security_headers,omitempty"`
	SensitiveContent *ContentResult     `json:"sensitive_content,omitempty"`
	HTTPSRedirect    *RedirectResult    `json:"https_redirect,omitempty"`

	// ResponseHeaders and BodySnippet from the main HTTPS response, kept
	// for the system probe's technology detection.
	ResponseHeaders http.Header `json:"-"`
	BodySnippet     string      `json:"-"`
}

// WebProbe inspects the target's HTTPS surface: certificate, security
// headers, exposed sensitive paths, and HTTP to HTTPS redirection.
type WebProbe struct {
	Timeout   time.Duration
	CheckTLS  bool
	RateLimit rate.Limit

	// BaseURL and HTTPBaseURL override the https://host and http://host
	// derivation, used by tests to point at local servers.
	BaseURL     string
	HTTPBaseURL string
}

func (w *WebProbe) Name() string { return "probe web" }

func (w *WebProbe) timeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 10 * time.Second
}

func (w *WebProbe) client() *http.Client {
	return &http.Client{
		Timeout: w.timeout(),
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// Probe runs the web sub-checks. Sub-check failures are recorded inside the
// sub-result; only a total inability to reach the target marks the probe
// itself as errored.
func (w *WebProbe) Probe(ctx context.Context, host string) Result {
	result := Result{
		Category:  CategoryWeb,
		CheckedAt: time.Now().UTC(),
		Severity:  SeverityInfo,
	}

	baseURL := w.BaseURL
	if baseURL == "" {
		baseURL = "https://" + host
	}
	httpURL := w.HTTPBaseURL
	if httpURL == "" {
		httpURL = "http://" + host
	}

	web := &WebResult{}
	result.Web = web

	if w.CheckTLS {
		web.SSLCertificate = InspectCertificate(ctx, host, w.timeout())
	}

	client := w.client()
	headers, body, headerErr := w.fetchHeaders(ctx, client, baseURL)
	if headerErr != nil {
		web.SecurityHeaders = &HeaderResult{
			Severity: SeverityHigh,
			Error:    fmt.Sprintf("fetch headers: %v", headerErr),
		}
	} else {
		web.SecurityHeaders = AnalyzeSecurityHeaders(headers)
		web.ResponseHeaders = headers
		web.BodySnippet = body
	}

	web.SensitiveContent = w.scanSensitivePaths(ctx, client, baseURL)
	web.HTTPSRedirect = w.checkHTTPSRedirect(ctx, httpURL)

	result.Findings = w.assembleFindings(web)
	for _, f := range result.Findings {
		result.Severity = MaxSeverity(result.Severity, f.Severity)
	}
	if headerErr != nil && web.SSLCertificate == nil && len(web.SensitiveContent.ExposedPaths) == 0 {
		result.Incomplete = true
	}
	return result
}

// fetchHeaders requests the base URL and returns its headers plus a body
// snippet. HEAD is tried first, falling back to GET for servers that
// reject it.
func (w *WebProbe) fetchHeaders(ctx context.Context, client *http.Client, baseURL string) (http.Header, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err == nil && resp.StatusCode < 400 {
		resp.Body.Close()
		return resp.Header, "", nil
	}
	if err == nil {
		resp.Body.Close()
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err = client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	return resp.Header, string(snippet), nil
}

func (w *WebProbe) scanSensitivePaths(ctx context.Context, client *http.Client, baseURL string) *ContentResult {
	result := &ContentResult{
		ExposedPaths: []ExposedPath{},
		CheckedPaths: len(sensitivePaths),
	}

	var limiter *rate.Limiter
	if w.RateLimit > 0 {
		limiter = rate.NewLimiter(w.RateLimit, 1)
	}

	for _, path := range sensitivePaths {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				result.Error = err.Error()
				return result
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
		if err != nil {
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				result.Error = ctx.Err().Error()
				return result
			}
			continue
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 400 {
			severity := SeverityMedium
			if highRiskPaths[path] {
				severity = SeverityHigh
			}
			result.ExposedPaths = append(result.ExposedPaths, ExposedPath{
				Path:       path,
				URL:        baseURL + path,
				StatusCode: resp.StatusCode,
				Severity:   severity,
			})
		}
	}
	return result
}

// checkHTTPSRedirect requests the plain HTTP URL without following
// redirects and inspects the response for an HTTPS Location.
func (w *WebProbe) checkHTTPSRedirect(ctx context.Context, httpURL string) *RedirectResult {
	result := &RedirectResult{}

	client := &http.Client{
		Timeout: w.timeout(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.Location = resp.Header.Get("Location")
		result.Redirects = strings.HasPrefix(strings.ToLower(result.Location), "https://")
	}
	return result
}

func (w *WebProbe) assembleFindings(web *WebResult) []Finding {
	var findings []Finding

	if cert := web.SSLCertificate; cert != nil {
		switch {
		case cert.Error != "":
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    SeverityHigh,
				Title:       "TLS connection failed",
				Description: cert.Error,
				Remediation: "Ensure the server presents a valid TLS certificate on port 443.",
			})
		case cert.Expired:
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    SeverityCritical,
				Title:       "TLS certificate has expired",
				Description: fmt.Sprintf("Certificate for %q expired on %s.", cert.Subject, cert.NotAfter.Format("2006-01-02")),
				Remediation: "Renew the TLS certificate immediately.",
			})
		case cert.Severity == SeverityHigh:
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    SeverityHigh,
				Title:       "TLS certificate expires soon",
				Description: fmt.Sprintf("Certificate expires in %d days.", cert.DaysRemaining),
				Remediation: "Renew the TLS certificate before it expires. Consider automated renewal.",
			})
		case cert.Severity == SeverityMedium:
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    SeverityMedium,
				Title:       "Outdated TLS protocol version",
				Description: fmt.Sprintf("Server negotiated %s.", cert.TLSVersion),
				Remediation: "Configure the server to require TLS 1.2 or newer.",
			})
		}
	}

	if hdrs := web.SecurityHeaders; hdrs != nil && hdrs.Error == "" {
		if hdrs.Severity != SeverityLow {
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    hdrs.Severity,
				Title:       "Missing or weak security headers",
				Description: fmt.Sprintf("Security header score %d/100; missing: %s.", hdrs.Score, strings.Join(hdrs.Missing, ", ")),
				Remediation: "Add the missing security headers. Start with Strict-Transport-Security and Content-Security-Policy.",
			})
		}
		for _, warning := range hdrs.Warnings {
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    SeverityInfo,
				Title:       "Header hygiene warning",
				Description: warning,
			})
		}
	}

	if content := web.SensitiveContent; content != nil {
		for _, exposed := range content.ExposedPaths {
			findings = append(findings, Finding{
				Category:    CategoryWeb,
				Severity:    exposed.Severity,
				Title:       fmt.Sprintf("Sensitive path exposed: %s", exposed.Path),
				Description: fmt.Sprintf("%s returned HTTP %d.", exposed.URL, exposed.StatusCode),
				Remediation: "Block public access to this path or remove it from the web root.",
			})
		}
	}

	if redirect := web.HTTPSRedirect; redirect != nil && redirect.Error == "" && !redirect.Redirects {
		findings = append(findings, Finding{
			Category:    CategoryWeb,
			Severity:    SeverityMedium,
			Title:       "HTTP does not redirect to HTTPS",
			Description: fmt.Sprintf("Plain HTTP request returned status %d without an HTTPS redirect.", redirect.StatusCode),
			Remediation: "Redirect all HTTP traffic to HTTPS with a 301 response.",
		})
	}

	return findings
}
