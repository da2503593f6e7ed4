package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebProbeSensitivePaths(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.env":
			w.Write([]byte("APP_KEY=secret"))
		case "/admin":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	probe := &WebProbe{Timeout: 2 * time.Second}
	content := probe.scanSensitivePaths(context.Background(), probe.client(), ts.URL)

	if content.CheckedPaths != len(sensitivePaths) {
		t.Errorf("checked paths = %d, want %d", content.CheckedPaths, len(sensitivePaths))
	}
	if len(content.ExposedPaths) != 2 {
		t.Fatalf("exposed = %+v, want /.env and /admin", content.ExposedPaths)
	}

	bySeverity := map[string]Severity{}
	for _, exposed := range content.ExposedPaths {
		bySeverity[exposed.Path] = exposed.Severity
	}
	if bySeverity["/.env"] != SeverityHigh {
		t.Errorf("/.env severity = %q, want High", bySeverity["/.env"])
	}
	if bySeverity["/admin"] != SeverityMedium {
		t.Errorf("/admin severity = %q, want Medium", bySeverity["/admin"])
	}
}

func TestWebProbeRedirectExposure(t *testing.T) {
	// A blanket redirect also exposes sensitive paths per the 2xx/3xx rule.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.com"+r.URL.Path, http.StatusMovedPermanently)
	}))
	defer ts.Close()

	probe := &WebProbe{Timeout: 2 * time.Second}
	content := probe.scanSensitivePaths(context.Background(), probe.client(), ts.URL)

	if len(content.ExposedPaths) != len(sensitivePaths) {
		t.Errorf("exposed = %d, want all %d paths flagged on 3xx", len(content.ExposedPaths), len(sensitivePaths))
	}
}

func TestCheckHTTPSRedirect(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		redirects bool
	}{
		{
			"redirects to https",
			func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "https://example.com/", http.StatusMovedPermanently)
			},
			true,
		},
		{
			"redirects to http",
			func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "http://example.com/", http.StatusFound)
			},
			false,
		},
		{
			"serves plain http",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("hello"))
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			probe := &WebProbe{Timeout: 2 * time.Second}
			result := probe.checkHTTPSRedirect(context.Background(), ts.URL)

			if result.Error != "" {
				t.Fatalf("unexpected error: %s", result.Error)
			}
			if result.Redirects != tt.redirects {
				t.Errorf("Redirects = %v, want %v (status %d, location %q)",
					result.Redirects, tt.redirects, result.StatusCode, result.Location)
			}
		})
	}
}

func TestWebProbeFullRun(t *testing.T) {
	httpsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		h := w.Header()
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=()")
	}))
	defer httpsSrv.Close()

	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.com/", http.StatusMovedPermanently)
	}))
	defer httpSrv.Close()

	probe := &WebProbe{
		Timeout:     2 * time.Second,
		BaseURL:     httpsSrv.URL,
		HTTPBaseURL: httpSrv.URL,
	}

	result := probe.Probe(context.Background(), "example.com")
	if result.Category != CategoryWeb {
		t.Fatalf("category = %q", result.Category)
	}
	web := result.Web
	if web == nil {
		t.Fatal("expected web payload")
	}
	if web.SSLCertificate != nil {
		t.Error("certificate check should be skipped when CheckTLS is false")
	}
	if web.SecurityHeaders == nil || web.SecurityHeaders.Score < 80 {
		t.Errorf("security headers = %+v, want score >= 80", web.SecurityHeaders)
	}
	if web.HTTPSRedirect == nil || !web.HTTPSRedirect.Redirects {
		t.Errorf("https redirect = %+v, want redirect detected", web.HTTPSRedirect)
	}
	if len(web.SensitiveContent.ExposedPaths) != 0 {
		t.Errorf("exposed paths = %+v, want none", web.SensitiveContent.ExposedPaths)
	}
	if result.Incomplete {
		t.Error("result should not be incomplete")
	}
}

func TestWebProbeUnreachableTarget(t *testing.T) {
	probe := &WebProbe{
		Timeout:     500 * time.Millisecond,
		BaseURL:     "https://127.0.0.1:1",
		HTTPBaseURL: "http://127.0.0.1:1",
	}

	result := probe.Probe(context.Background(), "127.0.0.1")
	if result.Web == nil || result.Web.SecurityHeaders == nil {
		t.Fatal("expected a security headers sub-result")
	}
	if result.Web.SecurityHeaders.Error == "" {
		t.Error("expected a fetch error recorded on the headers sub-check")
	}
	if !result.Incomplete {
		t.Error("fully unreachable target should mark the result incomplete")
	}
}

func TestAssembleFindingsSeverities(t *testing.T) {
	web := &WebResult{
		SSLCertificate: &CertificateResult{
			Expired:  true,
			Subject:  "example.com",
			NotAfter: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Severity: SeverityCritical,
		},
		SecurityHeaders: &HeaderResult{Score: 30, Severity: SeverityHigh, Missing: []string{"Content-Security-Policy"}},
		SensitiveContent: &ContentResult{
			ExposedPaths: []ExposedPath{{Path: "/.env", URL: "https://example.com/.env", StatusCode: 200, Severity: SeverityHigh}},
		},
		HTTPSRedirect: &RedirectResult{Redirects: false, StatusCode: 200},
	}

	probe := &WebProbe{}
	findings := probe.assembleFindings(web)

	var titles []string
	for _, f := range findings {
		titles = append(titles, f.Title)
	}
	joined := strings.Join(titles, "; ")
	for _, want := range []string{"expired", "security headers", "/.env", "HTTP does not redirect"} {
		if !strings.Contains(strings.ToLower(joined), strings.ToLower(want)) {
			t.Errorf("findings %q missing %q", joined, want)
		}
	}
}
