package probe

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type stubHostResolver struct {
	addrs []string
	err   error
}

func (s *stubHostResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return s.addrs, s.err
}

func TestDetectTechnologies(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		body    string
		want    []string
	}{
		{
			"apache php",
			map[string]string{"Server": "Apache/2.4", "X-Powered-By": "PHP/8.1"},
			"",
			[]string{"Apache Web Server", "PHP"},
		},
		{
			"nginx react",
			map[string]string{"Server": "nginx/1.25"},
			"<div id=\"root\"></div><script src=\"/static/react.js\"></script>",
			[]string{"Nginx Web Server", "React"},
		},
		{
			"wordpress",
			map[string]string{},
			"<link href=\"/wp-content/themes/x/style.css\">",
			[]string{"WordPress"},
		},
		{
			"nothing recognizable",
			map[string]string{},
			"plain page",
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			got := DetectTechnologies(headers, tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("DetectTechnologies() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("technologies[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSystemProbeHealthyDomain(t *testing.T) {
	headers := http.Header{}
	headers.Set("Server", "nginx")

	probe := &SystemProbe{
		Resolver: &stubHostResolver{addrs: []string{"93.184.216.34"}},
		Headers:  headers,
	}

	result := probe.Probe(context.Background(), "example.com")
	if result.Category != CategorySystem {
		t.Fatalf("category = %q", result.Category)
	}
	system := result.System
	if system == nil {
		t.Fatal("expected system payload")
	}
	if len(system.Addresses) != 1 {
		t.Errorf("addresses = %v, want one", system.Addresses)
	}
	// Disclosure and DNSSEC notes are informational only.
	if result.Severity != SeverityInfo {
		t.Errorf("severity = %q, want Info", result.Severity)
	}

	sawServer := false
	for _, f := range result.Findings {
		if f.Title == "Server software disclosed" {
			sawServer = true
		}
	}
	if !sawServer {
		t.Error("expected a server disclosure finding")
	}
}

func TestSystemProbeResolutionFailure(t *testing.T) {
	probe := &SystemProbe{
		Resolver: &stubHostResolver{err: errors.New("no such host")},
	}

	result := probe.Probe(context.Background(), "missing.example")
	if result.System.ResolveError == "" {
		t.Fatal("expected resolve error in payload")
	}
	if result.Severity != SeverityMedium {
		t.Errorf("severity = %q, want Medium", result.Severity)
	}
}
