package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

// fakeProbe returns a canned result, optionally after a delay.
type fakeProbe struct {
	category probe.Category
	result   probe.Result
	delay    time.Duration
}

func (f *fakeProbe) Name() string { return "probe " + string(f.category) }

func (f *fakeProbe) Probe(ctx context.Context, host string) probe.Result {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return probe.Result{
				Category:   f.category,
				CheckedAt:  time.Now().UTC(),
				Error:      ctx.Err().Error(),
				Incomplete: true,
			}
		}
	}
	result := f.result
	result.Category = f.category
	result.CheckedAt = time.Now().UTC()
	return result
}

func cleanProbes() map[probe.Category]probe.Probe {
	return map[probe.Category]probe.Probe{
		probe.CategoryNetwork: &fakeProbe{
			category: probe.CategoryNetwork,
			result:   probe.Result{Network: &probe.NetworkResult{OpenPorts: []probe.PortInfo{}}},
		},
		probe.CategoryWeb: &fakeProbe{
			category: probe.CategoryWeb,
			result: probe.Result{Web: &probe.WebResult{
				SecurityHeaders: &probe.HeaderResult{Score: 100, Severity: probe.SeverityLow},
				HTTPSRedirect:   &probe.RedirectResult{Redirects: true},
			}},
		},
		probe.CategoryEmail: &fakeProbe{
			category: probe.CategoryEmail,
			result: probe.Result{Email: &probe.EmailResult{
				SPF:   &probe.RecordCheck{Found: true, Severity: probe.SeverityLow},
				DKIM:  &probe.RecordCheck{Found: true, Severity: probe.SeverityLow},
				DMARC: &probe.RecordCheck{Found: true, Severity: probe.SeverityLow},
				MX: &probe.MXCheck{
					Records:  []probe.MXRecord{{Priority: 10, MailServer: "mail.example.com."}},
					Severity: probe.SeverityLow,
				},
			}},
		},
		probe.CategorySystem: &fakeProbe{
			category: probe.CategorySystem,
			result:   probe.Result{System: &probe.SystemResult{Addresses: []string{"203.0.113.7"}}},
		},
	}
}

func TestOrchestratorRunCompletes(t *testing.T) {
	orch := &Orchestrator{Probes: cleanProbes()}

	report, err := orch.Run(context.Background(), Request{
		Target:  "https://Example.com/login",
		Options: DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", report.Status)
	}
	if report.Target != "example.com" {
		t.Errorf("target = %q, want normalized example.com", report.Target)
	}
	if !strings.HasPrefix(report.ScanID, "scan_") || len(report.ScanID) != len("scan_")+12 {
		t.Errorf("scan id = %q, want scan_ plus 12 hex chars", report.ScanID)
	}
	if len(report.Results) != 4 {
		t.Errorf("results = %d categories, want 4", len(report.Results))
	}
	if report.RiskAssessment == nil {
		t.Fatal("expected a risk assessment")
	}
	if report.RiskAssessment.OverallScore != 100 {
		t.Errorf("overall score = %.1f, want 100 for a clean target", report.RiskAssessment.OverallScore)
	}
	if len(report.Recommendations) < 5 {
		t.Errorf("recommendations = %d, want at least 5", len(report.Recommendations))
	}
	if report.CompletedAt.Before(report.StartedAt) {
		t.Error("completed_at precedes started_at")
	}
}

func TestOrchestratorInvalidTarget(t *testing.T) {
	orch := &Orchestrator{Probes: cleanProbes()}

	report, err := orch.Run(context.Background(), Request{Target: "not a domain"})
	if err == nil {
		t.Fatal("expected an error for invalid target")
	}
	var invalidErr *InvalidTargetError
	if !errors.As(err, &invalidErr) {
		t.Errorf("error type = %T, want *InvalidTargetError", err)
	}
	if report != nil {
		t.Error("no report should be returned for an invalid target")
	}
}

func TestOrchestratorHonorsOptions(t *testing.T) {
	orch := &Orchestrator{Probes: cleanProbes()}

	report, err := orch.Run(context.Background(), Request{
		Target:  "example.com",
		Options: Options{Network: true, Email: true},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want only network and email", len(report.Results))
	}
	if _, ok := report.Results[probe.CategoryWeb]; ok {
		t.Error("web probe ran despite being disabled")
	}
}

func TestOrchestratorZeroOptionsRunsEverything(t *testing.T) {
	probes := cleanProbes()
	web := probes[probe.CategoryWeb].(*fakeProbe)
	web.result.Web.ResponseHeaders = http.Header{"Server": []string{"nginx/1.25"}}
	// Leave the system category to the real probe so the run exercises the
	// web-to-system header handoff.
	delete(probes, probe.CategorySystem)

	orch := &Orchestrator{
		Probes: probes,
		Config: Config{ProbeTimeout: 2 * time.Second},
	}
	report, err := orch.Run(context.Background(), Request{Target: "localhost"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Results) != 4 {
		t.Fatalf("results = %d categories, want all 4 for zero-value options", len(report.Results))
	}
	system := report.Results[probe.CategorySystem]
	if system.System == nil {
		t.Fatal("expected a system payload")
	}
	var sawNginx bool
	for _, tech := range system.System.Technologies {
		if tech == "Nginx Web Server" {
			sawNginx = true
		}
	}
	if !sawNginx {
		t.Errorf("technologies = %v, want the web probe's headers to reach the system probe",
			system.System.Technologies)
	}
}

func TestProbeForDefaultOptionsEnablesTLS(t *testing.T) {
	orch := &Orchestrator{}
	p := orch.probeFor(probe.CategoryWeb, DefaultOptions(), probe.Result{})
	web, ok := p.(*probe.WebProbe)
	if !ok {
		t.Fatalf("probe type = %T, want *probe.WebProbe", p)
	}
	if !web.CheckTLS {
		t.Error("certificate inspection should be on by default")
	}
}

func TestOrchestratorProgressMonotonic(t *testing.T) {
	var mu sync.Mutex
	var events []ProgressEvent

	orch := &Orchestrator{
		Probes: cleanProbes(),
		Observer: ProgressFunc(func(event ProgressEvent) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
		}),
	}

	if _, err := orch.Run(context.Background(), Request{Target: "example.com", Options: DefaultOptions()}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("no progress events observed")
	}
	prev := -1
	for i, event := range events {
		if event.Progress < prev {
			t.Fatalf("progress regressed at event %d: %d -> %d", i, prev, event.Progress)
		}
		if event.Progress < 0 || event.Progress > 100 {
			t.Fatalf("progress out of range: %d", event.Progress)
		}
		prev = event.Progress
	}
	if events[len(events)-1].Progress != 100 {
		t.Errorf("final progress = %d, want 100", events[len(events)-1].Progress)
	}
}

func TestOrchestratorDeadline(t *testing.T) {
	probes := cleanProbes()
	probes[probe.CategoryEmail] = &fakeProbe{
		category: probe.CategoryEmail,
		delay:    5 * time.Second,
		result:   probe.Result{Email: &probe.EmailResult{}},
	}

	orch := &Orchestrator{
		Probes: probes,
		Config: Config{Deadline: 200 * time.Millisecond},
	}

	start := time.Now()
	report, err := orch.Run(context.Background(), Request{Target: "example.com", Options: DefaultOptions()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("run took %v, deadline not enforced", elapsed)
	}

	email, ok := report.Results[probe.CategoryEmail]
	if !ok {
		t.Fatal("email category missing from report")
	}
	if !email.Incomplete {
		t.Error("timed-out probe should be marked incomplete")
	}
	if report.RiskAssessment.ComponentScores[probe.CategoryEmail] != 75 {
		t.Errorf("timed-out category score = %.1f, want neutral 75",
			report.RiskAssessment.ComponentScores[probe.CategoryEmail])
	}
	if report.Status != StatusCompleted {
		t.Errorf("status = %q, partial results still complete the scan", report.Status)
	}
}

func TestOrchestratorCancellation(t *testing.T) {
	probes := cleanProbes()
	for category := range probes {
		probes[category] = &fakeProbe{
			category: category,
			delay:    5 * time.Second,
		}
	}

	orch := &Orchestrator{Probes: probes}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	report, err := orch.Run(ctx, Request{Target: "example.com", Options: DefaultOptions()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation not honored, run took %v", elapsed)
	}
	for category, result := range report.Results {
		if !result.Incomplete {
			t.Errorf("category %s should be incomplete after cancellation", category)
		}
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	orch := &Orchestrator{Probes: cleanProbes()}
	report, err := orch.Run(context.Background(), Request{
		Target:    "example.com",
		Options:   DefaultOptions(),
		Requester: json.RawMessage(`{"user_agent":"test"}`),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ScanID != report.ScanID {
		t.Errorf("scan id changed: %q vs %q", decoded.ScanID, report.ScanID)
	}
	if decoded.Status != report.Status {
		t.Errorf("status changed: %q vs %q", decoded.Status, report.Status)
	}
	if decoded.RiskAssessment.OverallScore != report.RiskAssessment.OverallScore {
		t.Errorf("score changed across round trip")
	}
	if string(decoded.Requester) != `{"user_agent":"test"}` {
		t.Errorf("requester metadata altered: %s", decoded.Requester)
	}
	if len(decoded.Results) != len(report.Results) {
		t.Errorf("results lost in round trip")
	}
}
