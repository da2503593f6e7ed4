package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/riskscan/internal/probe"
	"github.com/khanhnv2901/riskscan/internal/risk"
)

// Config tunes probe behavior for a scan run.
type Config struct {
	ProbeTimeout time.Duration // per-probe budget
	PortTimeout  time.Duration // per-port dial budget in the network probe
	Deadline     time.Duration // overall scan budget
	Ports        []int         // nil means the default risky-port set
	MaxWorkers   int           // network probe concurrency
	RateLimit    rate.Limit    // probes-per-second ceiling, 0 disables
}

// DefaultConfig mirrors the CLI defaults.
func DefaultConfig() Config {
	return Config{
		ProbeTimeout: 10 * time.Second,
		PortTimeout:  time.Second,
		Deadline:     2 * time.Minute,
		MaxWorkers:   20,
	}
}

// Orchestrator fans probes out over a target and assembles the report.
type Orchestrator struct {
	Config   Config
	Observer ProgressObserver
	Logger   *zap.SugaredLogger
	Engine   risk.Engine

	// Probes overrides the built-in probe set, keyed by category. Used
	// by tests; nil entries fall back to the real probes.
	Probes map[probe.Category]probe.Probe
}

type categoryResult struct {
	category probe.Category
	result   probe.Result
}

// Run executes the scan described by req. It returns an error only when
// the request itself is unusable (invalid target); probe failures are
// absorbed into the report, and aggregation failures mark the report
// failed while still returning it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	host, err := ResolveTarget(req.Target)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ScanID:    newScanID(),
		Target:    host,
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
		Requester: req.Requester,
		Results:   make(map[probe.Category]probe.Result),
	}

	logger := o.logger()
	logger.Infow("scan started", "scan_id", report.ScanID, "target", host)

	deadline := o.Config.Deadline
	if deadline <= 0 {
		deadline = DefaultConfig().Deadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	opts := req.Options
	categories := enabledCategories(opts)
	if len(categories) == 0 {
		// A zero-value Options means run everything, including the TLS
		// sub-check and the web-to-system header handoff.
		opts = DefaultOptions()
		categories = enabledCategories(opts)
	}

	progress := o.startProgress(report.StartedAt)
	progress.emit(0, fmt.Sprintf("Starting scan for %s", host))

	results := o.runProbes(ctx, host, opts, categories, progress)
	for _, category := range categories {
		result, ok := results[category]
		if !ok {
			result = probe.Result{
				Category:   category,
				CheckedAt:  time.Now().UTC(),
				Severity:   probe.SeverityInfo,
				Error:      "scan deadline exceeded",
				Incomplete: true,
			}
			logger.Warnw("probe timed out", "scan_id", report.ScanID, "category", category)
		}
		report.Results[category] = result
	}

	progress.emit(95, "Calculating risk assessment")
	if err := o.finalize(report); err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		report.CompletedAt = time.Now().UTC()
		progress.emit(100, "Scan failed")
		progress.close()
		logger.Errorw("scan failed", "scan_id", report.ScanID, "error", err)
		return report, nil
	}

	report.Status = StatusCompleted
	report.CompletedAt = time.Now().UTC()
	progress.emit(100, "Scan completed")
	progress.close()
	logger.Infow("scan completed",
		"scan_id", report.ScanID,
		"score", report.RiskAssessment.OverallScore,
		"risk_level", report.RiskAssessment.RiskLevel)
	return report, nil
}

// runProbes fans the enabled probes out and collects whatever finishes
// before ctx expires. The system probe waits for the web probe's response
// headers so it can fingerprint the stack without a second fetch.
func (o *Orchestrator) runProbes(ctx context.Context, host string, opts Options, categories []probe.Category, progress *progressTracker) map[probe.Category]probe.Result {
	resultCh := make(chan categoryResult, len(categories))
	webDone := make(chan probe.Result, 1)

	var wg sync.WaitGroup
	share := 90 / len(categories)

	for _, category := range categories {
		wg.Add(1)
		go func(category probe.Category) {
			defer wg.Done()

			var webHeaders probe.Result
			if category == probe.CategorySystem && opts.Web {
				select {
				case webHeaders = <-webDone:
				case <-ctx.Done():
					return
				}
			}

			p := o.probeFor(category, opts, webHeaders)
			result := p.Probe(ctx, host)
			if category == probe.CategoryWeb {
				webDone <- result
			}
			select {
			case resultCh <- categoryResult{category: category, result: result}:
			case <-ctx.Done():
			}
			progress.add(share, fmt.Sprintf("%s completed", p.Name()))
		}(category)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[probe.Category]probe.Result, len(categories))
	for {
		select {
		case cr, ok := <-resultCh:
			if !ok {
				return results
			}
			results[cr.category] = cr.result
		case <-ctx.Done():
			// Drain whatever already landed, then accept partial results.
			for {
				select {
				case cr, ok := <-resultCh:
					if !ok {
						return results
					}
					results[cr.category] = cr.result
				default:
					return results
				}
			}
		}
	}
}

func (o *Orchestrator) probeFor(category probe.Category, opts Options, webResult probe.Result) probe.Probe {
	if p, ok := o.Probes[category]; ok && p != nil {
		return p
	}
	cfg := o.Config
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ProbeTimeout
	}
	switch category {
	case probe.CategoryNetwork:
		return &probe.NetworkProbe{
			Timeout:     timeout,
			PortTimeout: cfg.PortTimeout,
			Ports:       cfg.Ports,
			MaxWorkers:  cfg.MaxWorkers,
			RateLimit:   int(cfg.RateLimit),
		}
	case probe.CategoryWeb:
		return &probe.WebProbe{
			Timeout:   timeout,
			CheckTLS:  opts.SSL,
			RateLimit: cfg.RateLimit,
		}
	case probe.CategoryEmail:
		return &probe.EmailProbe{Timeout: timeout}
	case probe.CategorySystem:
		sp := &probe.SystemProbe{Timeout: timeout}
		if webResult.Web != nil {
			sp.Headers = webResult.Web.ResponseHeaders
			sp.Body = webResult.Web.BodySnippet
		}
		return sp
	}
	return &probe.SystemProbe{Timeout: timeout}
}

// finalize computes the risk assessment, flattens findings, and builds
// recommendations.
func (o *Orchestrator) finalize(report *Report) error {
	if len(report.Results) == 0 {
		return &OrchestrationError{Stage: "aggregate", Err: fmt.Errorf("no probe results")}
	}

	report.RiskAssessment = o.Engine.Assess(report.Results)
	report.Findings = flattenFindings(report.Results)
	report.Recommendations = risk.Recommend(report.Results)
	return nil
}

func flattenFindings(results map[probe.Category]probe.Result) []probe.Finding {
	findings := []probe.Finding{}
	for _, category := range []probe.Category{
		probe.CategoryNetwork, probe.CategoryWeb, probe.CategoryEmail, probe.CategorySystem,
	} {
		if result, ok := results[category]; ok {
			findings = append(findings, result.Findings...)
		}
	}
	return findings
}

func enabledCategories(opts Options) []probe.Category {
	var categories []probe.Category
	if opts.Network {
		categories = append(categories, probe.CategoryNetwork)
	}
	if opts.Web {
		categories = append(categories, probe.CategoryWeb)
	}
	if opts.Email {
		categories = append(categories, probe.CategoryEmail)
	}
	if opts.System {
		categories = append(categories, probe.CategorySystem)
	}
	return categories
}

func (o *Orchestrator) logger() *zap.SugaredLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop().Sugar()
}

// progressTracker serializes progress events through one goroutine so the
// reported percentage never decreases even though probes finish in any
// order.
type progressTracker struct {
	events  chan ProgressEvent
	done    chan struct{}
	started time.Time

	mu      sync.Mutex
	current int
	closed  bool
}

func (o *Orchestrator) startProgress(started time.Time) *progressTracker {
	t := &progressTracker{
		events:  make(chan ProgressEvent, 16),
		done:    make(chan struct{}),
		started: started,
	}
	observer := o.Observer
	go func() {
		defer close(t.done)
		for event := range t.events {
			if observer != nil {
				observer.OnProgress(event)
			}
		}
	}()
	return t
}

// emit reports absolute progress; values below the current mark are
// raised to it.
func (t *progressTracker) emit(progress int, task string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if progress < t.current {
		progress = t.current
	}
	if progress > 100 {
		progress = 100
	}
	t.current = progress
	event := ProgressEvent{
		Progress:    progress,
		Task:        task,
		ElapsedTime: time.Since(t.started),
	}
	t.events <- event
	t.mu.Unlock()
}

// add reports progress relative to the current mark.
func (t *progressTracker) add(delta int, task string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	progress := t.current + delta
	if progress > 100 {
		progress = 100
	}
	t.current = progress
	event := ProgressEvent{
		Progress:    progress,
		Task:        task,
		ElapsedTime: time.Since(t.started),
	}
	t.events <- event
	t.mu.Unlock()
}

func (t *progressTracker) close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()
	<-t.done
}