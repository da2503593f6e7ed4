package scan

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/khanhnv2901/riskscan/internal/probe"
	"github.com/khanhnv2901/riskscan/internal/risk"
)

// Status of a scan report.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Options selects which probe categories run. The zero value is treated as
// DefaultOptions by the orchestrator.
type Options struct {
	Network bool `json:"network"`
	Web     bool `json:"web"`
	Email   bool `json:"email"`
	SSL     bool `json:"ssl"`
	System  bool `json:"system"`
}

// DefaultOptions enables all probes.
func DefaultOptions() Options {
	return Options{Network: true, Web: true, Email: true, SSL: true, System: true}
}

// Request describes one scan. Requester carries opaque caller metadata
// (user agent, source IP) that is echoed into the report untouched.
type Request struct {
	Target    string          `json:"target"`
	Options   Options         `json:"options"`
	Requester json.RawMessage `json:"requester,omitempty"`
}

// Report is the complete scan output. It is JSON-serializable and
// round-trip stable.
type Report struct {
	ScanID          string                          `json:"scan_id"`
	Target          string                          `json:"target"`
	StartedAt       time.Time                       `json:"started_at"`
	CompletedAt     time.Time                       `json:"completed_at,omitempty"`
	Status          Status                          `json:"status"`
	Error           string                          `json:"error,omitempty"`
	Requester       json.RawMessage                 `json:"requester,omitempty"`
	Results         map[probe.Category]probe.Result `json:"results"`
	RiskAssessment  *risk.Assessment                `json:"risk_assessment,omitempty"`
	Findings        []probe.Finding                 `json:"findings"`
	Recommendations []string                        `json:"recommendations"`
}

// newScanID produces identifiers like scan_3f2a9c1d04be.
func newScanID() string {
	return "scan_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// ProgressEvent is one step of scan progress. Progress is a percentage in
// [0,100] and never decreases within a scan.
type ProgressEvent struct {
	Progress    int           `json:"progress"`
	Task        string        `json:"task"`
	ElapsedTime time.Duration `json:"elapsed_time"`
}

// ProgressObserver receives ordered progress events.
type ProgressObserver interface {
	OnProgress(event ProgressEvent)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(event ProgressEvent)

func (f ProgressFunc) OnProgress(event ProgressEvent) { f(event) }
