package probe

import (
	"context"
	"time"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// severityRanks orders severities for comparison and sorting.
var severityRanks = map[Severity]int{
	SeverityInfo:     1,
	SeverityLow:      2,
	SeverityMedium:   5,
	SeverityHigh:     7,
	SeverityCritical: 10,
}

// Rank returns the numeric weight of a severity. Unknown values rank lowest.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Category tags which probe a result or finding belongs to.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryWeb     Category = "web"
	CategoryEmail   Category = "email"
	CategorySystem  Category = "system"
)

// Finding is a single reportable issue.
type Finding struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Remediation string   `json:"remediation,omitempty"`
}

// Result is the outcome of a single probe run. A probe always returns a
// Result; internal failures are recorded in Error with fallback defaults so
// scoring can proceed.
type Result struct {
	Category   Category       `json:"category"`
	CheckedAt  time.Time      `json:"checked_at"`
	Severity   Severity       `json:"severity"`
	Findings   []Finding      `json:"findings,omitempty"`
	Network    *NetworkResult `json:"network,omitempty"`
	Web        *WebResult     `json:"web,omitempty"`
	Email      *EmailResult   `json:"email,omitempty"`
	System     *SystemResult  `json:"system,omitempty"`
	Error      string         `json:"error,omitempty"`
	Incomplete bool           `json:"incomplete,omitempty"`
}

// Probe is the interface that all probe implementations must satisfy.
type Probe interface {
	// Probe performs the check against a canonical hostname.
	Probe(ctx context.Context, host string) Result

	// Name returns the human-readable name of this probe (e.g. "probe network").
	Name() string
}
