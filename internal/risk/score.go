// Package risk turns probe results into a deterministic risk assessment:
// per-category scores, a weighted overall score, a graded risk level, and
// prioritized recommendations.
package risk

import (
	"math"
	"sort"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

// neutralScore is assumed for a category whose probe errored or did not run
// to completion. It lands in the Medium band.
const neutralScore = 75.0

// Weights controls how much each category contributes to the overall
// score. Weights are renormalized over the categories actually present in
// the assessment input.
type Weights map[probe.Category]float64

// DefaultWeights weighs all four categories equally.
func DefaultWeights() Weights {
	return Weights{
		probe.CategoryNetwork: 0.25,
		probe.CategoryWeb:     0.25,
		probe.CategoryEmail:   0.25,
		probe.CategorySystem:  0.25,
	}
}

// Level is a named risk band with its display attributes.
type Level struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
	Color string `json:"color"`
}

var levels = []struct {
	minScore float64
	level    Level
}{
	{90, Level{Name: "Low", Grade: "A", Color: "#28a745"}},
	{80, Level{Name: "Low-Medium", Grade: "B", Color: "#5cb85c"}},
	{70, Level{Name: "Medium", Grade: "C", Color: "#17a2b8"}},
	{60, Level{Name: "Medium-High", Grade: "D", Color: "#ffc107"}},
	{50, Level{Name: "High", Grade: "F", Color: "#fd7e14"}},
	{0, Level{Name: "Critical", Grade: "F", Color: "#dc3545"}},
}

// LevelForScore maps a 0-100 score to its risk band.
func LevelForScore(score float64) Level {
	for _, band := range levels {
		if score >= band.minScore {
			return band.level
		}
	}
	return levels[len(levels)-1].level
}

// Assessment is the scoring engine's output.
type Assessment struct {
	OverallScore    float64                    `json:"overall_score"`
	RiskLevel       string                     `json:"risk_level"`
	Grade           string                     `json:"grade"`
	Color           string                     `json:"color"`
	ComponentScores map[probe.Category]float64 `json:"component_scores"`
	Weights         map[probe.Category]float64 `json:"weights"`
}

// Engine computes assessments. The zero value uses DefaultWeights.
type Engine struct {
	Weights Weights
}

// Assess scores the categories present in results and combines them into a
// weighted overall score. It is deterministic and never panics on partial
// or errored input.
func (e *Engine) Assess(results map[probe.Category]probe.Result) *Assessment {
	weights := e.Weights
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	assessment := &Assessment{
		ComponentScores: make(map[probe.Category]float64, len(results)),
		Weights:         make(map[probe.Category]float64, len(results)),
	}

	totalWeight := 0.0
	for category := range results {
		if w, ok := weights[category]; ok && w > 0 {
			totalWeight += w
		}
	}

	weighted := 0.0
	for category, result := range results {
		score := categoryScore(category, result)
		assessment.ComponentScores[category] = round1(score)

		w, ok := weights[category]
		if !ok || w <= 0 || totalWeight == 0 {
			continue
		}
		normalized := w / totalWeight
		assessment.Weights[category] = normalized
		weighted += score * normalized
	}

	if totalWeight == 0 {
		weighted = neutralScore
	}
	assessment.OverallScore = round1(clamp(weighted))
	level := LevelForScore(assessment.OverallScore)
	assessment.RiskLevel = level.Name
	assessment.Grade = level.Grade
	assessment.Color = level.Color
	return assessment
}

func categoryScore(category probe.Category, result probe.Result) float64 {
	if result.Error != "" || result.Incomplete {
		return neutralScore
	}
	switch category {
	case probe.CategoryNetwork:
		return networkScore(result.Network)
	case probe.CategoryWeb:
		return webScore(result.Web)
	case probe.CategoryEmail:
		return emailScore(result.Email)
	case probe.CategorySystem:
		return systemScore(result.System)
	}
	return neutralScore
}

func networkScore(network *probe.NetworkResult) float64 {
	if network == nil {
		return neutralScore
	}
	score := 100.0
	switch count := len(network.OpenPorts); {
	case count > 5:
		score -= 30
	case count > 0:
		score -= 15
	}
	for _, port := range network.OpenPorts {
		switch port.Severity {
		case probe.SeverityCritical:
			score -= 15
		case probe.SeverityHigh:
			score -= 10
		}
	}
	if network.ResolveError != "" {
		score -= 20
	}
	return clamp(score)
}

func webScore(web *probe.WebResult) float64 {
	if web == nil {
		return neutralScore
	}

	score := neutralScore
	if web.SecurityHeaders != nil && web.SecurityHeaders.Error == "" {
		score = float64(web.SecurityHeaders.Score)
	}

	if cert := web.SSLCertificate; cert != nil && cert.Error == "" {
		switch {
		case cert.Expired:
			score -= 30
		case cert.Severity == probe.SeverityHigh:
			score -= 15
		case cert.Severity == probe.SeverityMedium:
			score -= 10
		}
	}

	if content := web.SensitiveContent; content != nil {
		for _, exposed := range content.ExposedPaths {
			if exposed.Severity == probe.SeverityHigh {
				score -= 15
			} else {
				score -= 10
			}
		}
	}

	if redirect := web.HTTPSRedirect; redirect != nil && redirect.Error == "" && !redirect.Redirects {
		score -= 10
	}
	return clamp(score)
}

// emailScore sums earned record weights: SPF 25, DKIM 25, DMARC 35, MX 15.
// Only records that are actually present earn weight: Low earns the full
// weight, Medium half (a quarantining DMARC policy), anything worse zero.
// A domain with no authentication records can therefore earn at most the
// MX weight.
func emailScore(email *probe.EmailResult) float64 {
	if email == nil {
		return neutralScore
	}
	score := 0.0
	if spf := email.SPF; spf != nil && spf.Found {
		score += recordWeight(spf.Severity, 25)
	}
	if dkim := email.DKIM; dkim != nil && dkim.Found {
		score += recordWeight(dkim.Severity, 25)
	}
	if dmarc := email.DMARC; dmarc != nil && dmarc.Found {
		score += recordWeight(dmarc.Severity, 35)
	}
	if mx := email.MX; mx != nil && len(mx.Records) > 0 {
		score += recordWeight(mx.Severity, 15)
	}
	return clamp(score)
}

func recordWeight(severity probe.Severity, weight float64) float64 {
	switch severity {
	case probe.SeverityInfo, probe.SeverityLow:
		return weight
	case probe.SeverityMedium:
		return weight / 2
	}
	return 0
}

func systemScore(system *probe.SystemResult) float64 {
	if system == nil {
		return neutralScore
	}
	if system.ResolveError != "" {
		return 70
	}
	return 100
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// sortedCategories returns result categories in a stable order for
// deterministic iteration.
func sortedCategories(results map[probe.Category]probe.Result) []probe.Category {
	categories := make([]probe.Category, 0, len(results))
	for category := range results {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	return categories
}
