package risk

import (
	"sort"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

// minRecommendations is the floor padded with general advice.
const minRecommendations = 5

// generalRecommendations is the fixed best-practice list used to pad short
// recommendation sets.
var generalRecommendations = []string{
	"Use strong, unique passwords and implement multi-factor authentication",
	"Regularly back up your data and test the restoration process",
	"Conduct regular security awareness training for all staff",
	"Implement a comprehensive security policy with regular reviews",
	"Consider a managed security service for continuous monitoring and protection",
}

// Recommend turns probe findings into an ordered recommendation list.
// Findings are sorted by severity descending, de-duplicated by remediation
// text, then padded with general advice to at least five entries.
func Recommend(results map[probe.Category]probe.Result) []string {
	var findings []probe.Finding
	for _, category := range sortedCategories(results) {
		findings = append(findings, results[category].Findings...)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})

	seen := make(map[string]bool)
	recommendations := make([]string, 0, minRecommendations)
	for _, finding := range findings {
		if finding.Remediation == "" || seen[finding.Remediation] {
			continue
		}
		seen[finding.Remediation] = true
		recommendations = append(recommendations, finding.Remediation)
	}

	for _, rec := range generalRecommendations {
		if len(recommendations) >= minRecommendations {
			break
		}
		if !seen[rec] {
			seen[rec] = true
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}
