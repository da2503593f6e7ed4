package risk

import (
	"testing"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

func TestRecommendOrdersBySeverity(t *testing.T) {
	results := map[probe.Category]probe.Result{
		probe.CategoryWeb: {
			Findings: []probe.Finding{
				{Severity: probe.SeverityMedium, Remediation: "Add security headers"},
			},
		},
		probe.CategoryNetwork: {
			Findings: []probe.Finding{
				{Severity: probe.SeverityCritical, Remediation: "Close Telnet"},
			},
		},
	}

	recommendations := Recommend(results)
	if len(recommendations) < 2 {
		t.Fatalf("got %d recommendations", len(recommendations))
	}
	if recommendations[0] != "Close Telnet" {
		t.Errorf("first recommendation = %q, want the Critical one first", recommendations[0])
	}
}

func TestRecommendDeduplicates(t *testing.T) {
	results := map[probe.Category]probe.Result{
		probe.CategoryNetwork: {
			Findings: []probe.Finding{
				{Severity: probe.SeverityHigh, Remediation: "Restrict RDP access"},
				{Severity: probe.SeverityHigh, Remediation: "Restrict RDP access"},
			},
		},
	}

	recommendations := Recommend(results)
	count := 0
	for _, rec := range recommendations {
		if rec == "Restrict RDP access" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("duplicate remediation appeared %d times", count)
	}
}

func TestRecommendPadsToMinimum(t *testing.T) {
	recommendations := Recommend(map[probe.Category]probe.Result{})
	if len(recommendations) != minRecommendations {
		t.Fatalf("got %d recommendations, want %d", len(recommendations), minRecommendations)
	}
	for i, rec := range recommendations {
		if rec != generalRecommendations[i] {
			t.Errorf("padding[%d] = %q, want %q", i, rec, generalRecommendations[i])
		}
	}
}

func TestRecommendSkipsEmptyRemediation(t *testing.T) {
	results := map[probe.Category]probe.Result{
		probe.CategorySystem: {
			Findings: []probe.Finding{
				{Severity: probe.SeverityInfo, Title: "note", Remediation: ""},
			},
		},
	}

	for _, rec := range Recommend(results) {
		if rec == "" {
			t.Fatal("empty recommendation leaked through")
		}
	}
}
