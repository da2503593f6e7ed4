package cmd

import (
	"strings"

	"github.com/fatih/color"

	"github.com/khanhnv2901/riskscan/internal/probe"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "completed":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

func formatSeverityWithColor(severity probe.Severity) string {
	switch severity {
	case probe.SeverityCritical, probe.SeverityHigh:
		return colorError(string(severity))
	case probe.SeverityMedium:
		return colorWarn(string(severity))
	case probe.SeverityLow:
		return colorSuccess(string(severity))
	default:
		return colorInfo(string(severity))
	}
}

func formatRiskLevelWithColor(level string) string {
	switch strings.ToLower(level) {
	case "low":
		return colorSuccess(level)
	case "low-medium", "medium":
		return colorInfo(level)
	case "medium-high":
		return colorWarn(level)
	default:
		return colorError(level)
	}
}
